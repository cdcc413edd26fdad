package testsupport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	formwizard "github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

// SampleForm returns a fresh copy of the embedded default layout. Testing
// helpers fail the test on error to keep setup concise.
func SampleForm(t testing.TB) *layout.Form {
	t.Helper()

	form, err := formwizard.DefaultLayout()
	if err != nil {
		t.Fatalf("decode default layout: %v", err)
	}
	return form
}

// LoadForm reads a JSON or YAML layout fixture without requiring testing.T,
// allowing callers to wire fixtures in setup functions.
func LoadForm(path string) (*layout.Form, error) {
	if path == "" {
		return nil, errors.New("testsupport: layout path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read layout: %w", err)
	}
	form, err := layout.Decode(data, path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: decode layout: %w", err)
	}
	return form, nil
}

// MustLoadForm loads a layout fixture or fails the test.
func MustLoadForm(t testing.TB, path string) *layout.Form {
	t.Helper()

	form, err := LoadForm(path)
	if err != nil {
		t.Fatalf("load layout: %v", err)
	}
	return form
}

// Context returns a test context cancelled when the test ends.
func Context(t testing.TB) context.Context {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// Labels returns field labels of a step in order, for compact assertions.
func Labels(step *layout.Step) []string {
	if step == nil {
		return nil
	}
	var out []string
	for _, field := range step.Fields() {
		out = append(out, field.Label)
	}
	return out
}
