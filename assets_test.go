package formwizard

import (
	"bytes"
	"testing"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

func TestDefaultLayoutDecodes(t *testing.T) {
	form, err := DefaultLayout()
	if err != nil {
		t.Fatalf("decode seed: %v", err)
	}
	if err := form.CheckInvariants(); err != nil {
		t.Fatalf("seed violates invariants: %v", err)
	}
	if len(form.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(form.Steps))
	}
	credentials := form.SectionAt(layout.Path{0, 0})
	if credentials == nil || credentials.IsAdminMoveable {
		t.Fatal("credentials section should be locked")
	}
	view := form.FrontendView()
	if got := len(view.Steps[2].Sections); got != 1 {
		t.Fatalf("frontend address step should hide the country section, got %d sections", got)
	}
}

func TestOpenAPIDocumentEmbedded(t *testing.T) {
	if !bytes.Contains(OpenAPIDocument(), []byte("/api/layout/admin")) {
		t.Fatal("openapi document missing layout route")
	}
}
