package wizardstate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

var safeKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// File keeps one YAML document per key under a directory.
type File struct {
	dir string
	mu  sync.Mutex
}

// NewFile returns a store rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wizardstate: create %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if !safeKey.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("wizardstate: invalid key %q", key)
	}
	return filepath.Join(f.dir, key+".yaml"), nil
}

func (f *File) Load(_ context.Context, key string) (wizard.State, error) {
	path, err := f.path(key)
	if err != nil {
		return wizard.State{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return wizard.State{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return wizard.State{}, fmt.Errorf("wizardstate: read %s: %w", key, err)
	}
	var state wizard.State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return wizard.State{}, fmt.Errorf("wizardstate: decode %s: %w", key, err)
	}
	return state, nil
}

func (f *File) Save(_ context.Context, key string, state wizard.State) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("wizardstate: encode %s: %w", key, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("wizardstate: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("wizardstate: write %s: %w", key, err)
	}
	return nil
}

func (f *File) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("wizardstate: delete %s: %w", key, err)
	}
	return nil
}
