package editor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formwizard/pkg/layout"
)

type fakeBackend struct {
	mu      sync.Mutex
	stored  *layout.Form
	saveErr error
	saves   int
	block   chan struct{}
	entered chan struct{}
}

func (b *fakeBackend) FetchAdminLayout(context.Context) (*layout.Form, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stored == nil {
		return nil, nil
	}
	return b.stored.Clone(), nil
}

func (b *fakeBackend) SaveLayout(_ context.Context, form *layout.Form) (*layout.Form, error) {
	if b.entered != nil {
		b.entered <- struct{}{}
	}
	if b.block != nil {
		<-b.block
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves++
	if b.saveErr != nil {
		return nil, b.saveErr
	}
	b.stored = form.Clone()
	return form.Clone(), nil
}

func TestSession_EditsStayLocalUntilSave(t *testing.T) {
	backend := &fakeBackend{stored: newForm()}
	session := NewSession(backend)
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !session.RenameStep(0, "Renamed") {
		t.Fatal("rename should apply")
	}
	if backend.stored.Steps[0].Title != "One" {
		t.Fatal("backend changed before save")
	}
	if session.Synced().Steps[0].Title != "One" {
		t.Fatal("snapshot changed before save")
	}

	saved, err := session.Save(context.Background())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Steps[0].Title != "Renamed" {
		t.Fatalf("saved title = %q", saved.Steps[0].Title)
	}
	if diff := cmp.Diff(session.Synced(), session.Working()); diff != "" {
		t.Fatalf("working should match snapshot after save (-want +got):\n%s", diff)
	}
}

func TestSession_FailedSaveKeepsWorkingCopy(t *testing.T) {
	backend := &fakeBackend{stored: newForm(), saveErr: errors.New("boom")}
	session := NewSession(backend)
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	session.ToggleVisibility(layout.Path{1, 0})
	edited := session.Working()

	if _, err := session.Save(context.Background()); err == nil {
		t.Fatal("expected save error")
	}
	if diff := cmp.Diff(edited, session.Working()); diff != "" {
		t.Fatalf("working copy lost (-want +got):\n%s", diff)
	}
	if !session.Synced().Steps[1].Sections[0].IsFrontendVisible {
		t.Fatal("snapshot should be untouched")
	}
}

func TestSession_RejectsConcurrentSave(t *testing.T) {
	backend := &fakeBackend{
		stored:  newForm(),
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	session := NewSession(backend)
	if err := session.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := session.Save(context.Background())
		done <- err
	}()
	<-backend.entered

	if _, err := session.Save(context.Background()); !errors.Is(err, ErrSaveInProgress) {
		t.Fatalf("expected ErrSaveInProgress, got %v", err)
	}

	close(backend.block)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
	if backend.saves != 1 {
		t.Fatalf("saves = %d", backend.saves)
	}
}

func TestSession_WithoutLayout(t *testing.T) {
	session := NewSession(&fakeBackend{})
	if err := session.Load(context.Background()); !errors.Is(err, ErrNoLayout) {
		t.Fatalf("expected ErrNoLayout, got %v", err)
	}
	if session.RenameStep(0, "x") {
		t.Fatal("edit without layout should be a no-op")
	}
	if _, err := session.Save(context.Background()); !errors.Is(err, ErrNoLayout) {
		t.Fatalf("expected ErrNoLayout, got %v", err)
	}
}
