// Package wizardstate persists wizard.State between runs so a user can
// resume onboarding after a reload or a restart.
package wizardstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// ErrNotFound is returned by Load when no state is stored under the key.
var ErrNotFound = errors.New("wizardstate: not found")

// Store saves and loads wizard state by session key.
type Store interface {
	Load(ctx context.Context, key string) (wizard.State, error)
	Save(ctx context.Context, key string, state wizard.State) error
	Delete(ctx context.Context, key string) error
}

// NewKey returns a fresh session key.
func NewKey() string {
	return uuid.NewString()
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("wizardstate: key is required")
	}
	return nil
}

// Memory keeps states in process.
type Memory struct {
	mu     sync.RWMutex
	states map[string]wizard.State
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]wizard.State)}
}

func (m *Memory) Load(_ context.Context, key string) (wizard.State, error) {
	if err := checkKey(key); err != nil {
		return wizard.State{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[key]
	if !ok {
		return wizard.State{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return cloneState(state), nil
}

func (m *Memory) Save(_ context.Context, key string, state wizard.State) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[key] = cloneState(state)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func cloneState(s wizard.State) wizard.State {
	out := s
	out.Values = append([]wizard.Pair(nil), s.Values...)
	out.Errors = append([]wizard.Pair(nil), s.Errors...)
	out.Persisted = append([]wizard.Pair(nil), s.Persisted...)
	return out
}

// Autosave returns a wizard.OnChange callback that saves every state
// change under key. Save failures go to report, which may be nil.
func Autosave(ctx context.Context, store Store, key string, report func(error)) wizard.Option {
	return wizard.OnChange(func(state wizard.State) {
		if err := store.Save(ctx, key, state); err != nil && report != nil {
			report(err)
		}
	})
}

// Resume restores the state saved under key into machine. It reports false
// when nothing was stored.
func Resume(ctx context.Context, store Store, key string, machine *wizard.Machine) (bool, error) {
	state, err := store.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return machine.Restore(state), nil
}
