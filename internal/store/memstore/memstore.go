// Package memstore is the in-memory Store. Transactions run against a cloned
// state that replaces the live one only when the callback succeeds.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-formwizard/internal/store"
	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

type state struct {
	forms    map[int64]string
	steps    map[int64]layout.StepRecord
	sections map[int64]layout.SectionRecord
	fields   map[int64]layout.FieldRecord
	users    map[int64]account.User
}

func newState() state {
	return state{
		forms:    map[int64]string{},
		steps:    map[int64]layout.StepRecord{},
		sections: map[int64]layout.SectionRecord{},
		fields:   map[int64]layout.FieldRecord{},
		users:    map[int64]account.User{},
	}
}

func (s state) clone() state {
	out := state{
		forms:    make(map[int64]string, len(s.forms)),
		steps:    make(map[int64]layout.StepRecord, len(s.steps)),
		sections: make(map[int64]layout.SectionRecord, len(s.sections)),
		fields:   make(map[int64]layout.FieldRecord, len(s.fields)),
		users:    make(map[int64]account.User, len(s.users)),
	}
	for k, v := range s.forms {
		out.forms[k] = v
	}
	for k, v := range s.steps {
		out.steps[k] = v
	}
	for k, v := range s.sections {
		out.sections[k] = v
	}
	for k, v := range s.fields {
		out.fields[k] = v
	}
	for k, v := range s.users {
		out.users[k] = cloneUser(v)
	}
	return out
}

func cloneUser(u account.User) account.User {
	if u.Birthdate != nil {
		b := *u.Birthdate
		u.Birthdate = &b
	}
	return u
}

// Store keeps every row in maps guarded by one lock.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for user creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// New returns an empty store.
func New(options ...Option) *Store {
	s := &Store{state: newState(), nowFn: time.Now}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

var _ store.Store = (*Store)(nil)

// InTx runs fn against a private copy of the state and commits it when fn
// returns nil. Transactions are serialised.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &txn{state: s.state.clone(), now: s.nowFn()}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

func (s *Store) Seed(ctx context.Context, form *layout.Form) error {
	if form == nil {
		return fmt.Errorf("memstore: seed: %w", store.ErrInvalid)
	}
	return s.InTx(ctx, func(tx store.Tx) error {
		t := tx.(*txn)
		t.state.forms = map[int64]string{form.ID: form.Name}
		t.state.steps = map[int64]layout.StepRecord{}
		t.state.sections = map[int64]layout.SectionRecord{}
		t.state.fields = map[int64]layout.FieldRecord{}
		steps, sections, fields := store.Records(form)
		for _, rec := range steps {
			if err := t.UpsertStep(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range sections {
			if err := t.UpsertSection(ctx, rec); err != nil {
				return err
			}
		}
		for _, rec := range fields {
			if err := t.UpsertField(ctx, rec); err != nil {
				return err
			}
		}
		if _, ok := t.state.users[account.DemoUserID]; !ok {
			demo := store.DemoUser()
			demo.CreatedAt = t.now
			t.state.users[demo.ID] = demo
		}
		return nil
	})
}

func (s *Store) Close() error { return nil }

func (s *Store) ActiveForm(ctx context.Context) (*layout.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.activeForm()
}

func (s *Store) Form(ctx context.Context, id int64) (*layout.Form, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.form(id)
}

func (s *Store) ListUsers(ctx context.Context) ([]account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listUsers(), nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.userByID(id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.userByEmail(email)
}

func (s state) activeForm() (*layout.Form, error) {
	if len(s.forms) == 0 {
		return nil, store.ErrFormNotFound
	}
	var lowest int64
	first := true
	for id := range s.forms {
		if first || id < lowest {
			lowest = id
			first = false
		}
	}
	return s.form(lowest)
}

func (s state) form(id int64) (*layout.Form, error) {
	name, ok := s.forms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", store.ErrFormNotFound, id)
	}
	steps := make([]layout.StepRecord, 0, len(s.steps))
	for _, rec := range s.steps {
		steps = append(steps, rec)
	}
	sections := make([]layout.SectionRecord, 0, len(s.sections))
	for _, rec := range s.sections {
		sections = append(sections, rec)
	}
	fields := make([]layout.FieldRecord, 0, len(s.fields))
	for _, rec := range s.fields {
		fields = append(fields, rec)
	}
	return layout.Assemble(layout.Form{ID: id, Name: name}, steps, sections, fields), nil
}

func (s state) listUsers() []account.User {
	out := make([]account.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s state) userByID(id int64) (account.User, error) {
	u, ok := s.users[id]
	if !ok {
		return account.User{}, fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	return cloneUser(u), nil
}

func (s state) userByEmail(email string) (account.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return account.User{}, fmt.Errorf("%w: user %q", store.ErrNotFound, email)
}

type txn struct {
	state state
	now   time.Time
}

func (t *txn) ActiveForm(context.Context) (*layout.Form, error) { return t.state.activeForm() }

func (t *txn) Form(_ context.Context, id int64) (*layout.Form, error) { return t.state.form(id) }

func (t *txn) ListUsers(context.Context) ([]account.User, error) { return t.state.listUsers(), nil }

func (t *txn) UserByID(_ context.Context, id int64) (account.User, error) {
	return t.state.userByID(id)
}

func (t *txn) UserByEmail(_ context.Context, email string) (account.User, error) {
	return t.state.userByEmail(email)
}

func (t *txn) UpsertStep(_ context.Context, rec layout.StepRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: step id %d", store.ErrInvalid, rec.ID)
	}
	if _, ok := t.state.forms[rec.FormID]; !ok {
		return fmt.Errorf("%w: form %d for step %d", store.ErrNotFound, rec.FormID, rec.ID)
	}
	t.state.steps[rec.ID] = rec
	return nil
}

func (t *txn) UpsertSection(_ context.Context, rec layout.SectionRecord) error {
	if rec.ID <= 0 {
		return fmt.Errorf("%w: section id %d", store.ErrInvalid, rec.ID)
	}
	if _, ok := t.state.steps[rec.StepID]; !ok {
		return fmt.Errorf("%w: step %d for section %d", store.ErrNotFound, rec.StepID, rec.ID)
	}
	t.state.sections[rec.ID] = rec
	return nil
}

func (t *txn) UpsertField(_ context.Context, rec layout.FieldRecord) error {
	if rec.ID <= 0 || !rec.FieldType.Valid() {
		return fmt.Errorf("%w: field %d", store.ErrInvalid, rec.ID)
	}
	if _, ok := t.state.sections[rec.SectionID]; !ok {
		return fmt.Errorf("%w: section %d for field %d", store.ErrNotFound, rec.SectionID, rec.ID)
	}
	t.state.fields[rec.ID] = rec
	return nil
}

func (t *txn) CreateUser(_ context.Context, u account.User) (account.User, error) {
	if strings.TrimSpace(u.Email) == "" {
		return account.User{}, fmt.Errorf("%w: user email required", store.ErrInvalid)
	}
	if _, err := t.state.userByEmail(u.Email); err == nil {
		return account.User{}, fmt.Errorf("%w: user %q", store.ErrDuplicate, u.Email)
	}
	if u.ID == 0 {
		for id := range t.state.users {
			if id > u.ID {
				u.ID = id
			}
		}
		u.ID++
	} else if _, exists := t.state.users[u.ID]; exists {
		return account.User{}, fmt.Errorf("%w: user %d", store.ErrDuplicate, u.ID)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = t.now
	}
	t.state.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (t *txn) SetUserProperty(_ context.Context, id int64, prop account.Property, value any) error {
	u, ok := t.state.users[id]
	if !ok {
		return fmt.Errorf("%w: user %d", store.ErrNotFound, id)
	}
	if prop == account.PropertyEmail {
		email, _ := value.(string)
		if other, err := t.state.userByEmail(email); err == nil && other.ID != id {
			return fmt.Errorf("%w: user %q", store.ErrDuplicate, email)
		}
	}
	if err := u.Apply(prop, value); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalid, err)
	}
	t.state.users[id] = u
	return nil
}
