package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/validation"
)

var (
	// ErrSubmitted is returned by SetValue once the run has been submitted.
	ErrSubmitted = errors.New("wizard: already submitted")
	// ErrUnknownField is returned by SetValue for a property no field binds.
	ErrUnknownField = errors.New("wizard: unknown field")
)

// DefaultAuthFailure is attached to the password field when the
// authenticator rejects without a message or cannot be reached.
const DefaultAuthFailure = "Authentication failed."

// FieldUpdater persists one field value.
type FieldUpdater interface {
	UpdateFieldValue(ctx context.Context, update account.FieldUpdate) (account.User, error)
}

// Authenticator runs the verify-or-create credential exchange.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (account.AuthResult, error)
}

// Outcome describes what a navigation input did.
type Outcome int

const (
	// OutcomeIgnored means a transition was in flight or the run is submitted.
	OutcomeIgnored Outcome = iota
	// OutcomeStayed means the input was accepted but the step did not change.
	OutcomeStayed
	// OutcomeInvalid means validation rejected at least one field.
	OutcomeInvalid
	// OutcomeAuthFailed means the credentials were refused.
	OutcomeAuthFailed
	// OutcomeMoved means the current step changed.
	OutcomeMoved
	// OutcomeSubmitted means the run reached the submitted state.
	OutcomeSubmitted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeStayed:
		return "stayed"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeAuthFailed:
		return "auth-failed"
	case OutcomeMoved:
		return "moved"
	case OutcomeSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Machine drives one wizard run over a frontend layout. Navigation inputs
// are serialised by a submitting flag: while a Next or Submit is in flight,
// further navigation returns OutcomeIgnored.
type Machine struct {
	form     *layout.Form
	updater  FieldUpdater
	auth     Authenticator
	logger   *slog.Logger
	parallel int
	onChange func(State)
	secret   map[string]bool

	mu         sync.Mutex
	current    int
	values     pairs
	persisted  pairs
	errs       validation.Errors
	email      string
	submitting bool
	submitted  bool
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the machine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithParallelUpdates caps concurrent per-field updates. Zero or less means
// no limit.
func WithParallelUpdates(n int) Option {
	return func(m *Machine) { m.parallel = n }
}

// OnChange registers a callback receiving the durable state after every
// completed input. The callback runs without the machine lock held.
func OnChange(fn func(State)) Option {
	return func(m *Machine) { m.onChange = fn }
}

// New builds a machine at step 0. form should already be the frontend view;
// the machine keeps its own copy.
func New(form *layout.Form, updater FieldUpdater, auth Authenticator, options ...Option) *Machine {
	m := &Machine{
		form:    form.Clone(),
		updater: updater,
		auth:    auth,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if m.form == nil {
		m.form = &layout.Form{}
	}
	m.secret = make(map[string]bool)
	for _, step := range m.form.Steps {
		for _, field := range step.Fields() {
			if field.FieldType == layout.FieldTypePassword {
				m.secret[field.UserProperty] = true
			}
		}
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Form returns a copy of the layout the machine runs over.
func (m *Machine) Form() *layout.Form { return m.form.Clone() }

// Step returns the current step index.
func (m *Machine) Step() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentStep returns the current step node. Callers must not mutate it.
func (m *Machine) CurrentStep() *layout.Step {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.form.StepAt(m.current)
}

// Value returns the recorded value for a user property.
func (m *Machine) Value(prop string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, _ := m.values.get(prop)
	return v
}

// Error returns the message recorded for a user property, if any.
func (m *Machine) Error(prop string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs.Get(prop)
}

// Errors returns every recorded message in insertion order.
func (m *Machine) Errors() [][2]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs.Pairs()
}

// AuthenticatedEmail is the email confirmed by the authentication step.
func (m *Machine) AuthenticatedEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

// Submitting reports whether a transition is in flight.
func (m *Machine) Submitting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitting
}

// Submitted reports whether the run has finished.
func (m *Machine) Submitted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted
}

// IsAuthStep reports whether step binds the email or password property.
func IsAuthStep(step *layout.Step) bool {
	for _, field := range step.Fields() {
		if p, err := account.ParseProperty(field.UserProperty); err == nil && p.Credential() {
			return true
		}
	}
	return false
}

func (m *Machine) fieldFor(prop string) *layout.Field {
	for _, step := range m.form.Steps {
		for _, field := range step.Fields() {
			if field.UserProperty == prop {
				return field
			}
		}
	}
	return nil
}

// SetValue records a value and validates it on its own, the way a field
// does when it loses focus. The message is recorded or cleared accordingly.
func (m *Machine) SetValue(prop, value string) (validation.Result, error) {
	m.mu.Lock()
	if m.submitted {
		m.mu.Unlock()
		return validation.Result{}, ErrSubmitted
	}
	field := m.fieldFor(prop)
	if field == nil {
		m.mu.Unlock()
		return validation.Result{}, fmt.Errorf("%w: %q", ErrUnknownField, prop)
	}
	result := validation.ValidateField(field, value)
	m.values.set(prop, value)
	m.errs.Set(prop, result.Message)
	m.mu.Unlock()

	m.notify()
	return result, nil
}

// Previous moves one step back without validating or persisting.
func (m *Machine) Previous() Outcome {
	m.mu.Lock()
	if m.submitting || m.submitted {
		m.mu.Unlock()
		return OutcomeIgnored
	}
	if m.current == 0 {
		m.mu.Unlock()
		return OutcomeStayed
	}
	m.current--
	m.mu.Unlock()

	m.notify()
	return OutcomeMoved
}

// Next validates the current step and either authenticates, or persists the
// changed fields and advances. At the last step it submits instead.
func (m *Machine) Next(ctx context.Context) (Outcome, error) {
	step, ok := m.begin(false)
	if !ok {
		return OutcomeIgnored, nil
	}
	outcome, err := m.advance(ctx, step)
	m.finish()
	return outcome, err
}

// Submit validates and persists the last step and finishes the run. It is
// ignored on any other step.
func (m *Machine) Submit(ctx context.Context) (Outcome, error) {
	step, ok := m.begin(true)
	if !ok {
		return OutcomeIgnored, nil
	}
	outcome, err := m.advance(ctx, step)
	m.finish()
	return outcome, err
}

// begin claims the submitting flag.
func (m *Machine) begin(lastOnly bool) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting || m.submitted || len(m.form.Steps) == 0 {
		return 0, false
	}
	if lastOnly && m.current != len(m.form.Steps)-1 {
		return 0, false
	}
	m.submitting = true
	return m.current, true
}

func (m *Machine) finish() {
	m.mu.Lock()
	m.submitting = false
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) advance(ctx context.Context, index int) (Outcome, error) {
	step := m.form.StepAt(index)
	fields := step.Fields()

	m.mu.Lock()
	_, errs := validation.ValidateFields(fields, m.values.asMap())
	for _, field := range fields {
		msg, _ := errs.Get(field.UserProperty)
		m.errs.Set(field.UserProperty, msg)
	}
	values := m.values.asMap()
	email := m.email
	m.mu.Unlock()

	if errs.Len() > 0 {
		return OutcomeInvalid, nil
	}

	if IsAuthStep(step) {
		return m.authenticate(ctx, index, values)
	}

	m.persist(ctx, fields, values, email)
	return m.moveOn(index), nil
}

func (m *Machine) authenticate(ctx context.Context, index int, values map[string]string) (Outcome, error) {
	email := values[string(account.PropertyEmail)]
	password := values[string(account.PropertyPassword)]

	res, err := m.auth.Authenticate(ctx, email, password)
	if err != nil {
		m.mu.Lock()
		m.errs.Set(string(account.PropertyPassword), DefaultAuthFailure)
		m.mu.Unlock()
		m.logger.Error("authentication request failed", "error", err)
		return OutcomeAuthFailed, fmt.Errorf("wizard: authenticate: %w", err)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = DefaultAuthFailure
		}
		m.mu.Lock()
		m.errs.Set(string(account.PropertyPassword), msg)
		m.mu.Unlock()
		return OutcomeAuthFailed, nil
	}

	m.mu.Lock()
	m.email = email
	m.persisted.set(string(account.PropertyEmail), email)
	m.mu.Unlock()
	m.logger.Info("wizard authenticated", "email", email, "created", res.Created)
	return m.moveOn(index), nil
}

// persist issues one independent update per changed field. Failures are
// logged and not retried; they never block navigation.
func (m *Machine) persist(ctx context.Context, fields []*layout.Field, values map[string]string, email string) {
	type change struct {
		field *layout.Field
		value string
	}
	var changes []change
	m.mu.Lock()
	for _, field := range fields {
		value := values[field.UserProperty]
		last, _ := m.persisted.get(field.UserProperty)
		if value != last {
			changes = append(changes, change{field: field, value: value})
		}
	}
	m.mu.Unlock()
	if len(changes) == 0 {
		return
	}

	var g errgroup.Group
	if m.parallel > 0 {
		g.SetLimit(m.parallel)
	}
	saved := make([]bool, len(changes))
	for i, c := range changes {
		i, c := i, c
		g.Go(func() error {
			_, err := m.updater.UpdateFieldValue(ctx, account.FieldUpdate{
				UserProperty: c.field.UserProperty,
				Value:        c.value,
				FieldType:    c.field.FieldType,
				Email:        email,
			})
			if err != nil {
				m.logger.Warn("field update failed", "property", c.field.UserProperty, "error", err)
				return nil
			}
			saved[i] = true
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	for i, c := range changes {
		if saved[i] {
			m.persisted.set(c.field.UserProperty, c.value)
		}
	}
	m.mu.Unlock()
}

func (m *Machine) moveOn(index int) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index >= len(m.form.Steps)-1 {
		m.submitted = true
		m.logger.Info("wizard submitted", "email", m.email)
		return OutcomeSubmitted
	}
	m.current = index + 1
	return OutcomeMoved
}

// Snapshot returns the durable state. Password values are left out.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() State {
	errs := m.errs.Pairs()
	out := make([]Pair, 0, len(errs))
	for _, e := range errs {
		out = append(out, Pair{Key: e[0], Value: e[1]})
	}
	values := m.values.snapshot()
	kept := values[:0]
	for _, v := range values {
		if !m.secret[v.Key] {
			kept = append(kept, v)
		}
	}
	return State{
		CurrentStep:        m.current,
		Values:             kept,
		Errors:             out,
		Persisted:          m.persisted.snapshot(),
		AuthenticatedEmail: m.email,
		Submitted:          m.submitted,
	}
}

// Restore replaces the run state. The step index is clamped to the layout,
// which may have changed since the state was saved. Restore is ignored while
// a transition is in flight.
func (m *Machine) Restore(state State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitting {
		return false
	}
	current := state.CurrentStep
	if current >= len(m.form.Steps) {
		current = len(m.form.Steps) - 1
	}
	if current < 0 {
		current = 0
	}
	m.current = current
	m.values = pairsFrom(state.Values)
	m.persisted = pairsFrom(state.Persisted)
	m.errs = validation.Errors{}
	for _, e := range state.Errors {
		m.errs.Set(e.Key, e.Value)
	}
	m.email = state.AuthenticatedEmail
	m.submitted = state.Submitted
	return true
}

// Reset starts a fresh run at step 0.
func (m *Machine) Reset() bool {
	return m.Restore(State{})
}

func (m *Machine) notify() {
	if m.onChange == nil {
		return
	}
	m.onChange(m.Snapshot())
}
