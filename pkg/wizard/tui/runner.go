// Package tui walks a wizard.Machine from a terminal.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/goliatone/go-formwizard/pkg/layout"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

const (
	actionNext     = "Next"
	actionPrevious = "Previous"
	actionSubmit   = "Submit"
	actionEdit     = "Edit answers"
)

// Theme holds message prefixes.
type Theme struct {
	StepPrefix  string
	ErrorPrefix string
}

// Runner prompts for every field of the current step, then asks where to go.
type Runner struct {
	machine *wizard.Machine
	driver  PromptDriver
	logger  *slog.Logger
	theme   Theme
}

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) { r.theme = theme }
}

// NewRunner binds a runner to machine. The survey driver is used unless
// another is supplied.
func NewRunner(machine *wizard.Machine, opts ...Option) *Runner {
	r := &Runner{
		machine: machine,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		theme:   Theme{StepPrefix: "==", ErrorPrefix: "!"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver()
	}
	return r
}

// Run drives the machine until it is submitted or the driver fails.
func (r *Runner) Run(ctx context.Context) error {
	steps := len(r.machine.Form().Steps)
	if steps == 0 {
		return r.driver.Info(ctx, "Nothing to fill in.")
	}
	for !r.machine.Submitted() {
		index := r.machine.Step()
		step := r.machine.CurrentStep()
		if err := r.driver.Info(ctx, fmt.Sprintf("%s Step %d of %d: %s", r.theme.StepPrefix, index+1, steps, step.Title)); err != nil {
			return err
		}
		if err := r.fillStep(ctx, step); err != nil {
			return err
		}
		if err := r.navigate(ctx, index, steps); err != nil {
			return err
		}
	}
	return r.driver.Info(ctx, "Thanks, your onboarding is complete.")
}

func (r *Runner) fillStep(ctx context.Context, step *layout.Step) error {
	for _, field := range step.Fields() {
		for {
			value, err := r.ask(ctx, field)
			if err != nil {
				return err
			}
			res, err := r.machine.SetValue(field.UserProperty, value)
			if err != nil {
				return err
			}
			if res.OK() {
				break
			}
			if err := r.driver.Info(ctx, fmt.Sprintf("%s %s", r.theme.ErrorPrefix, res.Message)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) ask(ctx context.Context, field *layout.Field) (string, error) {
	cfg := InputConfig{
		Message: field.Label,
		Default: r.machine.Value(field.UserProperty),
	}
	if field.IsRequired {
		cfg.Message += " *"
	}
	switch field.FieldType {
	case layout.FieldTypePassword:
		return r.driver.Password(ctx, cfg)
	case layout.FieldTypeMultilineText:
		return r.driver.TextArea(ctx, cfg)
	case layout.FieldTypeDate:
		cfg.Help = "YYYY-MM-DD"
	case layout.FieldTypePostalCode:
		cfg.Help = "5 characters"
	}
	return r.driver.Input(ctx, cfg)
}

func (r *Runner) navigate(ctx context.Context, index, steps int) error {
	forward := actionNext
	if index == steps-1 {
		forward = actionSubmit
	}
	options := []string{forward, actionEdit}
	if index > 0 {
		options = append(options, actionPrevious)
	}
	choice, err := r.driver.Select(ctx, SelectConfig{Message: "Continue", Options: options})
	if err != nil {
		return err
	}
	if choice < 0 || choice >= len(options) {
		return fmt.Errorf("tui: invalid choice %d", choice)
	}

	switch options[choice] {
	case actionPrevious:
		r.machine.Previous()
		return nil
	case actionEdit:
		return nil
	}

	var outcome wizard.Outcome
	if forward == actionSubmit {
		outcome, err = r.machine.Submit(ctx)
	} else {
		outcome, err = r.machine.Next(ctx)
	}
	if err != nil {
		r.logger.Warn("wizard transition failed", "step", index, "error", err)
	}
	if outcome == wizard.OutcomeInvalid || outcome == wizard.OutcomeAuthFailed {
		for _, pair := range r.machine.Errors() {
			if err := r.driver.Info(ctx, fmt.Sprintf("%s %s", r.theme.ErrorPrefix, pair[1])); err != nil {
				return err
			}
		}
	}
	return nil
}
