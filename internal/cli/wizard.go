package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/wizard"
	"github.com/goliatone/go-formwizard/pkg/wizard/tui"
	"github.com/goliatone/go-formwizard/pkg/wizardstate"
)

func (a *app) openStateStore() (wizardstate.Store, func(), error) {
	if a.cfg.RedisAddr != "" {
		rc := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddr})
		st := wizardstate.NewRedis(rc, wizardstate.WithTTL(a.cfg.StateTTL))
		return st, func() { _ = rc.Close() }, nil
	}
	st, err := wizardstate.NewFile(a.cfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	return st, func() {}, nil
}

func newWizardCommand(a *app) *cobra.Command {
	var session string
	var fresh bool
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Walk through the onboarding wizard in the terminal",
		Long: `wizard prompts for every visible field, step by step. Progress is saved
after every answer; pass the printed --session key to resume later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			b, release, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer release()

			states, closeStates, err := a.openStateStore()
			if err != nil {
				return err
			}
			defer closeStates()

			if session == "" {
				session = wizardstate.NewKey()
				if _, err := fmt.Fprintf(a.out, "session %s\n", session); err != nil {
					return err
				}
			}

			form, err := b.FetchFrontendLayout(ctx)
			if err != nil {
				return err
			}
			machine := wizard.New(form, b, b,
				wizard.WithLogger(a.logger),
				wizardstate.Autosave(ctx, states, session, func(err error) {
					a.logger.Warn("wizard state not saved", "session", session, "error", err)
				}),
			)
			if fresh {
				if err := states.Delete(ctx, session); err != nil {
					return err
				}
			} else if resumed, err := wizardstate.Resume(ctx, states, session, machine); err != nil {
				return err
			} else if resumed {
				a.logger.Info("wizard resumed", "session", session, "step", machine.Step())
			}

			return a.runWizard(ctx, machine, states, session)
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "Session key to resume")
	cmd.Flags().BoolVar(&fresh, "restart", false, "Discard saved progress for the session")
	return cmd
}

// runWizard drives the machine to completion, then clears the saved state
// and resets the run.
func (a *app) runWizard(ctx context.Context, machine *wizard.Machine, states wizardstate.Store, session string) error {
	opts := []tui.Option{tui.WithLogger(a.logger)}
	if a.driver != nil {
		opts = append(opts, tui.WithPromptDriver(a.driver))
	}
	if err := tui.NewRunner(machine, opts...).Run(ctx); err != nil {
		return err
	}
	if err := states.Delete(ctx, session); err != nil {
		return err
	}
	machine.Reset()
	return nil
}
