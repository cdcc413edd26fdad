package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/editor"
	"github.com/goliatone/go-formwizard/pkg/layout"
)

var errUnchanged = errors.New("cli: edit left the layout unchanged")

func newLayoutCommand(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect and edit the onboarding layout",
		Long: `layout edits the stored layout the way the admin screen does.

Nodes are addressed by dotted index paths: "1" is the second step, "1.0" its
first section and "1.0.2" that section's third field. "." is the form.`,
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")

	var frontend bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, release, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			var form *layout.Form
			if frontend {
				form, err = b.FetchFrontendLayout(cmd.Context())
			} else {
				form, err = b.FetchAdminLayout(cmd.Context())
			}
			if err != nil {
				return err
			}
			return writeValue(a.out, output, form)
		},
	}
	show.Flags().BoolVar(&frontend, "frontend", false, "Hide sections that are not frontend visible")

	cmd.AddCommand(
		show,
		a.editCommand(&output, "rename-step <step> <title>", "Rename a step", cobra.ExactArgs(2),
			func(s *editor.Session, args []string) (bool, error) {
				step, err := parseIndex(args[0])
				if err != nil {
					return false, err
				}
				return s.RenameStep(step, args[1]), nil
			}),
		a.editCommand(&output, "reorder <parent> <index> <up|down>", "Swap a child with its neighbour", cobra.ExactArgs(3),
			func(s *editor.Session, args []string) (bool, error) {
				parent, err := layout.ParsePath(args[0])
				if err != nil {
					return false, err
				}
				index, err := parseIndex(args[1])
				if err != nil {
					return false, err
				}
				dir, err := parseDirection(args[2])
				if err != nil {
					return false, err
				}
				return s.ReorderWithinParent(parent, index, dir), nil
			}),
		a.editCommand(&output, "move <from-parent> <index> <to-parent>", "Move a section or field to another parent", cobra.ExactArgs(3),
			func(s *editor.Session, args []string) (bool, error) {
				from, err := layout.ParsePath(args[0])
				if err != nil {
					return false, err
				}
				index, err := parseIndex(args[1])
				if err != nil {
					return false, err
				}
				to, err := layout.ParsePath(args[2])
				if err != nil {
					return false, err
				}
				return s.MoveToAnotherParent(from, index, to), nil
			}),
		a.editCommand(&output, "toggle <section>", "Flip a section's frontend visibility", cobra.ExactArgs(1),
			func(s *editor.Session, args []string) (bool, error) {
				path, err := layout.ParsePath(args[0])
				if err != nil {
					return false, err
				}
				return s.ToggleVisibility(path), nil
			}),
	)
	return cmd
}

// editCommand loads a session, applies one edit, saves and prints the
// canonical layout.
func (a *app) editCommand(output *string, use, short string, args cobra.PositionalArgs, edit func(*editor.Session, []string) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			ctx := cmd.Context()
			b, release, err := a.openBackend(ctx)
			if err != nil {
				return err
			}
			defer release()

			session := editor.NewSession(b, editor.WithLogger(a.logger))
			if err := session.Load(ctx); err != nil {
				return err
			}
			changed, err := edit(session, argv)
			if err != nil {
				return err
			}
			if !changed {
				return fmt.Errorf("%w: the target is missing or locked", errUnchanged)
			}
			saved, err := session.Save(ctx)
			if err != nil {
				return err
			}
			return writeValue(a.out, *output, saved)
		},
	}
}

func parseIndex(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("cli: invalid index %q", raw)
	}
	return n, nil
}

func parseDirection(raw string) (editor.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "up":
		return editor.Up, nil
	case "down":
		return editor.Down, nil
	default:
		return 0, fmt.Errorf("cli: direction must be up or down, got %q", raw)
	}
}
