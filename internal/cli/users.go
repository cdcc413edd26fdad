package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newUsersCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect onboarding users",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users by creation time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, release, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			users, err := b.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEMAIL\tCITY\tCREATED")
			for _, u := range users {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.Email, u.City, u.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	var output string
	show := &cobra.Command{
		Use:   "show <email>",
		Short: "Print one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, release, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			user, err := b.UserByEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeValue(a.out, output, user)
		},
	}
	show.Flags().StringVarP(&output, "output", "o", "yaml", "Output format (yaml, json)")

	exists := &cobra.Command{
		Use:   "exists <email>",
		Short: "Report whether a user is registered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, release, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			ok, err := b.UserExists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, ok)
			return err
		},
	}

	cmd.AddCommand(list, show, exists)
	return cmd
}
