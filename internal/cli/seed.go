package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSeedCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored layout with a seed document",
		Long:  "seed writes a layout document (YAML or JSON) to the configured store, replacing the current layout. Users are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if file == "" {
				file = a.cfg.Seed
			}
			form, err := loadSeed(file)
			if err != nil {
				return err
			}
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Seed(ctx, form); err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "seeded form %d (%s) with %d steps\n", form.ID, form.Name, len(form.Steps))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Seed document (defaults to the built-in layout)")
	return cmd
}
