package cli

import (
	"github.com/spf13/cobra"

	formwizard "github.com/goliatone/go-formwizard"
	"github.com/goliatone/go-formwizard/internal/server"
	"github.com/goliatone/go-formwizard/internal/service"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("addr") {
				a.cfg.Addr = addr
			}
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := a.ensureSeeded(ctx, st); err != nil {
				return err
			}

			opts := []server.Option{server.WithLogger(a.logger)}
			if a.cfg.ValidateRequests {
				raw := formwizard.OpenAPIDocument()
				contract, err := server.LoadContract(ctx, raw)
				if err != nil {
					return err
				}
				opts = append(opts, server.WithContract(contract, raw))
			}
			srv := server.New(
				service.NewLayouts(st, service.WithLogger(a.logger)),
				service.NewUsers(st, service.WithLogger(a.logger)),
				opts...,
			)
			return srv.ListenAndServe(ctx, a.cfg.Addr, a.cfg.ShutdownGrace)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address override")
	return cmd
}
