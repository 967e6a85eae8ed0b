package cli

import (
	"github.com/smallbiznis/telcopulse/internal/refresh"
	"github.com/smallbiznis/telcopulse/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func serveOptions() fx.Option {
	return fx.Options(
		pipeline(),
		server.Module,
		refresh.SchedulerModule,
	)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled refreshes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app := fx.New(serveOptions())
			if err := app.Err(); err != nil {
				return err
			}
			app.Run()
			return nil
		},
	}
}
