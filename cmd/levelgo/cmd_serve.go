package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/levelapp/levelgo/internal/projectconfig"
	"github.com/levelapp/levelgo/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var port int
	var resultsDir string
	var corsOrigins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the evaluation HTTP API",
		Long: `Start the evaluation HTTP API.

Endpoints:
  POST /api/evaluate   Run a batch evaluation and return the full report
  GET  /api/health     Health check
  GET  /api/summary    Aggregate metrics across stored runs
  GET  /api/runs       List stored runs
  GET  /api/runs/{id}  Full report for one run

Judges and the agent endpoint come from .levelapp.yaml; requests can
override the endpoint, model, attempts, and test name per run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}

			server, err := webserver.New(webserver.Config{
				Port:           port,
				ResultsDir:     resultsDir,
				AllowedOrigins: corsOrigins,
				Project:        cfg,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from project config)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "Directory holding exported result files")
	cmd.Flags().StringArrayVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origin (can be repeated)")

	return cmd
}
