package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/memorywall/internal/api"
	"github.com/matzehuels/memorywall/pkg/ingest"
	"github.com/matzehuels/memorywall/pkg/metrics"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		listen  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout and upload HTTP API",
		Long: `Serve the HTTP API.

Routes:
  POST /layout                   lay out tiles sent in the request
  GET  /walls/{wallID}/layout    lay out a stored wall
  POST /walls/{wallID}/join      join a wall with its code
  POST /walls/{wallID}/tiles     upload files or a note (multipart)
  GET  /healthz, /readyz         liveness and readiness
  GET  /metrics                  Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.Listen = listen
			}
			defaults, err := cfg.PipelineOptions()
			if err != nil {
				return err
			}

			metrics.New(prometheus.DefaultRegisterer).Install()

			runner, err := c.newRunner(ctx, cfg, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			ev, err := c.openEvents(cfg)
			if err != nil {
				return err
			}
			defer ev.Close()

			blobs, probe, err := c.openBlobs(ctx, cfg)
			if err != nil {
				return err
			}

			health := metrics.NewHealthChecker(0)
			health.Register("store", runner.Store.Ping)
			if probe != nil {
				health.Register("blob", probe)
			}

			srv := api.New(api.Options{
				Runner: runner,
				Uploader: &ingest.Uploader{
					Store:     runner.Store,
					Blobs:     blobs,
					Publisher: ev.Publisher,
					Logger:    logger,
				},
				Health:   health,
				Defaults: defaults,
				Logger:   logger,
			})
			return api.Run(ctx, cfg.Server, srv.Handler(), logger)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default: server.listen from the config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}
