package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"evprobe/internal/api"
	"evprobe/internal/logging"
	"evprobe/internal/metrics"
	"evprobe/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bindFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve probe lookups over HTTP",
		Long: `Serve probe lookups over HTTP.

Endpoints:
  GET /v1/streams?path=<p>&select=v:0
  GET /v1/streams/all?path=<p>
  GET /v1/format?path=<p>
  GET /healthz
  GET /metrics`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			for _, result := range preflight.Failed(preflight.RunAll(runCtx, cfg)) {
				logging.WarnWithContext(logger, "preflight check failed", "preflight",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldImpact, "lookups may return empty metadata"),
					logging.String(logging.FieldErrorHint, "run evprobe status for details"),
				)
			}

			m := metrics.New()
			prober, err := api.OpenProber(runCtx, cfg, logger, m)
			if err != nil {
				return err
			}
			defer func() {
				if closeErr := prober.Close(); closeErr != nil {
					logger.Warn("close probe cache failed", logging.Error(closeErr))
				}
			}()
			if removed, err := prober.Cache().Prune(runCtx); err != nil {
				logger.Warn("startup prune failed", logging.Error(err))
			} else if removed > 0 {
				logger.Info("pruned expired probe results", logging.Int("removed", removed))
			}

			bind := strings.TrimSpace(bindFlag)
			if bind == "" {
				bind = cfg.Server.Bind
			}
			server := api.NewServer(api.Options{
				Prober:    prober,
				Metrics:   m,
				Logger:    logger,
				MediaRoot: cfg.Server.MediaRoot,
				FFprobe:   cfg.FFprobeBinary(),
			})
			return server.ListenAndServe(runCtx, bind, cfg.ShutdownTimeout())
		},
	}

	cmd.Flags().StringVar(&bindFlag, "bind", "", "Listen address (overrides server.bind)")
	return cmd
}
