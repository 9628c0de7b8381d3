package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/rangeq/internal/config"
	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/internal/observability"
	"github.com/Sumatoshi-tech/rangeq/internal/rangeindex"
	"github.com/Sumatoshi-tech/rangeq/internal/server"
	"github.com/Sumatoshi-tech/rangeq/pkg/version"
)

// NewServeCommand creates the HTTP server command.
func NewServeCommand() *cobra.Command {
	var configPath, datasetPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve range queries over HTTP",
		Long: `Serve the dataset's series and interval sets over a JSON HTTP API.

Configuration is read from rangeq.yaml (., ./config, /etc/rangeq) or --config,
and every key can be overridden with RANGEQ_* environment variables, e.g.
RANGEQ_SERVER_PORT=9090. With dataset.watch the file is reloaded on change.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			if datasetPath != "" {
				cfg.Dataset.Path = datasetPath
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path")
	cmd.Flags().StringVarP(&datasetPath, flagDataset, "d", "", "dataset file (overrides dataset.path)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) (err error) {
	providers, err := observability.Init(cfg.Observability(observability.ModeServe, version.Version))
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(ctx)))
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	qm, err := observability.NewQueryMetrics(providers.Meter)
	if err != nil {
		return err
	}

	deps := rangeindex.Deps{Tracer: providers.Tracer, Metrics: qm, Logger: providers.Logger}
	if cfg.Cache.Enabled {
		deps.CacheSize = cfg.Cache.MaxEntries
	}

	ix := rangeindex.New(deps)

	if cfg.Dataset.Path != "" {
		ds, loadErr := dataset.Load(cfg.Dataset.Path)
		if loadErr != nil {
			return loadErr
		}

		if replaceErr := ix.Replace(ctx, ds); replaceErr != nil {
			return replaceErr
		}
	}

	srv := server.New(server.Options{
		Config:         cfg.Server,
		Index:          ix,
		Tracer:         providers.Tracer,
		RED:            red,
		MetricsHandler: providers.MetricsHandler,
		Logger:         providers.Logger,
	})

	watcher, err := newDatasetWatcher(ctx, cfg.Dataset, ix, providers.Logger)
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error { return srv.Run(groupCtx) })

	if watcher != nil {
		group.Go(func() error { return watcher.Run(groupCtx) })
	}

	return group.Wait()
}

// newDatasetWatcher returns nil when hot reload is off. Reloads are applied
// with ctx so they stop with the server.
func newDatasetWatcher(ctx context.Context, cfg config.DatasetConfig, ix *rangeindex.Index, logger *slog.Logger) (*dataset.Watcher, error) {
	if !cfg.Watch || cfg.Path == "" {
		return nil, nil //nolint:nilnil // watching disabled
	}

	return dataset.NewWatcher(cfg.Path, func(ds *dataset.Dataset) {
		if replaceErr := ix.Replace(ctx, ds); replaceErr != nil {
			logger.WarnContext(ctx, "dataset rejected", "error", replaceErr)
		}
	}, logger)
}
