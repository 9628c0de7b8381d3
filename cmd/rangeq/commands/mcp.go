package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/internal/mcp"
	"github.com/Sumatoshi-tech/rangeq/internal/observability"
	"github.com/Sumatoshi-tech/rangeq/internal/rangeindex"
	"github.com/Sumatoshi-tech/rangeq/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug       bool
		datasetPath string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes the dataset as tools that AI agents can discover and invoke:
  - segment_query: aggregate a series over an index range
  - segment_update: change one value of a series
  - interval_overlap: intervals overlapping a target interval
  - interval_contains: intervals containing a point`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			providers, err := initMCPObservability(debug)
			if err != nil {
				return err
			}

			defer func() {
				err = errors.Join(err, providers.Shutdown(context.WithoutCancel(cmd.Context())))
			}()

			red, err := observability.NewREDMetrics(providers.Meter)
			if err != nil {
				return err
			}

			qm, err := observability.NewQueryMetrics(providers.Meter)
			if err != nil {
				return err
			}

			index := rangeindex.New(rangeindex.Deps{Tracer: providers.Tracer, Metrics: qm, Logger: providers.Logger})

			if datasetPath != "" {
				ds, loadErr := dataset.Load(datasetPath)
				if loadErr != nil {
					return loadErr
				}

				if replaceErr := index.Replace(cmd.Context(), ds); replaceErr != nil {
					return replaceErr
				}
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Index:   index,
				Logger:  providers.Logger,
				Metrics: red,
				Tracer:  providers.Tracer,
			})

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")
	cmd.Flags().StringVarP(&datasetPath, flagDataset, "d", "", "dataset file to serve")

	return cmd
}

func initMCPObservability(debug bool) (observability.Providers, error) {
	cfg := observability.DefaultConfig()
	cfg.ServiceVersion = version.Version
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	cfg.OTLPInsecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	cfg.Mode = observability.ModeMCP
	cfg.LogJSON = true

	if debug {
		cfg.LogLevel = slog.LevelDebug
	}

	return observability.Init(cfg)
}
