package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/internal/render"
)

// NewSegmentCommand creates the segment command group.
func NewSegmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Range aggregation over a series",
	}

	cmd.AddCommand(newSegmentQueryCommand(), newSegmentPlotCommand())

	return cmd
}

// segmentQuery holds flags of the segment query command.
type segmentQuery struct {
	datasetPath string
	series      string
	ranges      []string
	updates     []string
	describe    bool
	save        string
}

func newSegmentQueryCommand() *cobra.Command {
	sq := &segmentQuery{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Aggregate a series over index ranges",
		Long: `Aggregate a series over one or more inclusive index ranges.

Updates given with -u are applied, in order, before the ranges are queried:
  -u 2=7      set index 2 to 7
  -u 2=+10    add 10 to index 2 (use +-3 to subtract)

With --save the updated dataset is written to a new file (.lz4 compresses).`,
		Example: "  rangeq segment query -d ranges.yaml -s latency -r 0:4 -u 2=+10 -r 1:3",
		RunE:    sq.run,
	}

	cmd.Flags().StringVarP(&sq.datasetPath, flagDataset, "d", "", "dataset file (.yaml, .json, optionally .lz4)")
	cmd.Flags().StringVarP(&sq.series, "series", "s", "", "series name")
	cmd.Flags().StringArrayVarP(&sq.ranges, "range", "r", nil, "inclusive range START:END (repeatable)")
	cmd.Flags().StringArrayVarP(&sq.updates, "update", "u", nil, "INDEX=VALUE or INDEX=+DELTA (repeatable)")
	cmd.Flags().BoolVar(&sq.describe, "describe", false, "print summary statistics for each range")
	cmd.Flags().StringVar(&sq.save, "save", "", "write the dataset, with updates applied, to this file")

	_ = cmd.MarkFlagRequired(flagDataset)
	_ = cmd.MarkFlagRequired("series")
	_ = cmd.MarkFlagRequired("range")

	return cmd
}

func (sq *segmentQuery) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	ix, err := loadIndex(ctx, sq.datasetPath, cliLogger(cmd))
	if err != nil {
		return err
	}

	series, err := ix.Series(sq.series)
	if err != nil {
		return err
	}

	for _, raw := range sq.updates {
		u, parseErr := parseUpdate(raw)
		if parseErr != nil {
			return parseErr
		}

		if u.add {
			err = series.Add(ctx, u.index, u.value)
		} else {
			err = series.Set(ctx, u.index, u.value)
		}

		if err != nil {
			return err
		}

		render.Updated(out, series.Name(), u.index, series.Values()[u.index])
	}

	for _, raw := range sq.ranges {
		start, end, parseErr := parseRange(raw)
		if parseErr != nil {
			return parseErr
		}

		if sq.describe {
			summary, descErr := series.Describe(ctx, start, end)
			if descErr != nil {
				return descErr
			}

			render.Summary(out, series.Name(), summary)

			continue
		}

		value, queryErr := series.Query(ctx, start, end)
		if queryErr != nil {
			return queryErr
		}

		render.QueryResult(out, series.Name(), series.Op(), start, end, value)
	}

	if sq.save != "" {
		if err := dataset.WriteFile(sq.save, ix.Snapshot()); err != nil {
			return err
		}

		fmt.Fprintf(out, "dataset written to %s\n", sq.save)
	}

	return nil
}

// segmentPlot holds flags of the segment plot command.
type segmentPlot struct {
	datasetPath string
	series      string
	rng         string
	output      string
}

func newSegmentPlotCommand() *cobra.Command {
	sp := &segmentPlot{}

	cmd := &cobra.Command{
		Use:     "plot",
		Short:   "Write an HTML bar chart of a series with a range highlighted",
		Example: "  rangeq segment plot -d ranges.yaml -s latency -r 1:3 -o latency.html",
		RunE:    sp.run,
	}

	cmd.Flags().StringVarP(&sp.datasetPath, flagDataset, "d", "", "dataset file")
	cmd.Flags().StringVarP(&sp.series, "series", "s", "", "series name")
	cmd.Flags().StringVarP(&sp.rng, "range", "r", "", "highlighted range START:END (default: whole series)")
	cmd.Flags().StringVarP(&sp.output, "output", "o", "chart.html", "output HTML file")

	_ = cmd.MarkFlagRequired(flagDataset)
	_ = cmd.MarkFlagRequired("series")

	return cmd
}

func (sp *segmentPlot) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	ix, err := loadIndex(ctx, sp.datasetPath, cliLogger(cmd))
	if err != nil {
		return err
	}

	series, err := ix.Series(sp.series)
	if err != nil {
		return err
	}

	start, end := 0, series.Len()-1
	if sp.rng != "" {
		start, end, err = parseRange(sp.rng)
		if err != nil {
			return err
		}
	}

	value, err := series.Query(ctx, start, end)
	if err != nil {
		return err
	}

	f, err := os.Create(sp.output)
	if err != nil {
		return fmt.Errorf("create %s: %w", sp.output, err)
	}
	defer f.Close()

	if err := render.Chart(f, series.Name(), series.Values(), start, end); err != nil {
		return err
	}

	render.QueryResult(cmd.OutOrStdout(), series.Name(), series.Op(), start, end, value)
	fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s\n", sp.output)

	return nil
}
