package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangeq/internal/render"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
)

// NewIntervalCommand creates the interval command group.
func NewIntervalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interval",
		Short: "Overlap and containment queries over an interval set",
	}

	cmd.AddCommand(newIntervalOverlapCommand(), newIntervalContainsCommand())

	return cmd
}

// intervalFlags are shared by the interval subcommands.
type intervalFlags struct {
	datasetPath string
	set         string
	first       bool
}

func (f *intervalFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.datasetPath, flagDataset, "d", "", "dataset file")
	cmd.Flags().StringVarP(&f.set, "name", "n", "", "interval set name")
	cmd.Flags().BoolVar(&f.first, "any", false, "stop at the first match")

	_ = cmd.MarkFlagRequired(flagDataset)
	_ = cmd.MarkFlagRequired("name")
}

func newIntervalOverlapCommand() *cobra.Command {
	var (
		flags  intervalFlags
		target string
	)

	cmd := &cobra.Command{
		Use:     "overlap",
		Short:   "List intervals overlapping a target interval",
		Example: "  rangeq interval overlap -d ranges.yaml -n shifts -t 5:9",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, end, err := parseRange(target)
			if err != nil {
				return err
			}

			iv, err := interval.New(start, end)
			if err != nil {
				return err
			}

			ix, err := loadIndex(cmd.Context(), flags.datasetPath, cliLogger(cmd))
			if err != nil {
				return err
			}

			set, err := ix.IntervalSet(flags.set)
			if err != nil {
				return err
			}

			render.Intervals(cmd.OutOrStdout(), set.Name(), set.Overlapping(cmd.Context(), iv, flags.first))

			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&target, "target", "t", "", "target interval START:END")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func newIntervalContainsCommand() *cobra.Command {
	var (
		flags intervalFlags
		point int
	)

	cmd := &cobra.Command{
		Use:     "contains",
		Short:   "List intervals containing a point",
		Example: "  rangeq interval contains -d ranges.yaml -n shifts -p 3",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ix, err := loadIndex(cmd.Context(), flags.datasetPath, cliLogger(cmd))
			if err != nil {
				return err
			}

			set, err := ix.IntervalSet(flags.set)
			if err != nil {
				return err
			}

			render.Intervals(cmd.OutOrStdout(), set.Name(), set.Containing(cmd.Context(), point, flags.first))

			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().IntVarP(&point, "point", "p", 0, "point to test")
	_ = cmd.MarkFlagRequired("point")

	return cmd
}
