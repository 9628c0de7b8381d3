package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rangeq/internal/config"
	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/internal/rangeindex"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/segtree"
)

func writeDataset(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ranges.yaml")
	require.NoError(t, dataset.WriteFile(path, &dataset.Dataset{
		Series: []dataset.Series{
			{Name: "latency", Op: rangeindex.OpSum, Values: []float64{0, 9, 5, 7, 3}},
			{Name: "floor", Op: rangeindex.OpMin, Values: []float64{5, 3, 8, 1}},
		},
		Intervals: []dataset.IntervalSet{
			{Name: "shifts", Items: [][]int{{1, 3}, {2, 6}, {8, 10}, {15, 20}}},
		},
	}))

	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	start, end, err := parseRange("1:3")
	require.NoError(t, err)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)

	start, end, err = parseRange(" -2 : 4 ")
	require.NoError(t, err)
	assert.Equal(t, -2, start)
	assert.Equal(t, 4, end)

	for _, raw := range []string{"", "3", "a:1", "1:b", "1-3"} {
		_, _, err = parseRange(raw)
		require.ErrorIs(t, err, ErrBadRange, raw)
	}
}

func TestParseUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want update
	}{
		{"2=7", update{index: 2, value: 7}},
		{"2=+10", update{index: 2, value: 10, add: true}},
		{"0=+-3.5", update{index: 0, value: -3.5, add: true}},
		{"4=-1", update{index: 4, value: -1}},
	}

	for _, tt := range tests {
		got, err := parseUpdate(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	for _, raw := range []string{"2", "x=1", "2=", "2=+", "2=abc"} {
		_, err := parseUpdate(raw)
		require.ErrorIs(t, err, ErrBadUpdate, raw)
	}
}

func TestSegmentQuery(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)

	out, err := execute(t, NewSegmentCommand(), "query", "-d", path, "-s", "latency", "-r", "0:4", "-r", "1:3")
	require.NoError(t, err)
	assert.Contains(t, out, "latency sum[0..4]")
	assert.Contains(t, out, "24")
	assert.Contains(t, out, "21")
}

func TestSegmentQuery_WithUpdates(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)

	out, err := execute(t, NewSegmentCommand(), "query", "-d", path, "-s", "latency", "-u", "2=+10", "-r", "0:4")
	require.NoError(t, err)
	assert.Contains(t, out, "latency[2] <- 15")
	assert.Contains(t, out, "34")
}

func TestSegmentQuery_Save(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)
	saved := filepath.Join(t.TempDir(), "updated.yaml.lz4")

	out, err := execute(t, NewSegmentCommand(), "query", "-d", path, "-s", "latency",
		"-u", "2=+10", "-r", "0:4", "--save", saved)
	require.NoError(t, err)
	assert.Contains(t, out, "dataset written to "+saved)

	ds, err := dataset.Load(saved)
	require.NoError(t, err)
	require.Len(t, ds.Series, 2)
	assert.Equal(t, []float64{0, 9, 15, 7, 3}, ds.Series[1].Values)
	require.Len(t, ds.Intervals, 1)
	assert.Equal(t, [][]int{{1, 3}, {2, 6}, {8, 10}, {15, 20}}, ds.Intervals[0].Items)

	original, err := dataset.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 9, 5, 7, 3}, original.Series[0].Values)
}

func TestSegmentQuery_Describe(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)

	out, err := execute(t, NewSegmentCommand(), "query", "-d", path, "-s", "latency", "-r", "1:3", "--describe")
	require.NoError(t, err)
	assert.Contains(t, out, "latency [1..3]")
	assert.Contains(t, out, "STDDEV")
}

func TestSegmentQuery_Errors(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)

	_, err := execute(t, NewSegmentCommand(), "query", "-d", path, "-s", "latency", "-r", "3:1")
	require.ErrorIs(t, err, segtree.ErrOutOfBounds)

	_, err = execute(t, NewSegmentCommand(), "query", "-d", path, "-s", "nope", "-r", "0:1")
	require.ErrorIs(t, err, rangeindex.ErrUnknownSeries)

	_, err = execute(t, NewSegmentCommand(), "query", "-d", path, "-s", "latency", "-r", "0:1", "-u", "9=1")
	require.ErrorIs(t, err, segtree.ErrOutOfBounds)

	_, err = execute(t, NewSegmentCommand(), "query", "-d", filepath.Join(t.TempDir(), "missing.yaml"), "-s", "latency", "-r", "0:1")
	require.Error(t, err)
}

func TestSegmentPlot(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)
	chart := filepath.Join(t.TempDir(), "latency.html")

	out, err := execute(t, NewSegmentCommand(), "plot", "-d", path, "-s", "latency", "-r", "1:3", "-o", chart)
	require.NoError(t, err)
	assert.Contains(t, out, "chart written to")

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "latency")
}

func TestIntervalOverlap(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)

	out, err := execute(t, NewIntervalCommand(), "overlap", "-d", path, "-n", "shifts", "-t", "5:9")
	require.NoError(t, err)
	assert.Contains(t, out, "shifts")
	assert.Contains(t, out, "TOTAL: 2")

	out, err = execute(t, NewIntervalCommand(), "overlap", "-d", path, "-n", "shifts", "-t", "11:14")
	require.NoError(t, err)
	assert.Contains(t, out, "no matching intervals")

	_, err = execute(t, NewIntervalCommand(), "overlap", "-d", path, "-n", "shifts", "-t", "9:5")
	require.Error(t, err)
}

func TestIntervalContains(t *testing.T) {
	t.Parallel()

	path := writeDataset(t)

	out, err := execute(t, NewIntervalCommand(), "contains", "-d", path, "-n", "shifts", "-p", "3", "--any")
	require.NoError(t, err)
	assert.Contains(t, out, "TOTAL: 1")

	_, err = execute(t, NewIntervalCommand(), "contains", "-d", path, "-n", "nope", "-p", "3")
	require.ErrorIs(t, err, rangeindex.ErrUnknownIntervalSet)
}

func TestCommandsDeclareFlags(t *testing.T) {
	t.Parallel()

	mcpCmd := NewMCPCommand()
	require.NotNil(t, mcpCmd.Flags().Lookup("debug"))
	assert.Equal(t, "false", mcpCmd.Flags().Lookup("debug").DefValue)

	serveCmd := NewServeCommand()
	require.NotNil(t, serveCmd.Flags().Lookup("config"))
	require.NotNil(t, serveCmd.Flags().Lookup(flagDataset))
}

func TestNewDatasetWatcher(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ix := rangeindex.New(rangeindex.Deps{})
	path := writeDataset(t)

	watcher, err := newDatasetWatcher(ctx, config.DatasetConfig{Path: path}, ix, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, watcher)

	missing := filepath.Join(t.TempDir(), "missing", "ranges.yaml")
	_, err = newDatasetWatcher(ctx, config.DatasetConfig{Path: missing, Watch: true}, ix, slog.Default())
	require.Error(t, err)

	watcher, err = newDatasetWatcher(ctx, config.DatasetConfig{Path: path, Watch: true}, ix, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, watcher)

	cancel()
	require.NoError(t, watcher.Run(ctx))
}
