package dataset_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
)

const sampleYAML = `
series:
  - name: latency
    op: sum
    values: [0, 9, 5, 7, 3]
  - name: floor
    op: min
    values: [5, 3, 8, 1]
  - name: plain
    values: [1.5, 2.5]
intervals:
  - name: bookings
    items: [[1, 3], [2, 6], [8, 10], [15, 18]]
`

const sampleJSON = `{
  "series": [{"name": "latency", "op": "max", "values": [1, 2, 3]}],
  "intervals": [{"name": "ranges", "items": [[-5, 5]]}]
}`

const watchTimeout = 5 * time.Second

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestParse_YAML(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Len(t, ds.Series, 3)
	assert.Equal(t, "latency", ds.Series[0].Name)
	assert.Equal(t, []float64{0, 9, 5, 7, 3}, ds.Series[0].Values)
	assert.Equal(t, "min", ds.Series[1].Op)
	assert.Equal(t, dataset.DefaultOp, ds.Series[2].Op)

	require.Len(t, ds.Intervals, 1)

	ivs, err := ds.Intervals[0].Intervals()
	require.NoError(t, err)
	assert.Equal(t, []interval.Interval{{Start: 1, End: 3}, {Start: 2, End: 6}, {Start: 8, End: 10}, {Start: 15, End: 18}}, ivs)
}

func TestParse_JSON(t *testing.T) {
	t.Parallel()

	ds, err := dataset.Parse([]byte(sampleJSON))
	require.NoError(t, err)

	assert.Equal(t, "max", ds.Series[0].Op)
	assert.Equal(t, [][]int{{-5, 5}}, ds.Intervals[0].Items)
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"empty values", "series:\n  - name: a\n    values: []\n"},
		{"unknown op", "series:\n  - name: a\n    op: median\n    values: [1]\n"},
		{"missing name", "series:\n  - values: [1]\n"},
		{"bad name", "series:\n  - name: 'a b'\n    values: [1]\n"},
		{"three bounds", "intervals:\n  - name: a\n    items: [[1, 2, 3]]\n"},
		{"fractional bound", "intervals:\n  - name: a\n    items: [[1.5, 2]]\n"},
		{"unknown key", "extra: true\n"},
		{"not an object", "- 1\n- 2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := dataset.Parse([]byte(tt.doc))
			require.ErrorIs(t, err, dataset.ErrSchemaViolation)
		})
	}
}

func TestParse_InvertedInterval(t *testing.T) {
	t.Parallel()

	_, err := dataset.Parse([]byte("intervals:\n  - name: a\n    items: [[5, 1]]\n"))
	require.ErrorIs(t, err, dataset.ErrInvalidItem)
	require.ErrorIs(t, err, interval.ErrInvalidInterval)
}

func TestParse_DuplicateNames(t *testing.T) {
	t.Parallel()

	_, err := dataset.Parse([]byte("series:\n  - name: a\n    values: [1]\n  - name: a\n    values: [2]\n"))
	require.ErrorIs(t, err, dataset.ErrDuplicateName)

	// A series and an interval set may share a name.
	_, err = dataset.Parse([]byte("series:\n  - name: a\n    values: [1]\nintervals:\n  - name: a\n    items: []\n"))
	require.NoError(t, err)
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	_, err := dataset.Parse([]byte("series: [\n"))
	require.Error(t, err)
}

func TestLoad_PlainAndCompressedMatch(t *testing.T) {
	t.Parallel()

	plain, err := dataset.Load(writeFile(t, "data.yaml", sampleYAML))
	require.NoError(t, err)

	packed := filepath.Join(t.TempDir(), "data.yaml.lz4")
	require.NoError(t, dataset.WriteFile(packed, plain))

	raw, err := os.ReadFile(packed)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 4)
	assert.Equal(t, []byte{0x04, 0x22, 0x4d, 0x18}, raw[:4], "LZ4 frame magic")

	unpacked, err := dataset.Load(packed)
	require.NoError(t, err)
	assert.Equal(t, plain, unpacked)
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := dataset.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "data.yaml", sampleYAML)
	loaded := make(chan *dataset.Dataset, 4)

	w, err := dataset.NewWatcher(path, func(ds *dataset.Dataset) { loaded <- ds }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	// An invalid write is ignored.
	require.NoError(t, os.WriteFile(path, []byte("series: [{name: x, values: []}]\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o600))

	deadline := time.After(watchTimeout)

	for {
		select {
		case ds := <-loaded:
			if len(ds.Series) == 1 && ds.Series[0].Op == "max" {
				return
			}
		case <-deadline:
			t.Fatal("dataset was not reloaded")
		}
	}
}
