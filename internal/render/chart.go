package render

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ErrChartRange is returned when the highlighted range falls outside the values.
var ErrChartRange = errors.New("chart range out of bounds")

const (
	chartHeight    = "500px"
	colorInRange   = "#5470c6"
	colorOutOfRange = "#c8cdd6"
)

// Chart writes an HTML bar chart of values with start..end highlighted.
func Chart(w io.Writer, name string, values []float64, start, end int) error {
	if start < 0 || end >= len(values) || start > end {
		return fmt.Errorf("%w: [%d, %d] over %d values", ErrChartRange, start, end, len(values))
	}

	labels := make([]string, len(values))
	data := make([]opts.BarData, len(values))

	for i, v := range values {
		labels[i] = strconv.Itoa(i)

		fill := colorOutOfRange
		if i >= start && i <= end {
			fill = colorInRange
		}

		data[i] = opts.BarData{Value: v, ItemStyle: &opts.ItemStyle{Color: fill}}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: name, Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    name,
			Subtitle: fmt.Sprintf("range [%d, %d]", start, end),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "index"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "value"}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries(name, data)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}

	return nil
}
