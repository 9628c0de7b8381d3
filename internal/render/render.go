// Package render formats query results for terminals and HTML charts.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/rangeq/internal/rangeindex"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
)

// Number formats v with thousands separators.
func Number(v float64) string {
	return humanize.Commaf(v)
}

// QueryResult prints one aggregate line such as "latency sum[0..4] = 24".
func QueryResult(w io.Writer, series, op string, start, end int, value float64) {
	label := color.New(color.FgCyan).Sprintf("%s %s[%d..%d]", series, op, start, end)
	fmt.Fprintf(w, "%s = %s\n", label, color.New(color.Bold).Sprint(Number(value)))
}

// Updated prints an update confirmation.
func Updated(w io.Writer, series string, index int, value float64) {
	color.New(color.FgGreen).Fprintf(w, "%s[%d] <- %s\n", series, index, Number(value))
}

// Failure prints an error line.
func Failure(w io.Writer, err error) {
	color.New(color.FgRed).Fprintf(w, "error: %v\n", err)
}

// Summary writes a range summary as a table.
func Summary(w io.Writer, series string, sum rangeindex.Summary) {
	tbl := newTable(w)
	tbl.SetTitle(fmt.Sprintf("%s [%d..%d]", series, sum.Start, sum.End))
	tbl.AppendHeader(table.Row{"count", "sum", "mean", "stddev", "min", "max"})
	tbl.AppendRow(table.Row{
		strconv.Itoa(sum.Count),
		Number(sum.Sum),
		Number(sum.Mean),
		Number(sum.StdDev),
		Number(sum.Min),
		Number(sum.Max),
	})
	tbl.Render()
}

// Intervals writes matching intervals as a table with a count footer.
func Intervals(w io.Writer, set string, found []interval.Interval) {
	if len(found) == 0 {
		color.New(color.FgYellow).Fprintf(w, "%s: no matching intervals\n", set)

		return
	}

	tbl := newTable(w)
	tbl.SetTitle(set)
	tbl.AppendHeader(table.Row{"start", "end", "length"})

	for _, iv := range found {
		tbl.AppendRow(table.Row{iv.Start, iv.End, iv.Len()})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(found))})
	tbl.Render()
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	return tbl
}
