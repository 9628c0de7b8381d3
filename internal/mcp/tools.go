package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
)

// Tool name constants.
const (
	ToolNameSegmentQuery     = "segment_query"
	ToolNameSegmentUpdate    = "segment_update"
	ToolNameIntervalOverlap  = "interval_overlap"
	ToolNameIntervalContains = "interval_contains"
)

// Update ops.
const (
	UpdateAdd = "add"
	UpdateSet = "set"
)

// ErrUnknownUpdateOp indicates an update op other than add or set.
var ErrUnknownUpdateOp = errors.New("op must be add or set")

// SegmentQueryInput is the input schema for the segment_query tool.
type SegmentQueryInput struct {
	Series   string `json:"series"             jsonschema:"series name"`
	Start    int    `json:"start"              jsonschema:"first index of the range, inclusive"`
	End      int    `json:"end"                jsonschema:"last index of the range, inclusive"`
	Describe bool   `json:"describe,omitempty" jsonschema:"return summary statistics instead of the aggregate"`
}

// SegmentUpdateInput is the input schema for the segment_update tool.
type SegmentUpdateInput struct {
	Series string  `json:"series" jsonschema:"series name"`
	Index  int     `json:"index"  jsonschema:"index to change"`
	Op     string  `json:"op"     jsonschema:"add or set"`
	Value  float64 `json:"value"  jsonschema:"delta for add, new value for set"`
}

// IntervalOverlapInput is the input schema for the interval_overlap tool.
type IntervalOverlapInput struct {
	Set   string `json:"set"           jsonschema:"interval set name"`
	Start int    `json:"start"         jsonschema:"target start, inclusive"`
	End   int    `json:"end"           jsonschema:"target end, inclusive"`
	Any   bool   `json:"any,omitempty" jsonschema:"return at most one match"`
}

// IntervalContainsInput is the input schema for the interval_contains tool.
type IntervalContainsInput struct {
	Set   string `json:"set"           jsonschema:"interval set name"`
	Point int    `json:"point"         jsonschema:"point to test"`
	Any   bool   `json:"any,omitempty" jsonschema:"return at most one match"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

type aggregateResult struct {
	Series string  `json:"series"`
	Op     string  `json:"op"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Value  float64 `json:"value"`
}

type updateResult struct {
	Series string  `json:"series"`
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
}

type intervalsResult struct {
	Set       string              `json:"set"`
	Intervals []interval.Interval `json:"intervals"`
}

func (s *Server) handleSegmentQuery(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input SegmentQueryInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	series, err := s.index.Series(input.Series)
	if err != nil {
		return errorResult(err)
	}

	if input.Describe {
		summary, descErr := series.Describe(ctx, input.Start, input.End)
		if descErr != nil {
			return errorResult(descErr)
		}

		return jsonResult(summary)
	}

	value, err := series.Query(ctx, input.Start, input.End)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(aggregateResult{
		Series: series.Name(), Op: series.Op(), Start: input.Start, End: input.End, Value: value,
	})
}

func (s *Server) handleSegmentUpdate(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input SegmentUpdateInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	series, err := s.index.Series(input.Series)
	if err != nil {
		return errorResult(err)
	}

	switch input.Op {
	case UpdateAdd:
		err = series.Add(ctx, input.Index, input.Value)
	case UpdateSet:
		err = series.Set(ctx, input.Index, input.Value)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownUpdateOp, input.Op)
	}

	if err != nil {
		return errorResult(err)
	}

	return jsonResult(updateResult{
		Series: series.Name(), Index: input.Index, Value: series.Values()[input.Index],
	})
}

func (s *Server) handleIntervalOverlap(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input IntervalOverlapInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	set, err := s.index.IntervalSet(input.Set)
	if err != nil {
		return errorResult(err)
	}

	target, err := interval.New(input.Start, input.End)
	if err != nil {
		return errorResult(err)
	}

	found := set.Overlapping(ctx, target, input.Any)

	return jsonResult(intervalsResult{Set: set.Name(), Intervals: nonNil(found)})
}

func (s *Server) handleIntervalContains(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input IntervalContainsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	set, err := s.index.IntervalSet(input.Set)
	if err != nil {
		return errorResult(err)
	}

	found := set.Containing(ctx, input.Point, input.Any)

	return jsonResult(intervalsResult{Set: set.Name(), Intervals: nonNil(found)})
}

func nonNil(found []interval.Interval) []interval.Interval {
	if found == nil {
		return []interval.Interval{}
	}

	return found
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
