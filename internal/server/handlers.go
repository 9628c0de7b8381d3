package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/internal/rangeindex"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
	"github.com/Sumatoshi-tech/rangeq/pkg/alg/segtree"
)

var errBadRequest = errors.New("bad request")

// Update ops accepted by the series update endpoint.
const (
	updateAdd = "add"
	updateSet = "set"
)

// QueryResponse is the body of a series query.
type QueryResponse struct {
	Series string  `json:"series"`
	Op     string  `json:"op"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
	Value  float64 `json:"value"`
}

// CreateSeriesRequest is the body of a series create or replace.
type CreateSeriesRequest struct {
	Op     string    `json:"op"`
	Values []float64 `json:"values"`
}

// CreateIntervalSetRequest is the body of an interval set create or replace.
// Items are [start, end] pairs.
type CreateIntervalSetRequest struct {
	Items [][]int `json:"items"`
}

// CreatedResponse describes a series or interval set after it was stored.
type CreatedResponse struct {
	Name string `json:"name"`
	Op   string `json:"op,omitempty"`
	Len  int    `json:"len"`
}

// UpdateRequest is the body of a series update.
type UpdateRequest struct {
	Index int     `json:"index"`
	Op    string  `json:"op"`
	Value float64 `json:"value"`
}

// UpdateResponse reports the value stored by an update.
type UpdateResponse struct {
	Series string  `json:"series"`
	Index  int     `json:"index"`
	Value  float64 `json:"value"`
}

// IntervalsResponse is the body of an interval lookup.
type IntervalsResponse struct {
	Set       string              `json:"set"`
	Intervals []interval.Interval `json:"intervals"`
}

// DeleteResponse reports whether a delete removed anything.
type DeleteResponse struct {
	Removed bool `json:"removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type namesResponse struct {
	Names []string `json:"names"`
}

func (s *Server) handleListSeries(rw http.ResponseWriter, req *http.Request) {
	s.writeJSON(rw, req, http.StatusOK, namesResponse{Names: s.index.SeriesNames()})
}

func (s *Server) handleListIntervalSets(rw http.ResponseWriter, req *http.Request) {
	s.writeJSON(rw, req, http.StatusOK, namesResponse{Names: s.index.IntervalSetNames()})
}

func (s *Server) handleSeriesCreate(rw http.ResponseWriter, req *http.Request) {
	var body CreateSeriesRequest

	decodeErr := json.NewDecoder(req.Body).Decode(&body)
	if decodeErr != nil {
		s.writeError(rw, req, fmt.Errorf("%w: %w", errBadRequest, decodeErr))

		return
	}

	series, err := s.index.AddSeries(req.PathValue("name"), body.Op, body.Values)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	s.writeJSON(rw, req, http.StatusCreated, CreatedResponse{Name: series.Name(), Op: series.Op(), Len: series.Len()})
}

func (s *Server) handleIntervalSetCreate(rw http.ResponseWriter, req *http.Request) {
	var body CreateIntervalSetRequest

	decodeErr := json.NewDecoder(req.Body).Decode(&body)
	if decodeErr != nil {
		s.writeError(rw, req, fmt.Errorf("%w: %w", errBadRequest, decodeErr))

		return
	}

	name := req.PathValue("name")

	items, err := dataset.IntervalSet{Name: name, Items: body.Items}.Intervals()
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	set := s.index.AddIntervalSet(name, items)
	s.writeJSON(rw, req, http.StatusCreated, CreatedResponse{Name: set.Name(), Len: set.Len()})
}

func (s *Server) handleSnapshot(rw http.ResponseWriter, req *http.Request) {
	s.writeJSON(rw, req, http.StatusOK, s.index.Snapshot())
}

func (s *Server) handleSeriesQuery(rw http.ResponseWriter, req *http.Request) {
	series, start, end, err := s.seriesRange(req)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	value, err := series.Query(req.Context(), start, end)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	s.writeJSON(rw, req, http.StatusOK, QueryResponse{
		Series: series.Name(), Op: series.Op(), Start: start, End: end, Value: value,
	})
}

func (s *Server) handleSeriesDescribe(rw http.ResponseWriter, req *http.Request) {
	series, start, end, err := s.seriesRange(req)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	summary, err := series.Describe(req.Context(), start, end)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	s.writeJSON(rw, req, http.StatusOK, summary)
}

func (s *Server) handleSeriesUpdate(rw http.ResponseWriter, req *http.Request) {
	series, err := s.index.Series(req.PathValue("name"))
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	var body UpdateRequest

	decodeErr := json.NewDecoder(req.Body).Decode(&body)
	if decodeErr != nil {
		s.writeError(rw, req, fmt.Errorf("%w: %w", errBadRequest, decodeErr))

		return
	}

	switch body.Op {
	case updateAdd:
		err = series.Add(req.Context(), body.Index, body.Value)
	case updateSet, "":
		err = series.Set(req.Context(), body.Index, body.Value)
	default:
		err = fmt.Errorf("%w: update op %q", errBadRequest, body.Op)
	}

	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	values := series.Values()
	s.writeJSON(rw, req, http.StatusOK, UpdateResponse{
		Series: series.Name(), Index: body.Index, Value: values[body.Index],
	})
}

func (s *Server) handleIntervalOverlap(rw http.ResponseWriter, req *http.Request) {
	set, err := s.index.IntervalSet(req.PathValue("name"))
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	target, err := intervalParams(req)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	found := set.Overlapping(req.Context(), target, boolParam(req, "any"))
	s.writeJSON(rw, req, http.StatusOK, IntervalsResponse{Set: set.Name(), Intervals: nonNil(found)})
}

func (s *Server) handleIntervalContains(rw http.ResponseWriter, req *http.Request) {
	set, err := s.index.IntervalSet(req.PathValue("name"))
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	point, err := intParam(req, "point")
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	found := set.Containing(req.Context(), point, boolParam(req, "any"))
	s.writeJSON(rw, req, http.StatusOK, IntervalsResponse{Set: set.Name(), Intervals: nonNil(found)})
}

func (s *Server) handleIntervalInsert(rw http.ResponseWriter, req *http.Request) {
	set, err := s.index.IntervalSet(req.PathValue("name"))
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	var body interval.Interval

	decodeErr := json.NewDecoder(req.Body).Decode(&body)
	if decodeErr != nil {
		s.writeError(rw, req, fmt.Errorf("%w: %w", errBadRequest, decodeErr))

		return
	}

	iv, err := interval.New(body.Start, body.End)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	set.Insert(req.Context(), iv)
	s.writeJSON(rw, req, http.StatusCreated, iv)
}

func (s *Server) handleIntervalDelete(rw http.ResponseWriter, req *http.Request) {
	set, err := s.index.IntervalSet(req.PathValue("name"))
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	target, err := intervalParams(req)
	if err != nil {
		s.writeError(rw, req, err)

		return
	}

	s.writeJSON(rw, req, http.StatusOK, DeleteResponse{Removed: set.Delete(req.Context(), target)})
}

func (s *Server) seriesRange(req *http.Request) (*rangeindex.Series, int, int, error) {
	series, err := s.index.Series(req.PathValue("name"))
	if err != nil {
		return nil, 0, 0, err
	}

	start, err := intParam(req, "start")
	if err != nil {
		return nil, 0, 0, err
	}

	end, err := intParam(req, "end")
	if err != nil {
		return nil, 0, 0, err
	}

	return series, start, end, nil
}

func intervalParams(req *http.Request) (interval.Interval, error) {
	start, err := intParam(req, "start")
	if err != nil {
		return interval.Interval{}, err
	}

	end, err := intParam(req, "end")
	if err != nil {
		return interval.Interval{}, err
	}

	return interval.New(start, end)
}

func intParam(req *http.Request, key string) (int, error) {
	raw := req.URL.Query().Get(key)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %q", errBadRequest, key)
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", errBadRequest, key, raw)
	}

	return v, nil
}

func boolParam(req *http.Request, key string) bool {
	v, err := strconv.ParseBool(req.URL.Query().Get(key))

	return err == nil && v
}

func nonNil(found []interval.Interval) []interval.Interval {
	if found == nil {
		return []interval.Interval{}
	}

	return found
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, rangeindex.ErrUnknownSeries), errors.Is(err, rangeindex.ErrUnknownIntervalSet):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, segtree.ErrOutOfBounds),
		errors.Is(err, segtree.ErrInvalidArgument),
		errors.Is(err, interval.ErrInvalidInterval),
		errors.Is(err, rangeindex.ErrNonFinite),
		errors.Is(err, rangeindex.ErrUnknownOp),
		errors.Is(err, dataset.ErrInvalidItem):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(rw http.ResponseWriter, req *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.ErrorContext(req.Context(), "request failed", "path", req.URL.Path, "error", err)
	}

	s.writeJSON(rw, req, code, errorResponse{Error: err.Error()})
}

// writeJSON encodes value before writing the header so an encoding failure
// still reaches the client as a 500.
func (s *Server) writeJSON(rw http.ResponseWriter, req *http.Request, code int, value any) {
	body, marshalErr := json.Marshal(value)
	if marshalErr != nil {
		s.logger.ErrorContext(req.Context(), "failed to encode JSON response", "path", req.URL.Path, "error", marshalErr)

		code = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	_, writeErr := rw.Write(append(body, '\n'))
	if writeErr != nil {
		s.logger.WarnContext(req.Context(), "failed to write response", "error", writeErr)
	}
}
