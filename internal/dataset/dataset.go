// Package dataset loads the series and interval sets served by rangeq.
//
// A dataset is a YAML or JSON document:
//
//	series:
//	  - name: latency
//	    op: sum
//	    values: [0, 9, 5, 7, 3]
//	intervals:
//	  - name: bookings
//	    items: [[1, 3], [2, 6], [8, 10], [15, 18]]
//
// Files ending in .lz4 hold the same document in an LZ4 frame.
package dataset

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rangeq/pkg/alg/interval"
)

// Sentinel errors.
var (
	ErrSchemaViolation = errors.New("dataset does not match schema")
	ErrDuplicateName   = errors.New("duplicate name")
	ErrInvalidItem     = errors.New("invalid interval item")
)

// CompressedExt marks LZ4-compressed dataset files.
const CompressedExt = ".lz4"

// DefaultOp is the series op used when none is given.
const DefaultOp = "sum"

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Dataset is the decoded document.
type Dataset struct {
	Series    []Series      `yaml:"series,omitempty" json:"series,omitempty"`
	Intervals []IntervalSet `yaml:"intervals,omitempty" json:"intervals,omitempty"`
}

// Series declares one named segment tree.
type Series struct {
	Name   string    `yaml:"name" json:"name"`
	Op     string    `yaml:"op,omitempty" json:"op,omitempty"`
	Values []float64 `yaml:"values,flow" json:"values"`
}

// IntervalSet declares one named interval tree. Items are [start, end] pairs.
type IntervalSet struct {
	Name  string  `yaml:"name" json:"name"`
	Items [][]int `yaml:"items,flow" json:"items"`
}

// Intervals converts Items to validated intervals.
func (s IntervalSet) Intervals() ([]interval.Interval, error) {
	out := make([]interval.Interval, 0, len(s.Items))

	for i, item := range s.Items {
		if len(item) != 2 {
			return nil, fmt.Errorf("%w: %s item %d has %d bounds", ErrInvalidItem, s.Name, i, len(item))
		}

		iv, err := interval.New(item[0], item[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %s item %d: %w", ErrInvalidItem, s.Name, i, err)
		}

		out = append(out, iv)
	}

	return out, nil
}

// Load reads and parses the dataset at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, CompressedExt) {
		r = lz4.NewReader(f)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	ds, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}

	return ds, nil
}

// Parse validates data against the dataset schema and decodes it.
func Parse(data []byte) (*Dataset, error) {
	var doc any

	unmarshalErr := yaml.Unmarshal(data, &doc)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("decode dataset: %w", unmarshalErr)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate dataset: %w", err)
	}

	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
		}

		return nil, fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
	}

	var ds Dataset

	decodeErr := yaml.Unmarshal(data, &ds)
	if decodeErr != nil {
		return nil, fmt.Errorf("decode dataset: %w", decodeErr)
	}

	if err := ds.validate(); err != nil {
		return nil, err
	}

	return &ds, nil
}

// WriteFile encodes ds as YAML to path, LZ4-compressed when path ends in
// CompressedExt.
func WriteFile(path string, ds *Dataset) error {
	data, err := yaml.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	if strings.HasSuffix(path, CompressedExt) {
		var buf bytes.Buffer

		zw := lz4.NewWriter(&buf)

		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("compress dataset: %w", err)
		}

		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress dataset: %w", err)
		}

		data = buf.Bytes()
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}

	return nil
}

// validate applies the checks the schema cannot express and fills defaults.
func (ds *Dataset) validate() error {
	seen := make(map[string]bool)

	for i := range ds.Series {
		s := &ds.Series[i]

		if seen["series/"+s.Name] {
			return fmt.Errorf("%w: series %q", ErrDuplicateName, s.Name)
		}

		seen["series/"+s.Name] = true

		if s.Op == "" {
			s.Op = DefaultOp
		}
	}

	for _, set := range ds.Intervals {
		if seen["intervals/"+set.Name] {
			return fmt.Errorf("%w: interval set %q", ErrDuplicateName, set.Name)
		}

		seen["intervals/"+set.Name] = true

		if _, err := set.Intervals(); err != nil {
			return err
		}
	}

	return nil
}
