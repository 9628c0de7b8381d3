// Package commands implements the rangeq CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rangeq/internal/dataset"
	"github.com/Sumatoshi-tech/rangeq/internal/observability"
	"github.com/Sumatoshi-tech/rangeq/internal/rangeindex"
)

// Input errors.
var (
	ErrBadRange  = errors.New("range must be START:END")
	ErrBadUpdate = errors.New("update must be INDEX=VALUE or INDEX=+DELTA")
)

// Flag names shared by several commands.
const (
	flagDataset = "dataset"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
)

// cliLogger builds the stderr logger for one-shot commands from the
// persistent --verbose and --quiet flags.
func cliLogger(cmd *cobra.Command) *slog.Logger {
	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelWarn

	if verbose, _ := cmd.Flags().GetBool(flagVerbose); verbose {
		cfg.LogLevel = slog.LevelDebug
	}

	if quiet, _ := cmd.Flags().GetBool(flagQuiet); quiet {
		cfg.LogLevel = slog.LevelError
	}

	return observability.NewLogger(cfg, cmd.ErrOrStderr())
}

// loadIndex reads a dataset file into a fresh index.
func loadIndex(ctx context.Context, path string, logger *slog.Logger) (*rangeindex.Index, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}

	return rangeindex.FromDataset(ctx, ds, rangeindex.Deps{Logger: logger})
}

// parseRange parses "START:END".
func parseRange(raw string) (start, end int, err error) {
	left, right, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadRange, raw)
	}

	start, startErr := strconv.Atoi(strings.TrimSpace(left))
	end, endErr := strconv.Atoi(strings.TrimSpace(right))

	if startErr != nil || endErr != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadRange, raw)
	}

	return start, end, nil
}

// update is one parsed -u flag.
type update struct {
	index int
	value float64
	add   bool
}

// parseUpdate parses "INDEX=VALUE" (set) or "INDEX=+DELTA" (add).
func parseUpdate(raw string) (update, error) {
	left, right, ok := strings.Cut(raw, "=")
	if !ok {
		return update{}, fmt.Errorf("%w: %q", ErrBadUpdate, raw)
	}

	index, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return update{}, fmt.Errorf("%w: %q", ErrBadUpdate, raw)
	}

	right = strings.TrimSpace(right)
	u := update{index: index}

	if rest, isDelta := strings.CutPrefix(right, "+"); isDelta {
		u.add = true
		right = rest
	}

	u.value, err = strconv.ParseFloat(right, 64)
	if err != nil {
		return update{}, fmt.Errorf("%w: %q", ErrBadUpdate, raw)
	}

	return u, nil
}
