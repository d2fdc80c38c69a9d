package highlight

import (
	"context"
	"fmt"

	"github.com/keagan/gyroreel/internal/ffmpeg"
	"github.com/keagan/gyroreel/internal/report"
	"github.com/rs/zerolog"
)

// Joiner concatenates video files
type Joiner interface {
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// Combiner joins clips into a summary reel
type Combiner struct {
	logger   zerolog.Logger
	joiner   Joiner
	reporter report.Reporter
	// TempDir holds the concat manifest; empty means the system default
	TempDir string
}

// NewCombiner creates a combiner. reporter may be nil.
func NewCombiner(logger zerolog.Logger, joiner Joiner, reporter report.Reporter) *Combiner {
	if reporter == nil {
		reporter = report.Nop{}
	}
	return &Combiner{
		logger:   logger.With().Str("component", "combiner").Logger(),
		joiner:   joiner,
		reporter: reporter,
	}
}

// Combine joins paths in order into output. With no paths it does nothing
// and reports false.
func (c *Combiner) Combine(ctx context.Context, paths []string, output string) (bool, error) {
	if len(paths) == 0 {
		c.reporter.NothingToCombine()
		return false, nil
	}

	c.logger.Debug().Int("clips", len(paths)).Str("output", output).Msg("combining clips")

	err := c.joiner.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:  paths,
		Output:  output,
		TempDir: c.TempDir,
	})
	if err != nil {
		return false, fmt.Errorf("combine %d clips into %s: %w", len(paths), output, err)
	}

	c.reporter.Combined(output, len(paths))
	return true, nil
}
