package ffmpeg

import (
	"context"
	"fmt"

	"github.com/keagan/gyroreel/pkg/util"
)

// ExtractClip copies a time range out of a video without re-encoding
func (e *Executor) ExtractClip(ctx context.Context, input string, opts ClipOptions) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if opts.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if opts.Start < 0 {
		return fmt.Errorf("invalid clip start %v", opts.Start)
	}
	if opts.Duration <= 0 {
		return fmt.Errorf("invalid clip duration %v", opts.Duration)
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", opts.Output).
		Dur("start", opts.Start).
		Dur("duration", opts.Duration).
		Msg("extracting clip")

	// seeking before -i is fast and lands on the requested time
	args := []string{
		"-ss", util.FormatDuration(opts.Start),
		"-i", input,
		"-t", util.FormatDuration(opts.Duration),
		"-c", "copy",
		opts.Output,
	}

	runOpts := RunOptions{
		Args: args,
		LogHandler: func(line string) {
			e.logger.Debug().Str("ffmpeg", line).Msg("clip extraction")
		},
	}

	if err := e.Run(ctx, runOpts); err != nil {
		return fmt.Errorf("clip extraction failed for %s: %w", opts.Output, err)
	}

	e.logger.Debug().Str("output", opts.Output).Msg("clip extraction complete")
	return nil
}
