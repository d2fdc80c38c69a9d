package pipeline

import (
	"fmt"
	"io"

	"github.com/keagan/gyroreel/internal/config"
	"github.com/keagan/gyroreel/internal/ffmpeg"
	"github.com/keagan/gyroreel/internal/highlight"
	"github.com/keagan/gyroreel/internal/motionlog"
	"github.com/keagan/gyroreel/internal/report"
	"github.com/keagan/gyroreel/internal/scoring"
	"github.com/rs/zerolog"
)

// LogFormat builds the motion log layout from configuration
func LogFormat(cfg *config.Config) (motionlog.Format, error) {
	format := motionlog.Format{
		HeaderLines: cfg.MotionLog.HeaderLines,
		Columns:     make(map[motionlog.Channel]int, len(cfg.MotionLog.Columns)),
	}
	for name, pos := range cfg.MotionLog.Columns {
		ch, err := motionlog.ParseChannel(name)
		if err != nil {
			return motionlog.Format{}, fmt.Errorf("motion_log.columns: %w", err)
		}
		format.Columns[ch] = pos
	}
	return format, format.Validate()
}

// HighlightConfig extracts the per-video settings
func HighlightConfig(cfg *config.Config) highlight.Config {
	return highlight.Config{
		LogFPS:         cfg.Timing.LogFPS,
		VideoFPS:       cfg.Timing.VideoFPS,
		SegmentSeconds: cfg.Timing.SegmentSeconds,
		TopK:           cfg.Selection.TopK,
		MinDistance:    cfg.Selection.MinDistance,
		VerifyFPS:      cfg.Timing.VerifyFPS,
		Incremental:    cfg.Selection.Incremental,
	}
}

// NewProcessor wires a highlight processor to an ffmpeg executor
func NewProcessor(logger zerolog.Logger, cfg *config.Config, exec *ffmpeg.Executor, reporter report.Reporter) (*highlight.Processor, error) {
	format, err := LogFormat(cfg)
	if err != nil {
		return nil, err
	}
	reader, err := motionlog.NewReader(format)
	if err != nil {
		return nil, err
	}

	channels, err := motionlog.ParseChannels(cfg.Selection.Channels)
	if err != nil {
		return nil, fmt.Errorf("selection.channels: %w", err)
	}
	policy, err := scoring.PolicyByName(cfg.Selection.Policy, channels)
	if err != nil {
		return nil, err
	}

	processor, err := highlight.NewProcessor(logger, reader, policy, exec, reporter, HighlightConfig(cfg))
	if err != nil {
		return nil, err
	}
	if exec.CanProbe() {
		processor.WithProber(exec)
	}
	return processor, nil
}

// Setup builds a runner from application configuration
func Setup(logger zerolog.Logger, cfg *config.Config, exec *ffmpeg.Executor, reporter report.Reporter, progress io.Writer) (*Runner, error) {
	processor, err := NewProcessor(logger, cfg, exec, reporter)
	if err != nil {
		return nil, err
	}
	combiner := highlight.NewCombiner(logger, exec, reporter)

	return New(logger, processor, combiner, reporter, Config{
		Workers:  cfg.Workers,
		VideoExt: cfg.Video.Extension,
		LogExt:   cfg.MotionLog.Extension,
		Policy:   cfg.Selection.Policy,
		Progress: progress,
	})
}
