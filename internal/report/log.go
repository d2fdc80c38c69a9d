package report

import (
	"time"

	"github.com/rs/zerolog"
)

// Log writes events as structured log lines
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging reporter
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "report").Logger()}
}

func (l *Log) Unmatched(video string) {
	l.logger.Warn().Str("video", video).Msg("no matching motion log, skipping video")
}

func (l *Log) RowsSkipped(log string, rows int) {
	l.logger.Warn().Str("log", log).Int("rows", rows).Msg("skipped malformed motion log rows")
}

func (l *Log) VideoFailed(video string, err error) {
	l.logger.Error().Err(err).Str("video", video).Msg("video failed")
}

func (l *Log) VideoDone(video string, clips int, elapsed time.Duration) {
	l.logger.Info().
		Str("video", video).
		Int("clips", clips).
		Dur("elapsed", elapsed).
		Msg("video processed")
}

func (l *Log) ClipExtracted(clip ClipInfo) {
	l.logger.Info().
		Str("video", clip.Video).
		Str("clip", clip.Path).
		Int("rank", clip.Rank).
		Int("start_frame", clip.StartFrame).
		Float64("score", clip.Score).
		Msg("extracted clip")
}

func (l *Log) ClipFailed(video string, rank int, err error) {
	l.logger.Error().Err(err).Str("video", video).Int("rank", rank).Msg("clip extraction failed")
}

func (l *Log) Combined(path string, clips int) {
	l.logger.Info().Str("summary", path).Int("clips", clips).Msg("summary video created")
}

func (l *Log) NothingToCombine() {
	l.logger.Warn().Msg("no clips extracted, nothing to combine")
}
