// Package highlight turns one video and its motion log into ranked clips and
// joins clips into a summary reel.
package highlight

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/keagan/gyroreel/internal/clips"
	"github.com/keagan/gyroreel/internal/ffmpeg"
	"github.com/keagan/gyroreel/internal/motionlog"
	"github.com/keagan/gyroreel/internal/report"
	"github.com/keagan/gyroreel/internal/scoring"
	"github.com/keagan/gyroreel/internal/selection"
	"github.com/keagan/gyroreel/pkg/util"
	"github.com/rs/zerolog"
)

// ErrFPSMismatch is returned when a video's frame rate differs from the
// rate its motion log is assumed to be sampled at
var ErrFPSMismatch = errors.New("video frame rate does not match motion log")

const fpsTolerance = 0.01

// Cutter cuts one clip out of a video
type Cutter interface {
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
}

// Prober reads video metadata
type Prober interface {
	ProbeVideo(ctx context.Context, filePath string) (*ffmpeg.VideoInfo, error)
}

// Config configures highlight detection
type Config struct {
	// LogFPS is the motion log sampling rate; one sample per video frame
	LogFPS float64
	// VideoFPS is the expected encoded rate, checked when VerifyFPS is set.
	// Zero means LogFPS.
	VideoFPS       float64
	SegmentSeconds float64
	TopK           int
	// MinDistance between selected window starts in frames. Zero means one
	// window length, so clips never overlap.
	MinDistance int
	VerifyFPS   bool
	Incremental bool
}

func DefaultConfig() Config {
	return Config{
		LogFPS:         60,
		VideoFPS:       60,
		SegmentSeconds: 5,
		TopK:           3,
	}
}

// Window is the segment length in frames
func (c Config) Window() int {
	return scoring.WindowSize(c.LogFPS, c.SegmentSeconds)
}

func (c Config) minDistance() int {
	if c.MinDistance > 0 {
		return c.MinDistance
	}
	return c.Window()
}

func (c Config) expectedFPS() float64 {
	if c.VideoFPS > 0 {
		return c.VideoFPS
	}
	return c.LogFPS
}

func (c Config) validate() error {
	if c.LogFPS <= 0 {
		return fmt.Errorf("log fps must be positive, got %v", c.LogFPS)
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("segment length must be positive, got %v", c.SegmentSeconds)
	}
	if c.Window() <= 0 {
		return fmt.Errorf("segment of %vs at %v fps is shorter than one frame", c.SegmentSeconds, c.LogFPS)
	}
	if c.MinDistance < 0 {
		return fmt.Errorf("min distance must not be negative")
	}
	return nil
}

// Job is one video and its motion log
type Job struct {
	// Index is the video's position in the batch and prefixes its clip names
	Index     int
	Video     string
	Log       string
	OutputDir string
}

// ClipFailure is a selected window whose clip could not be written
type ClipFailure struct {
	Rank int
	Path string
	Err  error
}

// Outcome is the result of processing one job
type Outcome struct {
	Job      Job
	Windows  []selection.SelectedWindow
	Clips    []*clips.Clip
	Failures []ClipFailure
	Skipped  int
	Elapsed  time.Duration
	// Err is set when the job failed as a whole
	Err error
}

// Processor runs read, score, select and extract for single videos
type Processor struct {
	logger   zerolog.Logger
	reader   *motionlog.Reader
	scorer   *scoring.Scorer
	cutter   Cutter
	prober   Prober
	reporter report.Reporter
	config   Config
}

// NewProcessor creates a processor. reporter may be nil.
func NewProcessor(logger zerolog.Logger, reader *motionlog.Reader, policy scoring.Policy, cutter Cutter, reporter report.Reporter, cfg Config) (*Processor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if reader == nil || policy == nil || cutter == nil {
		return nil, fmt.Errorf("processor needs a reader, a policy and a cutter")
	}
	if reporter == nil {
		reporter = report.Nop{}
	}

	scorer := scoring.NewScorer(cfg.Window(), policy)
	scorer.Incremental = cfg.Incremental

	return &Processor{
		logger:   logger.With().Str("component", "highlight").Logger(),
		reader:   reader,
		scorer:   scorer,
		cutter:   cutter,
		reporter: reporter,
		config:   cfg,
	}, nil
}

// WithProber sets the prober used for frame rate checks
func (p *Processor) WithProber(prober Prober) *Processor {
	p.prober = prober
	return p
}

// Config returns the processor configuration
func (p *Processor) Config() Config {
	return p.config
}

// Select scores a motion log and picks its top windows
func (p *Processor) Select(log *motionlog.MotionLog) ([]selection.SelectedWindow, error) {
	windows, err := p.scorer.Score(log)
	if err != nil {
		return nil, err
	}

	selected := selection.Select(windows, p.config.minDistance(), p.config.TopK)

	p.logger.Debug().
		Str("log", log.Path).
		Int("frames", log.Len()).
		Int("windows", len(windows)).
		Int("selected", len(selected)).
		Msg("scored motion log")

	return selected, nil
}

// Process extracts the highlight clips of one video. Failures of the job as
// a whole land in Outcome.Err; failed clips are listed and skipped.
func (p *Processor) Process(ctx context.Context, job Job) *Outcome {
	start := time.Now()
	out := &Outcome{Job: job}

	logger := p.logger.With().Int("index", job.Index).Str("video", job.Video).Logger()

	fail := func(err error) *Outcome {
		out.Err = err
		out.Elapsed = time.Since(start)
		if ctx.Err() == nil {
			p.reporter.VideoFailed(job.Video, err)
		}
		return out
	}

	if p.config.VerifyFPS {
		if err := p.verifyFPS(ctx, job.Video); err != nil {
			return fail(err)
		}
	}

	log, err := p.reader.Read(job.Log)
	if err != nil {
		return fail(err)
	}
	out.Skipped = log.Skipped
	if log.Skipped > 0 {
		p.reporter.RowsSkipped(job.Log, log.Skipped)
	}

	selected, err := p.Select(log)
	if err != nil {
		return fail(fmt.Errorf("score %s: %w", job.Log, err))
	}
	out.Windows = selected

	if log.Len() <= p.config.Window() {
		logger.Info().Int("frames", log.Len()).Msg("motion log shorter than one segment, no clips")
	}

	duration := util.Seconds(p.config.SegmentSeconds)
	for _, window := range selected {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		clip := &clips.Clip{
			Path:       filepath.Join(job.OutputDir, ClipName(job.Index, window.Rank)),
			Source:     job.Video,
			Window:     window,
			Start:      util.FrameTime(window.Start, p.config.LogFPS),
			Duration:   duration,
			VideoIndex: job.Index,
		}

		err := p.cutter.ExtractClip(ctx, job.Video, ffmpeg.ClipOptions{
			Start:    clip.Start,
			Duration: clip.Duration,
			Output:   clip.Path,
		})
		if err != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			out.Failures = append(out.Failures, ClipFailure{Rank: window.Rank, Path: clip.Path, Err: err})
			p.reporter.ClipFailed(job.Video, window.Rank, err)
			continue
		}

		out.Clips = append(out.Clips, clip)
		p.reporter.ClipExtracted(report.ClipInfo{
			Video:      job.Video,
			Path:       clip.Path,
			Rank:       window.Rank,
			StartFrame: window.Start,
			Score:      window.Score,
		})
	}

	out.Elapsed = time.Since(start)
	p.reporter.VideoDone(job.Video, len(out.Clips), out.Elapsed)
	return out
}

func (p *Processor) verifyFPS(ctx context.Context, video string) error {
	if p.prober == nil {
		return fmt.Errorf("verify frame rate of %s: %w", video, ffmpeg.ErrNoProbe)
	}

	info, err := p.prober.ProbeVideo(ctx, video)
	if err != nil {
		return fmt.Errorf("verify frame rate: %w", err)
	}

	want := p.config.expectedFPS()
	if math.Abs(info.FPS-want) > fpsTolerance {
		return fmt.Errorf("%s is %.3f fps, expected %.3f: %w", video, info.FPS, want, ErrFPSMismatch)
	}
	return nil
}

// ClipName is the file name of the clip with the given rank from the video at index
func ClipName(index, rank int) string {
	return fmt.Sprintf("%d_clip%d.mp4", index, rank)
}
