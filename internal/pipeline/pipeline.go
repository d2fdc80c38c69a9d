package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/keagan/gyroreel/internal/clips"
	"github.com/keagan/gyroreel/internal/highlight"
	"github.com/keagan/gyroreel/internal/logging"
	"github.com/keagan/gyroreel/internal/report"
	"github.com/keagan/gyroreel/pkg/util"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

// Runner orchestrates a batch: discover, process every pair, combine
type Runner struct {
	logger    zerolog.Logger
	processor *highlight.Processor
	combiner  *highlight.Combiner
	reporter  report.Reporter
	config    Config
}

// New creates a runner. reporter may be nil.
func New(logger zerolog.Logger, processor *highlight.Processor, combiner *highlight.Combiner, reporter report.Reporter, cfg Config) (*Runner, error) {
	if processor == nil || combiner == nil {
		return nil, fmt.Errorf("runner needs a processor and a combiner")
	}
	if cfg.VideoExt == "" || cfg.LogExt == "" {
		return nil, fmt.Errorf("video and log extensions are required")
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if reporter == nil {
		reporter = report.Nop{}
	}

	return &Runner{
		logger:    logger.With().Str("component", "pipeline").Logger(),
		processor: processor,
		combiner:  combiner,
		reporter:  reporter,
		config:    cfg,
	}, nil
}

// Run processes every pair under opts and combines their clips into one
// summary. Per-video failures are reported and do not stop the batch; a
// failed combine is returned as an error.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := logging.WithRun(r.logger, runID)

	logger.Info().
		Str("videos", opts.VideoDir).
		Str("logs", opts.LogDir).
		Str("output", opts.OutputDir).
		Int("workers", r.config.Workers).
		Msg("starting batch")

	batch, err := Discover(opts.VideoDir, opts.LogDir, r.config.VideoExt, r.config.LogExt)
	if err != nil {
		return nil, err
	}
	for _, video := range batch.Unmatched {
		r.reporter.Unmatched(video)
	}

	if err := util.EnsureDir(opts.OutputDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	result := &Result{RunID: runID, Batch: batch}

	jobs := make([]highlight.Job, len(batch.Pairs))
	for i, pair := range batch.Pairs {
		jobs[i] = highlight.Job{Index: pair.Index, Video: pair.Video, Log: pair.Log, OutputDir: opts.OutputDir}
	}

	start := time.Now()
	result.Outcomes = r.processAll(ctx, jobs)

	// every worker has finished here
	if err := ctx.Err(); err != nil {
		return result, err
	}

	manager := clips.NewManager()
	for _, out := range result.Outcomes {
		if out == nil || out.Err != nil {
			result.FailedVideos++
			continue
		}
		result.FailedClips += len(out.Failures)
		manager.Add(out.Clips...)
	}
	result.Clips = manager.Ordered()

	logger.Info().
		Int("pairs", len(batch.Pairs)).
		Int("unmatched", len(batch.Unmatched)).
		Int("clips", manager.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("all videos processed")

	summary := opts.SummaryName
	if !filepath.IsAbs(summary) {
		summary = filepath.Join(opts.OutputDir, summary)
	}

	combined, combineErr := r.combiner.Combine(ctx, clips.Paths(result.Clips), summary)
	if combined {
		result.Summary = summary
	}

	reel := highlight.NewReel(runID, r.config.Policy, r.processor.Config(), result.Clips)
	reel.Summary = result.Summary
	result.Manifest = filepath.Join(opts.OutputDir, highlight.ManifestName)
	if err := reel.Save(result.Manifest); err != nil {
		logger.Warn().Err(err).Msg("failed to write reel manifest")
		result.Manifest = ""
	}

	if combineErr != nil {
		return result, combineErr
	}

	logger.Info().Str("summary", result.Summary).Msg("batch complete")
	return result, nil
}

// processAll fans jobs out over the workers. Outcome i belongs to job i, so
// the result order does not depend on scheduling.
func (r *Runner) processAll(ctx context.Context, jobs []highlight.Job) []*highlight.Outcome {
	outcomes := make([]*highlight.Outcome, len(jobs))
	if len(jobs) == 0 {
		return outcomes
	}

	bar := r.newBar(len(jobs))
	defer bar.Finish()

	workers := r.config.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	queue := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range queue {
				outcomes[i] = r.processor.Process(ctx, jobs[i])
				_ = bar.Add(1)
			}
		}()
	}

feed:
	for i := range jobs {
		select {
		case queue <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()

	return outcomes
}

func (r *Runner) newBar(total int) *progressbar.ProgressBar {
	if r.config.Progress == nil {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.config.Progress),
		progressbar.OptionSetDescription("Videos"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "▐",
			BarEnd:        "▌",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}
