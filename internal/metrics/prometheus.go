package metrics

import (
	"time"

	"github.com/keagan/gyroreel/internal/report"
	"github.com/prometheus/client_golang/prometheus"
)

// Reporter records pipeline events as Prometheus metrics
type Reporter struct {
	registry *prometheus.Registry

	VideosTotal     *prometheus.CounterVec
	ClipsTotal      *prometheus.CounterVec
	SkippedRows     prometheus.Counter
	VideoDuration   prometheus.Histogram
	SummaryClips    prometheus.Gauge
	LastRunSuccess  prometheus.Gauge
	lastRunUnixTime prometheus.Gauge
}

var _ report.Reporter = (*Reporter)(nil)

// New creates the collectors on a private registry
func New() *Reporter {
	r := &Reporter{
		registry: prometheus.NewRegistry(),
		VideosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gyroreel_videos_total",
			Help: "Videos seen by the pipeline, by outcome",
		}, []string{"outcome"}),
		ClipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gyroreel_clips_total",
			Help: "Clip extractions, by outcome",
		}, []string{"outcome"}),
		SkippedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gyroreel_log_rows_skipped_total",
			Help: "Malformed motion log rows dropped while reading",
		}),
		VideoDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gyroreel_video_processing_duration_seconds",
			Help:    "Time spent scoring and cutting one video",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		SummaryClips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gyroreel_summary_clips",
			Help: "Clips joined into the last summary video",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gyroreel_last_run_success",
			Help: "1 if the last run produced a summary without failures",
		}),
		lastRunUnixTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gyroreel_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	r.registry.MustRegister(
		r.VideosTotal,
		r.ClipsTotal,
		r.SkippedRows,
		r.VideoDuration,
		r.SummaryClips,
		r.LastRunSuccess,
		r.lastRunUnixTime,
	)
	return r
}

// Registry exposes the collectors for serving or writing
func (r *Reporter) Registry() *prometheus.Registry {
	return r.registry
}

// Finish stamps the end of a run
func (r *Reporter) Finish(success bool) {
	if success {
		r.LastRunSuccess.Set(1)
	} else {
		r.LastRunSuccess.Set(0)
	}
	r.lastRunUnixTime.SetToCurrentTime()
}

func (r *Reporter) Unmatched(string) {
	r.VideosTotal.WithLabelValues("unmatched").Inc()
}

func (r *Reporter) RowsSkipped(_ string, rows int) {
	r.SkippedRows.Add(float64(rows))
}

func (r *Reporter) VideoFailed(string, error) {
	r.VideosTotal.WithLabelValues("failed").Inc()
}

func (r *Reporter) VideoDone(_ string, _ int, elapsed time.Duration) {
	r.VideosTotal.WithLabelValues("processed").Inc()
	r.VideoDuration.Observe(elapsed.Seconds())
}

func (r *Reporter) ClipExtracted(report.ClipInfo) {
	r.ClipsTotal.WithLabelValues("extracted").Inc()
}

func (r *Reporter) ClipFailed(string, int, error) {
	r.ClipsTotal.WithLabelValues("failed").Inc()
}

func (r *Reporter) Combined(_ string, clips int) {
	r.SummaryClips.Set(float64(clips))
}

func (r *Reporter) NothingToCombine() {
	r.SummaryClips.Set(0)
}
