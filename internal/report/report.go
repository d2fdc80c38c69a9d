// Package report carries run diagnostics out of the highlight pipeline:
// skipped inputs, dropped log rows, per-clip failures and the final summary.
package report

import (
	"sync"
	"time"
)

// ClipInfo describes an extracted clip
type ClipInfo struct {
	Video      string
	Path       string
	Rank       int
	StartFrame int
	Score      float64
}

// Reporter receives pipeline events. Implementations must be safe for
// concurrent use when the pipeline runs with more than one worker.
type Reporter interface {
	Unmatched(video string)
	RowsSkipped(log string, rows int)
	VideoFailed(video string, err error)
	VideoDone(video string, clips int, elapsed time.Duration)
	ClipExtracted(clip ClipInfo)
	ClipFailed(video string, rank int, err error)
	Combined(path string, clips int)
	NothingToCombine()
}

// Multi fans events out to several reporters
type Multi []Reporter

func (m Multi) Unmatched(video string) {
	for _, r := range m {
		r.Unmatched(video)
	}
}

func (m Multi) RowsSkipped(log string, rows int) {
	for _, r := range m {
		r.RowsSkipped(log, rows)
	}
}

func (m Multi) VideoFailed(video string, err error) {
	for _, r := range m {
		r.VideoFailed(video, err)
	}
}

func (m Multi) VideoDone(video string, clips int, elapsed time.Duration) {
	for _, r := range m {
		r.VideoDone(video, clips, elapsed)
	}
}

func (m Multi) ClipExtracted(clip ClipInfo) {
	for _, r := range m {
		r.ClipExtracted(clip)
	}
}

func (m Multi) ClipFailed(video string, rank int, err error) {
	for _, r := range m {
		r.ClipFailed(video, rank, err)
	}
}

func (m Multi) Combined(path string, clips int) {
	for _, r := range m {
		r.Combined(path, clips)
	}
}

func (m Multi) NothingToCombine() {
	for _, r := range m {
		r.NothingToCombine()
	}
}

// Nop discards every event
type Nop struct{}

func (Nop) Unmatched(string)                     {}
func (Nop) RowsSkipped(string, int)              {}
func (Nop) VideoFailed(string, error)            {}
func (Nop) VideoDone(string, int, time.Duration) {}
func (Nop) ClipExtracted(ClipInfo)               {}
func (Nop) ClipFailed(string, int, error)        {}
func (Nop) Combined(string, int)                 {}
func (Nop) NothingToCombine()                    {}

// Recorder keeps events in memory
type Recorder struct {
	mu sync.Mutex

	UnmatchedVideos []string
	SkippedRows     map[string]int
	FailedVideos    map[string]error
	Extracted       []ClipInfo
	FailedClips     []string
	Summary         string
	SummaryClips    int
	Empty           bool
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{
		SkippedRows:  make(map[string]int),
		FailedVideos: make(map[string]error),
	}
}

func (r *Recorder) Unmatched(video string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UnmatchedVideos = append(r.UnmatchedVideos, video)
}

func (r *Recorder) RowsSkipped(log string, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SkippedRows[log] += rows
}

func (r *Recorder) VideoFailed(video string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailedVideos[video] = err
}

func (r *Recorder) VideoDone(string, int, time.Duration) {}

func (r *Recorder) ClipExtracted(clip ClipInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Extracted = append(r.Extracted, clip)
}

func (r *Recorder) ClipFailed(video string, rank int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FailedClips = append(r.FailedClips, video)
}

func (r *Recorder) Combined(path string, clips int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Summary = path
	r.SummaryClips = clips
}

func (r *Recorder) NothingToCombine() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Empty = true
}
