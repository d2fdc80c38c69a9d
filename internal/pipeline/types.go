package pipeline

import (
	"io"

	"github.com/keagan/gyroreel/internal/clips"
	"github.com/keagan/gyroreel/internal/highlight"
)

// Pair is a video and the motion log recorded with it
type Pair struct {
	// Index is the video's position in the sorted listing
	Index int
	Video string
	Log   string
}

// Batch is the work found in a videos folder
type Batch struct {
	Pairs []Pair
	// Unmatched videos have no motion log; each still holds its index
	Unmatched []string
	// Videos is the number of videos listed
	Videos int
}

// Config holds pipeline-specific configuration
type Config struct {
	// Workers processing videos in parallel; below 2 runs sequentially
	Workers  int
	VideoExt string
	LogExt   string
	Policy   string
	// Progress receives the progress bar; nil hides it
	Progress io.Writer
}

// Options selects the folders of one run
type Options struct {
	VideoDir  string
	LogDir    string
	OutputDir string
	// SummaryName is joined to OutputDir unless absolute
	SummaryName string
	// RunID tags logs and the manifest; generated when empty
	RunID string
}

// Result describes a finished run
type Result struct {
	RunID    string
	Batch    *Batch
	Outcomes []*highlight.Outcome
	// Clips in summary order
	Clips []*clips.Clip
	// Summary is empty when there was nothing to combine
	Summary  string
	Manifest string
	// FailedVideos counts pairs that produced no outcome or failed outright
	FailedVideos int
	FailedClips  int
}
