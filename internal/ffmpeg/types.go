package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	VideoCodec string
	HasAudio   bool
	AudioCodec string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args       []string
	LogHandler func(line string)
}

// ClipOptions defines stream-copy extraction parameters
type ClipOptions struct {
	Start    time.Duration
	Duration time.Duration
	Output   string
}

// ConcatOptions defines concatenation parameters
type ConcatOptions struct {
	Inputs []string
	Output string
	// TempDir holds the transient input manifest. Empty means os.TempDir.
	TempDir string
}
