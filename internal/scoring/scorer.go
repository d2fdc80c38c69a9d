package scoring

import (
	"fmt"
	"math"

	"github.com/keagan/gyroreel/internal/motionlog"
)

// ScoredWindow is a candidate segment [Start, Start+window) and its interest score
type ScoredWindow struct {
	Start int
	Score float64
}

// Scorer slides a fixed-size window over a motion log
type Scorer struct {
	Window int
	Policy Policy
	// Incremental keeps a running sum instead of re-adding every frame of each
	// window. Scores then differ from the direct sum by rounding only. Both
	// modes floor window scores at zero, so a running sum that drifts just
	// below zero reads the same as an exact zero.
	Incremental bool
}

// WindowSize converts a segment length into a frame count
func WindowSize(fps float64, seconds float64) int {
	return int(math.Round(fps * seconds))
}

// NewScorer creates a scorer with the direct summation
func NewScorer(window int, policy Policy) *Scorer {
	return &Scorer{Window: window, Policy: policy}
}

// Score returns one window per start index 0 <= i < len(log)-Window, in
// ascending start order. Logs no longer than the window yield no windows.
func (s *Scorer) Score(log *motionlog.MotionLog) ([]ScoredWindow, error) {
	if s.Window <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", s.Window)
	}
	if s.Policy == nil {
		return nil, fmt.Errorf("no scoring policy configured")
	}

	n := log.Len()
	if n <= s.Window {
		return []ScoredWindow{}, nil
	}

	frame, err := s.Policy.Bind(log)
	if err != nil {
		return nil, fmt.Errorf("bind %s policy: %w", s.Policy.Name(), err)
	}

	frames := make([]float64, n)
	for i, sample := range log.Samples {
		frames[i] = frame(sample)
	}

	count := n - s.Window
	windows := make([]ScoredWindow, count)

	if s.Incremental {
		acc := 0.0
		for j := 0; j < s.Window; j++ {
			acc += frames[j]
		}
		for i := 0; i < count; i++ {
			if i > 0 {
				acc += frames[i+s.Window-1] - frames[i-1]
			}
			windows[i] = ScoredWindow{Start: i, Score: math.Max(acc, 0)}
		}
		return windows, nil
	}

	for i := 0; i < count; i++ {
		sum := 0.0
		for _, f := range frames[i : i+s.Window] {
			sum += f
		}
		windows[i] = ScoredWindow{Start: i, Score: math.Max(sum, 0)}
	}
	return windows, nil
}
