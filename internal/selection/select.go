package selection

import (
	"sort"

	"github.com/keagan/gyroreel/internal/scoring"
)

// SelectedWindow is a scored window chosen for extraction. Rank 1 is the best.
type SelectedWindow struct {
	scoring.ScoredWindow
	Rank int
}

// Select greedily picks up to k windows in score order, accepting a window only
// if its start is at least minDistance frames from every window already taken.
// Equal scores keep their incoming order. The result is in acceptance order.
func Select(windows []scoring.ScoredWindow, minDistance, k int) []SelectedWindow {
	if len(windows) == 0 || k <= 0 {
		return []SelectedWindow{}
	}

	ranked := make([]scoring.ScoredWindow, len(windows))
	copy(ranked, windows)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	selected := make([]SelectedWindow, 0, k)
	for _, candidate := range ranked {
		if !farFromAll(candidate.Start, selected, minDistance) {
			continue
		}
		selected = append(selected, SelectedWindow{
			ScoredWindow: candidate,
			Rank:         len(selected) + 1,
		})
		if len(selected) == k {
			break
		}
	}
	return selected
}

func farFromAll(start int, selected []SelectedWindow, minDistance int) bool {
	for _, s := range selected {
		d := start - s.Start
		if d < 0 {
			d = -d
		}
		if d < minDistance {
			return false
		}
	}
	return true
}
