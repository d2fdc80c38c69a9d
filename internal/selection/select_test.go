package selection

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/keagan/gyroreel/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func windowsFrom(scores ...float64) []scoring.ScoredWindow {
	out := make([]scoring.ScoredWindow, len(scores))
	for i, s := range scores {
		out[i] = scoring.ScoredWindow{Start: i, Score: s}
	}
	return out
}

func starts(sel []SelectedWindow) []int {
	out := make([]int, len(sel))
	for i, s := range sel {
		out[i] = s.Start
	}
	return out
}

// bruteForce is a direct restatement of the greedy rule used as a reference
func bruteForce(windows []scoring.ScoredWindow, minDistance, k int) []int {
	order := make([]int, len(windows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return windows[order[a]].Score > windows[order[b]].Score
	})

	var picked []int
	for _, idx := range order {
		if len(picked) == k {
			break
		}
		ok := true
		for _, p := range picked {
			if windows[idx].Start-p < minDistance && p-windows[idx].Start < minDistance {
				ok = false
				break
			}
		}
		if ok {
			picked = append(picked, windows[idx].Start)
		}
	}
	return picked
}

func TestSelectEmpty(t *testing.T) {
	assert.Empty(t, Select(nil, 300, 3))
	assert.Empty(t, Select(windowsFrom(1, 2, 3), 1, 0))
}

func TestSelectOrderAndRank(t *testing.T) {
	scores := make([]float64, 20)
	scores[2] = 5
	scores[10] = 9
	scores[17] = 7
	scores[11] = 8.5 // too close to 10

	sel := Select(windowsFrom(scores...), 5, 3)
	require.Len(t, sel, 3)
	assert.Equal(t, []int{10, 17, 2}, starts(sel))
	for i, s := range sel {
		assert.Equal(t, i+1, s.Rank)
	}
	assert.Equal(t, 9.0, sel[0].Score)
}

func TestSelectFewerThanK(t *testing.T) {
	// one sustained event spanning most of the log
	scores := make([]float64, 400)
	for i := range scores {
		scores[i] = 100 - float64((i-200)*(i-200))/1000
	}

	sel := Select(windowsFrom(scores...), 300, 3)
	require.Len(t, sel, 1)
	assert.Equal(t, 200, sel[0].Start)
	assert.Equal(t, 1, sel[0].Rank)
}

func TestSelectTieBreaksOnStart(t *testing.T) {
	sel := Select(windowsFrom(1, 1, 1, 1, 1, 1), 2, 3)
	assert.Equal(t, []int{0, 2, 4}, starts(sel))
}

func TestSelectDoesNotMutateInput(t *testing.T) {
	in := windowsFrom(1, 5, 3)
	Select(in, 1, 3)
	assert.Equal(t, windowsFrom(1, 5, 3), in)
}

func TestSelectPropertiesAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(60)
		scores := make([]float64, n)
		for i := range scores {
			// coarse values force ties
			scores[i] = float64(rng.Intn(8))
		}
		windows := windowsFrom(scores...)
		minDistance := 1 + rng.Intn(10)
		k := rng.Intn(5)

		sel := Select(windows, minDistance, k)

		assert.LessOrEqual(t, len(sel), k)
		for i := range sel {
			for j := i + 1; j < len(sel); j++ {
				d := sel[i].Start - sel[j].Start
				if d < 0 {
					d = -d
				}
				assert.GreaterOrEqual(t, d, minDistance)
			}
		}
		assert.Equal(t, bruteForce(windows, minDistance, k), nilIfEmpty(starts(sel)))

		// reproducible
		assert.Equal(t, sel, Select(windows, minDistance, k))
	}
}

func nilIfEmpty(s []int) []int {
	if len(s) == 0 {
		return nil
	}
	return s
}
