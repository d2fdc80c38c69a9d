package scoring

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/keagan/gyroreel/internal/motionlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rotationLog builds a rx/ry/rz log where each frame's rx comes from values
func rotationLog(values []float64) *motionlog.MotionLog {
	log := &motionlog.MotionLog{
		Channels: []motionlog.Channel{motionlog.RX, motionlog.RY, motionlog.RZ},
		Samples:  make([]motionlog.FrameSample, len(values)),
	}
	for i, v := range values {
		log.Samples[i] = motionlog.FrameSample{v, 0, 0}
	}
	return log
}

func fullLog(n int, fill func(i int) motionlog.FrameSample) *motionlog.MotionLog {
	log := &motionlog.MotionLog{
		Channels: []motionlog.Channel{
			motionlog.RX, motionlog.RY, motionlog.RZ,
			motionlog.AX, motionlog.AY, motionlog.AZ,
		},
		Samples: make([]motionlog.FrameSample, n),
	}
	for i := range log.Samples {
		log.Samples[i] = fill(i)
	}
	return log
}

func best(windows []ScoredWindow) ScoredWindow {
	sorted := append([]ScoredWindow(nil), windows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return sorted[0]
}

func TestWindowSize(t *testing.T) {
	assert.Equal(t, 300, WindowSize(60, 5))
	assert.Equal(t, 150, WindowSize(29.97, 5.005))
}

func TestScoreWindowCountAndRange(t *testing.T) {
	for _, tc := range []struct{ n, w int }{
		{1000, 300}, {301, 300}, {300, 300}, {10, 300}, {0, 5}, {7, 1},
	} {
		log := rotationLog(make([]float64, tc.n))
		windows, err := NewScorer(tc.w, Aggregate()).Score(log)
		require.NoError(t, err)

		want := tc.n - tc.w
		if want < 0 {
			want = 0
		}
		require.Len(t, windows, want, "n=%d w=%d", tc.n, tc.w)
		for i, win := range windows {
			assert.Equal(t, i, win.Start)
			assert.Less(t, win.Start, tc.n-tc.w)
			assert.GreaterOrEqual(t, win.Score, 0.0)
		}
	}
}

func TestScoreRejectsBadWindow(t *testing.T) {
	_, err := NewScorer(0, Aggregate()).Score(rotationLog(make([]float64, 10)))
	assert.Error(t, err)
}

func TestAggregateSumsAbsoluteValues(t *testing.T) {
	log := fullLog(4, func(i int) motionlog.FrameSample {
		return motionlog.FrameSample{-1, 2, -3, 100, 100, 100}
	})
	windows, err := NewScorer(2, Aggregate(motionlog.RX, motionlog.RY, motionlog.RZ)).Score(log)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, 12.0, windows[0].Score)

	windows, err = NewScorer(2, Aggregate()).Score(log)
	require.NoError(t, err)
	assert.Equal(t, 612.0, windows[0].Score)
}

func TestSpikeLandsInTopWindow(t *testing.T) {
	const n, w, p = 1000, 300, 500
	values := make([]float64, n)
	values[p] = 50

	windows, err := NewScorer(w, Aggregate()).Score(rotationLog(values))
	require.NoError(t, err)

	top := best(windows)
	assert.LessOrEqual(t, top.Start, p)
	assert.Greater(t, top.Start+w, p)
	assert.Equal(t, 50.0, top.Score)
}

func TestBumpCentresTopWindow(t *testing.T) {
	const n, w, p = 1000, 300, 500
	values := make([]float64, n)
	for i := range values {
		d := float64(i - p)
		values[i] = 10 * math.Exp(-d*d/(2*40*40))
	}

	windows, err := NewScorer(w, Aggregate()).Score(rotationLog(values))
	require.NoError(t, err)

	top := best(windows)
	assert.InDelta(t, p-w/2, top.Start, 2)
}

func TestBrakingCountsOnlyDeceleration(t *testing.T) {
	log := fullLog(6, func(i int) motionlog.FrameSample {
		ax := []float64{-2, 3, -1, 0, 5, -4}[i]
		return motionlog.FrameSample{9, 9, 9, ax, 7, 7}
	})

	windows, err := NewScorer(3, Braking()).Score(log)
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, []float64{3, 1, 1}, []float64{windows[0].Score, windows[1].Score, windows[2].Score})
}

func TestBrakingNeedsAcceleration(t *testing.T) {
	_, err := NewScorer(2, Braking()).Score(rotationLog(make([]float64, 10)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingChannel))
}

func TestIncrementalMatchesDirect(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	log := fullLog(2000, func(i int) motionlog.FrameSample {
		return motionlog.FrameSample{
			rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(),
			rng.NormFloat64() * 3, rng.NormFloat64(), 9.81,
		}
	})

	for _, policy := range []func() Policy{
		func() Policy { return Aggregate(motionlog.RX, motionlog.RY, motionlog.RZ) },
		func() Policy { return Braking() },
	} {
		direct, err := NewScorer(300, policy()).Score(log)
		require.NoError(t, err)

		inc := &Scorer{Window: 300, Policy: policy(), Incremental: true}
		sliding, err := inc.Score(log)
		require.NoError(t, err)

		require.Len(t, sliding, len(direct))
		for i := range direct {
			assert.InDelta(t, direct[i].Score, sliding[i].Score, 1e-6)
		}
	}
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("aggregate", nil)
	require.NoError(t, err)
	assert.Equal(t, "aggregate", p.Name())

	p, err = PolicyByName("braking", nil)
	require.NoError(t, err)
	assert.Equal(t, "braking", p.Name())

	p, err = PolicyByName("combined", nil)
	require.NoError(t, err)
	assert.Equal(t, "composite(aggregate+braking)", p.Name())

	_, err = PolicyByName("vibes", nil)
	assert.Error(t, err)
}

func TestCompositeWeightsPolicies(t *testing.T) {
	c, err := NewComposite([]Policy{Aggregate(motionlog.RX), Braking()}, []float64{1, 2})
	require.NoError(t, err)

	log := fullLog(3, func(i int) motionlog.FrameSample {
		return motionlog.FrameSample{1, 0, 0, -1, 0, 0}
	})
	windows, err := NewScorer(1, c).Score(log)
	require.NoError(t, err)
	assert.Equal(t, 3.0, windows[0].Score)

	_, err = NewComposite([]Policy{Braking()}, nil)
	assert.Error(t, err)
}

func TestScoreModesFloorAtZero(t *testing.T) {
	negative, err := NewComposite([]Policy{Aggregate(motionlog.RX)}, []float64{-1})
	require.NoError(t, err)

	log := rotationLog([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6})
	for _, incremental := range []bool{false, true} {
		s := &Scorer{Window: 2, Policy: negative, Incremental: incremental}
		windows, err := s.Score(log)
		require.NoError(t, err)
		require.Len(t, windows, 4)
		for _, win := range windows {
			assert.Equal(t, 0.0, win.Score, "incremental=%v start=%d", incremental, win.Start)
		}
	}
}

func TestSharedScorerAcrossLogs(t *testing.T) {
	// rotation-only and full logs give the same policy different column sets
	rng := rand.New(rand.NewSource(11))
	logs := make([]*motionlog.MotionLog, 8)
	for i := range logs {
		if i%2 == 0 {
			values := make([]float64, 400)
			for j := range values {
				values[j] = rng.NormFloat64()
			}
			logs[i] = rotationLog(values)
			continue
		}
		logs[i] = fullLog(400, func(int) motionlog.FrameSample {
			return motionlog.FrameSample{
				rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(),
				rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(),
			}
		})
	}

	for _, policy := range []Policy{Aggregate(), mustComposite(t)} {
		scorer := NewScorer(50, policy)

		want := make([][]ScoredWindow, len(logs))
		for i, log := range logs {
			windows, err := scorer.Score(log)
			require.NoError(t, err)
			want[i] = windows
		}

		var wg sync.WaitGroup
		for round := 0; round < 4; round++ {
			for i, log := range logs {
				wg.Add(1)
				go func(i int, log *motionlog.MotionLog) {
					defer wg.Done()
					windows, err := scorer.Score(log)
					if assert.NoError(t, err) {
						assert.Equal(t, want[i], windows, "%s log %d", policy.Name(), i)
					}
				}(i, log)
			}
		}
		wg.Wait()
	}
}

func mustComposite(t *testing.T) Policy {
	t.Helper()
	c, err := NewComposite([]Policy{Aggregate(), Aggregate(motionlog.RX)}, []float64{0.5, 2})
	require.NoError(t, err)
	return c
}
