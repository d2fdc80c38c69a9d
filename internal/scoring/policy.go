package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/keagan/gyroreel/internal/motionlog"
)

// ErrMissingChannel is returned when a policy needs a channel the log does not carry
var ErrMissingChannel = errors.New("motion log lacks required channel")

// FrameFunc scores one frame sample for the log it was bound to
type FrameFunc func(sample motionlog.FrameSample) float64

// Policy turns one frame sample into its contribution to a window score.
// Bind resolves the policy against a log's channel layout; the policy itself
// holds no per-log state, so one policy may serve many logs at once.
type Policy interface {
	Name() string
	Bind(log *motionlog.MotionLog) (FrameFunc, error)
}

// AggregatePolicy sums absolute readings over the tracked channels
type AggregatePolicy struct {
	channels []motionlog.Channel
}

// Aggregate scores general motion intensity. With no channels it tracks every
// channel the log carries.
func Aggregate(channels ...motionlog.Channel) *AggregatePolicy {
	return &AggregatePolicy{channels: channels}
}

func (a *AggregatePolicy) Name() string { return "aggregate" }

func (a *AggregatePolicy) Bind(log *motionlog.MotionLog) (FrameFunc, error) {
	var columns []int
	if len(a.channels) == 0 {
		columns = make([]int, len(log.Channels))
		for i := range columns {
			columns[i] = i
		}
	} else {
		columns = make([]int, 0, len(a.channels))
		for _, ch := range a.channels {
			idx := log.Index(ch)
			if idx < 0 {
				return nil, fmt.Errorf("%w: %s", ErrMissingChannel, ch)
			}
			columns = append(columns, idx)
		}
	}

	return func(sample motionlog.FrameSample) float64 {
		sum := 0.0
		for _, col := range columns {
			sum += math.Abs(sample[col])
		}
		return sum
	}, nil
}

// BrakingPolicy counts deceleration on the forward axis only
type BrakingPolicy struct{}

// Braking scores |ax| for frames where ax < 0
func Braking() *BrakingPolicy {
	return &BrakingPolicy{}
}

func (b *BrakingPolicy) Name() string { return "braking" }

func (b *BrakingPolicy) Bind(log *motionlog.MotionLog) (FrameFunc, error) {
	column := log.Index(motionlog.AX)
	if column < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingChannel, motionlog.AX)
	}
	return func(sample motionlog.FrameSample) float64 {
		if ax := sample[column]; ax < 0 {
			return -ax
		}
		return 0
	}, nil
}

// CompositePolicy combines multiple policies with weights
type CompositePolicy struct {
	policies []Policy
	weights  []float64
}

// NewComposite creates a weighted sum of policies
func NewComposite(policies []Policy, weights []float64) (*CompositePolicy, error) {
	if len(policies) == 0 {
		return nil, fmt.Errorf("composite policy needs at least one policy")
	}
	if len(policies) != len(weights) {
		return nil, fmt.Errorf("composite policy has %d policies but %d weights", len(policies), len(weights))
	}
	return &CompositePolicy{policies: policies, weights: weights}, nil
}

func (c *CompositePolicy) Name() string {
	names := make([]string, len(c.policies))
	for i, p := range c.policies {
		names[i] = p.Name()
	}
	return "composite(" + strings.Join(names, "+") + ")"
}

func (c *CompositePolicy) Bind(log *motionlog.MotionLog) (FrameFunc, error) {
	frames := make([]FrameFunc, len(c.policies))
	for i, p := range c.policies {
		f, err := p.Bind(log)
		if err != nil {
			return nil, err
		}
		frames[i] = f
	}
	weights := c.weights

	return func(sample motionlog.FrameSample) float64 {
		sum := 0.0
		for i, f := range frames {
			sum += weights[i] * f(sample)
		}
		return sum
	}, nil
}

// PolicyByName builds a policy from configuration. channels only applies to
// the aggregate part.
func PolicyByName(name string, channels []motionlog.Channel) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "aggregate", "motion":
		return Aggregate(channels...), nil
	case "braking", "brake":
		return Braking(), nil
	case "combined":
		return NewComposite(
			[]Policy{Aggregate(channels...), Braking()},
			[]float64{0.5, 0.5},
		)
	default:
		return nil, fmt.Errorf("unknown scoring policy %q", name)
	}
}
