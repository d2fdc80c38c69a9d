package motionlog

import (
	"fmt"
	"sort"
	"strings"
)

// Channel identifies one telemetry column of a motion log
type Channel int

const (
	RX Channel = iota
	RY
	RZ
	AX
	AY
	AZ
)

var channelNames = map[Channel]string{
	RX: "rx",
	RY: "ry",
	RZ: "rz",
	AX: "ax",
	AY: "ay",
	AZ: "az",
}

func (c Channel) String() string {
	if name, ok := channelNames[c]; ok {
		return name
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ParseChannel converts a config name like "rx" into a Channel
func ParseChannel(s string) (Channel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range channelNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown motion channel %q", s)
}

// ParseChannels converts a list of channel names
func ParseChannels(names []string) ([]Channel, error) {
	out := make([]Channel, 0, len(names))
	for _, n := range names {
		c, err := ParseChannel(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// FrameSample holds the tracked channel values of one video frame, ordered
// like MotionLog.Channels.
type FrameSample []float64

// MotionLog is the per-frame telemetry of one video. Sample i belongs to frame i.
type MotionLog struct {
	Path     string
	Channels []Channel
	Samples  []FrameSample
	// Skipped counts malformed rows dropped while reading
	Skipped int
}

// Len returns the number of frames
func (m *MotionLog) Len() int {
	return len(m.Samples)
}

// Index returns the column of ch within each sample, or -1
func (m *MotionLog) Index(ch Channel) int {
	for i, c := range m.Channels {
		if c == ch {
			return i
		}
	}
	return -1
}

// Format describes the positional layout of a log file
type Format struct {
	// HeaderLines are skipped unconditionally before any row is parsed
	HeaderLines int
	// Columns maps each tracked channel to its zero-based field position
	Columns map[Channel]int
}

// DefaultHeaderLines is the metadata preamble length of the camera's .gcsv files
const DefaultHeaderLines = 16

// DefaultFormat tracks rotation and acceleration at their usual positions
func DefaultFormat() Format {
	return Format{
		HeaderLines: DefaultHeaderLines,
		Columns: map[Channel]int{
			RX: 1, RY: 2, RZ: 3,
			AX: 4, AY: 5, AZ: 6,
		},
	}
}

// channels returns the tracked channels in canonical order
func (f Format) channels() []Channel {
	out := make([]Channel, 0, len(f.Columns))
	for c := range f.Columns {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// minFields is the field count a row needs to carry every tracked column
func (f Format) minFields() int {
	n := 0
	for _, pos := range f.Columns {
		if pos+1 > n {
			n = pos + 1
		}
	}
	return n
}

// Validate checks that the format can be used for reading
func (f Format) Validate() error {
	if f.HeaderLines < 0 {
		return fmt.Errorf("header lines must be >= 0, got %d", f.HeaderLines)
	}
	if len(f.Columns) == 0 {
		return fmt.Errorf("no channels configured")
	}
	seen := make(map[int]Channel, len(f.Columns))
	for c, pos := range f.Columns {
		if pos < 0 {
			return fmt.Errorf("channel %s has negative position %d", c, pos)
		}
		if other, dup := seen[pos]; dup {
			return fmt.Errorf("channels %s and %s share position %d", other, c, pos)
		}
		seen[pos] = c
	}
	return nil
}
