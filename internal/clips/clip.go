package clips

import (
	"sort"
	"time"

	"github.com/keagan/gyroreel/internal/selection"
)

// Clip is an extracted highlight file and the window it was cut from
type Clip struct {
	Path     string
	Source   string
	Window   selection.SelectedWindow
	Start    time.Duration
	Duration time.Duration
	// VideoIndex is the position of Source in the batch listing
	VideoIndex int
}

// Rank returns the selection rank of the clip within its video
func (c *Clip) Rank() int {
	return c.Window.Rank
}

// Manager collects clips from many videos and hands them back in reel order
type Manager struct {
	clips []*Clip
}

// NewManager creates a new clip manager
func NewManager() *Manager {
	return &Manager{
		clips: make([]*Clip, 0),
	}
}

// Add adds clips to the manager
func (m *Manager) Add(clips ...*Clip) {
	m.clips = append(m.clips, clips...)
}

// Len returns the number of clips held
func (m *Manager) Len() int {
	return len(m.clips)
}

// Ordered returns all clips sorted by video index, then rank
func (m *Manager) Ordered() []*Clip {
	out := append([]*Clip(nil), m.clips...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VideoIndex != out[j].VideoIndex {
			return out[i].VideoIndex < out[j].VideoIndex
		}
		return out[i].Rank() < out[j].Rank()
	})
	return out
}

// Paths returns the file paths of clips in the given order
func Paths(clips []*Clip) []string {
	paths := make([]string, len(clips))
	for i, c := range clips {
		paths[i] = c.Path
	}
	return paths
}
