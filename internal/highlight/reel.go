package highlight

import (
	"fmt"
	"os"
	"time"

	"github.com/keagan/gyroreel/internal/clips"
	"github.com/keagan/gyroreel/pkg/util"
	"gopkg.in/yaml.v3"
)

// ManifestName is the reel manifest written next to the clips
const ManifestName = "reel.yaml"

// Reel records the clips of one run in summary order
type Reel struct {
	RunID          string     `yaml:"run_id"`
	CreatedAt      time.Time  `yaml:"created_at"`
	Policy         string     `yaml:"policy"`
	LogFPS         float64    `yaml:"log_fps"`
	SegmentSeconds float64    `yaml:"segment_seconds"`
	Summary        string     `yaml:"summary,omitempty"`
	Clips          []ReelClip `yaml:"clips"`
}

type ReelClip struct {
	Path       string  `yaml:"path"`
	Source     string  `yaml:"source"`
	VideoIndex int     `yaml:"video_index"`
	Rank       int     `yaml:"rank"`
	StartFrame int     `yaml:"start_frame"`
	Score      float64 `yaml:"score"`
}

// NewReel builds a manifest from clips already in summary order
func NewReel(runID, policy string, cfg Config, ordered []*clips.Clip) *Reel {
	reel := &Reel{
		RunID:          runID,
		CreatedAt:      time.Now().UTC().Truncate(time.Second),
		Policy:         policy,
		LogFPS:         cfg.LogFPS,
		SegmentSeconds: cfg.SegmentSeconds,
		Clips:          make([]ReelClip, 0, len(ordered)),
	}
	for _, c := range ordered {
		reel.Clips = append(reel.Clips, ReelClip{
			Path:       c.Path,
			Source:     c.Source,
			VideoIndex: c.VideoIndex,
			Rank:       c.Rank(),
			StartFrame: c.Window.Start,
			Score:      c.Window.Score,
		})
	}
	return reel
}

// Paths returns clip paths in reel order
func (r *Reel) Paths() []string {
	paths := make([]string, len(r.Clips))
	for i, c := range r.Clips {
		paths[i] = c.Path
	}
	return paths
}

// Existing splits the clip paths into those still on disk and those gone
func (r *Reel) Existing() (present, missing []string) {
	for _, path := range r.Paths() {
		if util.FileExists(path) {
			present = append(present, path)
		} else {
			missing = append(missing, path)
		}
	}
	return present, missing
}

// Save writes the manifest
func (r *Reel) Save(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadReel reads a manifest
func LoadReel(path string) (*Reel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reel manifest: %w", err)
	}

	var reel Reel
	if err := yaml.Unmarshal(data, &reel); err != nil {
		return nil, fmt.Errorf("parse reel manifest %s: %w", path, err)
	}
	return &reel, nil
}
