package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/keagan/gyroreel/internal/motionlog"
	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// EnvPrefix prefixes every environment override
const EnvPrefix = "GYROREEL_"

// Config holds all application configuration
type Config struct {
	// Root of the per-device media folders
	MediaRoot string `yaml:"media_root" env:"MEDIA_ROOT"`
	// Videos processed in parallel; 1 keeps the batch sequential
	Workers int `yaml:"workers" env:"WORKERS"`

	Timing    TimingConfig    `yaml:"timing" envPrefix:"TIMING_"`
	MotionLog MotionLogConfig `yaml:"motion_log" envPrefix:"MOTION_LOG_"`
	Selection SelectionConfig `yaml:"selection" envPrefix:"SELECTION_"`
	Paths     PathsConfig     `yaml:"paths" envPrefix:"PATHS_"`
	Video     VideoConfig     `yaml:"video" envPrefix:"VIDEO_"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg" envPrefix:"FFMPEG_"`
	Metrics   MetricsConfig   `yaml:"metrics" envPrefix:"METRICS_"`
	Archive   ArchiveConfig   `yaml:"archive" envPrefix:"ARCHIVE_"`

	Cameras []CameraConfig `yaml:"cameras"`
}

// TimingConfig ties motion log samples to video time
type TimingConfig struct {
	// Sampling rate of the motion log; one sample per video frame
	LogFPS float64 `yaml:"log_fps" env:"LOG_FPS"`
	// Encoded frame rate the videos are expected to have
	VideoFPS       float64 `yaml:"video_fps" env:"VIDEO_FPS"`
	SegmentSeconds float64 `yaml:"segment_seconds" env:"SEGMENT_SECONDS"`
	// Probe every video and refuse those whose rate differs from VideoFPS
	VerifyFPS bool `yaml:"verify_fps" env:"VERIFY_FPS"`
}

type MotionLogConfig struct {
	Extension   string         `yaml:"extension" env:"EXTENSION"`
	HeaderLines int            `yaml:"header_lines" env:"HEADER_LINES"`
	Columns     map[string]int `yaml:"columns"`
}

type SelectionConfig struct {
	Policy   string   `yaml:"policy" env:"POLICY"`
	Channels []string `yaml:"channels" env:"CHANNELS"`
	TopK     int      `yaml:"top_k" env:"TOP_K"`
	// Minimum frames between selected window starts; 0 means one window length
	MinDistance int  `yaml:"min_distance" env:"MIN_DISTANCE"`
	Incremental bool `yaml:"incremental" env:"INCREMENTAL"`
}

type PathsConfig struct {
	Videos  string `yaml:"videos" env:"VIDEOS"`
	Logs    string `yaml:"logs" env:"LOGS"`
	Output  string `yaml:"output" env:"OUTPUT"`
	Summary string `yaml:"summary" env:"SUMMARY"`
}

type VideoConfig struct {
	// Extension of the camera's video files, matched case-sensitively
	Extension string `yaml:"extension" env:"EXTENSION"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path" env:"BINARY_PATH"`
	ProbePath  string `yaml:"probe_path" env:"PROBE_PATH"`
	Threads    int    `yaml:"threads" env:"THREADS"`
}

type MetricsConfig struct {
	// Textfile written at the end of each run; empty disables it
	Textfile string `yaml:"textfile" env:"TEXTFILE"`
	// Address for a /metrics endpoint during the run; empty disables it
	Listen string `yaml:"listen" env:"LISTEN"`
}

type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint  string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env:"USE_SSL"`
	Bucket    string `yaml:"bucket" env:"BUCKET"`
	Prefix    string `yaml:"prefix" env:"PREFIX"`
}

// CameraConfig identifies a supported camera on the USB bus
type CameraConfig struct {
	// USB vendor:product id as printed by lsusb
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Volume label the camera mounts under
	Folder string `yaml:"folder"`
}

// Load reads configuration from file, .env and environment over defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if c.Timing.LogFPS <= 0 {
		errs = append(errs, fmt.Errorf("timing.log_fps must be positive"))
	}
	if c.Timing.VideoFPS < 0 {
		errs = append(errs, fmt.Errorf("timing.video_fps must not be negative"))
	}
	if c.Timing.SegmentSeconds <= 0 {
		errs = append(errs, fmt.Errorf("timing.segment_seconds must be positive"))
	}
	if c.MotionLog.HeaderLines < 0 {
		errs = append(errs, fmt.Errorf("motion_log.header_lines must be >= 0"))
	}
	if len(c.MotionLog.Columns) == 0 {
		errs = append(errs, fmt.Errorf("motion_log.columns must not be empty"))
	}
	if c.Selection.TopK < 1 {
		errs = append(errs, fmt.Errorf("selection.top_k must be >= 1"))
	}
	if c.Selection.MinDistance < 0 {
		errs = append(errs, fmt.Errorf("selection.min_distance must be >= 0"))
	}
	if c.Video.Extension == "" || c.MotionLog.Extension == "" {
		errs = append(errs, fmt.Errorf("video.extension and motion_log.extension must be set"))
	}
	if c.Paths.Summary == "" {
		errs = append(errs, fmt.Errorf("paths.summary must be set"))
	}
	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		errs = append(errs, fmt.Errorf("archive needs endpoint and bucket when enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// WindowFrames is the number of log samples in one segment
func (c *Config) WindowFrames() int {
	return int(c.Timing.LogFPS*c.Timing.SegmentSeconds + 0.5)
}

// DeviceDirs returns the videos, logs and output folders for a device id
func (c *Config) DeviceDirs(deviceID string) (videos, logs, output string) {
	root := filepath.Join(c.MediaRoot, deviceID)
	return filepath.Join(root, c.Paths.Videos),
		filepath.Join(root, c.Paths.Logs),
		filepath.Join(root, c.Paths.Output)
}

func defaultConfig() *Config {
	home, _ := os.UserHomeDir()

	format := motionlog.DefaultFormat()
	columns := make(map[string]int, len(format.Columns))
	for ch, pos := range format.Columns {
		columns[ch.String()] = pos
	}

	return &Config{
		MediaRoot: filepath.Join(home, "media"),
		Workers:   1,
		Timing: TimingConfig{
			LogFPS:         60,
			VideoFPS:       60,
			SegmentSeconds: 5,
			VerifyFPS:      false,
		},
		MotionLog: MotionLogConfig{
			Extension:   ".gcsv",
			HeaderLines: format.HeaderLines,
			Columns:     columns,
		},
		Selection: SelectionConfig{
			Policy:   "aggregate",
			Channels: []string{"rx", "ry", "rz"},
			TopK:     3,
		},
		Paths: PathsConfig{
			Videos:  "videos",
			Logs:    "gcsv",
			Output:  "output",
			Summary: "summary.mp4",
		},
		Video: VideoConfig{
			Extension: ".MP4",
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
		},
		Archive: ArchiveConfig{
			Prefix: "gyroreel",
		},
		Cameras: []CameraConfig{
			{ID: "2672:0011", Name: "GoPro HERO", Folder: "GoPro"},
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		"./gyroreel.yaml",
		"./gyroreel.yml",
		filepath.Join(home, ".gyroreel", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
