// Package staging lays out per-device media folders and copies footage off
// the camera.
package staging

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/keagan/gyroreel/internal/config"
	"github.com/keagan/gyroreel/pkg/util"
	"github.com/rs/zerolog"
)

// Layout is the folder set of one device
type Layout struct {
	Root   string
	Videos string
	Logs   string
	Output string
}

// NewLayout places the device folders under <mediaRoot>/<deviceID>
func NewLayout(mediaRoot, deviceID string, paths config.PathsConfig) Layout {
	root := filepath.Join(mediaRoot, deviceID)
	return Layout{
		Root:   root,
		Videos: filepath.Join(root, paths.Videos),
		Logs:   filepath.Join(root, paths.Logs),
		Output: filepath.Join(root, paths.Output),
	}
}

// Create makes every folder of the layout; existing folders are kept
func (l Layout) Create() error {
	for _, dir := range []string{l.Videos, l.Logs, l.Output} {
		if err := util.EnsureDir(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// CameraDCIM is where a camera volume mounts its footage for the current user
func CameraDCIM(folder string) (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve current user: %w", err)
	}
	return filepath.Join("/media", u.Username, folder, "DCIM"), nil
}

// Stats counts what an offload did
type Stats struct {
	Videos  int
	Logs    int
	Skipped int
	Bytes   int64
}

// Stager copies videos and motion logs into a layout
type Stager struct {
	logger   zerolog.Logger
	videoExt string
	logExt   string
}

func NewStager(logger zerolog.Logger, videoExt, logExt string) *Stager {
	return &Stager{
		logger:   logger.With().Str("component", "staging").Logger(),
		videoExt: videoExt,
		logExt:   logExt,
	}
}

// Offload walks src and copies files ending in the video extension to
// layout.Videos and those ending in the log extension to layout.Logs. Files
// already staged with the same size are skipped.
func (s *Stager) Offload(ctx context.Context, src string, layout Layout) (Stats, error) {
	var stats Stats

	if err := layout.Create(); err != nil {
		return stats, err
	}

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		var destDir string
		switch name := d.Name(); {
		case strings.HasSuffix(name, s.videoExt):
			destDir = layout.Videos
		case strings.HasSuffix(name, s.logExt):
			destDir = layout.Logs
		default:
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		dest := filepath.Join(destDir, d.Name())
		if existing, err := os.Stat(dest); err == nil && existing.Size() == info.Size() {
			stats.Skipped++
			return nil
		}

		if err := copyFile(path, dest, info); err != nil {
			return err
		}

		s.logger.Debug().Str("file", d.Name()).Int64("bytes", info.Size()).Msg("staged")
		stats.Bytes += info.Size()
		if destDir == layout.Videos {
			stats.Videos++
		} else {
			stats.Logs++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("offload %s: %w", src, err)
	}

	s.logger.Info().
		Int("videos", stats.Videos).
		Int("logs", stats.Logs).
		Int("skipped", stats.Skipped).
		Msg("offload complete")

	return stats, nil
}

// copyFile writes through a temporary name so an interrupted copy never
// looks staged
func copyFile(src, dest string, info fs.FileInfo) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dest + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		util.CleanupFiles(tmp)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		util.CleanupFiles(tmp)
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		util.CleanupFiles(tmp)
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
