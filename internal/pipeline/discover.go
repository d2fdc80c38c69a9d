package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keagan/gyroreel/pkg/util"
)

// Discover lists videoDir for files ending in videoExt and pairs each with
// <logDir>/<base><logExt>. Listing order is lexicographic and decides the
// index of every video.
func Discover(videoDir, logDir, videoExt, logExt string) (*Batch, error) {
	entries, err := os.ReadDir(videoDir)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}

	batch := &Batch{}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, videoExt) || name == videoExt {
			continue
		}
		video := filepath.Join(videoDir, name)
		if !util.FileExists(video) {
			continue
		}

		index := batch.Videos
		batch.Videos++

		log := filepath.Join(logDir, strings.TrimSuffix(name, videoExt)+logExt)
		if !util.FileExists(log) {
			batch.Unmatched = append(batch.Unmatched, video)
			continue
		}
		batch.Pairs = append(batch.Pairs, Pair{Index: index, Video: video, Log: log})
	}

	return batch, nil
}
