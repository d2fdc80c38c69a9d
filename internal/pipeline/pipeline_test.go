package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/keagan/gyroreel/internal/config"
	"github.com/keagan/gyroreel/internal/ffmpeg"
	"github.com/keagan/gyroreel/internal/ffmpeg/ffmpegtest"
	"github.com/keagan/gyroreel/internal/highlight"
	"github.com/keagan/gyroreel/internal/motionlog/motionlogtest"
	"github.com/keagan/gyroreel/internal/report"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type workspace struct {
	videos, logs, output string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		videos: filepath.Join(root, "videos"),
		logs:   filepath.Join(root, "gcsv"),
		output: filepath.Join(root, "output"),
	}
	require.NoError(t, os.MkdirAll(ws.videos, 0755))
	require.NoError(t, os.MkdirAll(ws.logs, 0755))
	return ws
}

func (w workspace) video(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(w.videos, name)
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0644))
	return path
}

func (w workspace) options() Options {
	return Options{
		VideoDir:    w.videos,
		LogDir:      w.logs,
		OutputDir:   w.output,
		SummaryName: "summary.mp4",
		RunID:       "test-run",
	}
}

func newRunner(t *testing.T, cfg *config.Config, rec report.Reporter, failOn ...string) (*Runner, *ffmpegtest.Fake) {
	t.Helper()
	fake := ffmpegtest.New(t, failOn...)
	exec, err := ffmpeg.New(zerolog.Nop(), ffmpeg.Options{
		FFmpegPath:  fake.Path,
		FFprobePath: filepath.Join(t.TempDir(), "no-ffprobe"),
	})
	require.NoError(t, err)

	runner, err := Setup(zerolog.Nop(), cfg, exec, rec, nil)
	require.NoError(t, err)
	return runner, fake
}

func TestDiscover(t *testing.T) {
	ws := newWorkspace(t)
	a := ws.video(t, "a.MP4")
	ws.video(t, "b.mp4")
	c := ws.video(t, "c.MP4")
	e := ws.video(t, "e.MP4")
	require.NoError(t, os.Mkdir(filepath.Join(ws.videos, "d.MP4"), 0755))

	motionlogtest.Write(t, filepath.Join(ws.logs, "a.gcsv"), 10, motionlogtest.Spike(1, 1))
	motionlogtest.Write(t, filepath.Join(ws.logs, "e.gcsv"), 10, motionlogtest.Spike(1, 1))

	batch, err := Discover(ws.videos, ws.logs, ".MP4", ".gcsv")
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Videos)
	assert.Equal(t, []Pair{
		{Index: 0, Video: a, Log: filepath.Join(ws.logs, "a.gcsv")},
		{Index: 2, Video: e, Log: filepath.Join(ws.logs, "e.gcsv")},
	}, batch.Pairs)
	assert.Equal(t, []string{c}, batch.Unmatched)
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), t.TempDir(), ".MP4", ".gcsv")
	assert.Error(t, err)
}

func TestRunEndToEnd(t *testing.T) {
	ws := newWorkspace(t)
	ws.video(t, "video1.MP4")
	video2 := ws.video(t, "video2.MP4")
	motionlogtest.Write(t, filepath.Join(ws.logs, "video1.gcsv"), 1000, motionlogtest.Spike(500, 100))

	rec := report.NewRecorder()
	runner, fake := newRunner(t, config.Default(), rec)

	result, err := runner.Run(context.Background(), ws.options())
	require.NoError(t, err)

	assert.Equal(t, []string{video2}, rec.UnmatchedVideos)
	require.Len(t, result.Clips, 2)

	clip1 := filepath.Join(ws.output, "0_clip1.mp4")
	clip2 := filepath.Join(ws.output, "0_clip2.mp4")
	assert.Equal(t, clip1, result.Clips[0].Path)
	assert.Equal(t, clip2, result.Clips[1].Path)
	assert.GreaterOrEqual(t, result.Clips[0].Window.Score, result.Clips[1].Window.Score)

	// window of clip 1 covers the spike
	w := result.Clips[0].Window
	assert.True(t, w.Start <= 500 && 500 < w.Start+300)

	summary := filepath.Join(ws.output, "summary.mp4")
	assert.Equal(t, summary, result.Summary)
	assert.Equal(t, summary, rec.Summary)
	assert.Equal(t, 2, rec.SummaryClips)
	assert.FileExists(t, summary)

	calls := fake.Calls(t)
	require.Len(t, calls, 3)
	assert.Equal(t, "file '"+clip1+"'\nfile '"+clip2+"'\n", fake.Manifest(t, 2))

	reel, err := highlight.LoadReel(result.Manifest)
	require.NoError(t, err)
	assert.Equal(t, "test-run", reel.RunID)
	assert.Equal(t, summary, reel.Summary)
	assert.Equal(t, []string{clip1, clip2}, reel.Paths())
}

func TestRunShortLogProducesNothing(t *testing.T) {
	ws := newWorkspace(t)
	ws.video(t, "video1.MP4")
	motionlogtest.Write(t, filepath.Join(ws.logs, "video1.gcsv"), 299, motionlogtest.Spike(100, 5))

	rec := report.NewRecorder()
	runner, fake := newRunner(t, config.Default(), rec)

	result, err := runner.Run(context.Background(), ws.options())
	require.NoError(t, err)

	assert.Empty(t, result.Clips)
	assert.Empty(t, result.Summary)
	assert.True(t, rec.Empty)
	assert.Empty(t, fake.Calls(t))
	assert.FileExists(t, result.Manifest)
}

func TestRunFewerThanK(t *testing.T) {
	ws := newWorkspace(t)
	ws.video(t, "video1.MP4")
	motionlogtest.Write(t, filepath.Join(ws.logs, "video1.gcsv"), 550, func(int) []float64 {
		return []float64{2, 2, 2}
	})

	cfg := config.Default()
	cfg.Selection.TopK = 3
	runner, fake := newRunner(t, cfg, nil)

	result, err := runner.Run(context.Background(), ws.options())
	require.NoError(t, err)
	require.Len(t, result.Clips, 1)
	assert.NotEmpty(t, result.Summary)
	assert.Len(t, fake.Calls(t), 2)
}

func TestRunSkipsFailedClip(t *testing.T) {
	ws := newWorkspace(t)
	ws.video(t, "video1.MP4")
	motionlogtest.Write(t, filepath.Join(ws.logs, "video1.gcsv"), 1000, motionlogtest.Spike(500, 100))

	rec := report.NewRecorder()
	runner, fake := newRunner(t, config.Default(), rec, "0_clip1")

	result, err := runner.Run(context.Background(), ws.options())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedClips)
	require.Len(t, result.Clips, 1)
	clip2 := filepath.Join(ws.output, "0_clip2.mp4")
	assert.Equal(t, clip2, result.Clips[0].Path)
	assert.Equal(t, "file '"+clip2+"'\n", fake.Manifest(t, 2))
}

func TestRunReturnsCombineFailure(t *testing.T) {
	ws := newWorkspace(t)
	ws.video(t, "video1.MP4")
	motionlogtest.Write(t, filepath.Join(ws.logs, "video1.gcsv"), 1000, motionlogtest.Spike(500, 100))

	runner, _ := newRunner(t, config.Default(), nil, "summary")

	result, err := runner.Run(context.Background(), ws.options())
	require.Error(t, err)

	var execErr *ffmpeg.ExecError
	assert.True(t, errors.As(err, &execErr))
	assert.Empty(t, result.Summary)
	assert.FileExists(t, result.Manifest)
}

func TestRunParallelMatchesSequential(t *testing.T) {
	ws := newWorkspace(t)
	for i := 0; i < 6; i++ {
		name := fmt.Sprintf("GX01%04d", i)
		ws.video(t, name+".MP4")
		motionlogtest.Write(t, filepath.Join(ws.logs, name+".gcsv"), 700+50*i, motionlogtest.Spike(100+60*i, 50))
	}

	seqRunner, _ := newRunner(t, config.Default(), nil)
	seq, err := seqRunner.Run(context.Background(), ws.options())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Workers = 4
	parRunner, fake := newRunner(t, cfg, nil)
	par, err := parRunner.Run(context.Background(), ws.options())
	require.NoError(t, err)

	require.NotEmpty(t, seq.Clips)
	assert.Equal(t, clipPaths(seq), clipPaths(par))

	calls := fake.Calls(t)
	require.NotEmpty(t, calls)
	assert.Equal(t, expectedManifest(clipPaths(par)), fake.Manifest(t, len(calls)-1))
}

func TestRunCancelled(t *testing.T) {
	ws := newWorkspace(t)
	ws.video(t, "video1.MP4")
	motionlogtest.Write(t, filepath.Join(ws.logs, "video1.gcsv"), 1000, motionlogtest.Spike(500, 100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, fake := newRunner(t, config.Default(), nil)
	_, err := runner.Run(ctx, ws.options())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, fake.Calls(t))
}

func TestLogFormatRejectsUnknownChannel(t *testing.T) {
	cfg := config.Default()
	cfg.MotionLog.Columns = map[string]int{"rx": 1, "yaw": 2}
	_, err := LogFormat(cfg)
	assert.Error(t, err)
}

func clipPaths(r *Result) []string {
	paths := make([]string, len(r.Clips))
	for i, c := range r.Clips {
		paths[i] = c.Path
	}
	return paths
}

func expectedManifest(paths []string) string {
	var out string
	for _, p := range paths {
		out += "file '" + p + "'\n"
	}
	return out
}
