package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/keagan/gyroreel/internal/archive"
	"github.com/keagan/gyroreel/internal/config"
	"github.com/keagan/gyroreel/internal/device"
	"github.com/keagan/gyroreel/internal/ffmpeg"
	"github.com/keagan/gyroreel/internal/highlight"
	"github.com/keagan/gyroreel/internal/logging"
	"github.com/keagan/gyroreel/internal/metrics"
	"github.com/keagan/gyroreel/internal/pipeline"
	"github.com/keagan/gyroreel/internal/report"
	"github.com/keagan/gyroreel/internal/staging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	videosDir   string
	logsDir     string
	outputDir   string
	summaryName string
	workers     int
	clipIndex   int
	waitDevice  bool
	pollEvery   time.Duration
	sourceDir   string
	processNow  bool
)

func newExecutor(cfg *config.Config) (*ffmpeg.Executor, error) {
	return ffmpeg.New(log.Logger, ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.BinaryPath,
		FFprobePath: cfg.FFmpeg.ProbePath,
		Threads:     cfg.FFmpeg.Threads,
	})
}

// defaultDevice is the first configured camera
func defaultDevice(cfg *config.Config) (string, error) {
	if len(cfg.Cameras) == 0 {
		return "", fmt.Errorf("no cameras configured")
	}
	return cfg.Cameras[0].ID, nil
}

var runCmd = &cobra.Command{
	Use:   "run [device id]",
	Short: "Cut highlights from every video of a device and combine them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		if workers > 0 {
			cfg.Workers = workers
		}

		deviceID := ""
		if len(args) == 1 {
			deviceID = args[0]
		} else if videosDir == "" || logsDir == "" || outputDir == "" {
			id, err := defaultDevice(cfg)
			if err != nil {
				return err
			}
			deviceID = id
		}

		videos, logs, output := cfg.DeviceDirs(deviceID)
		opts := pipeline.Options{
			VideoDir:    pick(videosDir, videos),
			LogDir:      pick(logsDir, logs),
			OutputDir:   pick(outputDir, output),
			SummaryName: pick(summaryName, cfg.Paths.Summary),
		}

		return runBatch(cmd.Context(), cfg, opts)
	},
}

func pick(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func runBatch(ctx context.Context, cfg *config.Config, opts pipeline.Options) error {
	logger := logging.WithComponent("cli")

	exec, err := newExecutor(cfg)
	if err != nil {
		return err
	}

	stats := metrics.New()
	if cfg.Metrics.Listen != "" {
		stats.Serve(ctx, cfg.Metrics.Listen, log.Logger)
	}
	reporter := report.Multi{report.NewLog(log.Logger), stats}

	runner, err := pipeline.Setup(log.Logger, cfg, exec, reporter, os.Stderr)
	if err != nil {
		return err
	}

	result, runErr := runner.Run(ctx, opts)

	stats.Finish(runErr == nil)
	if cfg.Metrics.Textfile != "" {
		if err := stats.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.Metrics.Textfile).Msg("failed to write metrics textfile")
		}
	}

	if runErr != nil {
		return runErr
	}

	if cfg.Archive.Enabled && result.Summary != "" {
		if err := upload(ctx, cfg, result); err != nil {
			return err
		}
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("clips", len(result.Clips)).
		Int("failed_videos", result.FailedVideos).
		Int("failed_clips", result.FailedClips).
		Str("summary", result.Summary).
		Msg("run complete")

	return nil
}

func upload(ctx context.Context, cfg *config.Config, result *pipeline.Result) error {
	uploader, err := archive.New(log.Logger, cfg.Archive)
	if err != nil {
		return err
	}

	files := []string{result.Summary}
	if result.Manifest != "" {
		files = append(files, result.Manifest)
	}
	_, err = uploader.Upload(ctx, result.RunID, files...)
	return err
}

var clipCmd = &cobra.Command{
	Use:   "clip [video] [motion log]",
	Short: "Cut the highlights of a single video",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		processor, err := pipeline.NewProcessor(log.Logger, cfg, exec, report.NewLog(log.Logger))
		if err != nil {
			return err
		}

		out := processor.Process(cmd.Context(), highlight.Job{
			Index:     clipIndex,
			Video:     args[0],
			Log:       args[1],
			OutputDir: pick(outputDir, filepath.Dir(args[0])),
		})
		if out.Err != nil {
			return out.Err
		}

		for _, c := range out.Clips {
			fmt.Println(c.Path)
		}
		if len(out.Failures) > 0 {
			return fmt.Errorf("%d of %d clips failed", len(out.Failures), len(out.Windows))
		}
		return nil
	},
}

var combineCmd = &cobra.Command{
	Use:   "combine [reel manifest]",
	Short: "Join the clips listed in a reel manifest again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		reel, err := highlight.LoadReel(args[0])
		if err != nil {
			return err
		}

		logger := logging.WithComponent("cli")
		present, missing := reel.Existing()
		for _, path := range missing {
			logger.Warn().Str("clip", path).Msg("clip missing, leaving it out")
		}

		output := pick(outputDir, reel.Summary)
		if output == "" {
			output = filepath.Join(filepath.Dir(args[0]), cfg.Paths.Summary)
		}

		exec, err := newExecutor(cfg)
		if err != nil {
			return err
		}

		combiner := highlight.NewCombiner(log.Logger, exec, report.NewLog(log.Logger))
		_, err = combiner.Combine(cmd.Context(), present, output)
		return err
	},
}

var offloadCmd = &cobra.Command{
	Use:   "offload",
	Short: "Copy footage and motion logs off a connected camera",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		ctx := cmd.Context()

		logger := logging.WithComponent("cli")
		finder := device.NewFinder(log.Logger, nil, cfg.Cameras)

		var match *device.Match
		var err error
		if waitDevice {
			logger.Info().Dur("interval", pollEvery).Msg("waiting for a supported camera")
			match, err = finder.Wait(ctx, pollEvery)
		} else {
			match, err = finder.FindSupportedDevice(ctx)
		}
		if err != nil {
			return err
		}
		if match == nil {
			return errors.New("no supported camera connected")
		}

		logger.Info().
			Str("id", match.Device.ID).
			Str("camera", match.Camera.Name).
			Msg("camera recognized")

		src := sourceDir
		if src == "" {
			src, err = staging.CameraDCIM(match.Camera.Folder)
			if err != nil {
				return err
			}
		}

		layout := staging.NewLayout(cfg.MediaRoot, match.Camera.ID, cfg.Paths)
		stager := staging.NewStager(log.Logger, cfg.Video.Extension, cfg.MotionLog.Extension)
		if _, err := stager.Offload(ctx, src, layout); err != nil {
			return err
		}

		if !processNow {
			return nil
		}

		return runBatch(ctx, cfg, pipeline.Options{
			VideoDir:    layout.Videos,
			LogDir:      layout.Logs,
			OutputDir:   layout.Output,
			SummaryName: cfg.Paths.Summary,
		})
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List USB devices and mark supported cameras",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		devices, err := device.LSUSB{}.List(cmd.Context())
		if err != nil {
			return err
		}

		supported := make(map[string]string, len(cfg.Cameras))
		for _, cam := range cfg.Cameras {
			supported[strings.ToLower(cam.ID)] = cam.Name
		}

		for _, d := range devices {
			mark := " "
			if _, ok := supported[d.ID]; ok {
				mark = "*"
			}
			fmt.Printf("%s %s  bus %s device %s  %s\n", mark, d.ID, d.Bus, d.Number, d.Description)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	runCmd.Flags().StringVar(&videosDir, "videos", "", "videos folder (default: <media root>/<device>/videos)")
	runCmd.Flags().StringVar(&logsDir, "logs", "", "motion logs folder")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output folder for clips and summary")
	runCmd.Flags().StringVar(&summaryName, "summary", "", "summary file name")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 0, "videos processed in parallel")

	clipCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output folder (default: next to the video)")
	clipCmd.Flags().IntVar(&clipIndex, "index", 0, "index used in clip names")

	combineCmd.Flags().StringVarP(&outputDir, "output", "o", "", "summary file (default: the one in the manifest)")

	offloadCmd.Flags().BoolVar(&waitDevice, "wait", false, "poll until a supported camera is connected")
	offloadCmd.Flags().DurationVar(&pollEvery, "interval", 3*time.Second, "polling interval with --wait")
	offloadCmd.Flags().StringVar(&sourceDir, "source", "", "camera DCIM folder (default: /media/<user>/<folder>/DCIM)")
	offloadCmd.Flags().BoolVar(&processNow, "process", false, "run the batch after copying")
}
