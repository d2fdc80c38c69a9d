package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/keagan/gyroreel/internal/config"
	"github.com/keagan/gyroreel/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gyroreel",
	Short: "gyroreel - motion log highlight reels",
	Long:  "Scores action camera footage by its gyro and accelerometer log, cuts the most intense segments and joins them into a summary reel.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logging
		logging.Init(verbose, jsonLogs)

		// Load config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// Store config in context
		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gyroreel.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "log JSON lines instead of console output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(clipCmd)
	rootCmd.AddCommand(combineCmd)
	rootCmd.AddCommand(offloadCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
}
