package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"video-input-form/infrastructure/config"
	"video-input-form/infrastructure/logging"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	cfgErr   error
)

var rootCmd = &cobra.Command{
	Use:   "video-input-form",
	Short: "Pick a video, preview it and extract its audio for transcription",
	Long: `video-input-form prepares a video for transcription:

  - Pick a local video file and preview it in the browser
  - Add a transcription prompt with keywords mentioned in the video
  - Extract the audio track as a small MP3 with ffmpeg

Example:
  video-input-form convert --video clip.mp4 --prompt "dog, bark"`,
	SilenceUsage: true,
}

func Execute() {
	// Interrupts cancel the command context so running conversions stop and
	// deferred cleanup (working storage, preview server) still runs
	ctx, stop := newSignalContext(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newSignalContext returns a context cancelled on SIGINT or SIGTERM
func newSignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}

	// A missing file means defaults; a broken one is reported by commands that need it
	cfg, cfgErr = config.LoadOrDefault(cfgFile)
	if cfg != nil && logLevel != "" {
		cfg.Log.Level = logLevel
	}
}

// GetConfig returns the loaded configuration
func GetConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("configuration %s could not be loaded: %w", cfgFile, cfgErr)
	}
	if cfg == nil {
		return config.Default(), nil
	}
	return cfg, nil
}

// newLogger builds the diagnostic logger; diagnostics go to stderr, results to stdout
func newLogger(c *config.Config) zerolog.Logger {
	return logging.New(c.Log, os.Stderr)
}
