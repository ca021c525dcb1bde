package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-input-form/infrastructure/config"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through setting up the ffmpeg binary, where converted
audio is saved, the preview server address and logging.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, cmd.OutOrStdout())
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, output OutputWriter) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(output, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(output, "Welcome to video-input-form setup!")
	fmt.Fprintln(output)

	cfg := config.Default()

	if err := promptFFmpeg(prompter, cfg); err != nil {
		return err
	}
	if err := promptPaths(prompter, cfg); err != nil {
		return err
	}
	if err := promptPreview(prompter, cfg); err != nil {
		return err
	}
	if err := promptLog(prompter, cfg); err != nil {
		return err
	}

	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(output)
	fmt.Fprintf(output, "Configuration saved to %s\n", configPath)
	return nil
}

func promptFFmpeg(prompter Prompter, cfg *config.Config) error {
	path, err := prompter.Input("Path to the ffmpeg executable?", cfg.FFmpeg.Path)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if path = strings.TrimSpace(path); path != "" {
		cfg.FFmpeg.Path = path
	}

	workDir, err := prompter.Input("Directory for temporary conversion files? (empty for system temp)", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.FFmpeg.WorkDirectory = strings.TrimSpace(workDir)

	timeout, err := prompter.Input("Timeout for probing video duration?", cfg.FFmpeg.ProbeTimeout.String())
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if timeout = strings.TrimSpace(timeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid probe timeout %q (expected a duration like 10s)", timeout)
		}
		cfg.FFmpeg.ProbeTimeout = d
	}
	return nil
}

func promptPaths(prompter Prompter, cfg *config.Config) error {
	audio, err := prompter.Input("Where should converted audio files be saved? (empty to keep them in memory only)", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Paths.AudioDirectory = strings.TrimSpace(audio)
	return nil
}

func promptPreview(prompter Prompter, cfg *config.Config) error {
	address, err := prompter.Input("Address for the local preview server?", cfg.Preview.Address)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if address = strings.TrimSpace(address); address != "" {
		cfg.Preview.Address = address
	}
	return nil
}

func promptLog(prompter Prompter, cfg *config.Config) error {
	level, err := prompter.Input("Log level?", cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if level = strings.TrimSpace(level); level != "" {
		cfg.Log.Level = level
	}

	format, err := prompter.Input("Log format? (console or json)", cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if format = strings.TrimSpace(format); format != "" {
		cfg.Log.Format = format
	}
	return cfg.Validate()
}
