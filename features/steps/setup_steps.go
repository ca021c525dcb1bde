//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-input-form/cmd"
	"video-input-form/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	setupCancelled  bool
	originalContent string
	output          bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		// Create temp directory for each scenario
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config", "config.yaml")
		testCtx.setupCancelled = false
		testCtx.originalContent = ""
		testCtx.output.Reset()
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		testCtx.tempDir = ""
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, testCtx.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, testCtx.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run the setup command with inputs:$`, testCtx.iRunTheSetupCommandWithInputs)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, testCtx.iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)" and inputs:$`, testCtx.iRunTheSetupCommandWithConfirmationAndInputs)
	ctx.Step(`^a config file should exist$`, testCtx.aConfigFileShouldExist)
	ctx.Step(`^the setup should fail with "([^"]*)"$`, testCtx.theSetupShouldFailWith)
	ctx.Step(`^the config should have ffmpeg path "([^"]*)"$`, testCtx.theConfigShouldHaveFFmpegPath)
	ctx.Step(`^the config should have probe timeout "([^"]*)"$`, testCtx.theConfigShouldHaveProbeTimeout)
	ctx.Step(`^the config should have audio_directory "([^"]*)"$`, testCtx.theConfigShouldHaveAudioDirectory)
	ctx.Step(`^the config should have preview address "([^"]*)"$`, testCtx.theConfigShouldHavePreviewAddress)
	ctx.Step(`^the config should have log format "([^"]*)"$`, testCtx.theConfigShouldHaveLogFormat)
	ctx.Step(`^the setup should be cancelled$`, testCtx.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, testCtx.theExistingConfigShouldBeUnchanged)
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	// Just ensure the config path directory exists but no config file
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `ffmpeg:
  path: "/opt/original/ffmpeg"
  probe_timeout: 30s
paths:
  audio_directory: "/original/audio"
preview:
  address: "127.0.0.1:8088"
log:
  level: debug
  format: json
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) iRunTheSetupCommandWithInputs(table *godog.Table) error {
	prompter := NewMockPrompter(parseInputTable(table), nil)
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, &s.output)
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	prompter := NewMockPrompter([]string{}, []bool{confirm})

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, &s.output)
	if !confirm {
		s.setupCancelled = true
	}
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmationAndInputs(confirmation string, table *godog.Table) error {
	confirm := strings.ToLower(confirmation) == "y"
	prompter := NewMockPrompter(parseInputTable(table), []bool{confirm})

	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, &s.output)
	if s.err != nil {
		return fmt.Errorf("setup command failed: %w", s.err)
	}
	return nil
}

func parseInputTable(table *godog.Table) []string {
	var inputs []string
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		inputs = append(inputs, row.Cells[1].Value)
	}
	return inputs
}

func (s *setupContext) loadConfig() (*config.Config, error) {
	if s.err != nil {
		return nil, fmt.Errorf("setup command failed: %w", s.err)
	}
	cfg, err := config.Load(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) theSetupShouldFailWith(expected string) error {
	if s.err == nil {
		return fmt.Errorf("expected setup to fail with %q", expected)
	}
	if !strings.Contains(s.err.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got %q", expected, s.err.Error())
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveFFmpegPath(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.FFmpeg.Path != expected {
		return fmt.Errorf("expected ffmpeg path %q, got %q", expected, cfg.FFmpeg.Path)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveProbeTimeout(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	want, err := time.ParseDuration(expected)
	if err != nil {
		return err
	}
	if cfg.FFmpeg.ProbeTimeout != want {
		return fmt.Errorf("expected probe timeout %s, got %s", want, cfg.FFmpeg.ProbeTimeout)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveAudioDirectory(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Paths.AudioDirectory != expected {
		return fmt.Errorf("expected audio_directory %q, got %q", expected, cfg.Paths.AudioDirectory)
	}
	return nil
}

func (s *setupContext) theConfigShouldHavePreviewAddress(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Preview.Address != expected {
		return fmt.Errorf("expected preview address %q, got %q", expected, cfg.Preview.Address)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveLogFormat(expected string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Log.Format != expected {
		return fmt.Errorf("expected log format %q, got %q", expected, cfg.Log.Format)
	}
	return nil
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if !s.setupCancelled {
		return fmt.Errorf("expected setup to be cancelled")
	}
	if !strings.Contains(s.output.String(), "Setup cancelled.") {
		return fmt.Errorf("expected cancellation message, got %q", s.output.String())
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
