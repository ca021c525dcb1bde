package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"video-input-form/application/form"
	"video-input-form/domain/media"

	"github.com/spf13/cobra"
)

var formOutputDir string

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Fill in the video upload form interactively",
	Long: `Walks through the upload form: pick a video (tab completes directories and
.mp4 files), open the preview URL, add a transcription prompt and upload.

Uploading extracts the audio track as MP3 and reports it together with the
prompt.`,
	RunE: runForm,
}

func init() {
	rootCmd.AddCommand(formCmd)
	formCmd.Flags().StringVar(&formOutputDir, "output-dir", "", "Directory for the converted audio (default from config)")
}

func runForm(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	outputDir := formOutputDir
	if outputDir == "" {
		outputDir = cfg.Paths.AudioDirectory
	}

	deps, closeDeps, err := newFormDependencies(cfg, outputDir, os.Stdout)
	if err != nil {
		return err
	}
	defer closeDeps()

	return RunFormWithDependencies(cmd.Context(), deps, DefaultPrompter, os.Stdout)
}

// RunFormWithDependencies runs the interactive form with injected dependencies (for testing)
func RunFormWithDependencies(ctx context.Context, deps FormDependencies, prompter Prompter, output OutputWriter) error {
	if ctx == nil {
		ctx = context.Background()
	}

	f := form.New(deps.Previews, deps.Converter, deps.Sink, deps.Log)
	defer f.Close()

	for {
		answer, err := prompter.Path("Video file:", deps.Picker.Suggest)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}

		// An empty answer picks zero files and keeps the current selection
		videos, err := deps.Picker.Pick(strings.TrimSpace(answer))
		if err != nil {
			fmt.Fprintf(output, "Error: %v\n", err)
		} else if err := f.SelectFiles(videos); err != nil {
			if errors.Is(err, form.ErrFormClosed) {
				return err
			}
			fmt.Fprintf(output, "Warning: %v\n", err)
		}
		renderPreview(f, output)

		// Re-ask after a failed pick; an empty answer moves on without a video
		if f.Video() == nil {
			if strings.TrimSpace(answer) == "" {
				break
			}
			continue
		}
		again, err := prompter.Confirm("Pick a different video?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !again {
			break
		}
	}

	prompt, err := prompter.Multiline("Transcription prompt (optional, e.g. keywords mentioned in the video):")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	f.SetPrompt(prompt)

	upload, err := prompter.Confirm("Upload video?", true)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !upload {
		fmt.Fprintln(output, "Upload cancelled.")
		return nil
	}

	submission, err := f.Submit(ctx)
	if err != nil {
		fmt.Fprintln(output, describeFailure(err))
		if errors.Is(err, media.ErrNoFileSelected) {
			return nil
		}
		return err
	}

	renderSubmission(submission, output)
	return nil
}
