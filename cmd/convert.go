package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"video-input-form/application/conversion"
	"video-input-form/application/form"
	"video-input-form/domain/media"
	"video-input-form/infrastructure/config"
	"video-input-form/infrastructure/ffmpeg"
	"video-input-form/infrastructure/filesystem"
	"video-input-form/infrastructure/preview"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	convertVideoPath string
	convertPrompt    string
	convertOutputDir string
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Extract the audio of a video for transcription",
	Long: `Select a video, attach an optional transcription prompt and extract the
audio track as a 20 kbit/s MP3 with ffmpeg.

The video is served on a local preview URL while the command runs. The audio
is always reported to the log; when an output directory is configured it is
also written there as <video name>.mp3.

Example:
  video-input-form convert --video clip.mp4 --prompt "dog, bark"`,
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertVideoPath, "video", "", "Path to the video file (required)")
	convertCmd.Flags().StringVar(&convertPrompt, "prompt", "", "Transcription prompt, e.g. keywords mentioned in the video")
	convertCmd.Flags().StringVar(&convertOutputDir, "output-dir", "", "Directory for the converted audio (default from config)")
	convertCmd.MarkFlagRequired("video")
}

// OutputWriter allows capturing output in tests
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// VideoPicker turns user supplied paths into selectable videos
type VideoPicker interface {
	Pick(paths ...string) ([]*media.VideoResource, error)
	Suggest(toComplete string) []string
}

// FormDependencies holds everything a form session needs (injectable for testing)
type FormDependencies struct {
	Picker    VideoPicker
	Previews  form.PreviewProvider
	Converter form.Converter
	Sink      form.Sink
	Log       zerolog.Logger
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}

	outputDir := convertOutputDir
	if outputDir == "" {
		outputDir = cfg.Paths.AudioDirectory
	}

	deps, closeDeps, err := newFormDependencies(cfg, outputDir, os.Stdout)
	if err != nil {
		return err
	}
	defer closeDeps()

	return RunConvertWithDependencies(cmd.Context(), deps, convertVideoPath, convertPrompt, os.Stdout)
}

// RunConvertWithDependencies runs the convert command with injected dependencies (for testing)
func RunConvertWithDependencies(
	ctx context.Context,
	deps FormDependencies,
	videoPath string,
	prompt string,
	output OutputWriter,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	videos, err := deps.Picker.Pick(videoPath)
	if err != nil {
		return err
	}

	f := form.New(deps.Previews, deps.Converter, deps.Sink, deps.Log)
	defer f.Close()

	// The selection stands even when its preview could not be created
	if err := f.SelectFiles(videos); err != nil {
		fmt.Fprintf(output, "Warning: %v\n", err)
	}
	renderPreview(f, output)

	f.SetPrompt(prompt)

	fmt.Fprintln(output, "Converting video to audio...")
	submission, err := f.Submit(ctx)
	if err != nil {
		fmt.Fprintln(output, describeFailure(err))
		return err
	}

	renderSubmission(submission, output)
	return nil
}

// newFormDependencies wires the production adapters. The returned func releases
// the preview server and the engine's working directory.
func newFormDependencies(cfg *config.Config, outputDir string, output OutputWriter) (FormDependencies, func(), error) {
	log := newLogger(cfg)

	loader := ffmpeg.NewLoader(
		ffmpeg.WithFFmpegPath(cfg.FFmpeg.Path),
		ffmpeg.WithWorkRoot(cfg.FFmpeg.WorkDirectory),
		ffmpeg.WithProbeTimeout(cfg.FFmpeg.ProbeTimeout),
		ffmpeg.WithLogger(log),
	)

	pipeline := conversion.NewPipeline(loader,
		conversion.WithLogger(log),
		conversion.WithProgressHook(func(percent int) {
			fmt.Fprintf(output, "Converting... %d%%\n", percent)
		}),
	)

	sinks := form.Sinks{form.NewLogSink(log)}
	if outputDir != "" {
		sinks = append(sinks, form.NewDirectorySink(outputDir))
	}

	registry := preview.NewRegistry("")
	server := preview.NewServer(registry, log)
	if _, err := server.Start(cfg.Preview.Address); err != nil {
		return FormDependencies{}, nil, fmt.Errorf("failed to start preview server: %w", err)
	}

	closeDeps := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("preview server shutdown failed")
		}
		if err := loader.Close(); err != nil {
			log.Warn().Err(err).Msg("engine working directory cleanup failed")
		}
	}

	return FormDependencies{
		Picker:    filesystem.NewPicker(),
		Previews:  registry,
		Converter: pipeline,
		Sink:      sinks,
		Log:       log,
	}, closeDeps, nil
}

func renderPreview(f *form.Form, output OutputWriter) {
	video := f.Video()
	if video == nil {
		fmt.Fprintln(output, "Preview: no video selected")
		return
	}

	handle, ok := f.Preview()
	if !ok {
		fmt.Fprintf(output, "Selected %s (preview unavailable)\n", video.Name)
		return
	}
	fmt.Fprintf(output, "Selected %s (%s)\n", video.Name, video.MediaType)
	fmt.Fprintf(output, "Preview: %s\n", handle.URL)
}

func renderSubmission(sub *form.Submission, output OutputWriter) {
	fmt.Fprintf(output, "Created %s (%s, %d bytes)\n", sub.Audio.Name, sub.Audio.MediaType, sub.Audio.Size())
	if sub.Prompt != "" {
		fmt.Fprintf(output, "Prompt: %s\n", sub.Prompt)
	}
}
