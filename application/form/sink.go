package form

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Sink receives the result of every successful submission
type Sink interface {
	Deliver(ctx context.Context, s Submission) error
}

// LogSink reports submissions to the diagnostic log
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink creates a sink writing to log
func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "sink").Logger()}
}

// Deliver implements Sink
func (s *LogSink) Deliver(ctx context.Context, sub Submission) error {
	s.log.Info().
		Str("audio_name", sub.Audio.Name).
		Str("audio_type", sub.Audio.MediaType).
		Int("audio_bytes", sub.Audio.Size()).
		Str("prompt", sub.Prompt).
		Msg("audio ready")
	return nil
}

// DirectorySink writes the converted audio into a directory, named after the source video.
// The directory is created on first delivery.
type DirectorySink struct {
	fs  afero.Fs
	dir string
}

// NewDirectorySink creates a sink writing into dir on the OS filesystem
func NewDirectorySink(dir string) *DirectorySink {
	return NewDirectorySinkWithFs(afero.NewOsFs(), dir)
}

// NewDirectorySinkWithFs creates a sink writing into dir on fs
func NewDirectorySinkWithFs(fs afero.Fs, dir string) *DirectorySink {
	return &DirectorySink{fs: fs, dir: dir}
}

// Path returns where audio for a video named videoName is written
func (s *DirectorySink) Path(videoName string) string {
	base := filepath.Base(videoName)
	stem := base[:len(base)-len(filepath.Ext(base))]
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "audio"
	}
	return filepath.Join(s.dir, stem+".mp3")
}

// Deliver implements Sink
func (s *DirectorySink) Deliver(ctx context.Context, sub Submission) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio directory: %w", err)
	}

	name := sub.Audio.Name
	if sub.Video != nil {
		name = sub.Video.Name
	}
	if err := afero.WriteFile(s.fs, s.Path(name), sub.Audio.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}

// Sinks fans a submission out to every sink in order
type Sinks []Sink

// Deliver implements Sink. Every sink is called; failures are joined.
func (s Sinks) Deliver(ctx context.Context, sub Submission) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Deliver(ctx, sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
