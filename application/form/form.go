package form

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"video-input-form/domain/media"

	"github.com/rs/zerolog"
)

var (
	// ErrSubmissionInFlight is returned when a submission starts while another is pending
	ErrSubmissionInFlight = errors.New("a submission is already in progress")

	// ErrFormClosed is returned when the form is used after Close
	ErrFormClosed = errors.New("form is closed")
)

// PreviewProvider issues and revokes preview handles
type PreviewProvider interface {
	Create(video *media.VideoResource) (media.PreviewHandle, error)
	Revoke(handle media.PreviewHandle)
}

// Converter turns a video into audio
type Converter interface {
	Convert(ctx context.Context, video *media.VideoResource) (*media.AudioResource, error)
}

// Submission is what a successful submit hands to the sink
type Submission struct {
	Video  *media.VideoResource
	Audio  *media.AudioResource
	Prompt string
}

// Form holds the selected video, its preview handle and the transcription prompt,
// and runs the conversion when submitted.
type Form struct {
	previews  PreviewProvider
	converter Converter
	sink      Sink
	log       zerolog.Logger

	mu         sync.Mutex
	video      *media.VideoResource
	preview    *media.PreviewHandle
	prompt     string
	submitting bool
	closed     bool
}

// New creates an empty form
func New(previews PreviewProvider, converter Converter, sink Sink, log zerolog.Logger) *Form {
	return &Form{
		previews:  previews,
		converter: converter,
		sink:      sink,
		log:       log.With().Str("component", "form").Logger(),
	}
}

// SelectFiles handles a picker event. An empty event changes nothing. Only the first
// file is used; it replaces the current selection without any content check.
func (f *Form) SelectFiles(files []*media.VideoResource) error {
	if len(files) == 0 || files[0] == nil {
		return nil
	}
	return f.Select(files[0])
}

// Select makes video the current selection. The preview handle is recomputed only
// when the selection changes identity; the previous handle is revoked first.
func (f *Form) Select(video *media.VideoResource) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFormClosed
	}
	if video == nil || video == f.video {
		return nil
	}

	f.releasePreview()
	f.video = video

	handle, err := f.previews.Create(video)
	if err != nil {
		return fmt.Errorf("failed to create preview for %s: %w", video.Name, err)
	}
	f.preview = &handle

	f.log.Debug().Str("video", video.Name).Str("media_type", video.MediaType).Msg("video selected")
	return nil
}

// Video returns the current selection, or nil
func (f *Form) Video() *media.VideoResource {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.video
}

// Preview returns the live preview handle. ok is false while nothing is selected.
func (f *Form) Preview() (handle media.PreviewHandle, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.preview == nil {
		return media.PreviewHandle{}, false
	}
	return *f.preview, true
}

// SetPrompt stores the transcription hint as typed
func (f *Form) SetPrompt(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompt = prompt
}

// Prompt returns the current transcription hint
func (f *Form) Prompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prompt
}

// Submit converts the selected video and forwards the audio with the prompt to the sink.
// Without a selection it returns media.ErrNoFileSelected and never converts.
func (f *Form) Submit(ctx context.Context) (*Submission, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFormClosed
	}
	if f.submitting {
		f.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	video, prompt := f.video, f.prompt
	if video == nil {
		f.mu.Unlock()
		f.log.Debug().Msg("submit ignored, no video selected")
		return nil, media.ErrNoFileSelected
	}
	f.submitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	audio, err := f.converter.Convert(ctx, video)
	if err != nil {
		f.log.Error().Err(err).Str("video", video.Name).Msg("conversion failed")
		return nil, fmt.Errorf("conversion of %s failed: %w", video.Name, err)
	}

	submission := &Submission{Video: video, Audio: audio, Prompt: prompt}
	if err := f.sink.Deliver(ctx, *submission); err != nil {
		return nil, fmt.Errorf("failed to deliver audio: %w", err)
	}
	return submission, nil
}

// Close releases the preview handle. The form cannot be used afterwards.
func (f *Form) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.releasePreview()
	f.video = nil
	f.closed = true
	return nil
}

func (f *Form) releasePreview() {
	if f.preview == nil {
		return
	}
	f.previews.Revoke(*f.preview)
	f.preview = nil
}
