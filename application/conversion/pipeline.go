package conversion

import (
	"context"

	"video-input-form/domain/media"

	"github.com/rs/zerolog"
)

// Pipeline converts a video into MP3 audio using the shared transcoding engine.
// Conversions are serialized: the engine's working storage uses fixed file names,
// so only one run may touch it at a time.
type Pipeline struct {
	loader     media.EngineLoader
	log        zerolog.Logger
	onProgress func(percent int)
	slot       chan struct{}
}

// Option is a functional option for configuring Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger that receives conversion lifecycle messages
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithProgressHook sets a callback receiving rounded progress percentages
func WithProgressHook(fn func(percent int)) Option {
	return func(p *Pipeline) {
		p.onProgress = fn
	}
}

// NewPipeline creates a Pipeline backed by the engine handed out by loader
func NewPipeline(loader media.EngineLoader, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader: loader,
		log:    zerolog.Nop(),
		slot:   make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.log = p.log.With().Str("component", "conversion").Logger()
	return p
}

// Convert extracts the audio stream of video as MP3. It waits for any conversion
// already in flight; ctx bounds that wait as well as the engine calls.
func (p *Pipeline) Convert(ctx context.Context, video *media.VideoResource) (*media.AudioResource, error) {
	if video == nil {
		return nil, media.ErrNoFileSelected
	}

	select {
	case p.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.slot }()

	p.log.Info().Str("video", video.Name).Msg("Convert started")

	engine, err := p.loader.Load(ctx)
	if err != nil {
		return nil, media.NewConversionError(media.StageEngineInit, err)
	}

	data, err := video.ReadAll()
	if err != nil {
		return nil, media.NewConversionError(media.StageWriteInput, err)
	}

	defer p.cleanup(engine)

	if err := engine.WriteFile(ctx, media.InputName, data); err != nil {
		return nil, media.NewConversionError(media.StageWriteInput, err)
	}

	unsubscribe := engine.OnProgress(p.reportProgress)
	err = engine.Exec(ctx, media.TranscodeArgs())
	unsubscribe()
	if err != nil {
		return nil, media.NewConversionError(media.StageTranscode, err)
	}

	out, err := engine.ReadFile(ctx, media.OutputName)
	if err != nil {
		return nil, media.NewConversionError(media.StageReadOutput, err)
	}

	audio := media.NewAudioResource(out)
	p.log.Info().Int("audio_bytes", audio.Size()).Msg("Convert finished")

	return audio, nil
}

func (p *Pipeline) reportProgress(progress media.Progress) {
	percent := progress.Percent()
	p.log.Info().Int("percent", percent).Msgf("Convert progress: %d", percent)
	if p.onProgress != nil {
		p.onProgress(percent)
	}
}

// cleanup removes the fixed input and output names so the next run starts clean
func (p *Pipeline) cleanup(engine media.Engine) {
	ctx := context.Background()
	for _, name := range []string{media.InputName, media.OutputName} {
		if err := engine.DeleteFile(ctx, name); err != nil {
			p.log.Debug().Err(err).Str("file", name).Msg("working storage cleanup skipped")
		}
	}
}
