package ffmpeg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"video-input-form/domain/media"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	verifyTimeout   = 5 * time.Second
	workspacePrefix = "video-input-form-"
)

// Loader implements media.EngineLoader. It owns the single Engine of the process:
// the first Load initializes it and every later Load returns the same instance.
type Loader struct {
	ffmpegPath   string
	workRoot     string
	runner       CommandRunner
	prober       DurationProber
	proberSet    bool
	probeTimeout time.Duration
	baseFs       afero.Fs
	log          zerolog.Logger

	mu     sync.Mutex
	engine *Engine
}

// LoaderOption is a functional option for configuring Loader
type LoaderOption func(*Loader)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) LoaderOption {
	return func(l *Loader) {
		if path != "" {
			l.ffmpegPath = path
		}
	}
}

// WithWorkRoot sets the directory under which the working storage is created
func WithWorkRoot(dir string) LoaderOption {
	return func(l *Loader) {
		l.workRoot = dir
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) LoaderOption {
	return func(l *Loader) {
		l.runner = runner
	}
}

// WithDurationProber sets the prober used for progress reporting; nil disables it
func WithDurationProber(prober DurationProber) LoaderOption {
	return func(l *Loader) {
		l.prober = prober
		l.proberSet = true
	}
}

// WithProbeTimeout bounds each ffprobe run of the default prober
func WithProbeTimeout(timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		l.probeTimeout = timeout
	}
}

// WithBaseFs sets the filesystem holding the working storage (for testing)
func WithBaseFs(fs afero.Fs) LoaderOption {
	return func(l *Loader) {
		l.baseFs = fs
	}
}

// WithLogger sets the engine logger
func WithLogger(log zerolog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader creates a loader for the ffmpeg engine
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		ffmpegPath:   "ffmpeg",
		runner:       &ExecCommandRunner{},
		probeTimeout: DefaultProbeTimeout,
		baseFs:       afero.NewOsFs(),
		log:          zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	// ffprobe ships with ffmpeg, so probe with the binary next to the configured one
	if !l.proberSet {
		l.prober = NewFFprobe(l.probeTimeout,
			WithFFprobePath(FFprobePathFor(l.ffmpegPath)),
			WithProbeRunner(l.runner),
		)
	}

	l.log = l.log.With().Str("component", "ffmpeg").Logger()
	return l
}

// Load implements media.EngineLoader. Concurrent callers wait for the one in-progress
// initialization; a failed initialization is retried by the next call.
func (l *Loader) Load(ctx context.Context) (media.Engine, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine != nil {
		return l.engine, nil
	}

	if err := l.VerifyInstalled(ctx); err != nil {
		return nil, err
	}

	dir, err := afero.TempDir(l.baseFs, l.workRoot, workspacePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create working storage: %w", err)
	}

	l.engine = newEngine(afero.NewBasePathFs(l.baseFs, dir), dir, l.ffmpegPath, l.runner, l.prober, l.log)
	l.log.Debug().Str("work_dir", dir).Msg("transcoding engine ready")

	return l.engine, nil
}

// VerifyInstalled checks that ffmpeg is available
func (l *Loader) VerifyInstalled(ctx context.Context) error {
	verifyCtx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	if _, err := l.runner.Output(verifyCtx, l.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Close removes the working storage of a loaded engine. A later Load starts a new one.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine == nil {
		return nil
	}
	dir := l.engine.WorkDir()
	l.engine = nil

	if err := l.baseFs.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove working storage: %w", err)
	}
	return nil
}

// Ensure Loader implements media.EngineLoader
var _ media.EngineLoader = (*Loader)(nil)
