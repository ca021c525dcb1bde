package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"video-input-form/domain/media"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// globalArgs are owned by the engine and prepended to every directive
var globalArgs = []string{"-hide_banner", "-nostdin", "-y", "-progress", "pipe:1", "-nostats"}

// Engine implements media.Engine on top of the ffmpeg binary. Its working storage is
// a private directory; directive arguments name files relative to it.
type Engine struct {
	ffmpegPath string
	runner     CommandRunner
	prober     DurationProber
	storage    afero.Fs
	workDir    string
	log        zerolog.Logger

	mu        sync.Mutex
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn media.ProgressFunc
}

// newEngine creates an engine whose storage is rooted at workDir
func newEngine(storage afero.Fs, workDir, ffmpegPath string, runner CommandRunner, prober DurationProber, log zerolog.Logger) *Engine {
	return &Engine{
		ffmpegPath: ffmpegPath,
		runner:     runner,
		prober:     prober,
		storage:    storage,
		workDir:    workDir,
		log:        log,
	}
}

// WorkDir returns the directory backing the working storage
func (e *Engine) WorkDir() string {
	return e.workDir
}

// WriteFile implements media.Engine
func (e *Engine) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkName(name); err != nil {
		return err
	}
	if err := afero.WriteFile(e.storage, name, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// ReadFile implements media.Engine
func (e *Engine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkName(name); err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(e.storage, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// DeleteFile implements media.Engine
func (e *Engine) DeleteFile(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := e.storage.Remove(name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Exec implements media.Engine
func (e *Engine) Exec(ctx context.Context, args []string) error {
	progress := newProgressWriter(e.inputDuration(ctx, args), e.emit)

	cmdArgs := make([]string, 0, len(globalArgs)+len(args))
	cmdArgs = append(cmdArgs, globalArgs...)
	cmdArgs = append(cmdArgs, args...)

	e.log.Debug().Strs("args", args).Msg("running ffmpeg")
	err := e.runner.Run(ctx, Command{
		Name:   e.ffmpegPath,
		Args:   cmdArgs,
		Dir:    e.workDir,
		Stdout: progress,
	})
	if err != nil {
		return fmt.Errorf("ffmpeg exec failed: %w", err)
	}
	return nil
}

// OnProgress implements media.Engine
func (e *Engine) OnProgress(fn media.ProgressFunc) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listener{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) emit(p media.Progress) {
	e.mu.Lock()
	fns := make([]media.ProgressFunc, len(e.listeners))
	for i, l := range e.listeners {
		fns[i] = l.fn
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(p)
	}
}

// inputDuration probes the -i input so progress can be expressed as a fraction.
// Zero means unknown; only the terminal event is reported then.
func (e *Engine) inputDuration(ctx context.Context, args []string) time.Duration {
	if e.prober == nil {
		return 0
	}
	input := inputArg(args)
	if input == "" {
		return 0
	}

	d, err := e.prober.Duration(ctx, filepath.Join(e.workDir, input))
	if err != nil {
		e.log.Debug().Err(err).Str("input", input).Msg("duration probe failed, progress limited to completion")
		return 0
	}
	return d
}

func inputArg(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-i" {
			return args[i+1]
		}
	}
	return ""
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid working storage name %q", name)
	}
	return nil
}

// Ensure Engine implements media.Engine
var _ media.Engine = (*Engine)(nil)
