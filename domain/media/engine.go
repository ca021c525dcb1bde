package media

import (
	"context"
	"math"
)

// Engine is the transcoding engine port. Names passed to WriteFile, ReadFile, DeleteFile
// and referenced by Exec arguments live in the engine's own working storage.
type Engine interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	Exec(ctx context.Context, args []string) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	DeleteFile(ctx context.Context, name string) error
	// OnProgress subscribes fn to progress events and returns a func that removes it
	OnProgress(fn ProgressFunc) (unsubscribe func())
}

// EngineLoader hands out the shared engine instance, initializing it on first use
type EngineLoader interface {
	Load(ctx context.Context) (Engine, error)
}

// Progress is a fractional completion in the range [0, 1]
type Progress struct {
	Ratio float64
}

// Percent returns the completion rounded to a whole percentage
func (p Progress) Percent() int {
	return int(math.Round(p.Ratio * 100))
}

// ProgressFunc receives progress events
type ProgressFunc func(Progress)
