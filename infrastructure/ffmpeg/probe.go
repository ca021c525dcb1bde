package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// DefaultProbeTimeout bounds a single ffprobe invocation
const DefaultProbeTimeout = 10 * time.Second

// DurationProber reports the playback duration of a media file
type DurationProber interface {
	Duration(ctx context.Context, path string) (time.Duration, error)
}

// FFprobe implements DurationProber. Arguments are built by ffmpeg-go; the binary is
// run through a CommandRunner so the ffprobe next to a configured ffmpeg is used.
type FFprobe struct {
	path    string
	timeout time.Duration
	runner  CommandRunner
}

// FFprobeOption is a functional option for configuring FFprobe
type FFprobeOption func(*FFprobe)

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) FFprobeOption {
	return func(p *FFprobe) {
		if path != "" {
			p.path = path
		}
	}
}

// WithProbeRunner sets a custom command runner (for testing)
func WithProbeRunner(runner CommandRunner) FFprobeOption {
	return func(p *FFprobe) {
		p.runner = runner
	}
}

// NewFFprobe creates a prober; a non-positive timeout selects DefaultProbeTimeout
func NewFFprobe(timeout time.Duration, opts ...FFprobeOption) *FFprobe {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	p := &FFprobe{
		path:    "ffprobe",
		timeout: timeout,
		runner:  &ExecCommandRunner{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FFprobePathFor returns the ffprobe installed alongside ffmpegPath. A bare
// executable name resolves through PATH.
func FFprobePathFor(ffmpegPath string) string {
	dir, base := filepath.Split(ffmpegPath)
	if dir == "" {
		return "ffprobe"
	}
	name := "ffprobe"
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".exe") {
		name += ext
	}
	return filepath.Join(dir, name)
}

// Duration implements DurationProber
func (p *FFprobe) Duration(ctx context.Context, path string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := ffmpeggo.ConvertKwargsToCmdLineArgs(ffmpeggo.KwArgs{
		"show_format":  "",
		"show_streams": "",
		"of":           "json",
	})
	args = append(args, path)

	out, err := p.runner.Output(ctx, p.path, args...)
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeDuration(string(out))
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeDuration(raw string) (time.Duration, error) {
	var out probeOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output has no duration")
	}

	seconds, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("invalid duration %q", out.Format.Duration)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Ensure FFprobe implements DurationProber
var _ DurationProber = (*FFprobe)(nil)
