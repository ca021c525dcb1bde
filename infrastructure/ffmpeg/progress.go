package ffmpeg

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"video-input-form/domain/media"
)

// progressWriter parses the key=value stream ffmpeg writes for -progress and
// turns each completed block into a media.Progress event.
type progressWriter struct {
	duration time.Duration
	emit     func(media.Progress)
	pending  []byte
	outTime  time.Duration
}

func newProgressWriter(duration time.Duration, emit func(media.Progress)) *progressWriter {
	return &progressWriter{duration: duration, emit: emit}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		w.handleLine(string(w.pending[:i]))
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

func (w *progressWriter) handleLine(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}

	switch key {
	case "out_time_us":
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			w.outTime = time.Duration(us) * time.Microsecond
		}
	case "progress":
		if value == "end" {
			w.emit(media.Progress{Ratio: 1})
			return
		}
		if w.duration > 0 {
			w.emit(media.Progress{Ratio: clampRatio(float64(w.outTime) / float64(w.duration))})
		}
	}
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
