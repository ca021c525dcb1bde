package media

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestTranscodeArgs(t *testing.T) {
	want := []string{"-i", "input.mp4", "-map", "0:a", "-b:a", "20k", "-acodec", "libmp3lame", "output.mp3"}

	got := TranscodeArgs()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TranscodeArgs() = %v, want %v", got, want)
	}

	// Callers may not alter the directive seen by later callers
	got[1] = "other.mp4"
	if again := TranscodeArgs(); again[1] != InputName {
		t.Errorf("TranscodeArgs() returned shared slice, got input %q", again[1])
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		ratio float64
		want  int
	}{
		{0.0, 0},
		{0.004, 0},
		{0.006, 1},
		{0.5, 50},
		{0.994, 99},
		{0.996, 100},
		{1.0, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.ratio), func(t *testing.T) {
			if got := (Progress{Ratio: tt.ratio}).Percent(); got != tt.want {
				t.Errorf("Percent() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVideoResourceFromBytes(t *testing.T) {
	data := []byte("0123456789")
	v := NewVideoResourceFromBytes("clip.mp4", AcceptedVideoType, data)
	data[0] = 'x'

	if v.Size != 10 {
		t.Errorf("Size = %d, want 10", v.Size)
	}

	got, err := v.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "0123456789" {
		t.Errorf("ReadAll() = %q, want copy of original content", got)
	}

	// Content can be read more than once
	again, err := v.ReadAll()
	if err != nil || string(again) != "0123456789" {
		t.Errorf("second ReadAll() = %q, %v", again, err)
	}
}

func TestVideoResourceWithoutContent(t *testing.T) {
	v := &VideoResource{Name: "empty.mp4"}
	if _, err := v.ReadAll(); err == nil {
		t.Error("ReadAll() expected error for resource without content")
	}
}

func TestNewAudioResource(t *testing.T) {
	a := NewAudioResource([]byte{1, 2, 3, 4})

	if a.Name != "audio.mp3" {
		t.Errorf("Name = %q, want audio.mp3", a.Name)
	}
	if a.MediaType != "audio/mpeg" {
		t.Errorf("MediaType = %q, want audio/mpeg", a.MediaType)
	}
	if a.Size() != 4 {
		t.Errorf("Size() = %d, want 4", a.Size())
	}
}

func TestConversionErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		stage Stage
		kind  error
	}{
		{StageEngineInit, ErrEngineInitFailed},
		{StageWriteInput, ErrInputWriteFailed},
		{StageTranscode, ErrTranscodeFailed},
		{StageReadOutput, ErrOutputReadFailed},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			err := fmt.Errorf("submit: %w", NewConversionError(tt.stage, cause))

			if !errors.Is(err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.kind)
			}
			if !errors.Is(err, cause) {
				t.Errorf("errors.Is(%v, cause) = false", err)
			}
			for _, other := range tests {
				if other.stage != tt.stage && errors.Is(err, other.kind) {
					t.Errorf("error for stage %s also matches %v", tt.stage, other.kind)
				}
			}

			var convErr *ConversionError
			if !errors.As(err, &convErr) || convErr.Stage != tt.stage {
				t.Errorf("errors.As() did not yield stage %s", tt.stage)
			}
		})
	}
}
