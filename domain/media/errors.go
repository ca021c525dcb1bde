package media

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFileSelected is returned when a submission has no selected video
	ErrNoFileSelected = errors.New("no video selected")

	// ErrEngineInitFailed classifies failures while acquiring the engine
	ErrEngineInitFailed = errors.New("transcoding engine initialization failed")

	// ErrInputWriteFailed classifies failures while registering the input video
	ErrInputWriteFailed = errors.New("failed to register input video")

	// ErrTranscodeFailed classifies failures of the transcode execution
	ErrTranscodeFailed = errors.New("transcode failed")

	// ErrOutputReadFailed classifies failures while reading the converted audio
	ErrOutputReadFailed = errors.New("failed to read converted audio")
)

// Stage names one step of the conversion pipeline
type Stage string

const (
	StageEngineInit Stage = "engine-init"
	StageWriteInput Stage = "write-input"
	StageTranscode  Stage = "transcode"
	StageReadOutput Stage = "read-output"
)

var stageKinds = map[Stage]error{
	StageEngineInit: ErrEngineInitFailed,
	StageWriteInput: ErrInputWriteFailed,
	StageTranscode:  ErrTranscodeFailed,
	StageReadOutput: ErrOutputReadFailed,
}

// ConversionError is a stage-aware conversion failure
type ConversionError struct {
	Stage Stage
	Err   error
}

// NewConversionError wraps err as a failure of stage
func NewConversionError(stage Stage, err error) *ConversionError {
	return &ConversionError{Stage: stage, Err: err}
}

func (e *ConversionError) Error() string {
	if kind, ok := stageKinds[e.Stage]; ok {
		return fmt.Sprintf("%s: %v", kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error kind of the failed stage
func (e *ConversionError) Is(target error) bool {
	kind, ok := stageKinds[e.Stage]
	return ok && kind == target
}
