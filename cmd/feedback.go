package cmd

import (
	"errors"

	"video-input-form/application/form"
	"video-input-form/domain/media"
)

// describeFailure renders a submission error as a message for the user
func describeFailure(err error) string {
	switch {
	case errors.Is(err, media.ErrNoFileSelected):
		return "No video selected. Pick a video file before uploading."
	case errors.Is(err, form.ErrSubmissionInFlight):
		return "A conversion is already running. Wait for it to finish."
	case errors.Is(err, media.ErrEngineInitFailed):
		return "The transcoding engine could not be started. Check that ffmpeg is installed."
	case errors.Is(err, media.ErrInputWriteFailed):
		return "The video could not be handed to the transcoding engine."
	case errors.Is(err, media.ErrTranscodeFailed):
		return "Audio extraction failed. The video may have no audio track."
	case errors.Is(err, media.ErrOutputReadFailed):
		return "The converted audio could not be read back."
	default:
		return "Upload failed: " + err.Error()
	}
}
