package media

import (
	"bytes"
	"fmt"
	"io"
)

// AcceptedVideoType is the media type the file picker hints at. It is not enforced.
const AcceptedVideoType = "video/mp4"

// Converted audio is always delivered under these fixed attributes
const (
	AudioMediaType = "audio/mpeg"
	AudioFileName  = "audio.mp3"
)

// VideoResource is a user-provided video. A new value is created for every pick and is
// never mutated afterwards, so pointer identity identifies a selection.
type VideoResource struct {
	Name      string
	MediaType string
	Size      int64
	open      func() (io.ReadCloser, error)
}

// NewVideoResource creates a VideoResource whose content is produced by open
func NewVideoResource(name, mediaType string, size int64, open func() (io.ReadCloser, error)) *VideoResource {
	return &VideoResource{
		Name:      name,
		MediaType: mediaType,
		Size:      size,
		open:      open,
	}
}

// NewVideoResourceFromBytes creates an in-memory VideoResource
func NewVideoResourceFromBytes(name, mediaType string, data []byte) *VideoResource {
	content := append([]byte(nil), data...)
	return NewVideoResource(name, mediaType, int64(len(content)), func() (io.ReadCloser, error) {
		return bytesContent{bytes.NewReader(content)}, nil
	})
}

// bytesContent keeps in-memory content seekable
type bytesContent struct {
	*bytes.Reader
}

func (bytesContent) Close() error { return nil }

// Open returns a reader over the video content. Content backed by a file or memory
// also implements io.Seeker.
func (v *VideoResource) Open() (io.ReadCloser, error) {
	if v.open == nil {
		return nil, fmt.Errorf("video %q has no content", v.Name)
	}
	return v.open()
}

// ReadAll materializes the full video content
func (v *VideoResource) ReadAll() ([]byte, error) {
	rc, err := v.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read video %q: %w", v.Name, err)
	}
	return data, nil
}

// AudioResource is the in-memory result of one conversion
type AudioResource struct {
	Name      string
	MediaType string
	Data      []byte
}

// NewAudioResource wraps converted bytes with the fixed audio name and media type
func NewAudioResource(data []byte) *AudioResource {
	return &AudioResource{
		Name:      AudioFileName,
		MediaType: AudioMediaType,
		Data:      data,
	}
}

// Size returns the number of audio bytes
func (a *AudioResource) Size() int {
	return len(a.Data)
}

// PreviewHandle is a revocable reference for local playback of a selected video
type PreviewHandle struct {
	Token string
	URL   string
}
