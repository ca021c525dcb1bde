package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"video-input-form/domain/media"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// hintExtensions are offered by Suggest. Any other file can still be picked.
var hintExtensions = map[string]bool{".mp4": true}

// Picker turns user-chosen paths into video resources
type Picker struct {
	fs      afero.Fs
	checker *Checker
}

// NewPicker creates a picker over the OS filesystem
func NewPicker() *Picker {
	return NewPickerWithFs(afero.NewOsFs())
}

// NewPickerWithFs creates a picker over fs (for testing)
func NewPickerWithFs(fs afero.Fs) *Picker {
	return &Picker{fs: fs, checker: NewChecker(fs)}
}

// Pick resolves paths into video resources. Blank paths are skipped, so a cancelled
// pick yields an empty slice. Content is read lazily when the video is opened.
func (p *Picker) Pick(paths ...string) ([]*media.VideoResource, error) {
	var videos []*media.VideoResource
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		video, err := p.open(path)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, nil
}

func (p *Picker) open(path string) (*media.VideoResource, error) {
	if !p.checker.Exists(path) {
		return nil, fmt.Errorf("video file does not exist: %s", path)
	}

	info, err := p.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	mediaType, err := p.detect(path)
	if err != nil {
		return nil, err
	}

	return media.NewVideoResource(filepath.Base(path), mediaType, info.Size(), func() (io.ReadCloser, error) {
		return p.fs.Open(path)
	}), nil
}

// detect reports the declared media type of the file at path
func (p *Picker) detect(path string) (string, error) {
	f, err := p.fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	mtype, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to detect media type of %s: %w", path, err)
	}
	return mtype.String(), nil
}

// Suggest completes a partially typed path with directories and hinted video files
func (p *Picker) Suggest(toComplete string) []string {
	dir, prefix := filepath.Split(toComplete)
	readDir := dir
	if readDir == "" {
		readDir = "."
	}

	entries, err := afero.ReadDir(p.fs, readDir)
	if err != nil {
		return nil
	}

	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || (strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".")) {
			continue
		}
		switch {
		case entry.IsDir():
			out = append(out, dir+name+string(os.PathSeparator))
		case hintExtensions[strings.ToLower(filepath.Ext(name))]:
			out = append(out, dir+name)
		}
	}
	sort.Strings(out)
	return out
}
