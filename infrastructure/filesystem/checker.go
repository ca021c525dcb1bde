package filesystem

import (
	"github.com/spf13/afero"
)

// Checker reports whether regular files exist
type Checker struct {
	fs afero.Fs
}

// NewChecker creates a checker over fs
func NewChecker(fs afero.Fs) *Checker {
	return &Checker{fs: fs}
}

// Exists returns true if path is an existing regular file
func (c *Checker) Exists(path string) bool {
	info, err := c.fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
