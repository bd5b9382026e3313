package rsmscene

import (
	"os"
	"path/filepath"
	"strings"
)

// Source reads model files by their data path, such as
// "data/model/wall.rsm". *grf.Archive satisfies it.
type Source interface {
	Read(path string) ([]byte, error)
}

// DirSource reads model paths relative to a directory on disk. Backslashes
// in paths are accepted.
type DirSource string

func (d DirSource) Read(path string) ([]byte, error) {
	return os.ReadFile(d.Path(path))
}

// Path returns the file on disk that Read opens for path.
func (d DirSource) Path(path string) string {
	path = filepath.FromSlash(strings.ReplaceAll(path, "\\", "/"))
	if !filepath.IsAbs(path) {
		path = filepath.Join(string(d), path)
	}
	return path
}

// Chain tries each source in order and returns the first successful read.
// The error of the last source is returned when all fail.
type Chain []Source

func (c Chain) Read(path string) ([]byte, error) {
	var err error
	for _, s := range c {
		var data []byte
		if data, err = s.Read(path); err == nil {
			return data, nil
		}
	}
	if err == nil {
		err = os.ErrNotExist
	}
	return nil, err
}
