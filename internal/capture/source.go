// Package capture feeds frames to the measuring loop, either from a camera
// (built with -tags gocv) or from a directory of still images.
package capture

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"

	"github.com/ironsheep/board-gauge/internal/imaging"
)

var (
	// ErrExhausted is returned by Read once a finite source has no frames left.
	ErrExhausted = errors.New("no more frames")

	// ErrCameraUnavailable is returned when camera support is not compiled in
	// or the device cannot be opened.
	ErrCameraUnavailable = errors.New("camera unavailable")
)

// Source yields frames one at a time.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// DirSource plays back the image files in a directory in name order.
type DirSource struct {
	paths   []string
	next    int
	repeat  bool
	decoder *imaging.FrameCache
}

// NewDirSource lists the frame files in dir. With repeat set, playback wraps
// around instead of ending.
func NewDirSource(dir string, repeat bool, maxPixels int) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imaging.IsFrameFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames in %s", dir)
	}
	sort.Strings(paths)

	return &DirSource{
		paths:   paths,
		repeat:  repeat,
		decoder: imaging.NewFrameCache(0, maxPixels),
	}, nil
}

// Len returns the number of frame files found.
func (s *DirSource) Len() int { return len(s.paths) }

func (s *DirSource) Read() (image.Image, error) {
	if s.next >= len(s.paths) {
		if !s.repeat {
			return nil, ErrExhausted
		}
		s.next = 0
	}
	path := s.paths[s.next]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := s.decoder.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (s *DirSource) Close() error { return nil }
