package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// ErrTooLarge is returned for frames beyond the configured pixel limit.
var ErrTooLarge = errors.New("frame exceeds pixel limit")

// FrameCache keeps decoded still frames keyed by path, so repeated tool calls
// on the same photo skip the disk and the decoder.
//
// FrameCache is safe for concurrent use. When full, the oldest entry is
// evicted first.
type FrameCache struct {
	mu        sync.RWMutex
	frames    map[string]image.Image
	order     []string
	maxFrames int
	maxPixels int
}

// NewFrameCache returns a cache holding at most maxFrames frames of at most
// maxPixels pixels each. Zero disables either limit.
func NewFrameCache(maxFrames, maxPixels int) *FrameCache {
	return &FrameCache{
		frames:    make(map[string]image.Image),
		maxFrames: maxFrames,
		maxPixels: maxPixels,
	}
}

// Load returns the frame at path, decoding it on first use. EXIF orientation
// is applied, so phone photos come out upright.
func (c *FrameCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := c.open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.frames[path]; !ok {
		c.order = append(c.order, path)
	}
	c.frames[path] = img
	for c.maxFrames > 0 && len(c.order) > c.maxFrames {
		delete(c.frames, c.order[0])
		c.order = c.order[1:]
	}
	return img, nil
}

func (c *FrameCache) open(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", err)
	}
	if err := c.checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", err)
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load frame: %w", err)
	}
	return img, nil
}

// Decode reads one frame from r without caching it. The header is checked
// against the pixel limit before any pixels are decoded.
func (c *FrameCache) Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	if err := c.checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

func (c *FrameCache) checkSize(width, height int) error {
	if c.maxPixels > 0 && width*height > c.maxPixels {
		return fmt.Errorf("%w: %dx%d", ErrTooLarge, width, height)
	}
	return nil
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Evict drops the frame cached under path, if any.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.frames[path]; !ok {
		return
	}
	delete(c.frames, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// FrameInfo describes a loaded frame file.
type FrameInfo struct {
	Path          string `json:"path"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// Info loads path through the cache and reports its size and format.
func (c *FrameCache) Info(path string) (*FrameInfo, error) {
	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	if f, err := imaging.FormatFromFilename(path); err == nil {
		format = strings.ToLower(f.String())
	}

	b := img.Bounds()
	return &FrameInfo{
		Path:          filepath.Clean(path),
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        format,
		FileSizeBytes: stat.Size(),
	}, nil
}

// IsFrameFile reports whether path has an extension the decoder accepts.
func IsFrameFile(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}
