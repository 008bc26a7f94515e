package capture

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// createTestImageFile writes a solid PNG of the given width into dir.
func createTestImageFile(t *testing.T, dir, name string, width int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, 10))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestDirSource_ReadsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	createTestImageFile(t, dir, "b.png", 20)
	createTestImageFile(t, dir, "a.png", 10)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644)
	os.Mkdir(filepath.Join(dir, "sub.png"), 0o755)

	src, err := NewDirSource(dir, false, 0)
	if err != nil {
		t.Fatalf("NewDirSource failed: %v", err)
	}
	defer src.Close()

	if src.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", src.Len())
	}
	for _, want := range []int{10, 20} {
		img, err := src.Read()
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if img.Bounds().Dx() != want {
			t.Errorf("width: got %d, want %d", img.Bounds().Dx(), want)
		}
	}
	if _, err := src.Read(); !errors.Is(err, ErrExhausted) {
		t.Errorf("after last frame: got %v, want ErrExhausted", err)
	}
}

func TestDirSource_Repeat(t *testing.T) {
	dir := t.TempDir()
	createTestImageFile(t, dir, "only.png", 5)

	src, err := NewDirSource(dir, true, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := src.Read(); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
}

func TestDirSource_Errors(t *testing.T) {
	if _, err := NewDirSource(filepath.Join(t.TempDir(), "missing"), false, 0); err == nil {
		t.Error("expected error for missing dir")
	}
	if _, err := NewDirSource(t.TempDir(), false, 0); err == nil {
		t.Error("expected error for empty dir")
	}

	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "broken.png"), []byte("nope"), 0o644)
	src, err := NewDirSource(dir, false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Read(); err == nil {
		t.Error("expected decode error")
	}
}

// fakeSource yields n blank frames, failing the reads listed in bad.
type fakeSource struct {
	n    int
	read int
	bad  map[int]bool
}

func (f *fakeSource) Read() (image.Image, error) {
	if f.read >= f.n {
		return nil, ErrExhausted
	}
	f.read++
	if f.bad[f.read] {
		return nil, errors.New("sensor hiccup")
	}
	return image.NewGray(image.Rect(0, 0, 2, 2)), nil
}

func (f *fakeSource) Close() error { return nil }

func TestLoop_RunsUntilExhausted(t *testing.T) {
	src := &fakeSource{n: 5, bad: map[int]bool{2: true}}
	var seqs []uint64
	pass := func(img image.Image, seq uint64) error {
		seqs = append(seqs, seq)
		if seq == 3 {
			return errors.New("backend failure")
		}
		return nil
	}

	l := NewLoop(src, pass, 0, quietLogger())
	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(seqs) != 4 || seqs[3] != 4 {
		t.Errorf("sequences: got %v, want [1 2 3 4]", seqs)
	}
	s := l.Stats()
	if s.Passes != 4 || s.Failed != 1 || s.Skipped != 1 {
		t.Errorf("stats: %+v", s)
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	src := &fakeSource{n: 1 << 30}
	ctx, cancel := context.WithCancel(context.Background())

	passes := 0
	pass := func(image.Image, uint64) error {
		passes++
		if passes == 3 {
			cancel()
		}
		return nil
	}

	l := NewLoop(src, pass, time.Millisecond, quietLogger())
	err := l.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if passes != 3 {
		t.Errorf("passes: got %d, want 3", passes)
	}
}

func TestLoop_PassesAreSequential(t *testing.T) {
	src := &fakeSource{n: 20}
	inFlight := 0
	pass := func(image.Image, uint64) error {
		inFlight++
		defer func() { inFlight-- }()
		if inFlight != 1 {
			t.Errorf("%d passes in flight", inFlight)
		}
		return nil
	}
	if err := NewLoop(src, pass, 0, quietLogger()).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestStats_Average(t *testing.T) {
	l := NewLoop(&fakeSource{}, nil, 0, quietLogger())
	if l.Stats().AvgPass != 0 {
		t.Error("average with no passes should be zero")
	}
	l.passes.Store(2)
	l.passNanos.Store(uint64(4 * time.Millisecond))
	if got := l.Stats().AvgPass; got != 2*time.Millisecond {
		t.Errorf("AvgPass: got %v", got)
	}
}
