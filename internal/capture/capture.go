// Package capture writes frames read back from the display surface to disk
// on a background goroutine.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"Prism3D/internal/config"
	"Prism3D/internal/logger"

	"github.com/HugoSmits86/nativewebp"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

var ErrClosed = errors.New("capture: saver closed")

type job struct {
	img  *image.NRGBA
	path string
}

// Saver queues captured frames and encodes them off the render thread.
// Submit never blocks; frames arriving while the queue is full are dropped.
type Saver struct {
	dir    string
	format string
	scale  float64

	jobs chan job
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
	seq    int
	errs   []error

	// OnSaved, when set before the first Submit, is called from the worker
	// after every frame.
	OnSaved func(path string, err error)

	now func() time.Time
}

func NewSaver(cfg config.Capture) (*Saver, error) {
	format := strings.ToLower(cfg.Format)
	if format != "webp" && format != "png" {
		return nil, fmt.Errorf("capture: unsupported format %q", cfg.Format)
	}
	if cfg.Scale <= 0 || cfg.Scale > 1 {
		return nil, fmt.Errorf("capture: scale must be in (0, 1], got %v", cfg.Scale)
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	queue := max(cfg.Queue, 1)

	s := &Saver{
		dir:    cfg.Dir,
		format: format,
		scale:  cfg.Scale,
		jobs:   make(chan job, queue),
		now:    time.Now,
	}
	s.wg.Add(1)
	go s.run()
	logger.Log.Debug("Capture saver started",
		zap.String("dir", cfg.Dir),
		zap.String("format", format),
		zap.Int("queue", queue))
	return s, nil
}

// Submit queues img for encoding and returns the file it will be written
// to. The saver takes ownership of img.
func (s *Saver) Submit(img *image.NRGBA) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.seq++
	name := fmt.Sprintf("prism-%s-%03d.%s", s.now().Format("20060102-150405"), s.seq, s.format)
	path := filepath.Join(s.dir, name)

	select {
	case s.jobs <- job{img: img, path: path}:
		return path, nil
	default:
		logger.Log.Warn("Capture queue full, dropping frame", zap.Int("queue", cap(s.jobs)))
		return "", fmt.Errorf("capture: queue full")
	}
}

// Close waits for queued frames to be written and reports any failures.
func (s *Saver) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.jobs)
	s.mu.Unlock()

	s.wg.Wait()
	return errors.Join(s.errs...)
}

func (s *Saver) run() {
	defer s.wg.Done()
	for j := range s.jobs {
		err := s.save(j)
		if err != nil {
			logger.Log.Error("Capture failed", zap.String("file", j.path), zap.Error(err))
			s.mu.Lock()
			s.errs = append(s.errs, err)
			s.mu.Unlock()
		} else {
			logger.Log.Info("Frame captured", zap.String("file", j.path))
		}
		if s.OnSaved != nil {
			s.OnSaved(j.path, err)
		}
	}
}

func (s *Saver) save(j job) (err error) {
	f, err := os.Create(j.path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Encode(f, Scale(j.img, s.scale), s.format)
}

// Scale resizes img by factor with Catmull-Rom filtering. A factor of one
// returns img unchanged.
func Scale(img *image.NRGBA, factor float64) *image.NRGBA {
	if factor >= 1 {
		return img
	}
	b := img.Bounds()
	w := max(int(math.Round(float64(b.Dx())*factor)), 1)
	h := max(int(math.Round(float64(b.Dy())*factor)), 1)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Encode writes img as WebP (lossless) or PNG.
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("webp encode: %w", err)
		}
		return nil
	case "png":
		return png.Encode(w, img)
	}
	return fmt.Errorf("capture: unsupported format %q", format)
}
