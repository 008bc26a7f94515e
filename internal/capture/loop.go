package capture

import (
	"context"
	"errors"
	"image"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const statsLogInterval = 5 * time.Second

// PassFunc processes one frame. A returned error discards that frame only.
type PassFunc func(img image.Image, seq uint64) error

// Stats counts what the loop has done so far.
type Stats struct {
	Passes  uint64        `json:"passes"`
	Failed  uint64        `json:"failed"`
	Skipped uint64        `json:"skipped"`
	AvgPass time.Duration `json:"avg_pass_ns"`
}

// Loop reads frames from a Source at a fixed interval and hands each to a
// PassFunc. Passes never overlap: a slow pass delays the next tick.
type Loop struct {
	src      Source
	pass     PassFunc
	interval time.Duration
	logger   logrus.FieldLogger

	passes    atomic.Uint64
	failed    atomic.Uint64
	skipped   atomic.Uint64
	passNanos atomic.Uint64
	sequence  atomic.Uint64
}

// NewLoop returns a loop over src. interval <= 0 runs passes back to back.
func NewLoop(src Source, pass PassFunc, interval time.Duration, logger logrus.FieldLogger) *Loop {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loop{
		src:      src,
		pass:     pass,
		interval: interval,
		logger:   logger.WithField("component", "capture"),
	}
}

// Run drives the loop until ctx is cancelled or the source is exhausted.
// Read and pass failures are logged and skipped.
func (l *Loop) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if l.interval > 0 {
		t := time.NewTicker(l.interval)
		defer t.Stop()
		tick = t.C
	}
	statsTicker := time.NewTicker(statsLogInterval)
	defer statsTicker.Stop()

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
		// A tick and a cancel can be ready together; cancel wins.
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := l.step()
		if done {
			l.logStats()
			return err
		}

		select {
		case <-statsTicker.C:
			l.logStats()
		default:
		}
	}
}

// step runs one pass. It reports done when the source has ended.
func (l *Loop) step() (bool, error) {
	img, err := l.src.Read()
	if errors.Is(err, ErrExhausted) {
		return true, nil
	}
	if err != nil {
		l.skipped.Add(1)
		l.logger.WithError(err).Warn("frame read failed")
		return false, nil
	}

	seq := l.sequence.Add(1)
	start := time.Now()
	err = l.pass(img, seq)
	l.passNanos.Add(uint64(time.Since(start).Nanoseconds()))
	l.passes.Add(1)

	if err != nil {
		l.failed.Add(1)
		l.logger.WithError(err).WithField("seq", seq).Warn("frame discarded")
	}
	return false, nil
}

// Stats returns a snapshot of the counters.
func (l *Loop) Stats() Stats {
	passes := l.passes.Load()
	s := Stats{
		Passes:  passes,
		Failed:  l.failed.Load(),
		Skipped: l.skipped.Load(),
	}
	if passes > 0 {
		s.AvgPass = time.Duration(l.passNanos.Load() / passes)
	}
	return s
}

func (l *Loop) logStats() {
	s := l.Stats()
	l.logger.WithFields(logrus.Fields{
		"passes":   s.Passes,
		"failed":   s.Failed,
		"skipped":  s.Skipped,
		"avg_pass": s.AvgPass,
	}).Debug("capture stats")
}
