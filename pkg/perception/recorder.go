package perception

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Recorder is a passive frame archiver. It captures on its own interval and
// writes frames to a directory. It is consumer-only: it never writes to
// working memory or the skill registry, so it needs no synchronization with
// the core loop.
type Recorder struct {
	capturer Capturer
	dir      string
	interval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a Recorder writing into dir.
func NewRecorder(capturer Capturer, dir string, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = time.Second
	}
	return &Recorder{
		capturer: capturer,
		dir:      dir,
		interval: interval,
	}
}

// Start launches the recording goroutine.
func (r *Recorder) Start(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		log := slog.Default()
		log.Info("perception.recorder.start", slog.String("dir", r.dir), slog.Duration("interval", r.interval))
		for {
			select {
			case <-ctx.Done():
				log.Info("perception.recorder.stop")
				return
			case <-ticker.C:
				frame, err := r.capturer.Capture(ctx)
				if err != nil {
					log.Warn("perception.recorder.capture.error", slog.String("error", err.Error()))
					continue
				}
				if err := r.write(frame); err != nil {
					log.Warn("perception.recorder.write.error", slog.String("error", err.Error()))
				}
			}
		}
	}()
	return nil
}

// Stop halts recording and waits for the goroutine to exit.
func (r *Recorder) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil
}

func (r *Recorder) write(frame Frame) error {
	name := fmt.Sprintf("frame_%d.png", frame.Timestamp.UnixNano())
	return os.WriteFile(filepath.Join(r.dir, name), frame.Image, 0o644)
}
