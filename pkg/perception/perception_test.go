package perception

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"github.com/jllopis/praxis/pkg/errors"
)

type fakeCapturer struct {
	failures int
	calls    int
}

func (f *fakeCapturer) Capture(_ context.Context) (Frame, error) {
	f.calls++
	if f.calls <= f.failures {
		return Frame{}, stderrors.New("capture device busy")
	}
	return Frame{
		Image:     []byte{0x89, 0x50, 0x4e, 0x47},
		Timestamp: time.Now(),
		Width:     1920,
		Height:    1080,
	}, nil
}

func TestCaptureWithRetrySucceedsFirstTry(t *testing.T) {
	c := &fakeCapturer{}
	frame, err := CaptureWithRetry(context.Background(), c)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if frame.Width != 1920 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	if c.calls != 1 {
		t.Fatalf("expected 1 call, got %d", c.calls)
	}
}

func TestCaptureWithRetryRecoversOnce(t *testing.T) {
	c := &fakeCapturer{failures: 1}
	if _, err := CaptureWithRetry(context.Background(), c); err != nil {
		t.Fatalf("expected recovery after one failure, got %v", err)
	}
	if c.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", c.calls)
	}
}

func TestCaptureWithRetryGivesUpAfterSecondFailure(t *testing.T) {
	c := &fakeCapturer{failures: 2}
	_, err := CaptureWithRetry(context.Background(), c)
	if !errors.HasCode(err, errors.CodePerception) {
		t.Fatalf("expected PERCEPTION_FAILURE, got %v", err)
	}
	if c.calls != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", c.calls)
	}
}

func TestRecorderWritesFrames(t *testing.T) {
	dir := t.TempDir()
	c := &fakeCapturer{}
	rec := NewRecorder(c, dir, 5*time.Millisecond)

	if err := rec.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	time.Sleep(40 * time.Millisecond)
	rec.Stop()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected at least one recorded frame")
	}
}
