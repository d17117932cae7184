// Package perception defines the screen-capture and augmentation boundary.
// The actual segmentation, labeling, and OCR models live behind these
// interfaces.
package perception

import (
	"context"
	"time"

	"github.com/jllopis/praxis/pkg/errors"
)

// Frame is one captured screenshot.
type Frame struct {
	Image     []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// Region is an image-coordinate rectangle, normalized to [0,1].
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Annotation is a structured per-region observation produced by an external
// perception model.
type Annotation struct {
	Label      string  `json:"label"`
	Region     Region  `json:"region"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Capturer captures the current screen state of the target.
type Capturer interface {
	Capture(ctx context.Context) (Frame, error)
}

// Augmenter turns a raw frame into structured per-region annotations.
type Augmenter interface {
	Annotate(ctx context.Context, frame Frame) ([]Annotation, error)
}

// CaptureWithRetry captures a frame, retrying once on failure. A second
// failure is signaled as PERCEPTION_FAILURE so the orchestrator can abort the
// cycle and retain its last good snapshot.
func CaptureWithRetry(ctx context.Context, capturer Capturer) (Frame, error) {
	frame, err := capturer.Capture(ctx)
	if err == nil {
		return frame, nil
	}
	frame, retryErr := capturer.Capture(ctx)
	if retryErr == nil {
		return frame, nil
	}
	return Frame{}, errors.New(errors.CodePerception, "capture failed after retry", retryErr).
		WithContext("first_error", err.Error())
}
