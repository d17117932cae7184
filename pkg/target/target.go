// Package target defines the boundary to the controlled environment: the
// pause/resume surface and the input-injection primitives. Coordinates are
// normalized to [0,1]; translation to window pixel space belongs to the
// implementation behind the boundary.
package target

import "context"

// Button identifies a mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Direction identifies a scroll direction.
type Direction string

const (
	ScrollUp   Direction = "up"
	ScrollDown Direction = "down"
)

// Target is the controlled environment. Real-time targets must be paused
// while the agent perceives and reasons, and resumed only for the execution
// window.
type Target interface {
	Name() string
	RealTime() bool
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Injector is the singleton input-injection boundary. Only the skill
// executor writes to it; all primitive dispatch is serialized through one
// path.
type Injector interface {
	MoveTo(ctx context.Context, x, y float64) error
	Click(ctx context.Context, button Button) error
	Hold(ctx context.Context, input string) error
	Release(ctx context.Context, input string) error
	Type(ctx context.Context, text string) error
	Scroll(ctx context.Context, direction Direction, amount int) error
}
