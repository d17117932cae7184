package target

import (
	"context"
	"fmt"
	"sync"
)

// Journal is an Injector that records every primitive call. It backs tests
// and dry runs where no real input device is attached.
type Journal struct {
	mu  sync.Mutex
	ops []string
	// FailOn makes the named primitive return an error, for failure-path tests.
	FailOn map[string]error
}

// NewJournal creates an empty Journal.
func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) record(op string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = append(j.ops, op)
	return nil
}

func (j *Journal) fail(name string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.FailOn == nil {
		return nil
	}
	return j.FailOn[name]
}

func (j *Journal) MoveTo(_ context.Context, x, y float64) error {
	if err := j.fail("move_to"); err != nil {
		return err
	}
	return j.record(fmt.Sprintf("move_to(%.3f,%.3f)", x, y))
}

func (j *Journal) Click(_ context.Context, button Button) error {
	if err := j.fail("click"); err != nil {
		return err
	}
	return j.record(fmt.Sprintf("click(%s)", button))
}

func (j *Journal) Hold(_ context.Context, input string) error {
	if err := j.fail("hold"); err != nil {
		return err
	}
	return j.record(fmt.Sprintf("hold(%s)", input))
}

func (j *Journal) Release(_ context.Context, input string) error {
	if err := j.fail("release"); err != nil {
		return err
	}
	return j.record(fmt.Sprintf("release(%s)", input))
}

func (j *Journal) Type(_ context.Context, text string) error {
	if err := j.fail("type"); err != nil {
		return err
	}
	return j.record(fmt.Sprintf("type(%s)", text))
}

func (j *Journal) Scroll(_ context.Context, direction Direction, amount int) error {
	if err := j.fail("scroll"); err != nil {
		return err
	}
	return j.record(fmt.Sprintf("scroll(%s,%d)", direction, amount))
}

// Ops returns a copy of the recorded primitive calls in dispatch order.
func (j *Journal) Ops() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.ops))
	copy(out, j.ops)
	return out
}

// Reset clears the recorded calls.
func (j *Journal) Reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ops = nil
}

var _ Injector = (*Journal)(nil)

// StaticTarget is a Target implementation with fixed attributes and
// pause/resume counters, used in tests and for non-interactive targets.
type StaticTarget struct {
	mu          sync.Mutex
	name        string
	realTime    bool
	paused      bool
	PauseCount  int
	ResumeCount int
}

// NewStaticTarget creates a StaticTarget.
func NewStaticTarget(name string, realTime bool) *StaticTarget {
	return &StaticTarget{name: name, realTime: realTime}
}

func (t *StaticTarget) Name() string { return t.name }

func (t *StaticTarget) RealTime() bool { return t.realTime }

func (t *StaticTarget) Pause(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = true
	t.PauseCount++
	return nil
}

func (t *StaticTarget) Resume(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = false
	t.ResumeCount++
	return nil
}

// Paused reports whether the target is currently paused.
func (t *StaticTarget) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

var _ Target = (*StaticTarget)(nil)
