// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jllopis/praxis/pkg/target"
)

// HeldInput is a key or button currently asserted against the target.
type HeldInput struct {
	Input      string
	AcquiredAt time.Time
	// Remaining is the number of sweep checkpoints left before the input is
	// force-released.
	Remaining int
}

// Tracker wraps the input injector and tracks every hold so no input
// primitive stays asserted indefinitely. It is the only writer to the
// injector during execution.
type Tracker struct {
	mu       sync.Mutex
	injector target.Injector
	held     map[string]*HeldInput
	expiry   int
	logger   *slog.Logger
	now      func() time.Time
}

// NewTracker wraps injector. expiry is the number of sweep checkpoints a
// hold survives without an explicit release.
func NewTracker(injector target.Injector, expiry int, logger *slog.Logger) *Tracker {
	if expiry <= 0 {
		expiry = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		injector: injector,
		held:     make(map[string]*HeldInput),
		expiry:   expiry,
		logger:   logger,
		now:      time.Now,
	}
}

func (t *Tracker) MoveTo(ctx context.Context, x, y float64) error {
	return t.injector.MoveTo(ctx, x, y)
}

func (t *Tracker) Click(ctx context.Context, button target.Button) error {
	return t.injector.Click(ctx, button)
}

// Hold asserts the input and records it with a fresh expiry. Re-holding an
// already-held input resets its expiry.
func (t *Tracker) Hold(ctx context.Context, input string) error {
	if err := t.injector.Hold(ctx, input); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.held[input] = &HeldInput{Input: input, AcquiredAt: t.now(), Remaining: t.expiry}
	return nil
}

// Release releases the input and removes it immediately, regardless of
// remaining expiry.
func (t *Tracker) Release(ctx context.Context, input string) error {
	if err := t.injector.Release(ctx, input); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.held, input)
	return nil
}

func (t *Tracker) Type(ctx context.Context, text string) error {
	return t.injector.Type(ctx, text)
}

func (t *Tracker) Scroll(ctx context.Context, direction target.Direction, amount int) error {
	return t.injector.Scroll(ctx, direction, amount)
}

// Sweep is the expiry checkpoint: it decrements every outstanding hold and
// force-releases any that reach zero. It runs at the start of each cycle and
// after every discrete action, never on a separate timeline.
func (t *Tracker) Sweep(ctx context.Context) {
	t.mu.Lock()
	var expired []string
	for input, held := range t.held {
		held.Remaining--
		if held.Remaining <= 0 {
			expired = append(expired, input)
			delete(t.held, input)
		}
	}
	t.mu.Unlock()

	sort.Strings(expired)
	for _, input := range expired {
		if err := t.injector.Release(ctx, input); err != nil {
			t.logger.Warn("executor.sweep.release.error",
				slog.String("input", input), slog.String("error", err.Error()))
			continue
		}
		t.logger.Info("executor.sweep.expired", slog.String("input", input))
	}
}

// ReleaseAll force-releases every outstanding hold. It runs on cancellation
// and fatal termination so the agent never exits leaving input asserted.
func (t *Tracker) ReleaseAll(ctx context.Context) {
	t.mu.Lock()
	inputs := make([]string, 0, len(t.held))
	for input := range t.held {
		inputs = append(inputs, input)
	}
	t.held = make(map[string]*HeldInput)
	t.mu.Unlock()

	sort.Strings(inputs)
	for _, input := range inputs {
		if err := t.injector.Release(ctx, input); err != nil {
			t.logger.Warn("executor.release_all.error",
				slog.String("input", input), slog.String("error", err.Error()))
		}
	}
}

// Held returns a snapshot of the outstanding holds, sorted by input.
func (t *Tracker) Held() []HeldInput {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]HeldInput, 0, len(t.held))
	for _, held := range t.held {
		out = append(out, *held)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Input < out[j].Input })
	return out
}

var _ target.Injector = (*Tracker)(nil)
