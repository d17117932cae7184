// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package executor dispatches validated action plans against the
// input-injection boundary and tracks held inputs.
package executor

import (
	stderrors "errors"
	"sync/atomic"

	"github.com/google/uuid"
)

// ErrPlanConsumed is returned when a plan is handed to the executor twice.
var ErrPlanConsumed = stderrors.New("plan already consumed")

// Step is one skill invocation within a plan.
type Step struct {
	Skill  string         `json:"skill"`
	Params map[string]any `json:"params,omitempty"`
}

// Plan is an ordered sequence of skill invocations. It is immutable once
// built and consumed exactly once.
type Plan struct {
	ID       string `json:"id"`
	steps    []Step
	consumed atomic.Bool
}

// NewPlan builds a plan from validated steps.
func NewPlan(steps []Step) *Plan {
	copied := make([]Step, len(steps))
	copy(copied, steps)
	return &Plan{ID: uuid.NewString(), steps: copied}
}

// Steps returns the plan's steps without consuming it.
func (p *Plan) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Consume marks the plan consumed and returns its steps. A second call
// fails with ErrPlanConsumed.
func (p *Plan) Consume() ([]Step, error) {
	if !p.consumed.CompareAndSwap(false, true) {
		return nil, ErrPlanConsumed
	}
	return p.steps, nil
}
