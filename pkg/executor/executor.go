// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package executor

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/jllopis/praxis/pkg/skills"
)

// StepResult is the outcome of one dispatched plan step.
type StepResult struct {
	Skill    string
	Output   any
	Err      error
	Duration time.Duration
}

// Failed reports whether any step in results carries an error.
func Failed(results []StepResult) bool {
	for _, result := range results {
		if result.Err != nil {
			return true
		}
	}
	return false
}

// Executor dispatches plans through the skill registry, sweeping held-input
// expiries after every action and spacing actions with the configured
// post-action delay.
type Executor struct {
	registry skills.StepExecutor
	tracker  *Tracker
	delay    time.Duration
	// strict halts the plan at the first failing step; otherwise later
	// steps still execute.
	strict bool
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration)

	tracer         trace.Tracer
	stepCounter    metric.Int64Counter
	failureCounter metric.Int64Counter
	stepDuration   metric.Float64Histogram
}

// Option configures an Executor.
type Option func(*Executor)

// WithStrict halts plan execution at the first failing step.
func WithStrict(strict bool) Option {
	return func(e *Executor) { e.strict = strict }
}

// WithPostActionDelay sets the settle delay inserted between steps.
func WithPostActionDelay(delay time.Duration) Option {
	return func(e *Executor) { e.delay = delay }
}

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

// withSleep overrides the inter-step sleep, for tests.
func withSleep(sleep func(ctx context.Context, d time.Duration)) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// New creates an Executor over the given registry and tracker.
func New(registry skills.StepExecutor, tracker *Tracker, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		tracker:  tracker,
		logger:   slog.Default(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.tracer = otel.Tracer("praxis/executor")
	meter := otel.Meter("praxis/executor")
	e.stepCounter, _ = meter.Int64Counter("praxis.executor.steps",
		metric.WithDescription("Plan steps dispatched"))
	e.failureCounter, _ = meter.Int64Counter("praxis.executor.step_failures",
		metric.WithDescription("Plan steps that failed"))
	e.stepDuration, _ = meter.Float64Histogram("praxis.executor.step_duration_seconds",
		metric.WithDescription("Per-step dispatch duration"))
	return e
}

// Tracker returns the held-input tracker.
func (e *Executor) Tracker() *Tracker { return e.tracker }

// ExecutePlan dispatches each step of the plan in order. The plan is
// consumed exactly once; a replay fails with ErrPlanConsumed. On a step
// failure, later steps still execute unless strict is set.
func (e *Executor) ExecutePlan(ctx context.Context, plan *Plan) ([]StepResult, error) {
	steps, err := plan.Consume()
	if err != nil {
		return nil, err
	}

	results := make([]StepResult, 0, len(steps))
	for i, step := range steps {
		stepCtx, span := e.tracer.Start(ctx, "step "+step.Skill,
			trace.WithAttributes(
				attribute.String("skill", step.Skill),
				attribute.String("plan", plan.ID)))

		start := time.Now()
		output, stepErr := e.registry.Execute(stepCtx, step.Skill, step.Params)
		elapsed := time.Since(start)

		if stepErr != nil {
			span.RecordError(stepErr)
			span.SetStatus(codes.Error, stepErr.Error())
		}
		span.End()

		result := StepResult{Skill: step.Skill, Output: output, Err: stepErr, Duration: elapsed}
		results = append(results, result)
		e.record(ctx, step.Skill, stepErr, elapsed)

		// Expiry checkpoint after every discrete action.
		e.tracker.Sweep(ctx)

		if stepErr != nil {
			e.logger.Warn("executor.step.failed",
				slog.String("plan", plan.ID),
				slog.String("skill", step.Skill),
				slog.String("error", stepErr.Error()))
			if e.strict {
				return results, stepErr
			}
		} else {
			e.logger.Debug("executor.step.done",
				slog.String("plan", plan.ID),
				slog.String("skill", step.Skill),
				slog.Duration("duration", elapsed))
		}

		// A failed step may still have applied partial input effects, so
		// the settle delay applies regardless of the step's outcome.
		if e.delay > 0 && i < len(steps)-1 {
			e.sleep(ctx, e.delay)
		}
	}
	return results, nil
}

func (e *Executor) record(ctx context.Context, skill string, err error, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("skill", skill))
	if e.stepCounter != nil {
		e.stepCounter.Add(ctx, 1, attrs)
	}
	if err != nil && e.failureCounter != nil {
		e.failureCounter.Add(ctx, 1, attrs)
	}
	if e.stepDuration != nil {
		e.stepDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
