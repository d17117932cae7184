// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements the reasoning state machine that sequences
// perception, reflection, planning, and execution against the target.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/jllopis/praxis/pkg/embedding"
	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/executor"
	"github.com/jllopis/praxis/pkg/memory"
	"github.com/jllopis/praxis/pkg/perception"
	"github.com/jllopis/praxis/pkg/provider"
	"github.com/jllopis/praxis/pkg/resilience"
	"github.com/jllopis/praxis/pkg/skills"
	"github.com/jllopis/praxis/pkg/target"
)

// State identifies one orchestrator state.
type State string

const (
	StateInfoGathering  State = "INFO_GATHERING"
	StateSelfReflection State = "SELF_REFLECTION"
	StateTaskInference  State = "TASK_INFERENCE"
	StateSkillCuration  State = "SKILL_CURATION"
	StateActionPlanning State = "ACTION_PLANNING"
	StateSkillExecution State = "SKILL_EXECUTION"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// Config bounds the orchestrator's loop.
type Config struct {
	// RetrieveK is the curation retrieval depth.
	RetrieveK int
	// FailureLimit is the consecutive cycle-failure threshold.
	FailureLimit int
	// MaxCycles caps the number of reasoning cycles; zero means unbounded.
	MaxCycles int
	// StageTimeout bounds each provider-backed stage call.
	StageTimeout time.Duration
	// StageRetries is the number of attempts per provider-backed stage.
	StageRetries int
}

// Orchestrator drives the reasoning cycle. A single logical control thread
// runs the state machine; stages never execute concurrently, and working
// memory mutations from one stage are visible to the next within the cycle.
type Orchestrator struct {
	mem       *memory.WorkingMemory
	registry  *skills.Registry
	embedder  embedding.Embedder
	prov      provider.Provider
	capturer  perception.Capturer
	augmenter perception.Augmenter
	exec      *executor.Executor
	tgt       target.Target
	snapshots memory.SnapshotStore
	logger    *slog.Logger
	cfg       Config

	pipeline Middleware
	hook     func(state State, paused bool)

	paused  bool
	frame   perception.Frame
	curated []skills.Skill
	plan    *executor.Plan
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAugmenter attaches an optional perception augmenter.
func WithAugmenter(augmenter perception.Augmenter) Option {
	return func(o *Orchestrator) { o.augmenter = augmenter }
}

// WithSnapshotStore persists working memory after every cycle and on
// teardown.
func WithSnapshotStore(store memory.SnapshotStore) Option {
	return func(o *Orchestrator) { o.snapshots = store }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithTransitionHook records every state entry together with the current
// pause flag. Used by tests to assert the pause discipline.
func WithTransitionHook(hook func(state State, paused bool)) Option {
	return func(o *Orchestrator) { o.hook = hook }
}

// New wires an Orchestrator. The registry, memory, and executor are owned
// collaborators passed in explicitly; nothing is reached through ambient
// globals.
func New(
	mem *memory.WorkingMemory,
	registry *skills.Registry,
	embedder embedding.Embedder,
	prov provider.Provider,
	capturer perception.Capturer,
	exec *executor.Executor,
	tgt target.Target,
	cfg Config,
	opts ...Option,
) *Orchestrator {
	if cfg.RetrieveK <= 0 {
		cfg.RetrieveK = 10
	}
	if cfg.FailureLimit <= 0 {
		cfg.FailureLimit = 3
	}
	if cfg.StageRetries <= 0 {
		cfg.StageRetries = 1
	}
	o := &Orchestrator{
		mem:      mem,
		registry: registry,
		embedder: embedder,
		prov:     prov,
		capturer: capturer,
		exec:     exec,
		tgt:      tgt,
		logger:   slog.Default(),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.pipeline = Chain(Timing(), ErrorCapture(), Logging(o.logger))
	return o
}

// Run drives the state machine until a terminal state. The returned error is
// non-nil only for FAILED. Cancellation is polled at state boundaries, never
// mid skill-invocation.
func (o *Orchestrator) Run(ctx context.Context) (State, error) {
	failures := 0
	for cycle := 1; ; cycle++ {
		if o.cfg.MaxCycles > 0 && cycle > o.cfg.MaxCycles {
			return o.fail(ctx, errors.New(errors.CodeFailureLimit, "max cycles reached", nil).
				WithContext("cycles", o.cfg.MaxCycles))
		}

		done, err := o.runCycle(ctx, cycle)
		if err != nil {
			if errors.HasCode(err, errors.CodeContextLost) {
				return o.fail(ctx, err)
			}
			failures++
			o.logger.Warn("orchestrator.cycle.failed",
				slog.Int("cycle", cycle),
				slog.Int("consecutive_failures", failures),
				slog.String("error", err.Error()))
			if failures >= o.cfg.FailureLimit {
				return o.fail(ctx, errors.New(errors.CodeFailureLimit,
					"consecutive failure limit exceeded", err).
					WithContext("failures", failures))
			}
			o.persist(ctx)
			continue
		}
		failures = 0
		o.persist(ctx)
		if done {
			o.teardown(ctx)
			o.enter(StateDone)
			return StateDone, nil
		}
	}
}

// runCycle executes one full pass. It reports done=true when SELF_REFLECTION
// set the task-completion flag.
func (o *Orchestrator) runCycle(ctx context.Context, cycle int) (bool, error) {
	o.logger.Info("orchestrator.cycle.start", slog.Int("cycle", cycle))

	// Cycle-start sweep checkpoint.
	o.exec.Tracker().Sweep(ctx)

	// Perception and reasoning always observe a frozen world.
	if err := o.pause(ctx); err != nil {
		return false, err
	}

	type stage struct {
		state State
		fn    StageFunc
	}
	reasoning := []stage{
		{StateInfoGathering, o.infoGathering},
		{StateSelfReflection, o.selfReflection},
		{StateTaskInference, o.taskInference},
		{StateSkillCuration, o.skillCuration},
		{StateActionPlanning, o.actionPlanning},
	}
	for _, s := range reasoning {
		if err := o.boundary(ctx); err != nil {
			return false, err
		}
		o.enter(s.state)
		if err := o.runStage(ctx, s.state, s.fn); err != nil {
			return false, err
		}
		if s.state == StateSelfReflection && o.taskComplete() {
			return true, nil
		}
	}

	if err := o.boundary(ctx); err != nil {
		return false, err
	}

	// Actions are applied in one atomic window: resume, execute, pause.
	if err := o.resume(ctx); err != nil {
		return false, err
	}
	o.enter(StateSkillExecution)
	execErr := o.runStage(ctx, StateSkillExecution, o.skillExecution)
	if err := o.pause(ctx); err != nil {
		return false, err
	}
	return false, execErr
}

// runStage applies the fixed middleware pipeline, bounded retry, and the
// stage timeout, then merges the stage's updates atomically.
func (o *Orchestrator) runStage(ctx context.Context, state State, fn StageFunc) error {
	wrapped := o.pipeline(string(state), fn)
	retry := resilience.DefaultRetryConfig().WithMaxAttempts(o.cfg.StageRetries)

	result, err := retry.DoWithResult(ctx, func() (interface{}, error) {
		var out map[string]any
		err := resilience.WithTimeout(ctx, resilience.TimeoutConfig{Duration: o.cfg.StageTimeout},
			func(ctx context.Context) error {
				var stageErr error
				out, stageErr = wrapped(ctx)
				return stageErr
			})
		return out, err
	})
	if err != nil {
		return err
	}
	if updates, ok := result.(map[string]any); ok && len(updates) > 0 {
		o.mem.BulkUpdate(updates)
	}
	return nil
}

func (o *Orchestrator) enter(state State) {
	if o.hook != nil {
		o.hook(state, o.paused)
	}
}

// boundary polls cancellation between states.
func (o *Orchestrator) boundary(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New(errors.CodeContextLost, "canceled at state boundary", err)
	}
	return nil
}

func (o *Orchestrator) pause(ctx context.Context) error {
	if !o.tgt.RealTime() || o.paused {
		return nil
	}
	if err := o.tgt.Pause(ctx); err != nil {
		return errors.New(errors.CodeInternal, "pause target", err)
	}
	o.paused = true
	return nil
}

func (o *Orchestrator) resume(ctx context.Context) error {
	if !o.tgt.RealTime() || !o.paused {
		return nil
	}
	if err := o.tgt.Resume(ctx); err != nil {
		return errors.New(errors.CodeInternal, "resume target", err)
	}
	o.paused = false
	return nil
}

func (o *Orchestrator) taskComplete() bool {
	complete, _ := o.mem.GetDefault("task_complete", false).(bool)
	return complete
}

// fail tears down and returns the FAILED terminal state.
func (o *Orchestrator) fail(ctx context.Context, err error) (State, error) {
	o.teardown(ctx)
	o.enter(StateFailed)
	return StateFailed, err
}

// teardown releases every held input, resumes a paused real-time target, and
// persists the last snapshot. It runs on every termination path: the agent
// never exits leaving input held or the world paused.
func (o *Orchestrator) teardown(ctx context.Context) {
	// Use a detached context so teardown still runs after cancellation.
	cleanup := context.WithoutCancel(ctx)
	o.exec.Tracker().ReleaseAll(cleanup)
	if o.tgt.RealTime() && o.paused {
		if err := o.tgt.Resume(cleanup); err != nil {
			o.logger.Error("orchestrator.teardown.resume.error", slog.String("error", err.Error()))
		} else {
			o.paused = false
		}
	}
	o.persist(cleanup)
}

// persist saves the working-memory snapshot for crash recovery and
// post-mortem inspection.
func (o *Orchestrator) persist(ctx context.Context) {
	if o.snapshots == nil {
		return
	}
	blob, err := o.mem.Snapshot()
	if err != nil {
		o.logger.Error("orchestrator.snapshot.encode.error", slog.String("error", err.Error()))
		return
	}
	if err := o.snapshots.Save(ctx, blob); err != nil {
		o.logger.Error("orchestrator.snapshot.save.error", slog.String("error", err.Error()))
	}
}
