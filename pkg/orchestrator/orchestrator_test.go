// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/executor"
	"github.com/jllopis/praxis/pkg/memory"
	"github.com/jllopis/praxis/pkg/perception"
	"github.com/jllopis/praxis/pkg/provider"
	"github.com/jllopis/praxis/pkg/skills"
	"github.com/jllopis/praxis/pkg/target"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type stubCapturer struct{}

func (stubCapturer) Capture(_ context.Context) (perception.Frame, error) {
	return perception.Frame{Image: []byte{1}, Timestamp: time.Now(), Width: 640, Height: 480}, nil
}

type transition struct {
	state  State
	paused bool
}

type harness struct {
	orch    *Orchestrator
	mem     *memory.WorkingMemory
	tracker *executor.Tracker
	target  *target.StaticTarget
	trace   *[]transition
}

// scripted responses for one cycle that plans a single press_key step.
func cycleResponses(taskComplete bool) []string {
	reflect := `{"reflection": "progressing", "task_complete": false}`
	if taskComplete {
		reflect = `{"reflection": "done", "task_complete": true}`
	}
	return []string{
		`{"observation": "a menu is open"}`,
		reflect,
		`{"task": "confirm the dialog"}`,
		`{"query": "press a key"}`,
		`{"steps": [{"skill": "press_key", "params": {"key": "enter"}}]}`,
	}
}

func newHarness(t *testing.T, prov provider.Provider, realTime bool, cfg Config, defs ...skills.Definition) *harness {
	t.Helper()
	journal := target.NewJournal()
	tracker := executor.NewTracker(journal, 5, nil)

	reg := skills.NewRegistry(stubEmbedder{})
	if len(defs) == 0 {
		defs = []skills.Definition{{
			Name:        "press_key",
			Description: "press a key",
			Parameters:  []skills.ParamSpec{{Name: "key", Type: "string", Required: true}},
			Source:      "press source",
			Invoke: func(ctx context.Context, params map[string]any) (any, error) {
				if err := tracker.Hold(ctx, params["key"].(string)); err != nil {
					return nil, err
				}
				return nil, tracker.Release(ctx, params["key"].(string))
			},
		}}
	}
	if err := reg.ScanAndMerge(context.Background(), defs, false); err != nil {
		t.Fatalf("scan: %v", err)
	}

	exec := executor.New(reg, tracker)
	tgt := target.NewStaticTarget("test-env", realTime)
	mem := memory.New()

	var trace []transition
	orch := New(mem, reg, stubEmbedder{}, prov, stubCapturer{}, exec, tgt, cfg,
		WithTransitionHook(func(state State, paused bool) {
			trace = append(trace, transition{state, paused})
		}))
	return &harness{orch: orch, mem: mem, tracker: tracker, target: tgt, trace: &trace}
}

func TestRunCompletesWhenReflectionSignalsDone(t *testing.T) {
	var responses []string
	responses = append(responses, cycleResponses(false)...)
	responses = append(responses, cycleResponses(true)[:2]...) // cycle 2 ends at reflection
	h := newHarness(t, provider.NewScriptedProvider(responses...), false, Config{FailureLimit: 3})

	state, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != StateDone {
		t.Fatalf("expected DONE, got %s", state)
	}
	if task, _ := h.mem.Get("task"); task != "confirm the dialog" {
		t.Fatalf("task not merged: %v", task)
	}
	// Non-real-time targets are never paused.
	if h.target.PauseCount != 0 || h.target.ResumeCount != 0 {
		t.Fatalf("non-real-time target was paused: %d/%d", h.target.PauseCount, h.target.ResumeCount)
	}
}

func TestPauseBracketsEveryStateExceptExecution(t *testing.T) {
	var responses []string
	responses = append(responses, cycleResponses(false)...)
	responses = append(responses, cycleResponses(true)[:2]...)
	h := newHarness(t, provider.NewScriptedProvider(responses...), true, Config{FailureLimit: 3})

	state, err := h.orch.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if state != StateDone {
		t.Fatalf("expected DONE, got %s", state)
	}

	for _, tr := range *h.trace {
		switch tr.state {
		case StateSkillExecution:
			if tr.paused {
				t.Fatal("target paused during SKILL_EXECUTION")
			}
		case StateDone, StateFailed:
			// Terminal entries run after teardown resumed the target.
		default:
			if !tr.paused {
				t.Fatalf("target not paused during %s", tr.state)
			}
		}
	}
	if h.target.Paused() {
		t.Fatal("target left paused after termination")
	}
	// One pause per cycle entry plus one after execution; every pause is
	// matched by a resume before execution or at teardown.
	if h.target.PauseCount == 0 || h.target.PauseCount != h.target.ResumeCount {
		t.Fatalf("unbalanced pause/resume: %d/%d", h.target.PauseCount, h.target.ResumeCount)
	}
}

func TestConsecutiveFailuresReachFailedWithNoHeldInputs(t *testing.T) {
	// Every cycle plans a step whose skill holds a key and then fails.
	var responses []string
	for i := 0; i < 3; i++ {
		responses = append(responses,
			`{"observation": "stuck"}`,
			`{"reflection": "no progress", "task_complete": false}`,
			`{"task": "try again"}`,
			`{"query": "keyboard"}`,
			`{"steps": [{"skill": "press_key", "params": {"key": "w"}}]}`,
		)
	}

	journalHeld := func(tracker **executor.Tracker) skills.Definition {
		return skills.Definition{
			Name:        "press_key",
			Description: "press a key",
			Parameters:  []skills.ParamSpec{{Name: "key", Type: "string", Required: true}},
			Source:      "press source",
			Invoke: func(ctx context.Context, params map[string]any) (any, error) {
				if err := (*tracker).Hold(ctx, params["key"].(string)); err != nil {
					return nil, err
				}
				return nil, errors.New(errors.CodeSkillExecution, "stuck key", nil)
			},
		}
	}

	var trackerRef *executor.Tracker
	h := newHarness(t, provider.NewScriptedProvider(responses...), true,
		Config{FailureLimit: 3, StageRetries: 1}, journalHeld(&trackerRef))
	trackerRef = h.tracker

	state, err := h.orch.Run(context.Background())
	if state != StateFailed {
		t.Fatalf("expected FAILED, got %s (%v)", state, err)
	}
	if !errors.HasCode(err, errors.CodeFailureLimit) {
		t.Fatalf("expected FAILURE_LIMIT_EXCEEDED, got %v", err)
	}
	if held := h.tracker.Held(); len(held) != 0 {
		t.Fatalf("held inputs survived termination: %+v", held)
	}
	if h.target.Paused() {
		t.Fatal("target left paused after FAILED")
	}
}

func TestPlanOutsideCuratedSetIsRejected(t *testing.T) {
	responses := []string{
		`{"observation": "a menu"}`,
		`{"reflection": "ok", "task_complete": false}`,
		`{"task": "do the thing"}`,
		`{"query": "keyboard"}`,
		`{"steps": [{"skill": "cast_fireball", "params": {}}]}`,
	}
	h := newHarness(t, provider.NewScriptedProvider(responses...), false,
		Config{FailureLimit: 1, StageRetries: 1})

	state, err := h.orch.Run(context.Background())
	if state != StateFailed {
		t.Fatalf("expected FAILED, got %s", state)
	}
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestCancellationObservedAtBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newHarness(t, provider.NewScriptedProvider(), false, Config{FailureLimit: 3})
	state, err := h.orch.Run(ctx)
	if state != StateFailed {
		t.Fatalf("expected FAILED on cancellation, got %s", state)
	}
	if !errors.HasCode(err, errors.CodeContextLost) {
		t.Fatalf("expected CONTEXT_LOST, got %v", err)
	}
	if held := h.tracker.Held(); len(held) != 0 {
		t.Fatalf("held inputs survived cancellation: %+v", held)
	}
}

func TestSnapshotPersistedOnTermination(t *testing.T) {
	var responses []string
	responses = append(responses, cycleResponses(true)[:2]...)

	store := memory.NewFileSnapshotStore(t.TempDir() + "/snapshot.json")
	h := newHarness(t, provider.NewScriptedProvider(responses...), false, Config{FailureLimit: 3})
	WithSnapshotStore(store)(h.orch)

	if _, err := h.orch.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	blob, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	restored := memory.New()
	if err := restored.Restore(blob); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if obs, _ := restored.Get("observation"); obs != "a menu is open" {
		t.Fatalf("snapshot missing observation: %v", obs)
	}
}

func TestMaxCyclesBoundsTheRun(t *testing.T) {
	var responses []string
	for i := 0; i < 2; i++ {
		responses = append(responses, cycleResponses(false)...)
	}
	h := newHarness(t, provider.NewScriptedProvider(responses...), false,
		Config{FailureLimit: 10, MaxCycles: 2})

	state, err := h.orch.Run(context.Background())
	if state != StateFailed {
		t.Fatalf("expected FAILED after max cycles, got %s", state)
	}
	if !errors.HasCode(err, errors.CodeFailureLimit) {
		t.Fatalf("unexpected error: %v", err)
	}
}
