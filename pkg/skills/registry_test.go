// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"fmt"
	"testing"

	"github.com/jllopis/praxis/pkg/errors"
)

// countingEmbedder returns deterministic vectors and counts calls.
type countingEmbedder struct {
	calls   int
	vectors map[string][]float32
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.vectors != nil {
		if vec, ok := e.vectors[text]; ok {
			return vec, nil
		}
	}
	return []float32{1, 0, 0}, nil
}

func testDefinition(name string, basic bool) Definition {
	counter := 0
	return Definition{
		Name:        name,
		Description: "test skill " + name,
		Basic:       basic,
		Source:      "def " + name + "(): pass",
		Invoke: func(_ context.Context, _ map[string]any) (any, error) {
			counter++
			return counter, nil
		},
	}
}

func TestExecuteOutsideActiveSetNeverInvokesCallable(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&countingEmbedder{})

	invoked := 0
	def := Definition{
		Name:        "forbidden",
		Description: "a skill the filter excludes",
		Source:      "source",
		Invoke: func(_ context.Context, _ map[string]any) (any, error) {
			invoked++
			return nil, nil
		},
	}
	if err := reg.ScanAndMerge(ctx, []Definition{def}, false); err != nil {
		t.Fatalf("scan: %v", err)
	}
	reg.SetFilter(NewFilter(ModeNone, nil, nil))

	_, err := reg.Execute(ctx, "forbidden", nil)
	if !errors.HasCode(err, errors.CodeSkillNotAvailable) {
		t.Fatalf("expected SKILL_NOT_AVAILABLE, got %v", err)
	}
	if invoked != 0 {
		t.Fatalf("callable was invoked %d times for a filtered-out skill", invoked)
	}
}

func TestFingerprintGatesEmbedding(t *testing.T) {
	ctx := context.Background()
	embedder := &countingEmbedder{}
	lib := NewMemoryLibrary()
	reg := NewRegistry(embedder, WithLibrary(lib))

	def := testDefinition("move_mouse", true)
	if err := reg.ScanAndMerge(ctx, []Definition{def}, false); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("expected 1 embedding call for a new skill, got %d", embedder.calls)
	}

	// Unchanged source on rescan reuses the stored embedding.
	if err := reg.ScanAndMerge(ctx, []Definition{def}, false); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("rescan of unchanged source triggered embedding, calls=%d", embedder.calls)
	}

	// A fresh registry with the same library still reuses the embedding.
	reg2 := NewRegistry(embedder, WithLibrary(lib))
	if err := reg2.ScanAndMerge(ctx, []Definition{def}, false); err != nil {
		t.Fatalf("rescan in new registry: %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("library reload triggered embedding, calls=%d", embedder.calls)
	}

	// One changed character changes the fingerprint and costs exactly one call.
	changed := def
	changed.Source = def.Source + "#"
	if err := reg2.ScanAndMerge(ctx, []Definition{changed}, false); err != nil {
		t.Fatalf("scan changed: %v", err)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected exactly one new embedding call, got %d total", embedder.calls)
	}
}

func TestScanAndMergeKeepsAbsentSkillsUnlessPruned(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&countingEmbedder{})

	if err := reg.ScanAndMerge(ctx, []Definition{testDefinition("a", false), testDefinition("b", false)}, false); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if err := reg.ScanAndMerge(ctx, []Definition{testDefinition("a", false)}, false); err != nil {
		t.Fatalf("rescan: %v", err)
	}
	if _, ok := reg.Get("b"); !ok {
		t.Fatal("skill absent from rescan was dropped without prune")
	}

	if err := reg.ScanAndMerge(ctx, []Definition{testDefinition("a", false)}, true); err != nil {
		t.Fatalf("prune scan: %v", err)
	}
	if _, ok := reg.Get("b"); ok {
		t.Fatal("prune did not remove the absent skill")
	}
}

func TestRegisterFromCodeNameCollision(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&countingEmbedder{})

	original := testDefinition("wait_and_click", false)
	if err := reg.RegisterFromCode(ctx, original, false); err != nil {
		t.Fatalf("register: %v", err)
	}

	conflicting := original
	conflicting.Source = "different source"
	err := reg.RegisterFromCode(ctx, conflicting, false)
	if !errors.HasCode(err, errors.CodeNameCollision) {
		t.Fatalf("expected NAME_COLLISION, got %v", err)
	}

	// Prior skill unchanged after the rejected registration.
	kept, _ := reg.Get("wait_and_click")
	if kept.Fingerprint != Fingerprint(original.Source) {
		t.Fatal("rejected registration mutated the existing skill")
	}

	// Same fingerprint, or replace=true, both succeed.
	if err := reg.RegisterFromCode(ctx, original, false); err != nil {
		t.Fatalf("re-register identical: %v", err)
	}
	if err := reg.RegisterFromCode(ctx, conflicting, true); err != nil {
		t.Fatalf("register with replace: %v", err)
	}
}

func TestExecuteCapturesPanic(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&countingEmbedder{})

	def := Definition{
		Name:        "explode",
		Description: "panics on invocation",
		Source:      "boom",
		Invoke: func(_ context.Context, _ map[string]any) (any, error) {
			panic("nope")
		},
	}
	if err := reg.ScanAndMerge(ctx, []Definition{def}, false); err != nil {
		t.Fatalf("scan: %v", err)
	}

	_, err := reg.Execute(ctx, "explode", nil)
	if !errors.HasCode(err, errors.CodeSkillExecution) {
		t.Fatalf("expected SKILL_EXECUTION from panic, got %v", err)
	}
}

func TestExecuteRejectsBadParamsWithoutInvoking(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&countingEmbedder{})

	invoked := 0
	def := Definition{
		Name:        "click_at_position",
		Description: "clicks at normalized coordinates",
		Parameters: []ParamSpec{
			{Name: "x", Type: "float", Required: true},
			{Name: "y", Type: "float", Required: true},
			{Name: "button", Type: "string", Enum: []string{"left", "right", "middle"}, Default: "left"},
		},
		Source: "click source",
		Invoke: func(_ context.Context, params map[string]any) (any, error) {
			invoked++
			return params, nil
		},
	}
	if err := reg.ScanAndMerge(ctx, []Definition{def}, false); err != nil {
		t.Fatalf("scan: %v", err)
	}

	cases := []map[string]any{
		{"x": 0.5},                                 // missing required y
		{"x": 0.5, "y": "not a number"},            // bad type
		{"x": 0.5, "y": 0.5, "button": "sideways"}, // enum violation
		{"x": 0.5, "y": 0.5, "speed": 3},           // unknown parameter
	}
	for i, raw := range cases {
		if _, err := reg.Execute(ctx, "click_at_position", raw); !errors.HasCode(err, errors.CodeParameterParse) {
			t.Fatalf("case %d: expected PARAMETER_PARSE, got %v", i, err)
		}
	}
	if invoked != 0 {
		t.Fatalf("callable invoked %d times despite parse failures", invoked)
	}

	out, err := reg.Execute(ctx, "click_at_position", map[string]any{"x": 0.25, "y": 0.75})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	params := out.(map[string]any)
	if params["button"] != "left" {
		t.Fatalf("default not applied, got %v", params["button"])
	}
	if params["x"] != 0.25 {
		t.Fatalf("coerced x = %v", params["x"])
	}
}

func TestRetrieveBasicModeScenario(t *testing.T) {
	ctx := context.Background()
	embedder := &countingEmbedder{vectors: map[string][]float32{}}
	reg := NewRegistry(embedder)

	// Five skills, only two basic. Distinct vectors give a strict ranking.
	vectors := map[string][]float32{
		"click_at_position": {1, 0, 0},
		"type_text":         {0.9, 0.1, 0},
		"move_mouse":        {0.5, 0.5, 0},
		"press_key":         {0, 1, 0},
		"scroll":            {0, 0, 1},
	}
	var defs []Definition
	for _, name := range []string{"click_at_position", "type_text", "move_mouse", "press_key", "scroll"} {
		def := testDefinition(name, name == "click_at_position" || name == "type_text")
		embedder.vectors[def.Name+": "+def.Description] = vectors[name]
		defs = append(defs, def)
	}
	if err := reg.ScanAndMerge(ctx, defs, false); err != nil {
		t.Fatalf("scan: %v", err)
	}

	reg.SetFilter(NewFilter(ModeBasic, nil, nil))

	got := reg.Retrieve([]float32{1, 0, 0}, 3)
	if len(got) != 2 {
		t.Fatalf("expected 2 results from a 2-skill active set, got %d", len(got))
	}
	if got[0].Name != "click_at_position" || got[1].Name != "type_text" {
		t.Fatalf("unexpected ranking: %s, %s", got[0].Name, got[1].Name)
	}
}

func TestRetrieveTiesBreakLexically(t *testing.T) {
	ctx := context.Background()
	embedder := &countingEmbedder{}
	reg := NewRegistry(embedder)

	// All skills get the same vector from the embedder, so every score ties.
	names := []string{"zeta", "alpha", "mid"}
	var defs []Definition
	for _, name := range names {
		defs = append(defs, testDefinition(name, false))
	}
	if err := reg.ScanAndMerge(ctx, defs, false); err != nil {
		t.Fatalf("scan: %v", err)
	}

	got := reg.Retrieve([]float32{1, 0, 0}, 3)
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestActiveSetStableAcrossCalls(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(&countingEmbedder{})

	var defs []Definition
	for i := 0; i < 8; i++ {
		defs = append(defs, testDefinition(fmt.Sprintf("skill_%d", i), i%2 == 0))
	}
	if err := reg.ScanAndMerge(ctx, defs, false); err != nil {
		t.Fatalf("scan: %v", err)
	}
	reg.SetFilter(NewFilter(ModeBasic, []string{"skill_1"}, []string{"skill_2"}))

	first := reg.ActiveSet()
	second := reg.ActiveSet()
	if len(first) != len(second) {
		t.Fatalf("active set changed between calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Fatalf("active set order unstable at %d: %s vs %s", i, first[i].Name, second[i].Name)
		}
	}
}
