// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"testing"

	"github.com/jllopis/praxis/pkg/config"
	"github.com/jllopis/praxis/pkg/executor"
	"github.com/jllopis/praxis/pkg/target"
)

type staticEmbedder struct{}

func (staticEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Library: config.LibraryConfig{Backend: "memory"},
		Skills:  config.SkillsConfig{Mode: "full"},
		Agent:   config.AgentConfig{HoldExpiry: 2},
	}
}

func TestBootstrappedHoldsAreTracked(t *testing.T) {
	ctx := context.Background()
	journal := target.NewJournal()
	tracker := executor.NewTracker(journal, 2, nil)

	registry, library, err := buildRegistry(ctx, testConfig(), tracker, staticEmbedder{})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	defer library.Close()

	// A hold dispatched through a bootstrapped primitive must be visible to
	// the tracker, or sweep expiry and teardown release can never reach it.
	if _, err := registry.Execute(ctx, "hold_key", map[string]any{"key": "w"}); err != nil {
		t.Fatalf("hold_key: %v", err)
	}
	held := tracker.Held()
	if len(held) != 1 || held[0].Input != "w" {
		t.Fatalf("hold bypassed the tracker: held=%+v ops=%v", held, journal.Ops())
	}

	// And the sweep force-releases it at expiry.
	tracker.Sweep(ctx)
	tracker.Sweep(ctx)
	if held := tracker.Held(); len(held) != 0 {
		t.Fatalf("hold survived expiry: %+v", held)
	}
	ops := journal.Ops()
	if ops[len(ops)-1] != "release(w)" {
		t.Fatalf("expected forced release, ops=%v", ops)
	}
}

func TestBootstrapAppliesFilterFromConfig(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Skills.Mode = "none"
	cfg.Skills.Allow = []string{"type_text"}

	tracker := executor.NewTracker(target.NewJournal(), 2, nil)
	registry, library, err := buildRegistry(ctx, cfg, tracker, staticEmbedder{})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	defer library.Close()

	active := registry.ActiveSet()
	if len(active) != 1 || active[0].Name != "type_text" {
		t.Fatalf("configured filter not applied: %+v", active)
	}
}
