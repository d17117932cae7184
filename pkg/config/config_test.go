package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
	if cfg.Agent.FailureLimit != 3 {
		t.Fatalf("unexpected failure limit: %d", cfg.Agent.FailureLimit)
	}
	if cfg.Agent.PostActionDelay != 500*time.Millisecond {
		t.Fatalf("unexpected post action delay: %v", cfg.Agent.PostActionDelay)
	}
	if cfg.Skills.Mode != "full" {
		t.Fatalf("unexpected skills mode: %s", cfg.Skills.Mode)
	}
	if cfg.Library.Backend != "sqlite" {
		t.Fatalf("unexpected library backend: %s", cfg.Library.Backend)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "praxis.yaml")
	content := `
log:
  level: debug
skills:
  mode: basic
  basic: [click_at_position, type_text]
  deny: [use_item]
agent:
  real_time: true
  failure_limit: 5
  hold_expiry: 8
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("file override not applied: %s", cfg.Log.Level)
	}
	if cfg.Skills.Mode != "basic" {
		t.Fatalf("skills mode not applied: %s", cfg.Skills.Mode)
	}
	if len(cfg.Skills.Basic) != 2 || cfg.Skills.Basic[0] != "click_at_position" {
		t.Fatalf("basic list not applied: %v", cfg.Skills.Basic)
	}
	if !cfg.Agent.RealTime {
		t.Fatal("real_time not applied")
	}
	if cfg.Agent.FailureLimit != 5 {
		t.Fatalf("failure limit not applied: %d", cfg.Agent.FailureLimit)
	}
	if cfg.Agent.HoldExpiry != 8 {
		t.Fatalf("hold expiry not applied: %d", cfg.Agent.HoldExpiry)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("PRAXIS_LOG_LEVEL", "error")
	t.Setenv("PRAXIS_SKILLS_MODE", "none")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Fatalf("env override not applied: %s", cfg.Log.Level)
	}
	if cfg.Skills.Mode != "none" {
		t.Fatalf("env override not applied: %s", cfg.Skills.Mode)
	}
}
