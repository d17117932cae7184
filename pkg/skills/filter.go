// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"path"
	"strings"
)

// Mode is the coarse skill filter applied before allow/deny refinement.
type Mode string

const (
	// ModeNone selects no skills.
	ModeNone Mode = "none"
	// ModeBasic selects only skills marked basic.
	ModeBasic Mode = "basic"
	// ModeFull selects every registered skill.
	ModeFull Mode = "full"
)

// Filter computes the active set from a mode plus allow/deny name lists.
// Evaluation is deterministic and order-independent: the active set is
// (mode selection) ∪ allow, minus deny. Deny always wins.
type Filter struct {
	mode  Mode
	allow map[string]bool
	deny  map[string]bool
}

// NewFilter creates a Filter. Entries in allow and deny may be exact names
// or glob patterns (e.g. "move_*").
func NewFilter(mode Mode, allow, deny []string) *Filter {
	f := &Filter{
		mode:  mode,
		allow: make(map[string]bool),
		deny:  make(map[string]bool),
	}
	for _, name := range allow {
		name = strings.TrimSpace(name)
		if name != "" {
			f.allow[name] = true
		}
	}
	for _, name := range deny {
		name = strings.TrimSpace(name)
		if name != "" {
			f.deny[name] = true
		}
	}
	return f
}

// Mode returns the filter's mode.
func (f *Filter) Mode() Mode { return f.mode }

// Admits reports whether the skill passes the filter.
func (f *Filter) Admits(s Skill) bool {
	// Deny takes precedence over both mode and allow.
	if matchesList(s.Name, f.deny) {
		return false
	}
	if matchesList(s.Name, f.allow) {
		return true
	}
	switch f.mode {
	case ModeFull:
		return true
	case ModeBasic:
		return s.Basic
	default:
		return false
	}
}

// matchesList checks name against exact entries and glob patterns.
func matchesList(name string, list map[string]bool) bool {
	if list[name] {
		return true
	}
	for pattern := range list {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
