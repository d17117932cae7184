// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

// Package skills implements the skill registry: the catalog of primitive and
// composite actions the agent may invoke, with fingerprinting, mode-based
// filtering, and embedding retrieval.
package skills

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// InvokeFunc is the callable behind a skill. Parameters arrive already
// validated and coerced against the skill's declared schema.
type InvokeFunc func(ctx context.Context, params map[string]any) (any, error)

// ParamSpec declares one parameter of a skill.
type ParamSpec struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string   `json:"type" yaml:"type"`
	Required    bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Enum        []string `json:"enum,omitempty" yaml:"enum,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
}

// Skill is a named, invocable capability.
type Skill struct {
	Name        string
	Description string
	Parameters  []ParamSpec
	// Fingerprint is the hash of the skill's defining source. It gates
	// re-embedding: an unchanged fingerprint reuses the stored embedding.
	Fingerprint string
	Embedding   []float32
	// Basic marks the skill as eligible under ModeBasic.
	Basic bool
	// Composite marks a skill synthesized from other skills.
	Composite bool
	// Source is the defining text the fingerprint was computed from.
	Source string
	Invoke InvokeFunc
}

// EmbedText returns the text a skill's embedding is computed from.
func (s Skill) EmbedText() string {
	return s.Name + ": " + s.Description
}

// Fingerprint hashes a skill's defining source text.
func Fingerprint(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Definition is a raw skill definition as produced by a scanner, before
// fingerprinting and embedding.
type Definition struct {
	Name        string
	Description string
	Parameters  []ParamSpec
	Basic       bool
	Composite   bool
	Source      string
	Invoke      InvokeFunc
}
