// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/jllopis/praxis/pkg/embedding"
	"github.com/jllopis/praxis/pkg/errors"
)

// Registry is the owned skill catalog. It is constructed explicitly per
// environment and passed to the orchestrator; there is no ambient global.
//
// All mutation paths upsert atomically under one lock, so embedding
// regeneration for a name never races a live invocation of that name.
type Registry struct {
	mu       sync.RWMutex
	skills   map[string]Skill
	filter   *Filter
	embedder embedding.Embedder
	library  Library
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLibrary attaches a persisted skill library. Previously computed
// fingerprints and embeddings are reloaded from it so unchanged skills are
// never re-embedded.
func WithLibrary(lib Library) RegistryOption {
	return func(r *Registry) { r.library = lib }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates a Registry using the given embedder.
func NewRegistry(embedder embedding.Embedder, opts ...RegistryOption) *Registry {
	r := &Registry{
		skills:   make(map[string]Skill),
		filter:   NewFilter(ModeFull, nil, nil),
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetFilter replaces the active filter. The orchestrator calls this at most
// once per cycle, before curation, so the active set used for retrieval and
// the one used for execution are always the same within a cycle.
func (r *Registry) SetFilter(f *Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filter = f
}

// Get returns the named skill.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// Names returns every registered skill name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveSet returns the skills admitted by the current filter, sorted by
// name for determinism.
func (r *Registry) ActiveSet() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeSetLocked()
}

func (r *Registry) activeSetLocked() []Skill {
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		if r.filter.Admits(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Retrieve ranks the active set by cosine similarity to the query embedding
// and returns at most k skills. Ties break by lexical name order.
func (r *Registry) Retrieve(queryEmbedding []float32, k int) []Skill {
	active := r.ActiveSet()
	type scored struct {
		skill Skill
		score float64
	}
	ranked := make([]scored, 0, len(active))
	for _, s := range active {
		ranked = append(ranked, scored{skill: s, score: embedding.Cosine(queryEmbedding, s.Embedding)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].skill.Name < ranked[j].skill.Name
	})
	if k > len(ranked) {
		k = len(ranked)
	}
	if k < 0 {
		k = 0
	}
	out := make([]Skill, 0, k)
	for _, entry := range ranked[:k] {
		out = append(out, entry.skill)
	}
	return out
}

// Execute dispatches the named skill with the given raw parameters. The
// callable is never invoked for a name outside the active set, and a panic
// inside the callable is captured and re-signaled, never propagated.
func (r *Registry) Execute(ctx context.Context, name string, raw map[string]any) (result any, err error) {
	r.mu.RLock()
	skill, exists := r.skills[name]
	admitted := exists && r.filter.Admits(skill)
	r.mu.RUnlock()

	if !admitted {
		return nil, errors.New(errors.CodeSkillNotAvailable,
			fmt.Sprintf("skill %q is not in the active set", name), nil)
	}

	params, err := coerceParams(skill.Parameters, raw)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = errors.New(errors.CodeSkillExecution,
				fmt.Sprintf("skill %q panicked: %v", name, rec), nil)
		}
	}()

	out, invokeErr := skill.Invoke(ctx, params)
	if invokeErr != nil {
		if errors.HasCode(invokeErr, errors.CodeSkillExecution) {
			return nil, invokeErr
		}
		return nil, errors.New(errors.CodeSkillExecution,
			fmt.Sprintf("skill %q failed", name), invokeErr)
	}
	return out, nil
}

// ScanAndMerge merges raw definitions from a scan into the registry. An
// unchanged fingerprint reuses the stored embedding; a changed or new one is
// embedded fresh and persisted. Skills absent from the scan are kept unless
// prune is set.
func (r *Registry) ScanAndMerge(ctx context.Context, defs []Definition, prune bool) error {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		seen[def.Name] = true
		if err := r.upsert(ctx, def); err != nil {
			return err
		}
	}
	if !prune {
		return nil
	}
	r.mu.Lock()
	var pruned []string
	for name := range r.skills {
		if !seen[name] {
			delete(r.skills, name)
			pruned = append(pruned, name)
		}
	}
	r.mu.Unlock()
	for _, name := range pruned {
		if r.library != nil {
			if err := r.library.Delete(ctx, name); err != nil {
				r.logger.Warn("skills.prune.library.error",
					slog.String("skill", name), slog.String("error", err.Error()))
			}
		}
		r.logger.Info("skills.pruned", slog.String("skill", name))
	}
	return nil
}

// RegisterFromCode registers a skill synthesized at runtime. It fails with
// NAME_COLLISION when the name exists with a different fingerprint and
// replace is false. The insert is atomic: no partially registered skill is
// ever visible.
func (r *Registry) RegisterFromCode(ctx context.Context, def Definition, replace bool) error {
	fingerprint := Fingerprint(def.Source)
	r.mu.RLock()
	existing, exists := r.skills[def.Name]
	r.mu.RUnlock()
	if exists && existing.Fingerprint != fingerprint && !replace {
		return errors.New(errors.CodeNameCollision,
			fmt.Sprintf("skill %q already registered with a different fingerprint", def.Name), nil)
	}
	def.Composite = true
	return r.upsert(ctx, def)
}

// Remove deletes a skill by explicit administrative action. Skills are never
// removed implicitly.
func (r *Registry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	_, exists := r.skills[name]
	delete(r.skills, name)
	r.mu.Unlock()
	if !exists {
		return errors.New(errors.CodeNotFound, fmt.Sprintf("skill %q not registered", name), nil)
	}
	if r.library != nil {
		return r.library.Delete(ctx, name)
	}
	return nil
}

// upsert fingerprints the definition, resolves its embedding, and installs
// the finished skill in one atomic step.
func (r *Registry) upsert(ctx context.Context, def Definition) error {
	fingerprint := Fingerprint(def.Source)
	skill := Skill{
		Name:        def.Name,
		Description: def.Description,
		Parameters:  def.Parameters,
		Fingerprint: fingerprint,
		Basic:       def.Basic,
		Composite:   def.Composite,
		Source:      def.Source,
		Invoke:      def.Invoke,
	}

	vec, err := r.resolveEmbedding(ctx, skill)
	if err != nil {
		return err
	}
	skill.Embedding = vec

	r.mu.Lock()
	r.skills[skill.Name] = skill
	r.mu.Unlock()

	if r.library != nil {
		record := Record{
			Name:        skill.Name,
			Fingerprint: skill.Fingerprint,
			Embedding:   skill.Embedding,
			Parameters:  skill.Parameters,
			Description: skill.Description,
			Basic:       skill.Basic,
		}
		if err := r.library.Upsert(ctx, record); err != nil {
			return errors.New(errors.CodeMemoryError,
				fmt.Sprintf("persist skill %q", skill.Name), err)
		}
	}
	return nil
}

// resolveEmbedding reuses a stored embedding when the fingerprint is
// unchanged, in memory first and then in the persisted library.
func (r *Registry) resolveEmbedding(ctx context.Context, skill Skill) ([]float32, error) {
	r.mu.RLock()
	existing, exists := r.skills[skill.Name]
	r.mu.RUnlock()
	if exists && existing.Fingerprint == skill.Fingerprint && len(existing.Embedding) > 0 {
		return existing.Embedding, nil
	}

	if r.library != nil {
		record, err := r.library.Get(ctx, skill.Name)
		if err == nil && record.Fingerprint == skill.Fingerprint && len(record.Embedding) > 0 {
			r.logger.Debug("skills.embedding.reused", slog.String("skill", skill.Name))
			return record.Embedding, nil
		}
	}

	vec, err := r.embedder.Embed(ctx, skill.EmbedText())
	if err != nil {
		return nil, errors.New(errors.CodeProvider,
			fmt.Sprintf("embed skill %q", skill.Name), err).WithRecoverable(true)
	}
	r.logger.Debug("skills.embedding.computed", slog.String("skill", skill.Name))
	return vec, nil
}
