// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/executor"
	"github.com/jllopis/praxis/pkg/perception"
	"github.com/jllopis/praxis/pkg/provider"
	"github.com/jllopis/praxis/pkg/skills"
)

const (
	systemInfoGathering = `You observe the current screen of the target environment.
Describe everything relevant to acting in it. Respond with JSON:
{"observation": "<what you see>"}`

	systemSelfReflection = `You review the last action's effect against the current observation.
Decide whether the overall task is complete. Respond with JSON:
{"reflection": "<assessment>", "task_complete": <true|false>}`

	systemTaskInference = `You decide the next concrete task toward the overall goal.
Respond with JSON: {"task": "<next task>"}`

	systemSkillCuration = `You phrase a retrieval query describing the capability the next
task needs. Respond with JSON: {"query": "<capability description>"}`

	systemActionPlanning = `You plan the next actions using ONLY the listed skills.
Respond with JSON: {"steps": [{"skill": "<name>", "params": {...}}]}`
)

// infoGathering captures the screen, optionally augments it, and asks the
// provider for a structured observation.
func (o *Orchestrator) infoGathering(ctx context.Context) (map[string]any, error) {
	frame, err := perception.CaptureWithRetry(ctx, o.capturer)
	if err != nil {
		return nil, err
	}
	o.frame = frame

	updates := map[string]any{
		"frame_timestamp": frame.Timestamp,
	}

	var annotations []perception.Annotation
	if o.augmenter != nil {
		annotations, err = o.augmenter.Annotate(ctx, frame)
		if err != nil {
			return nil, errors.New(errors.CodePerception, "augmentation failed", err)
		}
		updates["annotations"] = annotations
	}

	user := o.memoryContext("task", "reflection")
	if len(annotations) > 0 {
		blob, _ := json.Marshal(annotations)
		user += "\nAnnotations: " + string(blob)
	}
	resp, err := o.prov.Complete(ctx, provider.Request{
		Stage:  string(StateInfoGathering),
		System: systemInfoGathering,
		User:   user,
		Images: [][]byte{frame.Image},
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Observation string `json:"observation"`
	}
	if err := provider.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	updates["observation"] = out.Observation
	return updates, nil
}

func (o *Orchestrator) selfReflection(ctx context.Context) (map[string]any, error) {
	resp, err := o.prov.Complete(ctx, provider.Request{
		Stage:  string(StateSelfReflection),
		System: systemSelfReflection,
		User:   o.memoryContext("observation", "task", "last_results"),
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Reflection   string `json:"reflection"`
		TaskComplete bool   `json:"task_complete"`
	}
	if err := provider.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return map[string]any{
		"reflection":    out.Reflection,
		"task_complete": out.TaskComplete,
	}, nil
}

func (o *Orchestrator) taskInference(ctx context.Context) (map[string]any, error) {
	resp, err := o.prov.Complete(ctx, provider.Request{
		Stage:  string(StateTaskInference),
		System: systemTaskInference,
		User:   o.memoryContext("observation", "reflection", "task"),
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Task string `json:"task"`
	}
	if err := provider.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return map[string]any{"task": out.Task}, nil
}

// skillCuration narrows the active set for planning: one provider call to
// phrase the retrieval query, then embedding retrieval over the active set.
func (o *Orchestrator) skillCuration(ctx context.Context) (map[string]any, error) {
	resp, err := o.prov.Complete(ctx, provider.Request{
		Stage:  string(StateSkillCuration),
		System: systemSkillCuration,
		User:   o.memoryContext("task", "observation"),
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Query string `json:"query"`
	}
	if err := provider.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	query := out.Query
	if strings.TrimSpace(query) == "" {
		query, _ = o.mem.GetDefault("task", "").(string)
	}

	vec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.New(errors.CodeProvider, "embed curation query", err).
			WithRecoverable(true)
	}
	o.curated = o.registry.Retrieve(vec, o.cfg.RetrieveK)

	names := make([]string, 0, len(o.curated))
	for _, skill := range o.curated {
		names = append(names, skill.Name)
	}
	return map[string]any{"curated_skills": names}, nil
}

// actionPlanning asks the provider for plan steps over the curated skills
// and validates them into an executable plan. A step naming a skill outside
// the curated set is rejected, not silently dropped.
func (o *Orchestrator) actionPlanning(ctx context.Context) (map[string]any, error) {
	resp, err := o.prov.Complete(ctx, provider.Request{
		Stage:  string(StateActionPlanning),
		System: systemActionPlanning,
		User:   o.memoryContext("task", "observation") + "\nSkills:\n" + describeSkills(o.curated),
	})
	if err != nil {
		return nil, err
	}
	var out struct {
		Steps []executor.Step `json:"steps"`
	}
	if err := provider.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}

	curated := make(map[string]bool, len(o.curated))
	for _, skill := range o.curated {
		curated[skill.Name] = true
	}
	for _, step := range out.Steps {
		if !curated[step.Skill] {
			return nil, errors.New(errors.CodePlanValidation,
				fmt.Sprintf("plan step names skill %q outside the curated set", step.Skill), nil)
		}
	}

	o.plan = executor.NewPlan(out.Steps)
	return map[string]any{"plan": out.Steps}, nil
}

// skillExecution consumes the cycle's plan through the executor. Any failed
// step marks the cycle failed.
func (o *Orchestrator) skillExecution(ctx context.Context) (map[string]any, error) {
	if o.plan == nil {
		return nil, errors.New(errors.CodePlanValidation, "no plan to execute", nil)
	}
	plan := o.plan
	o.plan = nil

	results, err := o.exec.ExecutePlan(ctx, plan)
	summaries := summarize(results)
	o.mem.AppendHistory("actions", summaries)
	updates := map[string]any{"last_results": summaries}
	if err != nil {
		return updates, err
	}
	if executor.Failed(results) {
		return updates, errors.New(errors.CodeSkillExecution, "plan had failing steps", nil).
			WithContext("results", summaries)
	}
	return updates, nil
}

// memoryContext renders selected working-memory keys for a prompt.
func (o *Orchestrator) memoryContext(keys ...string) string {
	var sb strings.Builder
	for _, key := range keys {
		value, err := o.mem.Get(key)
		if err != nil {
			continue
		}
		blob, err := json.Marshal(value)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", key, blob)
	}
	return sb.String()
}

func describeSkills(set []skills.Skill) string {
	var sb strings.Builder
	for _, skill := range set {
		fmt.Fprintf(&sb, "- %s: %s", skill.Name, skill.Description)
		if len(skill.Parameters) > 0 {
			params := make([]string, 0, len(skill.Parameters))
			for _, p := range skill.Parameters {
				params = append(params, p.Name+":"+p.Type)
			}
			fmt.Fprintf(&sb, " (%s)", strings.Join(params, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func summarize(results []executor.StepResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, result := range results {
		entry := map[string]any{
			"skill":    result.Skill,
			"duration": result.Duration.String(),
		}
		if result.Err != nil {
			entry["error"] = result.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}
