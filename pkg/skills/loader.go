// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Spec is a skill definition parsed from a SKILL.md file: YAML frontmatter
// plus a free-form body. Specs declaring steps are composite skills bound to
// an executor via Definition.
type Spec struct {
	Name        string
	Description string
	Basic       bool
	Parameters  []ParamSpec
	Steps       []StepDef
	Body        string
	Path        string
	// Source is the full file content; it is what the fingerprint covers.
	Source string
}

// StepDef is one sub-invocation of a composite skill. String parameter
// values of the form "$name" are substituted from the composite's own
// parameters at invocation time.
type StepDef struct {
	Skill  string         `yaml:"skill"`
	Params map[string]any `yaml:"params"`
}

// StepExecutor dispatches one skill call. *Registry satisfies it.
type StepExecutor interface {
	Execute(ctx context.Context, name string, raw map[string]any) (any, error)
}

const (
	maxNameLen        = 64
	maxDescriptionLen = 1024
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(?:_[a-z0-9]+)*$`)

// LoadDir scans a directory for skill subdirectories containing SKILL.md.
func LoadDir(root string) ([]Spec, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var out []Spec
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		skillPath := filepath.Join(root, entry.Name(), "SKILL.md")
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		spec, err := LoadFile(skillPath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", skillPath, err)
		}
		out = append(out, spec)
	}
	return out, nil
}

// LoadFile parses a single SKILL.md file.
func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	content := string(data)
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return Spec{}, err
	}
	var parsed frontmatter
	if err := yaml.Unmarshal([]byte(fm), &parsed); err != nil {
		return Spec{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	spec := Spec{
		Name:        strings.TrimSpace(parsed.Name),
		Description: strings.TrimSpace(parsed.Description),
		Basic:       parsed.Basic,
		Parameters:  parsed.Parameters,
		Steps:       parsed.Steps,
		Body:        strings.TrimSpace(body),
		Path:        path,
		Source:      content,
	}
	if err := validate(spec); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// Definition turns a composite spec into a registrable Definition whose
// Invoke dispatches its steps through exec in order, halting at the first
// failing step.
func (s Spec) Definition(exec StepExecutor) (Definition, error) {
	if len(s.Steps) == 0 {
		return Definition{}, fmt.Errorf("skill %q declares no steps", s.Name)
	}
	steps := s.Steps
	def := Definition{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  s.Parameters,
		Basic:       s.Basic,
		Composite:   true,
		Source:      s.Source,
		Invoke: func(ctx context.Context, params map[string]any) (any, error) {
			var last any
			for _, step := range steps {
				resolved := resolveStepParams(step.Params, params)
				out, err := exec.Execute(ctx, step.Skill, resolved)
				if err != nil {
					return nil, err
				}
				last = out
			}
			return last, nil
		},
	}
	return def, nil
}

// resolveStepParams substitutes "$name" string values from the composite's
// own parameters.
func resolveStepParams(stepParams, callerParams map[string]any) map[string]any {
	out := make(map[string]any, len(stepParams))
	for key, value := range stepParams {
		if str, ok := value.(string); ok && strings.HasPrefix(str, "$") {
			if resolved, present := callerParams[strings.TrimPrefix(str, "$")]; present {
				out[key] = resolved
				continue
			}
		}
		out[key] = value
	}
	return out
}

type frontmatter struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Basic       bool        `yaml:"basic"`
	Parameters  []ParamSpec `yaml:"parameters"`
	Steps       []StepDef   `yaml:"steps"`
}

func splitFrontmatter(content string) (string, string, error) {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "---") {
		return "", "", stderrors.New("missing frontmatter")
	}
	parts := strings.SplitN(trimmed, "---", 3)
	if len(parts) < 3 {
		return "", "", stderrors.New("invalid frontmatter")
	}
	return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]), nil
}

func validate(spec Spec) error {
	if spec.Name == "" {
		return stderrors.New("name is required")
	}
	if utf8.RuneCountInString(spec.Name) > maxNameLen {
		return fmt.Errorf("name exceeds %d characters", maxNameLen)
	}
	if !namePattern.MatchString(spec.Name) {
		return fmt.Errorf("name must match %s", namePattern.String())
	}
	dirName := filepath.Base(filepath.Dir(spec.Path))
	if dirName != spec.Name {
		return fmt.Errorf("name must match directory name (%s)", dirName)
	}
	if spec.Description == "" {
		return stderrors.New("description is required")
	}
	if utf8.RuneCountInString(spec.Description) > maxDescriptionLen {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLen)
	}
	for _, step := range spec.Steps {
		if strings.TrimSpace(step.Skill) == "" {
			return stderrors.New("step is missing a skill name")
		}
	}
	return nil
}
