// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"fmt"

	"github.com/jllopis/praxis/pkg/errors"
)

func errNotFound(name string) error {
	return errors.New(errors.CodeNotFound, fmt.Sprintf("skill %q not in library", name), nil)
}

// Record is the persisted form of a skill: enough to skip re-embedding on
// restart when the fingerprint is unchanged. Callables are never persisted;
// they are rebound at bootstrap by the environment scanner.
type Record struct {
	Name        string     `json:"name"`
	Fingerprint string     `json:"fingerprint"`
	Description string     `json:"description,omitempty"`
	Embedding   []float32  `json:"embedding,omitempty"`
	Parameters  []ParamSpec `json:"parameters,omitempty"`
	Basic       bool       `json:"basic,omitempty"`
}

// Library is the persisted skill library, keyed by name per environment.
type Library interface {
	// Get returns the record for name, or a NOT_FOUND error.
	Get(ctx context.Context, name string) (Record, error)
	// Load returns every stored record.
	Load(ctx context.Context) ([]Record, error)
	// Upsert inserts or replaces a record.
	Upsert(ctx context.Context, record Record) error
	// Delete removes a record by name. Missing names are not an error.
	Delete(ctx context.Context, name string) error
	// Close releases backend resources.
	Close() error
}

// MemoryLibrary is an in-process Library for tests and library-less runs.
type MemoryLibrary struct {
	records map[string]Record
}

// NewMemoryLibrary creates an empty MemoryLibrary.
func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{records: make(map[string]Record)}
}

func (m *MemoryLibrary) Get(_ context.Context, name string) (Record, error) {
	record, ok := m.records[name]
	if !ok {
		return Record{}, errNotFound(name)
	}
	return record, nil
}

func (m *MemoryLibrary) Load(_ context.Context) ([]Record, error) {
	out := make([]Record, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, record)
	}
	return out, nil
}

func (m *MemoryLibrary) Upsert(_ context.Context, record Record) error {
	m.records[record.Name] = record
	return nil
}

func (m *MemoryLibrary) Delete(_ context.Context, name string) error {
	delete(m.records, name)
	return nil
}

func (m *MemoryLibrary) Close() error { return nil }

var _ Library = (*MemoryLibrary)(nil)
