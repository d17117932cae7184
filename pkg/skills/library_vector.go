// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jllopis/praxis/pkg/errors"
	"github.com/jllopis/praxis/pkg/vector"
)

// skillNamespace derives deterministic point IDs from skill names so upserts
// replace rather than accumulate.
var skillNamespace = uuid.MustParse("9f2c1a34-5b6d-4e7f-8a90-1b2c3d4e5f60")

// VectorLibrary persists the skill library in a vector store, one point per
// skill with the embedding as the point vector.
type VectorLibrary struct {
	store      vector.VectorStore
	collection string
	vectorSize uint64
}

// NewVectorLibrary creates a VectorLibrary over the given store and ensures
// the collection exists.
func NewVectorLibrary(ctx context.Context, store vector.VectorStore, collection string, vectorSize uint64) (*VectorLibrary, error) {
	if err := store.CreateCollection(ctx, collection, vectorSize); err != nil {
		return nil, errors.New(errors.CodeMemoryError, "create skill collection", err)
	}
	return &VectorLibrary{store: store, collection: collection, vectorSize: vectorSize}, nil
}

func pointID(name string) string {
	return uuid.NewSHA1(skillNamespace, []byte(name)).String()
}

func (l *VectorLibrary) Get(ctx context.Context, name string) (Record, error) {
	points, err := l.store.Scroll(ctx, l.collection, 0)
	if err != nil {
		return Record{}, errors.New(errors.CodeMemoryError, "scroll skill collection", err)
	}
	for _, point := range points {
		record, err := recordFromPoint(point)
		if err != nil {
			continue
		}
		if record.Name == name {
			return record, nil
		}
	}
	return Record{}, errNotFound(name)
}

func (l *VectorLibrary) Load(ctx context.Context) ([]Record, error) {
	points, err := l.store.Scroll(ctx, l.collection, 0)
	if err != nil {
		return nil, errors.New(errors.CodeMemoryError, "scroll skill collection", err)
	}
	records := make([]Record, 0, len(points))
	for _, point := range points {
		record, err := recordFromPoint(point)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (l *VectorLibrary) Upsert(ctx context.Context, record Record) error {
	paramsJSON, err := json.Marshal(record.Parameters)
	if err != nil {
		return err
	}
	point := vector.Point{
		ID:     pointID(record.Name),
		Vector: record.Embedding,
		Payload: map[string]interface{}{
			"name":        record.Name,
			"fingerprint": record.Fingerprint,
			"description": record.Description,
			"parameters":  string(paramsJSON),
			"basic":       record.Basic,
		},
	}
	if err := l.store.Upsert(ctx, l.collection, []vector.Point{point}); err != nil {
		return errors.New(errors.CodeMemoryError, "upsert skill point", err)
	}
	return nil
}

func (l *VectorLibrary) Delete(ctx context.Context, name string) error {
	if err := l.store.Delete(ctx, l.collection, []string{pointID(name)}); err != nil {
		return errors.New(errors.CodeMemoryError, "delete skill point", err)
	}
	return nil
}

func (l *VectorLibrary) Close() error { return nil }

func recordFromPoint(point vector.Point) (Record, error) {
	record := Record{Embedding: point.Vector}
	if name, ok := point.Payload["name"].(string); ok {
		record.Name = name
	}
	if fingerprint, ok := point.Payload["fingerprint"].(string); ok {
		record.Fingerprint = fingerprint
	}
	if description, ok := point.Payload["description"].(string); ok {
		record.Description = description
	}
	if basic, ok := point.Payload["basic"].(bool); ok {
		record.Basic = basic
	}
	if paramsJSON, ok := point.Payload["parameters"].(string); ok && paramsJSON != "" {
		if err := json.Unmarshal([]byte(paramsJSON), &record.Parameters); err != nil {
			return Record{}, errors.New(errors.CodeMemoryError, "decode skill parameters", err)
		}
	}
	if record.Name == "" {
		return Record{}, errors.New(errors.CodeMemoryError, "skill point missing name payload", nil)
	}
	return record, nil
}

var _ Library = (*VectorLibrary)(nil)
