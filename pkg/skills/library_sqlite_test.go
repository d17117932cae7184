// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jllopis/praxis/pkg/errors"
)

func TestSQLiteLibraryRoundTrip(t *testing.T) {
	ctx := context.Background()
	lib, err := NewSQLiteLibrary(filepath.Join(t.TempDir(), "skills.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer lib.Close()

	record := Record{
		Name:        "move_mouse",
		Fingerprint: Fingerprint("move source"),
		Description: "moves the mouse",
		Embedding:   []float32{0.1, 0.2, 0.3},
		Parameters: []ParamSpec{
			{Name: "x", Type: "float", Required: true},
			{Name: "y", Type: "float", Required: true},
		},
		Basic: true,
	}
	if err := lib.Upsert(ctx, record); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := lib.Get(ctx, "move_mouse")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Fingerprint != record.Fingerprint || !got.Basic {
		t.Fatalf("record mismatch: %+v", got)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != 0.2 {
		t.Fatalf("embedding mismatch: %v", got.Embedding)
	}
	if len(got.Parameters) != 2 || got.Parameters[0].Name != "x" {
		t.Fatalf("parameters mismatch: %+v", got.Parameters)
	}

	// Upsert replaces in place.
	record.Fingerprint = Fingerprint("changed source")
	if err := lib.Upsert(ctx, record); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	all, err := lib.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert duplicated the record: %d rows", len(all))
	}
	if all[0].Fingerprint != record.Fingerprint {
		t.Fatal("upsert did not replace the fingerprint")
	}

	if err := lib.Delete(ctx, "move_mouse"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := lib.Get(ctx, "move_mouse"); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND after delete, got %v", err)
	}
}

func TestSQLiteLibraryGetMissing(t *testing.T) {
	lib, err := NewSQLiteLibrary(filepath.Join(t.TempDir(), "skills.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer lib.Close()

	if _, err := lib.Get(context.Background(), "ghost"); !errors.HasCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
