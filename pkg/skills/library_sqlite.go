// Copyright 2026 © The Praxis Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/jllopis/praxis/pkg/errors"
)

// SQLiteLibrary persists the skill library in SQLite.
type SQLiteLibrary struct {
	db *sql.DB
}

// NewSQLiteLibrary opens (or creates) a SQLite-backed library at path and
// ensures the schema.
func NewSQLiteLibrary(path string) (*SQLiteLibrary, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open skill library: %w", err)
	}
	lib := &SQLiteLibrary{db: db}
	if err := lib.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return lib, nil
}

func (l *SQLiteLibrary) ensureSchema() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS skill_library (
			name        TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			embedding   TEXT NOT NULL DEFAULT '[]',
			parameters  TEXT NOT NULL DEFAULT '[]',
			basic       INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

func (l *SQLiteLibrary) Get(ctx context.Context, name string) (Record, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT name, fingerprint, description, embedding, parameters, basic
		FROM skill_library WHERE name = ?
	`, name)
	record, err := scanRecord(row.Scan)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, errNotFound(name)
	}
	return record, err
}

func (l *SQLiteLibrary) Load(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT name, fingerprint, description, embedding, parameters, basic
		FROM skill_library ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (l *SQLiteLibrary) Upsert(ctx context.Context, record Record) error {
	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return err
	}
	paramsJSON, err := json.Marshal(record.Parameters)
	if err != nil {
		return err
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO skill_library (name, fingerprint, description, embedding, parameters, basic)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			fingerprint = excluded.fingerprint,
			description = excluded.description,
			embedding   = excluded.embedding,
			parameters  = excluded.parameters,
			basic       = excluded.basic
	`, record.Name, record.Fingerprint, record.Description, string(embeddingJSON), string(paramsJSON), boolToInt(record.Basic))
	return err
}

func (l *SQLiteLibrary) Delete(ctx context.Context, name string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM skill_library WHERE name = ?`, name)
	return err
}

func (l *SQLiteLibrary) Close() error {
	return l.db.Close()
}

func scanRecord(scan func(dest ...any) error) (Record, error) {
	var (
		record        Record
		embeddingJSON string
		paramsJSON    string
		basic         int
	)
	if err := scan(&record.Name, &record.Fingerprint, &record.Description, &embeddingJSON, &paramsJSON, &basic); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &record.Embedding); err != nil {
		return Record{}, errors.New(errors.CodeMemoryError, "decode embedding", err)
	}
	if err := json.Unmarshal([]byte(paramsJSON), &record.Parameters); err != nil {
		return Record{}, errors.New(errors.CodeMemoryError, "decode parameters", err)
	}
	record.Basic = basic != 0
	return record, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Library = (*SQLiteLibrary)(nil)
