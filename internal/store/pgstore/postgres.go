// Package pgstore is the alternate durable backend for operators who
// need the persistence store to survive host replacement, not just a
// process crash on the same host (spec §4.3 only requires the latter;
// this is the domain-stack expansion beyond the Python original's
// single SQLite backend).
package pgstore

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/cidxb/rark/internal/store"
	"github.com/cidxb/rark/internal/task"
)

const createTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	priority    INTEGER NOT NULL,
	state       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	blocked_by  TEXT NOT NULL DEFAULT '[]'
)`

// Store implements store.Driver over a PostgreSQL connection string.
type Store struct {
	dsn string
	db  *sql.DB
}

// New returns a Store for the given libpq connection string.
func New(dsn string) *Store {
	return &Store{dsn: dsn}
}

var _ store.Driver = (*Store)(nil)

func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return errors.Wrap(err, "open postgres connection")
	}
	if err := db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "ping postgres")
	}
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return errors.Wrap(err, "create tasks table")
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Upsert(ctx context.Context, t *task.Task) error {
	metadataJSON, blockedByJSON, err := store.ToRecordColumns(t)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, name, priority, state, created_at, updated_at, metadata, blocked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT(id) DO UPDATE SET
			state      = excluded.state,
			updated_at = excluded.updated_at,
			metadata   = excluded.metadata,
			blocked_by = excluded.blocked_by
	`,
		t.ID, t.Name, t.Priority, string(t.State), t.CreatedAt, t.UpdatedAt,
		metadataJSON, blockedByJSON,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert task %s", t.ID)
	}
	return nil
}

func (s *Store) LoadAll(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, priority, state, created_at, updated_at, metadata, blocked_by FROM tasks")
	if err != nil {
		return nil, errors.Wrap(err, "load all tasks")
	}
	defer rows.Close()

	var out []*task.Task
	for rows.Next() {
		var rec store.PGRow
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Priority, &rec.State, &rec.CreatedAt, &rec.UpdatedAt, &rec.MetadataJSON, &rec.BlockedByJSON); err != nil {
			return nil, errors.Wrap(err, "scan task row")
		}
		t, err := store.FromRecordColumns(rec.ID, rec.Name, rec.Priority, rec.State, rec.CreatedAt, rec.UpdatedAt, rec.MetadataJSON, rec.BlockedByJSON)
		if err != nil {
			return nil, errors.Wrapf(err, "decode task %s", rec.ID)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate task rows")
	}
	return out, nil
}
