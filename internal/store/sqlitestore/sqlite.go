// Package sqlitestore is the default durable backend for the kernel's
// persistence store: a single SQLite file (or ":memory:" for ephemeral
// test stores), grounded on the teacher's store/db/sqlite driver but
// using the pure-Go modernc.org/sqlite driver instead of CGO, so the
// kernel builds portably without a C toolchain.
package sqlitestore

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"

	"github.com/cidxb/rark/internal/store"
	"github.com/cidxb/rark/internal/task"
)

const createTable = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	priority    INTEGER NOT NULL,
	state       TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	metadata    TEXT NOT NULL DEFAULT '{}',
	blocked_by  TEXT NOT NULL DEFAULT '[]'
)`

// Store implements store.Driver over a SQLite file or ":memory:".
type Store struct {
	dsn string
	db  *sql.DB
}

// New returns a Store for dsn. dsn may be ":memory:" for an ephemeral
// store (spec §6 Configuration).
func New(dsn string) *Store {
	return &Store{dsn: dsn}
}

var _ store.Driver = (*Store)(nil)

func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return errors.Wrapf(err, "open sqlite db %q", s.dsn)
	}

	// Single-connection WAL mode: the kernel loop is the only writer and
	// WAL avoids the locking issues of the legacy rollback journal.
	// ":memory:" databases are private per-connection, so force a single
	// connection there too or a second connection would see an empty DB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if s.dsn != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
			return errors.Wrap(err, "set journal_mode")
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000"); err != nil {
		return errors.Wrap(err, "set busy_timeout")
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state      = excluded.state,
			updated_at = excluded.updated_at,
			metadata   = excluded.metadata,
			blocked_by = excluded.blocked_by
	`,
		t.ID, t.Name, t.Priority, string(t.State),
		t.CreatedAt.Format(timeLayout), t.UpdatedAt.Format(timeLayout),
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
		var id, name, state, createdAtStr, updatedAtStr, metadataJSON, blockedByJSON string
		var priority int
		if err := rows.Scan(&id, &name, &priority, &state, &createdAtStr, &updatedAtStr, &metadataJSON, &blockedByJSON); err != nil {
			return nil, errors.Wrap(err, "scan task row")
		}
		createdAt, err := parseTime(createdAtStr)
		if err != nil {
			return nil, errors.Wrapf(err, "parse created_at for %s", id)
		}
		updatedAt, err := parseTime(updatedAtStr)
		if err != nil {
			return nil, errors.Wrapf(err, "parse updated_at for %s", id)
		}
		t, err := store.FromRecordColumns(id, name, priority, state, createdAt, updatedAt, metadataJSON, blockedByJSON)
		if err != nil {
			return nil, errors.Wrapf(err, "decode task %s", id)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate task rows")
	}
	return out, nil
}
