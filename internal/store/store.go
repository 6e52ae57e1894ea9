// Package store defines the durable persistence contract for task
// records (spec §4.3) and the JSON row shape shared by every backend.
package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/cidxb/rark/internal/task"
)

// Driver is a durable key-value store keyed by task id. Implementations
// MUST make Upsert durable before returning (spec §4.3 ordering
// guarantee: the kernel claims a transition observed externally only
// after the matching Upsert returns).
type Driver interface {
	// Open ensures the schema exists and the backend is ready, in a
	// mode durable across a host crash.
	Open(ctx context.Context) error
	// Close flushes and releases any held resources.
	Close() error
	// Upsert inserts or replaces the record for task.ID.
	Upsert(ctx context.Context, t *task.Task) error
	// LoadAll returns every persisted record.
	LoadAll(ctx context.Context) ([]*task.Task, error)
}

// PGRow is the scan target for a postgres-backed Driver's LoadAll,
// whose driver returns TIMESTAMPTZ columns as time.Time rather than the
// ISO-8601 strings a SQLite-backed Driver deals with.
type PGRow struct {
	ID            string
	Name          string
	Priority      int
	State         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	MetadataJSON  string
	BlockedByJSON string
}

// ToRecordColumns converts a Task into the serialized column values
// every SQL-backed Driver writes (spec §6 persisted schema): metadata
// and blocked_by as JSON text, blocked_by sorted for stable equality.
func ToRecordColumns(t *task.Task) (metadataJSON, blockedByJSON string, err error) {
	metaBytes, err := json.Marshal(t.Metadata)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal metadata")
	}
	ids := t.BlockedByIDs()
	sort.Strings(ids)
	blockedBytes, err := json.Marshal(ids)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal blocked_by")
	}
	return string(metaBytes), string(blockedBytes), nil
}

// FromRecordColumns reconstructs a Task from the serialized columns a
// SQL-backed Driver reads back via LoadAll.
func FromRecordColumns(id, name string, priority int, state string, createdAt, updatedAt time.Time, metadataJSON, blockedByJSON string) (*task.Task, error) {
	t := &task.Task{
		ID:        id,
		Name:      name,
		Priority:  priority,
		State:     task.State(state),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		Metadata:  map[string]any{},
		BlockedBy: map[string]struct{}{},
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &t.Metadata); err != nil {
			return nil, errors.Wrap(err, "unmarshal metadata")
		}
	}
	var ids []string
	if blockedByJSON != "" {
		if err := json.Unmarshal([]byte(blockedByJSON), &ids); err != nil {
			return nil, errors.Wrap(err, "unmarshal blocked_by")
		}
	}
	for _, id := range ids {
		t.BlockedBy[id] = struct{}{}
	}
	return t, nil
}
