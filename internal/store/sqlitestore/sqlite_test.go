package sqlitestore

import (
	"context"
	"testing"

	"github.com/cidxb/rark/internal/task"
)

func TestUpsertAndLoadAllRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(":memory:")
	if err := s.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	tk := task.New("pour_water", 3)
	tk.Metadata["stage"] = "fill"
	tk.BlockedBy["dep-1"] = struct{}{}

	if err := s.Upsert(ctx, tk); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 task, got %d", len(all))
	}
	got := all[0]
	if got.ID != tk.ID || got.Name != tk.Name || got.Priority != tk.Priority || got.State != tk.State {
		t.Fatalf("round-tripped task mismatch: %+v vs %+v", got, tk)
	}
	if got.Metadata["stage"] != "fill" {
		t.Fatalf("metadata not round-tripped: %+v", got.Metadata)
	}
	if _, ok := got.BlockedBy["dep-1"]; !ok {
		t.Fatalf("blocked_by not round-tripped: %+v", got.BlockedBy)
	}
}

func TestUpsertIsIdempotentForFinalState(t *testing.T) {
	ctx := context.Background()
	s := New(":memory:")
	if err := s.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	tk := task.New("pour_water", 3)
	tk.Transition(task.StateActive)
	if err := s.Upsert(ctx, tk); err != nil {
		t.Fatalf("upsert 1: %v", err)
	}
	tk.Transition(task.StateCompleted)
	if err := s.Upsert(ctx, tk); err != nil {
		t.Fatalf("upsert 2: %v", err)
	}
	if err := s.Upsert(ctx, tk); err != nil {
		t.Fatalf("upsert 3 (repeat of same final state): %v", err)
	}

	all, err := s.LoadAll(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(all) != 1 || all[0].State != task.StateCompleted {
		t.Fatalf("expected single completed record, got %+v", all)
	}
}
