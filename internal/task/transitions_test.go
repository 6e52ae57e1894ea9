package task

import "testing"

func TestApplyTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		to      State
		wantErr bool
	}{
		{"pending to active", StatePending, StateActive, false},
		{"pending to cancelled", StatePending, StateCancelled, false},
		{"pending to completed rejected", StatePending, StateCompleted, true},
		{"active to pending (retry)", StateActive, StatePending, false},
		{"active to paused", StateActive, StatePaused, false},
		{"active to completed", StateActive, StateCompleted, false},
		{"active to failed", StateActive, StateFailed, false},
		{"active to cancelled", StateActive, StateCancelled, false},
		{"paused to active", StatePaused, StateActive, false},
		{"paused to cancelled", StatePaused, StateCancelled, false},
		{"paused to pending rejected", StatePaused, StatePending, true},
		{"completed is terminal", StateCompleted, StateActive, true},
		{"failed is terminal", StateFailed, StatePending, true},
		{"cancelled is terminal", StateCancelled, StateActive, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyTransition(tt.from, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s -> %s, got none", tt.from, tt.to)
				}
				if got != tt.from {
					t.Errorf("rejected transition must leave state unchanged: got %s, want %s", got, tt.from)
				}
				var ite *InvalidTransitionError
				if _, ok := err.(*InvalidTransitionError); !ok {
					t.Errorf("expected *InvalidTransitionError, got %T", err)
				}
				_ = ite
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for %s -> %s: %v", tt.from, tt.to, err)
			}
			if got != tt.to {
				t.Errorf("got %s, want %s", got, tt.to)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []State{StateCompleted, StateFailed, StateCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	nonTerminal := []State{StatePending, StateActive, StatePaused}
	for _, s := range nonTerminal {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
