package engine

import (
	"errors"
	"testing"

	"github.com/delve-hq/delve/backend/pkg/common"
)

func TestRegisterIsIdempotent(t *testing.T) {
	tracker := NewNodeStateTracker()
	concept := common.Concept{ID: "c1", Label: "price", Type: "attribute"}

	first := tracker.Register(concept, 1)
	second := tracker.Register(concept, 4)

	if first != second {
		t.Fatalf("Register returned a new state on re-registration")
	}
	if first.RegisteredAt != 1 {
		t.Errorf("RegisteredAt = %d, want 1 (first registration wins)", first.RegisteredAt)
	}
	if tracker.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tracker.Len())
	}
}

func TestUnregisteredConceptIsContractViolation(t *testing.T) {
	tracker := NewNodeStateTracker()

	tests := []struct {
		name string
		call func() error
	}{
		{"update focus", func() error { return tracker.UpdateFocus("ghost", 1, "deepen") }},
		{"record yield", func() error { return tracker.RecordYield("ghost", 1, "") }},
		{"append response signal", func() error { return tracker.AppendResponseSignal("ghost", 3) }},
		{"update edge counts", func() error { return tracker.UpdateEdgeCounts("ghost", 1, 0) }},
		{"connect", func() error { return tracker.Connect("ghost", "ghost") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if err == nil {
				t.Fatalf("expected error for unregistered concept, got nil")
			}
			var violation *ContractViolation
			if !errors.As(err, &violation) {
				t.Fatalf("error = %v, want ContractViolation", err)
			}
		})
	}
}

func TestFocusStreakTracking(t *testing.T) {
	tracker := NewNodeStateTracker()
	a := tracker.Register(common.Concept{ID: "a"}, 1)
	b := tracker.Register(common.Concept{ID: "b"}, 1)

	if err := tracker.UpdateFocus("a", 1, "deepen"); err != nil {
		t.Fatal(err)
	}
	if err := tracker.UpdateFocus("a", 2, "deepen"); err != nil {
		t.Fatal(err)
	}
	if a.CurrentFocusStreak != 2 {
		t.Errorf("streak after two focuses = %d, want 2", a.CurrentFocusStreak)
	}
	if a.ConsecutiveSameStrategy != 2 {
		t.Errorf("consecutive same strategy = %d, want 2", a.ConsecutiveSameStrategy)
	}

	// Moving the focus resets the new target's streak to 1.
	if err := tracker.UpdateFocus("b", 3, "clarify"); err != nil {
		t.Fatal(err)
	}
	if b.CurrentFocusStreak != 1 {
		t.Errorf("streak after focus change = %d, want 1", b.CurrentFocusStreak)
	}

	// Returning to a resets its streak to 1 as well.
	if err := tracker.UpdateFocus("a", 4, "deepen"); err != nil {
		t.Fatal(err)
	}
	if a.CurrentFocusStreak != 1 {
		t.Errorf("streak after returning = %d, want 1", a.CurrentFocusStreak)
	}
}

func TestRecordYieldResetsStreak(t *testing.T) {
	tracker := NewNodeStateTracker()
	state := tracker.Register(common.Concept{ID: "a"}, 1)

	_ = tracker.UpdateFocus("a", 1, "deepen")
	_ = tracker.UpdateFocus("a", 2, "deepen")
	tracker.AdvanceTurn()
	tracker.AdvanceTurn()

	if err := tracker.RecordYield("a", 3, "2 new concepts"); err != nil {
		t.Fatal(err)
	}
	if state.CurrentFocusStreak != 0 {
		t.Errorf("streak after yield = %d, want 0", state.CurrentFocusStreak)
	}
	if state.TurnsSinceLastYield != 0 {
		t.Errorf("turns since last yield = %d, want 0", state.TurnsSinceLastYield)
	}
	if state.YieldCount != 1 {
		t.Errorf("yield count = %d, want 1", state.YieldCount)
	}
}

func TestDepthHistoryIsBounded(t *testing.T) {
	tracker := NewNodeStateTracker()
	state := tracker.Register(common.Concept{ID: "a"}, 1)

	for i := 0; i < depthHistorySize+3; i++ {
		if err := tracker.AppendResponseSignal("a", float64(i)); err != nil {
			t.Fatal(err)
		}
	}
	if len(state.DepthHistory) != depthHistorySize {
		t.Fatalf("history length = %d, want %d", len(state.DepthHistory), depthHistorySize)
	}
	if state.DepthHistory[len(state.DepthHistory)-1] != float64(depthHistorySize+2) {
		t.Errorf("history did not keep the newest values: %v", state.DepthHistory)
	}
}

func TestOrphanInvariant(t *testing.T) {
	tracker := NewNodeStateTracker()
	state := tracker.Register(common.Concept{ID: "a"}, 1)
	_ = tracker.Register(common.Concept{ID: "b"}, 1)

	if !state.IsOrphan() {
		t.Errorf("concept with no edges should be an orphan")
	}

	if err := tracker.Connect("a", "b"); err != nil {
		t.Fatal(err)
	}
	if state.IsOrphan() {
		t.Errorf("concept with an outgoing edge is not an orphan")
	}
	if state.Degree() != 1 {
		t.Errorf("degree = %d, want 1", state.Degree())
	}
}

func TestShallowRatio(t *testing.T) {
	tests := []struct {
		name   string
		depths []float64
		window int
		want   float64
	}{
		{"empty history", nil, 3, 0},
		{"all shallow", []float64{1, 2, 2}, 3, 1},
		{"mixed window", []float64{5, 5, 1, 2, 4}, 3, 2.0 / 3.0},
		{"window larger than history", []float64{1}, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &NodeState{DepthHistory: tt.depths}
			got := state.ShallowRatio(tt.window)
			if !closeEnough(got, tt.want) {
				t.Errorf("ShallowRatio(%d) = %v, want %v", tt.window, got, tt.want)
			}
		})
	}
}

func closeEnough(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}
