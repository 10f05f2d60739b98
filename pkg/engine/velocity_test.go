package engine

import "testing"

func TestYieldSaturation(t *testing.T) {
	tests := []struct {
		name  string
		turns [][3]int // newConcepts, newSurface, newCanonical
		want  float64
	}{
		{"no turns observed", nil, 0},
		{"zero peak is unexplored not saturated", [][3]int{{0, 0, 0}}, 0},
		{"full velocity", [][3]int{{4, 4, 4}}, 0},
		{"half of peak", [][3]int{{4, 4, 0}, {2, 2, 0}}, 0.5},
		{"dried up", [][3]int{{5, 5, 0}, {0, 0, 0}}, 1},
		{"new peak resets ratio", [][3]int{{2, 2, 0}, {6, 6, 0}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVelocityTracker()
			for _, turn := range tt.turns {
				v.ObserveTurn(turn[0], turn[1], turn[2])
			}
			if got := v.YieldSaturation(); !closeEnough(got, tt.want) {
				t.Errorf("YieldSaturation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanonicalSaturation(t *testing.T) {
	tests := []struct {
		name         string
		newSurface   int
		newCanonical int
		want         float64
	}{
		{"zero surface concepts", 0, 3, 0},
		{"every surface concept is novel", 4, 4, 0},
		{"half map to existing slots", 4, 2, 0.5},
		{"all map to existing slots", 4, 0, 1},
		{"canonical exceeding surface clamps", 2, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewVelocityTracker()
			v.ObserveTurn(tt.newSurface, tt.newSurface, tt.newCanonical)
			if got := v.CanonicalSaturation(); !closeEnough(got, tt.want) {
				t.Errorf("CanonicalSaturation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPeakVelocityIsMonotonic(t *testing.T) {
	v := NewVelocityTracker()
	v.ObserveTurn(5, 5, 0)
	v.ObserveTurn(2, 2, 0)
	v.ObserveTurn(3, 3, 0)

	if v.PeakVelocity() != 5 {
		t.Errorf("PeakVelocity() = %d, want 5", v.PeakVelocity())
	}
	if v.LastNewConcepts() != 3 {
		t.Errorf("LastNewConcepts() = %d, want 3", v.LastNewConcepts())
	}
	if v.TurnsObserved() != 3 {
		t.Errorf("TurnsObserved() = %d, want 3", v.TurnsObserved())
	}
}
