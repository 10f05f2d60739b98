package engine

import (
	"testing"

	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/methodology"
)

func TestDetectPhase(t *testing.T) {
	custom := &methodology.PhaseBoundaries{EarlyMaxNodes: 3, MidMaxNodes: 10}

	tests := []struct {
		name       string
		nodeCount  int
		boundaries *methodology.PhaseBoundaries
		want       string
		wantLate   bool
	}{
		{"empty graph uses defaults", 0, nil, methodology.PhaseEarly, false},
		{"default early boundary", 4, nil, methodology.PhaseEarly, false},
		{"default mid", 5, nil, methodology.PhaseMid, false},
		{"default late", 15, nil, methodology.PhaseLate, true},
		{"custom early", 2, custom, methodology.PhaseEarly, false},
		{"custom mid", 3, custom, methodology.PhaseMid, false},
		{"custom late", 10, custom, methodology.PhaseLate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phase := DetectPhase(common.GraphSnapshot{NodeCount: tt.nodeCount}, tt.boundaries)
			if phase.Name != tt.want {
				t.Errorf("phase = %s, want %s", phase.Name, tt.want)
			}
			if phase.IsLateStage != tt.wantLate {
				t.Errorf("IsLateStage = %t, want %t", phase.IsLateStage, tt.wantLate)
			}
		})
	}
}
