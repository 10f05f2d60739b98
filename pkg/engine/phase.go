package engine

import (
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/methodology"
)

// Built-in fallback boundaries used when a methodology declares no
// phase_boundaries section. Absent boundaries are a valid default, not a
// configuration error.
const (
	defaultEarlyMaxNodes = 5
	defaultMidMaxNodes   = 15
)

// Phase is the detected interview phase for one turn.
type Phase struct {
	Name        string
	IsLateStage bool
}

// DetectPhase classifies the session into early/mid/late from the graph
// snapshot's node count. The classification is deterministic: same snapshot
// and boundaries, same phase.
func DetectPhase(snapshot common.GraphSnapshot, boundaries *methodology.PhaseBoundaries) Phase {
	earlyMax := defaultEarlyMaxNodes
	midMax := defaultMidMaxNodes
	if boundaries != nil {
		earlyMax = boundaries.EarlyMaxNodes
		midMax = boundaries.MidMaxNodes
	}

	switch {
	case snapshot.NodeCount < earlyMax:
		return Phase{Name: methodology.PhaseEarly}
	case snapshot.NodeCount < midMax:
		return Phase{Name: methodology.PhaseMid}
	default:
		return Phase{Name: methodology.PhaseLate, IsLateStage: true}
	}
}
