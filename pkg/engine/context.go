package engine

import (
	"github.com/delve-hq/delve/backend/pkg/common"
)

// TurnContext is the immutable input of one selection pass: everything the
// detectors and scorers may read. It is assembled by the turn pipeline after
// analysis and graph update have completed; the engine only reads it.
type TurnContext struct {
	Session      *common.Session
	Graph        common.GraphSnapshot
	ResponseText string

	// Analysis carries the per-response quality values from the LLM
	// analyzer. It must be present before strategy selection runs.
	Analysis *common.ResponseAnalysis

	Tracker  *NodeStateTracker
	Velocity *VelocityTracker

	// CanonicalEnabled reports whether the secondary canonical slot layer is
	// active for this session's methodology.
	CanonicalEnabled bool
}

// validate checks that every upstream pipeline output the engine depends on
// is present. A missing piece is a ContractViolation naming the stage.
func (tc *TurnContext) validate() error {
	const stage = "strategy selection"
	switch {
	case tc.Session == nil:
		return &ContractViolation{Stage: stage, Missing: "session"}
	case tc.Analysis == nil:
		return &ContractViolation{Stage: stage, Missing: "response analysis (analyzer stage did not run)"}
	case tc.Tracker == nil:
		return &ContractViolation{Stage: stage, Missing: "node state tracker (graph update stage did not run)"}
	case tc.Velocity == nil:
		return &ContractViolation{Stage: stage, Missing: "velocity tracker (graph update stage did not run)"}
	}
	return nil
}
