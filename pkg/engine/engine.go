package engine

import (
	"github.com/delve-hq/delve/backend/pkg/logger"
	"github.com/delve-hq/delve/backend/pkg/methodology"
)

// Engine runs the two-stage selection pipeline for one methodology: signal
// detection, phase classification, strategy scoring, then conditional node
// scoring. It holds no per-session state; everything mutable arrives through
// the TurnContext, so one Engine instance serves any number of concurrent
// sessions.
type Engine struct {
	meth     *methodology.Methodology
	registry *DetectorRegistry
}

// Selection is the engine's per-turn output: the winning strategy, the
// optional focus concept, and the complete score decomposition for both
// stages. The decomposition here is the sole audit source; inspection tools
// must read it instead of recomputing from raw signals.
type Selection struct {
	Strategy  string `json:"strategy"`
	ConceptID string `json:"concept_id,omitempty"`
	HasFocus  bool   `json:"has_focus"`

	Phase      Phase             `json:"phase"`
	Signals    *SignalSet        `json:"-"`
	Strategies []ScoredCandidate `json:"strategies"`
	Concepts   []ScoredCandidate `json:"concepts,omitempty"`
}

// New creates an engine for the given methodology and detector registry.
func New(meth *methodology.Methodology, registry *DetectorRegistry) (*Engine, error) {
	if meth == nil {
		return nil, methodology.NewConfigurationError("engine created without a methodology")
	}
	if len(meth.Strategies) == 0 {
		return nil, methodology.NewConfigurationError("methodology %q declares no strategies", meth.ID)
	}
	if registry == nil {
		return nil, methodology.NewConfigurationError("engine created without a detector registry")
	}
	return &Engine{meth: meth, registry: registry}, nil
}

// Methodology returns the methodology this engine scores against.
func (e *Engine) Methodology() *methodology.Methodology {
	return e.meth
}

// SelectStrategy executes one selection pass over the turn context. It is a
// pure function of the context: no internal state is read or written, and
// any failure aborts the turn rather than degrading to a default choice.
func (e *Engine) SelectStrategy(tc *TurnContext) (*Selection, error) {
	if err := tc.validate(); err != nil {
		return nil, err
	}

	phase := DetectPhase(tc.Graph, e.meth.PhaseBoundaries)

	signals, err := e.registry.DetectAll(tc)
	if err != nil {
		return nil, err
	}
	signals.Global["meta.interview.phase"] = CategoryValue(phase.Name)
	signals.Global["meta.interview.late_stage"] = BoolValue(phase.IsLateStage)

	strategies, err := ScoreStrategies(e.meth, signals.Global, phase)
	if err != nil {
		return nil, err
	}
	winner := strategies[0]

	selection := &Selection{
		Strategy:   winner.Strategy,
		Phase:      phase,
		Signals:    signals,
		Strategies: strategies,
	}

	config, err := e.meth.Strategy(winner.Strategy)
	if err != nil {
		return nil, err
	}

	if config.NodeBinding != methodology.NodeBindingRequired {
		// Focus stays explicitly absent; callers must handle the no-focus
		// case rather than assuming a recent concept.
		return selection, nil
	}
	if tc.Tracker.Len() == 0 {
		logger.Debug("[Engine] Winning strategy requires a focus but no concepts are tracked yet",
			"session_id", tc.Session.ID, "strategy", winner.Strategy)
		return selection, nil
	}

	concepts, err := ScoreNodes(config, e.meth, signals.Node, tc.Tracker.ConceptIDs())
	if err != nil {
		return nil, err
	}

	selection.Concepts = concepts
	selection.ConceptID = concepts[0].ConceptID
	selection.HasFocus = true
	return selection, nil
}
