package engine

import (
	"fmt"
	"strings"
)

// Exhaustion thresholds. A concept is exhausted only when all four hold; the
// continuous score supplements the boolean so strategies can deprioritize
// gradually instead of excluding outright, which keeps backtracking natural.
const (
	exhaustionMinFocusCount    = 1
	exhaustionMinTurnsNoYield  = 3
	exhaustionMinFocusStreak   = 2
	exhaustionShallowWindow    = 3
	exhaustionShallowThreshold = 0.66
)

// exhaustionDetector emits the graph.node.exhausted boolean and the graded
// graph.node.exhaustion_score per tracked concept.
type exhaustionDetector struct{}

func (d *exhaustionDetector) Name() string { return "graph.node.exhaustion" }

func (d *exhaustionDetector) Detect(tc *TurnContext) (map[string]map[string]SignalValue, error) {
	if tc.Tracker == nil {
		return nil, fmt.Errorf("node state tracker is absent")
	}

	out := make(map[string]map[string]SignalValue, tc.Tracker.Len())
	for _, state := range tc.Tracker.States() {
		shallow := state.ShallowRatio(exhaustionShallowWindow)

		exhausted := state.FocusCount >= exhaustionMinFocusCount &&
			state.TurnsSinceLastYield >= exhaustionMinTurnsNoYield &&
			state.CurrentFocusStreak >= exhaustionMinFocusStreak &&
			shallow >= exhaustionShallowThreshold

		score := 0.4*minf(float64(state.TurnsSinceLastYield)/10, 1) +
			0.3*minf(float64(state.CurrentFocusStreak)/5, 1) +
			0.3*shallow

		out[state.ConceptID] = map[string]SignalValue{
			"graph.node.exhausted":        BoolValue(exhausted),
			"graph.node.exhaustion_score": NumberValue(score),
		}
	}
	return out, nil
}

// focusHistoryDetector emits per-concept focus and yield lifecycle signals.
type focusHistoryDetector struct{}

func (d *focusHistoryDetector) Name() string { return "meta.node.focus_history" }

func (d *focusHistoryDetector) Detect(tc *TurnContext) (map[string]map[string]SignalValue, error) {
	if tc.Tracker == nil {
		return nil, fmt.Errorf("node state tracker is absent")
	}
	if tc.Session == nil {
		return nil, fmt.Errorf("session is absent")
	}
	turn := tc.Session.Turn

	out := make(map[string]map[string]SignalValue, tc.Tracker.Len())
	for _, state := range tc.Tracker.States() {
		turnsSinceFocus := 0
		if state.FocusCount > 0 {
			turnsSinceFocus = turn - state.LastFocusTurn
		}

		out[state.ConceptID] = map[string]SignalValue{
			"meta.node.focus_count":       NumberValue(float64(state.FocusCount)),
			"meta.node.never_focused":     BoolValue(state.FocusCount == 0),
			"meta.node.turns_since_focus": NumberValue(float64(turnsSinceFocus)),
			"meta.node.focus_streak":      NumberValue(float64(state.CurrentFocusStreak)),
			"meta.node.yield_rate":        NumberValue(state.YieldRate()),
			"meta.node.recent":            BoolValue(turn-state.RegisteredAt <= 2),
		}
	}
	return out, nil
}

// connectivityDetector emits per-concept structural signals.
type connectivityDetector struct{}

func (d *connectivityDetector) Name() string { return "graph.node.connectivity" }

func (d *connectivityDetector) Detect(tc *TurnContext) (map[string]map[string]SignalValue, error) {
	if tc.Tracker == nil {
		return nil, fmt.Errorf("node state tracker is absent")
	}

	out := make(map[string]map[string]SignalValue, tc.Tracker.Len())
	for _, state := range tc.Tracker.States() {
		out[state.ConceptID] = map[string]SignalValue{
			"graph.node.degree":     NumberValue(float64(state.Degree())),
			"graph.node.out_degree": NumberValue(float64(state.EdgeCountOut)),
			"graph.node.in_degree":  NumberValue(float64(state.EdgeCountIn)),
			"graph.node.is_orphan":  BoolValue(state.IsOrphan()),
		}
	}
	return out, nil
}

// conceptTypeDetector exposes each concept's type as a categorical signal so
// node_type_priority weights resolve against it.
type conceptTypeDetector struct{}

func (d *conceptTypeDetector) Name() string { return "technique.node.type" }

func (d *conceptTypeDetector) Detect(tc *TurnContext) (map[string]map[string]SignalValue, error) {
	if tc.Tracker == nil {
		return nil, fmt.Errorf("node state tracker is absent")
	}

	out := make(map[string]map[string]SignalValue, tc.Tracker.Len())
	for _, state := range tc.Tracker.States() {
		values := map[string]SignalValue{
			"technique.node.strategy_repeat": NumberValue(float64(state.ConsecutiveSameStrategy)),
		}
		if state.ConceptType != "" {
			values["technique.node.type"] = CategoryValue(strings.ToLower(state.ConceptType))
		}
		out[state.ConceptID] = values
	}
	return out, nil
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
