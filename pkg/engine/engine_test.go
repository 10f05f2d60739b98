package engine

import (
	"errors"
	"testing"

	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/methodology"
)

type stubGlobalDetector struct {
	name   string
	values map[string]SignalValue
	err    error
}

func (d *stubGlobalDetector) Name() string { return d.name }
func (d *stubGlobalDetector) Detect(tc *TurnContext) (map[string]SignalValue, error) {
	return d.values, d.err
}

type stubNodeDetector struct {
	name   string
	values map[string]map[string]SignalValue
}

func (d *stubNodeDetector) Name() string { return d.name }
func (d *stubNodeDetector) Detect(tc *TurnContext) (map[string]map[string]SignalValue, error) {
	return d.values, nil
}

func selectionContext(tracker *NodeStateTracker) *TurnContext {
	return &TurnContext{
		Session:  &common.Session{ID: "s1", MethodologyID: "test", Turn: 4, MaxTurns: 20},
		Graph:    common.GraphSnapshot{NodeCount: 8, EdgeCount: 6},
		Analysis: &common.ResponseAnalysis{Depth: 4, Engagement: 0.8},
		Tracker:  tracker,
		Velocity: NewVelocityTracker(),
	}
}

func selectionEngine(t *testing.T, m *methodology.Methodology, registry *DetectorRegistry) *Engine {
	t.Helper()
	e, err := New(m, registry)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSelectStrategyWithFocus(t *testing.T) {
	m := testMethodology(
		methodology.StrategyConfig{
			Name:        "deepen",
			NodeBinding: methodology.NodeBindingRequired,
			Weights: map[string]float64{
				"llm.engagement.high":     0.5,
				"meta.node.never_focused": 0.8,
				"graph.node.exhausted":    -0.9,
			},
		},
		methodology.StrategyConfig{
			Name:        "broaden",
			NodeBinding: methodology.NodeBindingNone,
			Weights:     map[string]float64{"llm.engagement.low": 0.6},
		},
	)

	registry := NewDetectorRegistry()
	registry.RegisterGlobal(&stubGlobalDetector{
		name:   "stub.global",
		values: map[string]SignalValue{"llm.engagement": CategoryValue("high")},
	})
	registry.RegisterNode(&stubNodeDetector{
		name: "stub.node",
		values: map[string]map[string]SignalValue{
			"a": {"meta.node.never_focused": BoolValue(false), "graph.node.exhausted": BoolValue(true)},
			"b": {"meta.node.never_focused": BoolValue(true), "graph.node.exhausted": BoolValue(false)},
		},
	})

	tracker := NewNodeStateTracker()
	tracker.Register(common.Concept{ID: "a"}, 1)
	tracker.Register(common.Concept{ID: "b"}, 2)

	selection, err := selectionEngine(t, m, registry).SelectStrategy(selectionContext(tracker))
	if err != nil {
		t.Fatal(err)
	}

	if selection.Strategy != "deepen" {
		t.Errorf("strategy = %s, want deepen", selection.Strategy)
	}
	if !selection.HasFocus || selection.ConceptID != "b" {
		t.Errorf("focus = (%t, %s), want (true, b)", selection.HasFocus, selection.ConceptID)
	}
	if len(selection.Strategies) != 2 {
		t.Errorf("strategy decomposition has %d entries, want 2", len(selection.Strategies))
	}
	if len(selection.Concepts) != 2 {
		t.Errorf("concept decomposition has %d entries, want 2", len(selection.Concepts))
	}
}

func TestSelectStrategyWithoutBindingLeavesFocusAbsent(t *testing.T) {
	m := testMethodology(methodology.StrategyConfig{
		Name:        "broaden",
		NodeBinding: methodology.NodeBindingNone,
		Weights:     map[string]float64{"llm.engagement.high": 0.5},
	})
	registry := NewDetectorRegistry()
	registry.RegisterGlobal(&stubGlobalDetector{
		name:   "stub.global",
		values: map[string]SignalValue{"llm.engagement": CategoryValue("high")},
	})

	tracker := NewNodeStateTracker()
	// Tracked concepts exist, yet the winner binds to none of them.
	tracker.Register(common.Concept{ID: "recent"}, 3)

	selection, err := selectionEngine(t, m, registry).SelectStrategy(selectionContext(tracker))
	if err != nil {
		t.Fatal(err)
	}
	if selection.HasFocus || selection.ConceptID != "" {
		t.Errorf("focus = (%t, %q), want explicitly absent", selection.HasFocus, selection.ConceptID)
	}
	if selection.Concepts != nil {
		t.Errorf("node scoring must not run for a no-binding strategy")
	}
}

func TestSelectStrategyWithEmptyTrackerSkipsNodeScoring(t *testing.T) {
	m := testMethodology(methodology.StrategyConfig{
		Name:        "deepen",
		NodeBinding: methodology.NodeBindingRequired,
		Weights: map[string]float64{
			"llm.engagement.high":     0.5,
			"meta.node.never_focused": 0.8,
		},
	})
	registry := NewDetectorRegistry()
	registry.RegisterGlobal(&stubGlobalDetector{
		name:   "stub.global",
		values: map[string]SignalValue{"llm.engagement": CategoryValue("high")},
	})

	selection, err := selectionEngine(t, m, registry).SelectStrategy(selectionContext(NewNodeStateTracker()))
	if err != nil {
		t.Fatal(err)
	}
	if selection.HasFocus {
		t.Errorf("focus selected with no tracked concepts")
	}
}

func TestSelectStrategyValidatesContext(t *testing.T) {
	m := testMethodology(methodology.StrategyConfig{
		Name:        "broaden",
		NodeBinding: methodology.NodeBindingNone,
		Weights:     map[string]float64{"llm.engagement.high": 0.5},
	})
	e := selectionEngine(t, m, NewDetectorRegistry())

	tc := selectionContext(NewNodeStateTracker())
	tc.Analysis = nil

	_, err := e.SelectStrategy(tc)
	var violation *ContractViolation
	if !errors.As(err, &violation) {
		t.Fatalf("error = %v, want ContractViolation", err)
	}
}

func TestSelectStrategyPropagatesDetectorErrors(t *testing.T) {
	m := testMethodology(methodology.StrategyConfig{
		Name:        "broaden",
		NodeBinding: methodology.NodeBindingNone,
		Weights:     map[string]float64{"llm.engagement.high": 0.5},
	})
	registry := NewDetectorRegistry()
	registry.RegisterGlobal(&stubGlobalDetector{name: "stub.broken", err: errors.New("upstream gone")})

	_, err := selectionEngine(t, m, registry).SelectStrategy(selectionContext(NewNodeStateTracker()))
	var detectionErr *SignalDetectionError
	if !errors.As(err, &detectionErr) {
		t.Fatalf("error = %v, want SignalDetectionError", err)
	}
	if detectionErr.Detector != "stub.broken" {
		t.Errorf("detector = %s, want stub.broken", detectionErr.Detector)
	}
}

func TestDetectAllRejectsCrossNamespaceEmission(t *testing.T) {
	registry := NewDetectorRegistry()
	registry.RegisterGlobal(&stubGlobalDetector{
		name:   "stub.global",
		values: map[string]SignalValue{"graph.node.exhausted": BoolValue(true)},
	})

	_, err := registry.DetectAll(selectionContext(NewNodeStateTracker()))
	var detectionErr *SignalDetectionError
	if !errors.As(err, &detectionErr) {
		t.Fatalf("error = %v, want SignalDetectionError", err)
	}
}

func TestEnginePhaseSignalsAvailableToWeights(t *testing.T) {
	m := testMethodology(
		methodology.StrategyConfig{
			Name:        "close",
			NodeBinding: methodology.NodeBindingNone,
			Weights:     map[string]float64{"meta.interview.late_stage": 1.0},
		},
		methodology.StrategyConfig{
			Name:        "broaden",
			NodeBinding: methodology.NodeBindingNone,
			Weights:     map[string]float64{"meta.interview.phase.early": 1.0},
		},
	)
	registry := NewDetectorRegistry()
	registry.RegisterGlobal(&stubGlobalDetector{name: "stub.global", values: map[string]SignalValue{}})

	tc := selectionContext(NewNodeStateTracker())
	tc.Graph.NodeCount = 40 // late phase under default boundaries

	selection, err := selectionEngine(t, m, registry).SelectStrategy(tc)
	if err != nil {
		t.Fatal(err)
	}
	if selection.Strategy != "close" {
		t.Errorf("strategy = %s, want close (late-stage signal should dominate)", selection.Strategy)
	}
	if selection.Phase.Name != methodology.PhaseLate || !selection.Phase.IsLateStage {
		t.Errorf("phase = %+v, want late", selection.Phase)
	}
}

func TestNewRejectsMisconfiguration(t *testing.T) {
	registry := NewDetectorRegistry()

	if _, err := New(nil, registry); err == nil {
		t.Errorf("nil methodology accepted")
	}
	if _, err := New(&methodology.Methodology{ID: "empty"}, registry); err == nil {
		t.Errorf("methodology without strategies accepted")
	}
	if _, err := New(testMethodology(methodology.StrategyConfig{Name: "x"}), nil); err == nil {
		t.Errorf("nil registry accepted")
	}
}
