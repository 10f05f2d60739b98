package methodology

import (
	"errors"
	"strings"
	"testing"
)

const minimalDoc = `
id: probe
name: Probe
strategies:
  - name: deepen
    node_binding: required
    weights:
      llm.engagement.high: 0.5
      meta.node.never_focused: 0.8
  - name: broaden
    node_binding: none
    weights:
      meta.velocity.saturation: 0.6
`

func TestParseMinimalDocument(t *testing.T) {
	m, err := Parse([]byte(minimalDoc))
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "probe" || len(m.Strategies) != 2 {
		t.Fatalf("unexpected parse result: %+v", m)
	}

	s, err := m.Strategy("deepen")
	if err != nil {
		t.Fatal(err)
	}
	if s.NodeBinding != NodeBindingRequired {
		t.Errorf("node binding = %s, want required", s.NodeBinding)
	}
}

func TestParseRejectsBrokenDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "strategies: ["},
		{"missing id", `
name: X
strategies:
  - name: a
    node_binding: none
    weights: {llm.depth_score: 1.0}
`},
		{"no strategies", `
id: x
name: X
strategies: []
`},
		{"strategy without weights", `
id: x
name: X
strategies:
  - name: a
    node_binding: none
    weights: {}
`},
		{"invalid node binding", `
id: x
name: X
strategies:
  - name: a
    node_binding: sometimes
    weights: {llm.depth_score: 1.0}
`},
		{"duplicate strategy", `
id: x
name: X
strategies:
  - name: a
    node_binding: none
    weights: {llm.depth_score: 1.0}
  - name: a
    node_binding: none
    weights: {llm.depth_score: 1.0}
`},
		{"unknown phase name", `
id: x
name: X
strategies:
  - name: a
    node_binding: none
    weights: {llm.depth_score: 1.0}
phases:
  final:
    multipliers: {a: 0.5}
`},
		{"phase adjusts undeclared strategy", `
id: x
name: X
strategies:
  - name: a
    node_binding: none
    weights: {llm.depth_score: 1.0}
phases:
  late:
    bonuses: {ghost: 0.2}
`},
		{"boundaries out of order", `
id: x
name: X
strategies:
  - name: a
    node_binding: none
    weights: {llm.depth_score: 1.0}
phase_boundaries:
  early_max_nodes: 10
  mid_max_nodes: 5
`},
		{"empty normalization range", `
id: x
name: X
strategies:
  - name: a
    node_binding: none
    weights: {llm.depth_score: 1.0}
normalization:
  llm.response.token_count: {min: 400, max: 400}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatalf("broken document accepted")
			}
			var confErr *ConfigurationError
			if !errors.As(err, &confErr) {
				t.Fatalf("error = %v, want ConfigurationError", err)
			}
		})
	}
}

func TestUnknownStrategyIsConfigurationError(t *testing.T) {
	m, err := Parse([]byte(minimalDoc))
	if err != nil {
		t.Fatal(err)
	}

	_, err = m.Strategy("ghost")
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("error = %v, want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error does not name the missing strategy: %v", err)
	}
}

func TestPhaseAdjustmentDefaults(t *testing.T) {
	m, err := Parse([]byte(minimalDoc + `
phases:
  late:
    multipliers: {deepen: 0.6}
    bonuses: {broaden: 0.15}
`))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name           string
		phase          string
		strategy       string
		wantMultiplier float64
		wantBonus      float64
	}{
		{"declared multiplier", PhaseLate, "deepen", 0.6, 0},
		{"declared bonus", PhaseLate, "broaden", 1, 0.15},
		{"phase without table", PhaseEarly, "deepen", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			multiplier, bonus := m.PhaseAdjustment(tt.phase, tt.strategy)
			if multiplier != tt.wantMultiplier || bonus != tt.wantBonus {
				t.Errorf("PhaseAdjustment(%s, %s) = (%v, %v), want (%v, %v)",
					tt.phase, tt.strategy, multiplier, bonus, tt.wantMultiplier, tt.wantBonus)
			}
		})
	}
}

func TestNodeTypePrioritiesFoldIntoWeights(t *testing.T) {
	m, err := Parse([]byte(`
id: x
name: X
strategies:
  - name: deepen
    node_binding: required
    weights:
      meta.node.never_focused: 0.8
    node_type_priority:
      Goal: 0.4
      attribute: 0.2
`))
	if err != nil {
		t.Fatal(err)
	}

	s, err := m.Strategy("deepen")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Weights["technique.node.type.goal"]; got != 0.4 {
		t.Errorf("goal priority weight = %v, want 0.4 (type must be lowercased)", got)
	}
	if got := s.Weights["technique.node.type.attribute"]; got != 0.2 {
		t.Errorf("attribute priority weight = %v, want 0.2", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	m, err := Parse([]byte(minimalDoc))
	if err != nil {
		t.Fatal(err)
	}

	if err := r.Add(m); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(m); err == nil {
		t.Errorf("duplicate methodology id accepted")
	}

	got, err := r.Get("probe")
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Errorf("Get returned a different instance")
	}

	if _, err := r.Get("missing"); err == nil {
		t.Errorf("unknown methodology id accepted")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r, err := DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}

	m, err := r.Get("laddering")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Strategies) == 0 {
		t.Fatalf("built-in methodology has no strategies")
	}
	if m.Canonical == nil || !m.Canonical.Enabled {
		t.Errorf("laddering should enable the canonical layer")
	}
	for _, s := range m.Strategies {
		if s.NodeBinding != NodeBindingRequired && s.NodeBinding != NodeBindingNone {
			t.Errorf("strategy %s has invalid node binding %q", s.Name, s.NodeBinding)
		}
	}
}
