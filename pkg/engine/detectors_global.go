package engine

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Engagement buckets for the categorical llm.engagement signal.
const (
	engagementLowMax    = 0.35
	engagementMediumMax = 0.7
)

// Depth buckets for the categorical llm.response_depth signal (1-5 scale).
const (
	depthShallowMax  = 2.0
	depthModerateMax = 4.0
)

// responseQualityDetector maps the LLM analyzer's per-response values into
// llm.* signals, both as raw numerics and as categorical buckets that
// strategies can weight directly (e.g. llm.engagement.high).
type responseQualityDetector struct{}

func (d *responseQualityDetector) Name() string { return "llm.response_quality" }

func (d *responseQualityDetector) Detect(tc *TurnContext) (map[string]SignalValue, error) {
	a := tc.Analysis
	if a == nil {
		return nil, fmt.Errorf("response analysis is absent")
	}

	depthBucket := "deep"
	switch {
	case a.Depth <= depthShallowMax:
		depthBucket = "shallow"
	case a.Depth < depthModerateMax:
		depthBucket = "moderate"
	}

	engagementBucket := "high"
	switch {
	case a.Engagement < engagementLowMax:
		engagementBucket = "low"
	case a.Engagement < engagementMediumMax:
		engagementBucket = "medium"
	}

	return map[string]SignalValue{
		"llm.response_depth":   CategoryValue(depthBucket),
		"llm.depth_score":      NumberValue((a.Depth - 1) / 4),
		"llm.sentiment":        NumberValue(a.Sentiment),
		"llm.uncertainty":      NumberValue(a.Uncertainty),
		"llm.ambiguity":        NumberValue(a.Ambiguity),
		"llm.hedging":          NumberValue(a.Hedging),
		"llm.engagement":       CategoryValue(engagementBucket),
		"llm.engagement_score": NumberValue(a.Engagement),
	}, nil
}

// graphStructureDetector derives whole-graph structural signals from the
// per-turn snapshot.
type graphStructureDetector struct{}

func (d *graphStructureDetector) Name() string { return "graph.structure" }

func (d *graphStructureDetector) Detect(tc *TurnContext) (map[string]SignalValue, error) {
	g := tc.Graph

	orphanRatio := 0.0
	avgDegree := 0.0
	if g.NodeCount > 0 {
		orphanRatio = float64(g.OrphanCount) / float64(g.NodeCount)
		avgDegree = 2 * float64(g.EdgeCount) / float64(g.NodeCount)
	}

	return map[string]SignalValue{
		"graph.size":         NumberValue(float64(g.NodeCount)),
		"graph.edge_count":   NumberValue(float64(g.EdgeCount)),
		"graph.max_depth":    NumberValue(float64(g.MaxDepth)),
		"graph.orphan_ratio": NumberValue(orphanRatio),
		"graph.has_orphans":  BoolValue(g.OrphanCount > 0),
		"graph.avg_degree":   NumberValue(avgDegree),
	}, nil
}

// temporalDetector derives turn-progress signals from the session.
type temporalDetector struct{}

func (d *temporalDetector) Name() string { return "meta.temporal" }

func (d *temporalDetector) Detect(tc *TurnContext) (map[string]SignalValue, error) {
	s := tc.Session
	if s == nil {
		return nil, fmt.Errorf("session is absent")
	}

	budgetUsed := 0.0
	if s.MaxTurns > 0 {
		budgetUsed = float64(s.Turn) / float64(s.MaxTurns)
		if budgetUsed > 1 {
			budgetUsed = 1
		}
	}

	return map[string]SignalValue{
		"meta.turn":             NumberValue(float64(s.Turn)),
		"meta.turn_budget_used": NumberValue(budgetUsed),
	}, nil
}

// strategyHistoryDetector derives repetition-pressure signals from the
// session's strategy usage history.
type strategyHistoryDetector struct{}

func (d *strategyHistoryDetector) Name() string { return "meta.strategy_history" }

func (d *strategyHistoryDetector) Detect(tc *TurnContext) (map[string]SignalValue, error) {
	s := tc.Session
	if s == nil {
		return nil, fmt.Errorf("session is absent")
	}

	values := map[string]SignalValue{
		"meta.strategy.repeat_count": NumberValue(float64(s.ConsecutiveStrategyRuns())),
	}
	if last := s.LastStrategy(); last != "" {
		values["meta.strategy.last"] = CategoryValue(last)
	}
	return values, nil
}

// velocityDetector surfaces the saturation meta-signals computed by the
// session's velocity tracker.
type velocityDetector struct{}

func (d *velocityDetector) Name() string { return "meta.velocity" }

func (d *velocityDetector) Detect(tc *TurnContext) (map[string]SignalValue, error) {
	v := tc.Velocity
	if v == nil {
		return nil, fmt.Errorf("velocity tracker is absent")
	}

	values := map[string]SignalValue{
		"meta.velocity.saturation":   NumberValue(v.YieldSaturation()),
		"meta.velocity.peak":         NumberValue(float64(v.PeakVelocity())),
		"meta.velocity.new_concepts": NumberValue(float64(v.LastNewConcepts())),
	}
	if tc.CanonicalEnabled {
		values["meta.canonical.saturation"] = NumberValue(v.CanonicalSaturation())
	}
	return values, nil
}

// tokenCountDetector measures the respondent's answer length in model
// tokens, a cheap verbosity proxy that does not depend on the analyzer.
type tokenCountDetector struct {
	encoder *tiktoken.Tiktoken
}

func (d *tokenCountDetector) Name() string { return "llm.response_tokens" }

func (d *tokenCountDetector) Detect(tc *TurnContext) (map[string]SignalValue, error) {
	if d.encoder == nil {
		return nil, fmt.Errorf("token encoder not initialized")
	}

	count := len(d.encoder.Encode(tc.ResponseText, nil, nil))

	bucket := "verbose"
	switch {
	case count < 30:
		bucket = "terse"
	case count < 150:
		bucket = "moderate"
	}

	return map[string]SignalValue{
		"llm.response.token_count": NumberValue(float64(count)),
		"llm.response.length":      CategoryValue(bucket),
	}, nil
}
