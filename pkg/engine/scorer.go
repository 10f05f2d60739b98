package engine

import (
	"sort"
	"strings"

	"github.com/delve-hq/delve/backend/pkg/methodology"
)

// SignalContribution is one resolved (signal, weight) pair inside a scored
// candidate. Only resolved signals appear; an absent signal is skipped, never
// recorded as zero.
type SignalContribution struct {
	Signal       string  `json:"signal"`
	Value        string  `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// ScoredCandidate is the full audit record of one candidate evaluated by
// either scoring stage. It is produced fresh every turn and persisted only
// as an audit trail, never read back as authoritative state.
type ScoredCandidate struct {
	Strategy        string               `json:"strategy"`
	ConceptID       string               `json:"concept_id,omitempty"`
	Contributions   []SignalContribution `json:"contributions"`
	BaseScore       float64              `json:"base_score"`
	PhaseMultiplier float64              `json:"phase_multiplier"`
	PhaseBonus      float64              `json:"phase_bonus"`
	FinalScore      float64              `json:"final_score"`
	Rank            int                  `json:"rank"`
	Selected        bool                 `json:"selected"`
}

// resolveWeight resolves one weight key against a signal map. The rule is
// shared by both stages:
//
//   - boolean signal: true contributes the weight, false contributes 0
//   - numeric signal: contributes weight x value (after normalization)
//   - categorical signal: a key of the form <signal>.<value> contributes the
//     weight when the category matches, 0 when it does not
//
// A key that matches no signal is unresolved: the second return is false and
// nothing is recorded.
func resolveWeight(
	key string,
	weight float64,
	signals map[string]SignalValue,
	normalization map[string]methodology.SignalRange,
) (SignalContribution, bool) {
	if value, ok := signals[key]; ok {
		switch value.Kind {
		case SignalBool:
			contribution := 0.0
			if value.Bool {
				contribution = weight
			}
			return SignalContribution{Signal: key, Value: value.String(), Weight: weight, Contribution: contribution}, true
		case SignalNumber:
			v := normalizeSignal(key, value.Number, normalization)
			return SignalContribution{Signal: key, Value: value.String(), Weight: weight, Contribution: weight * v}, true
		default:
			// A categorical signal must be addressed as <signal>.<value>;
			// the bare name does not resolve.
			return SignalContribution{}, false
		}
	}

	idx := strings.LastIndex(key, ".")
	if idx <= 0 {
		return SignalContribution{}, false
	}
	base, want := key[:idx], key[idx+1:]
	value, ok := signals[base]
	if !ok || value.Kind != SignalCategory {
		return SignalContribution{}, false
	}
	contribution := 0.0
	if value.Category == want {
		contribution = weight
	}
	return SignalContribution{Signal: key, Value: value.Category, Weight: weight, Contribution: contribution}, true
}

func normalizeSignal(key string, v float64, normalization map[string]methodology.SignalRange) float64 {
	r, ok := normalization[key]
	if !ok {
		return v
	}
	normalized := (v - r.Min) / (r.Max - r.Min)
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

func scoreWeights(
	weights map[string]float64,
	nodeScoped bool,
	signals map[string]SignalValue,
	normalization map[string]methodology.SignalRange,
) []SignalContribution {
	contributions := make([]SignalContribution, 0, len(weights))
	for key, weight := range weights {
		if IsNodeScoped(key) != nodeScoped {
			continue
		}
		if c, ok := resolveWeight(key, weight, signals, normalization); ok {
			contributions = append(contributions, c)
		}
	}
	// Map iteration order is random; decomposition records must be stable.
	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].Signal < contributions[j].Signal
	})
	return contributions
}

func sumContributions(contributions []SignalContribution) float64 {
	total := 0.0
	for _, c := range contributions {
		total += c.Contribution
	}
	return total
}

func rankCandidates(candidates []ScoredCandidate) {
	// Stable sort: ties keep declaration (or registration) order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})
	for i := range candidates {
		candidates[i].Rank = i + 1
		candidates[i].Selected = i == 0
	}
}

// ScoreStrategies is stage one: it ranks every declared strategy using only
// the global partition of its weight map plus the active phase's
// adjustments. Node-scoped keys in a strategy's weight map are stripped here
// and have no effect on the ranking.
func ScoreStrategies(
	m *methodology.Methodology,
	global map[string]SignalValue,
	phase Phase,
) ([]ScoredCandidate, error) {
	if len(m.Strategies) == 0 {
		return nil, methodology.NewConfigurationError("methodology %q declares no strategies", m.ID)
	}

	candidates := make([]ScoredCandidate, 0, len(m.Strategies))
	resolvedAny := false
	for _, s := range m.Strategies {
		contributions := scoreWeights(s.Weights, false, global, m.Normalization)
		if len(contributions) > 0 {
			resolvedAny = true
		}

		base := sumContributions(contributions)
		multiplier, bonus := m.PhaseAdjustment(phase.Name, s.Name)

		candidates = append(candidates, ScoredCandidate{
			Strategy:        s.Name,
			Contributions:   contributions,
			BaseScore:       base,
			PhaseMultiplier: multiplier,
			PhaseBonus:      bonus,
			FinalScore:      base*multiplier + bonus,
		})
	}

	if !resolvedAny {
		return nil, &ScoringError{
			Stage:  "strategy scoring",
			Reason: "no strategy resolved a single global signal weight",
		}
	}

	rankCandidates(candidates)
	return candidates, nil
}

// ScoreNodes is stage two: it ranks every tracked concept using only the
// node-scoped partition of the winning strategy's weight map. It never sees
// another strategy's weights.
func ScoreNodes(
	winner *methodology.StrategyConfig,
	m *methodology.Methodology,
	nodeSignals map[string]map[string]SignalValue,
	conceptOrder []string,
) ([]ScoredCandidate, error) {
	nodeWeightCount := 0
	for key := range winner.Weights {
		if IsNodeScoped(key) {
			nodeWeightCount++
		}
	}
	if nodeWeightCount == 0 {
		return nil, &ScoringError{
			Stage:  "node scoring",
			Reason: "strategy " + winner.Name + " requires a focus concept but declares no node-scoped weights",
		}
	}

	candidates := make([]ScoredCandidate, 0, len(conceptOrder))
	resolvedAny := false
	for _, conceptID := range conceptOrder {
		contributions := scoreWeights(winner.Weights, true, nodeSignals[conceptID], m.Normalization)
		if len(contributions) > 0 {
			resolvedAny = true
		}

		base := sumContributions(contributions)
		candidates = append(candidates, ScoredCandidate{
			Strategy:        winner.Name,
			ConceptID:       conceptID,
			Contributions:   contributions,
			BaseScore:       base,
			PhaseMultiplier: 1,
			FinalScore:      base,
		})
	}

	if len(candidates) == 0 {
		return nil, &ScoringError{Stage: "node scoring", Reason: "no tracked concepts to score"}
	}
	if !resolvedAny {
		return nil, &ScoringError{
			Stage:  "node scoring",
			Reason: "no concept resolved a single node-scoped signal weight for strategy " + winner.Name,
		}
	}

	rankCandidates(candidates)
	return candidates, nil
}
