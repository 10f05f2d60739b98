package common

import "time"

// Concept represents a node in the interview knowledge graph: a unit of
// meaning extracted from a respondent's answers. A concept can be a value,
// a pain point, a feature, a person, or any other category the active
// methodology defines.
//
// Concepts are created by the extraction step and never deleted within a
// session. Confidence and properties may be refined by later turns.
type Concept struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Confidence float64        `json:"confidence"`
	Properties map[string]any `json:"properties,omitempty"`
	Sources    []Source       `json:"sources,omitempty"`
}

// Relationship represents a directed edge between two concepts.
type Relationship struct {
	ID         string   `json:"id"`
	SourceID   string   `json:"source_id"`
	TargetID   string   `json:"target_id"`
	Type       string   `json:"type"`
	Confidence float64  `json:"confidence"`
	Sources    []Source `json:"sources,omitempty"`
}

// Source is a provenance record linking a concept or relationship back to
// the utterance it was extracted from.
type Source struct {
	UtteranceID string `json:"utterance_id"`
	Turn        int    `json:"turn"`
	Excerpt     string `json:"excerpt,omitempty"`
}

// GraphSnapshot is an immutable per-turn view of the session graph, consumed
// by signal detection and phase classification. It is produced by the
// graph-update step after extraction results are applied.
type GraphSnapshot struct {
	NodeCount            int `json:"node_count"`
	EdgeCount            int `json:"edge_count"`
	OrphanCount          int `json:"orphan_count"`
	MaxDepth             int `json:"max_depth"`
	NewConceptsThisTurn  int `json:"new_concepts_this_turn"`
	NewCanonicalThisTurn int `json:"new_canonical_this_turn"`
}

// Session holds the durable per-interview state. It is created at interview
// start and mutated once per turn by the pipeline.
type Session struct {
	ID              string    `json:"id"`
	Topic           string    `json:"topic"`
	MethodologyID   string    `json:"methodology_id"`
	SeedConceptID   string    `json:"seed_concept_id,omitempty"`
	Mode            string    `json:"mode"`
	Turn            int       `json:"turn"`
	MaxTurns        int       `json:"max_turns"`
	StrategyHistory []string  `json:"strategy_history"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Utterance is a single respondent or interviewer turn as stored.
type Utterance struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Turn      int       `json:"turn"`
	Role      string    `json:"role"` // "respondent" | "interviewer"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ResponseAnalysis contains the per-response quality values produced by the
// LLM analyzer collaborator. Depth is on a 1-5 scale; the remaining values
// are 0-1 except sentiment, which is -1..1.
type ResponseAnalysis struct {
	Depth       float64 `json:"depth"`
	Sentiment   float64 `json:"sentiment"`
	Uncertainty float64 `json:"uncertainty"`
	Ambiguity   float64 `json:"ambiguity"`
	Hedging     float64 `json:"hedging"`
	Engagement  float64 `json:"engagement"`
}

// LastStrategy returns the most recent strategy in the session history, or
// the empty string if none has been used yet.
func (s *Session) LastStrategy() string {
	if len(s.StrategyHistory) == 0 {
		return ""
	}
	return s.StrategyHistory[len(s.StrategyHistory)-1]
}

// ConsecutiveStrategyRuns returns how many most-recent entries of the
// strategy history equal the last strategy used.
func (s *Session) ConsecutiveStrategyRuns() int {
	last := s.LastStrategy()
	if last == "" {
		return 0
	}
	count := 0
	for i := len(s.StrategyHistory) - 1; i >= 0; i-- {
		if s.StrategyHistory[i] != last {
			break
		}
		count++
	}
	return count
}
