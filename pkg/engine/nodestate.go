package engine

import (
	"github.com/delve-hq/delve/backend/pkg/common"
)

// depthHistorySize bounds the rolling response-depth window kept per concept.
const depthHistorySize = 5

// shallowDepthMax is the highest depth value (1-5 scale) still considered a
// shallow response.
const shallowDepthMax = 2.0

// NodeState is the per-concept lifecycle state mutated every turn by the
// graph-update step. One NodeState exists per tracked concept; it is created
// on first registration and never deleted within a session.
type NodeState struct {
	ConceptID    string
	Label        string
	ConceptType  string
	RegisteredAt int

	FocusCount         int
	LastFocusTurn      int
	CurrentFocusStreak int

	YieldCount          int
	LastYieldTurn       int
	TurnsSinceLastYield int

	// DepthHistory holds the most recent response-depth values observed
	// while this concept was in focus, newest last.
	DepthHistory []float64

	ConnectedIDs map[string]struct{}
	EdgeCountOut int
	EdgeCountIn  int

	StrategyUse             map[string]int
	LastStrategyUsed        string
	ConsecutiveSameStrategy int
}

// IsOrphan reports whether the concept has no edges in either direction.
func (n *NodeState) IsOrphan() bool {
	return n.EdgeCountIn+n.EdgeCountOut == 0
}

// Degree returns the total edge count across both directions.
func (n *NodeState) Degree() int {
	return n.EdgeCountIn + n.EdgeCountOut
}

// YieldRate is the fraction of focus turns that produced new graph content.
func (n *NodeState) YieldRate() float64 {
	if n.FocusCount == 0 {
		return 0
	}
	rate := float64(n.YieldCount) / float64(n.FocusCount)
	if rate > 1 {
		return 1
	}
	return rate
}

// ShallowRatio returns the share of shallow responses among the last n
// focused turns. With no depth history it returns 0.
func (n *NodeState) ShallowRatio(window int) float64 {
	if window <= 0 || len(n.DepthHistory) == 0 {
		return 0
	}
	start := len(n.DepthHistory) - window
	if start < 0 {
		start = 0
	}
	recent := n.DepthHistory[start:]
	shallow := 0
	for _, depth := range recent {
		if depth <= shallowDepthMax {
			shallow++
		}
	}
	return float64(shallow) / float64(len(recent))
}

// NodeStateTracker owns all NodeState records of one session. All mutations
// for a session happen inside a single turn pipeline, so the tracker needs
// no internal locking; the worker serializes turns per session.
type NodeStateTracker struct {
	states      map[string]*NodeState
	order       []string
	lastFocusID string
}

// NewNodeStateTracker creates an empty tracker for one session.
func NewNodeStateTracker() *NodeStateTracker {
	return &NodeStateTracker{states: make(map[string]*NodeState)}
}

// Register adds a concept to the tracker. It is idempotent: a second call
// with the same concept id returns the existing state, not a fresh one.
func (t *NodeStateTracker) Register(concept common.Concept, turn int) *NodeState {
	if state, ok := t.states[concept.ID]; ok {
		return state
	}
	state := &NodeState{
		ConceptID:    concept.ID,
		Label:        concept.Label,
		ConceptType:  concept.Type,
		RegisteredAt: turn,
		ConnectedIDs: make(map[string]struct{}),
		StrategyUse:  make(map[string]int),
	}
	t.states[concept.ID] = state
	t.order = append(t.order, concept.ID)
	return state
}

func (t *NodeStateTracker) lookup(method, conceptID string) (*NodeState, error) {
	state, ok := t.states[conceptID]
	if !ok {
		return nil, &ContractViolation{
			Stage:   "node state tracker." + method,
			Missing: "registered concept " + conceptID,
		}
	}
	return state, nil
}

// Get returns the state for a tracked concept id.
func (t *NodeStateTracker) Get(conceptID string) (*NodeState, error) {
	return t.lookup("get", conceptID)
}

// Len returns the number of tracked concepts.
func (t *NodeStateTracker) Len() int {
	return len(t.states)
}

// ConceptIDs returns tracked concept ids in registration order.
func (t *NodeStateTracker) ConceptIDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// States iterates all tracked states in registration order.
func (t *NodeStateTracker) States() []*NodeState {
	out := make([]*NodeState, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.states[id])
	}
	return out
}

// LastFocusID returns the concept that was focused most recently, or the
// empty string before the first focus.
func (t *NodeStateTracker) LastFocusID() string {
	return t.lastFocusID
}

// UpdateFocus records that the concept was chosen as focus this turn under
// the given strategy. The focus streak resets to 1 when the focus moved to a
// different concept and increments when it stayed.
func (t *NodeStateTracker) UpdateFocus(conceptID string, turn int, strategy string) error {
	state, err := t.lookup("update focus", conceptID)
	if err != nil {
		return err
	}

	state.FocusCount++
	state.LastFocusTurn = turn
	if t.lastFocusID == conceptID {
		state.CurrentFocusStreak++
	} else {
		state.CurrentFocusStreak = 1
	}
	t.lastFocusID = conceptID

	state.StrategyUse[strategy]++
	if state.LastStrategyUsed == strategy {
		state.ConsecutiveSameStrategy++
	} else {
		state.ConsecutiveSameStrategy = 1
	}
	state.LastStrategyUsed = strategy

	return nil
}

// RecordYield records that focusing the concept produced new graph content
// this turn. The focus streak resets to zero: the concept is productive
// again, so streak-based exhaustion pressure is released.
func (t *NodeStateTracker) RecordYield(conceptID string, turn int, changeSummary string) error {
	state, err := t.lookup("record yield", conceptID)
	if err != nil {
		return err
	}

	state.YieldCount++
	state.LastYieldTurn = turn
	state.TurnsSinceLastYield = 0
	state.CurrentFocusStreak = 0

	return nil
}

// AdvanceTurn ages every tracked concept by one turn. Concepts that yielded
// this turn were already reset by RecordYield.
func (t *NodeStateTracker) AdvanceTurn() {
	for _, state := range t.states {
		if state.FocusCount > 0 {
			state.TurnsSinceLastYield++
		}
	}
}

// AppendResponseSignal appends a response-depth value to the concept's
// rolling history. This applies to the concept focused in the previous turn:
// the respondent is answering the question asked about it.
func (t *NodeStateTracker) AppendResponseSignal(conceptID string, depth float64) error {
	state, err := t.lookup("append response signal", conceptID)
	if err != nil {
		return err
	}

	state.DepthHistory = append(state.DepthHistory, depth)
	if len(state.DepthHistory) > depthHistorySize {
		state.DepthHistory = state.DepthHistory[len(state.DepthHistory)-depthHistorySize:]
	}
	return nil
}

// UpdateEdgeCounts applies edge-count deltas from the graph-update step.
func (t *NodeStateTracker) UpdateEdgeCounts(conceptID string, deltaOut, deltaIn int) error {
	state, err := t.lookup("update edge counts", conceptID)
	if err != nil {
		return err
	}

	state.EdgeCountOut += deltaOut
	state.EdgeCountIn += deltaIn
	return nil
}

// Connect records an edge between two tracked concepts, updating both
// connected-id sets and directional edge counts.
func (t *NodeStateTracker) Connect(sourceID, targetID string) error {
	source, err := t.lookup("connect", sourceID)
	if err != nil {
		return err
	}
	target, err := t.lookup("connect", targetID)
	if err != nil {
		return err
	}

	source.ConnectedIDs[targetID] = struct{}{}
	target.ConnectedIDs[sourceID] = struct{}{}
	source.EdgeCountOut++
	target.EdgeCountIn++
	return nil
}
