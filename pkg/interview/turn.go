package interview

import (
	"context"
	"fmt"
	"strings"

	"github.com/delve-hq/delve/backend/internal/util"
	"github.com/delve-hq/delve/backend/pkg/ai"
	"github.com/delve-hq/delve/backend/pkg/canonical"
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/engine"
	"github.com/delve-hq/delve/backend/pkg/logger"
)

// TurnResult is the outcome of one processed respondent turn.
type TurnResult struct {
	SessionID string                   `json:"session_id"`
	Turn      int                      `json:"turn"`
	Question  string                   `json:"question"`
	Completed bool                     `json:"completed"`
	Analysis  *common.ResponseAnalysis `json:"analysis"`
	Selection *engine.Selection        `json:"selection"`

	NewConcepts      []common.Concept      `json:"new_concepts"`
	NewRelationships []common.Relationship `json:"new_relationships"`
}

/// ProcessTurn runs the full pipeline for one respondent answer: analysis,
// extraction, graph update, canonical observation, strategy selection and
// question generation. The caller must hold the session's turn lease; the
// pipeline itself assumes single-writer access to the session state.
//
// A failed turn leaves the respondent utterance persisted but produces no
// question; reprocessing the same answer is safe because concepts are
// matched by label and utterance ids are deterministic per save.
func (c *Client) ProcessTurn(ctx context.Context, sessionID string, answer string) (*TurnResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, fmt.Errorf("empty answer for session %s", sessionID)
	}

	state, err := c.sessionState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session := state.session
	turn := session.Turn + 1

	logger.Info("[Interview] Processing turn", "session", sessionID, "turn", turn)

	respondent := common.Utterance{
		ID:        util.MustNewID("utt"),
		SessionID: sessionID,
		Turn:      turn,
		Role:      "respondent",
		Text:      answer,
	}
	if err := c.storage.SaveUtterances(ctx, []common.Utterance{respondent}); err != nil {
		return nil, fmt.Errorf("failed to save respondent utterance: %w", err)
	}

	analysis, err := ai.AnalyzeResponse(ctx, c.aiClient, state.lastQuestion, answer)
	if err != nil {
		return nil, err
	}

	knownLabels := make([]string, 0, len(state.conceptsByKey))
	for _, concept := range state.conceptsByKey {
		knownLabels = append(knownLabels, concept.Label)
	}
	extraction, err := ai.ExtractConcepts(ctx, c.aiClient, session.Topic, state.lastQuestion, answer, knownLabels)
	if err != nil {
		return nil, err
	}

	update, err := c.applyExtraction(ctx, state, extraction, respondent, analysis, turn)
	if err != nil {
		return nil, err
	}

	snapshot := buildSnapshot(state.tracker, update.newConceptCount, update.newCanonicalCount)

	selection, err := state.engine.SelectStrategy(&engine.TurnContext{
		Session:          session,
		Graph:            snapshot,
		ResponseText:     answer,
		Analysis:         analysis,
		Tracker:          state.tracker,
		Velocity:         state.velocity,
		CanonicalEnabled: state.discoverer != nil,
	})
	if err != nil {
		return nil, err
	}

	focusLabel := ""
	if selection.HasFocus {
		if err := state.tracker.UpdateFocus(selection.ConceptID, turn, selection.Strategy); err != nil {
			return nil, err
		}
		focus, err := state.tracker.Get(selection.ConceptID)
		if err != nil {
			return nil, err
		}
		focusLabel = focus.Label
	}

	strategy, err := state.engine.Methodology().Strategy(selection.Strategy)
	if err != nil {
		return nil, err
	}

	question, err := ai.GenerateQuestion(ctx, c.aiClient, ai.QuestionRequest{
		Topic:               session.Topic,
		StrategyName:        strategy.Name,
		StrategyDescription: strategy.Description,
		FocusLabel:          focusLabel,
		RecentExchange: []ai.ChatMessage{
			{Role: "assistant", Message: state.lastQuestion},
			{Role: "user", Message: answer},
		},
	})
	if err != nil {
		return nil, err
	}

	session.Turn = turn
	session.StrategyHistory = append(session.StrategyHistory, selection.Strategy)

	if err := c.persistTurn(ctx, state, turn, selection, question, update); err != nil {
		return nil, err
	}

	state.lastQuestion = question

	completed := session.MaxTurns > 0 && session.Turn >= session.MaxTurns
	if completed {
		logger.Info("[Interview] Session reached turn budget", "session", sessionID, "turns", session.Turn)
	}

	return &TurnResult{
		SessionID:        sessionID,
		Turn:             turn,
		Question:         question,
		Completed:        completed,
		Analysis:         analysis,
		Selection:        selection,
		NewConcepts:      update.newConcepts,
		NewRelationships: update.newRelationships,
	}, nil
}

// turnUpdate accumulates the graph-side outcome of one extraction pass.
type turnUpdate struct {
	newConcepts      []common.Concept
	newRelationships []common.Relationship
	reassignments    []canonical.Reassignment

	newConceptCount   int
	newCanonicalCount int
}

// applyExtraction folds an extraction result into the session graph: new
// concepts are registered, relationships connected, the previous focus
// credited with its response signal and any yield, and each new concept is
// observed by the canonical layer when it is enabled.
func (c *Client) applyExtraction(
	ctx context.Context,
	state *sessionState,
	extraction *ai.ExtractionResult,
	respondent common.Utterance,
	analysis *common.ResponseAnalysis,
	turn int,
) (*turnUpdate, error) {
	update := &turnUpdate{}
	prevFocus := state.tracker.LastFocusID()

	for _, extracted := range extraction.Concepts {
		label := strings.TrimSpace(extracted.Label)
		if label == "" {
			continue
		}
		key := labelKey(label)
		source := common.Source{
			UtteranceID: respondent.ID,
			Turn:        turn,
			Excerpt:     extracted.Excerpt,
		}

		if existing, ok := state.conceptsByKey[key]; ok {
			if extracted.Confidence > existing.Confidence {
				existing.Confidence = extracted.Confidence
			}
			existing.Sources = append(existing.Sources, source)
			state.conceptsByKey[key] = existing
			update.newConcepts = append(update.newConcepts, existing)
			continue
		}

		concept := common.Concept{
			ID:         util.MustNewID("con"),
			Label:      label,
			Type:       extracted.Type,
			Confidence: extracted.Confidence,
			Sources:    []common.Source{source},
		}
		state.conceptsByKey[key] = concept
		state.tracker.Register(concept, turn)
		update.newConcepts = append(update.newConcepts, concept)
		update.newConceptCount++

		if state.discoverer != nil {
			created, err := c.observeCanonical(ctx, state, concept, turn, update)
			if err != nil {
				return nil, err
			}
			if created {
				update.newCanonicalCount++
			}
		}
	}

	yielded := false
	for _, extracted := range extraction.Relationships {
		source, okSource := state.conceptsByKey[labelKey(extracted.Source)]
		target, okTarget := state.conceptsByKey[labelKey(extracted.Target)]
		if !okSource || !okTarget || source.ID == target.ID {
			continue
		}

		rel := common.Relationship{
			ID:         util.MustNewID("rel"),
			SourceID:   source.ID,
			TargetID:   target.ID,
			Type:       extracted.Type,
			Confidence: extracted.Confidence,
			Sources:    []common.Source{{UtteranceID: respondent.ID, Turn: turn}},
		}
		if err := state.tracker.Connect(source.ID, target.ID); err != nil {
			return nil, err
		}
		update.newRelationships = append(update.newRelationships, rel)

		if source.ID == prevFocus || target.ID == prevFocus {
			yielded = true
		}
	}

	if prevFocus != "" {
		if err := state.tracker.AppendResponseSignal(prevFocus, analysis.Depth); err != nil {
			return nil, err
		}
		if yielded || touchesFocus(update.newConcepts, prevFocus) {
			summary := fmt.Sprintf("%d concepts, %d relationships", update.newConceptCount, len(update.newRelationships))
			if err := state.tracker.RecordYield(prevFocus, turn, summary); err != nil {
				return nil, err
			}
		}
	}

	state.tracker.AdvanceTurn()
	state.velocity.ObserveTurn(update.newConceptCount, update.newConceptCount, update.newCanonicalCount)

	return update, nil
}

// observeCanonical embeds one new concept and feeds it to the slot
// discoverer. It reports whether the observation created a new slot.
func (c *Client) observeCanonical(
	ctx context.Context,
	state *sessionState,
	concept common.Concept,
	turn int,
	update *turnUpdate,
) (bool, error) {
	embedding, err := c.aiClient.GenerateEmbedding(ctx, []byte(fmt.Sprintf("%s (%s)", concept.Label, concept.Type)))
	if err != nil {
		return false, fmt.Errorf("failed to embed concept %q: %w", concept.Label, err)
	}

	obs, err := state.discoverer.Observe(concept, embedding, turn)
	if err != nil {
		return false, err
	}
	if obs.Reassigned {
		moves := state.discoverer.Reassignments()
		if len(moves) > 0 {
			update.reassignments = append(update.reassignments, moves[len(moves)-1])
		}
	}
	return obs.CreatedSlot, nil
}

// labelKey normalizes a label for matching: extraction output and stored
// concepts meet on a case-insensitive, whitespace-collapsed form.
func labelKey(label string) string {
	return strings.ToLower(util.NormalizeLabel(label))
}

// touchesFocus reports whether the previous focus concept gained a new
// provenance source this turn, meaning the respondent kept producing
// material about it.
func touchesFocus(concepts []common.Concept, focusID string) bool {
	for _, concept := range concepts {
		if concept.ID == focusID {
			return true
		}
	}
	return false
}

// buildSnapshot derives the immutable per-turn graph view from tracker
// state.
func buildSnapshot(tracker *engine.NodeStateTracker, newConcepts, newCanonical int) common.GraphSnapshot {
	snapshot := common.GraphSnapshot{
		NodeCount:            tracker.Len(),
		NewConceptsThisTurn:  newConcepts,
		NewCanonicalThisTurn: newCanonical,
	}

	edges := 0
	for _, state := range tracker.States() {
		edges += state.EdgeCountOut
		if state.IsOrphan() {
			snapshot.OrphanCount++
		}
	}
	snapshot.EdgeCount = edges
	snapshot.MaxDepth = graphEccentricity(tracker)

	return snapshot
}

// graphEccentricity is the longest shortest-path (in hops) reachable from
// any node, a cheap proxy for how deep the elicited structure goes.
func graphEccentricity(tracker *engine.NodeStateTracker) int {
	maxDepth := 0
	for _, id := range tracker.ConceptIDs() {
		depth := bfsDepth(tracker, id)
		if depth > maxDepth {
			maxDepth = depth
		}
	}
	return maxDepth
}

func bfsDepth(tracker *engine.NodeStateTracker, startID string) int {
	visited := map[string]int{startID: 0}
	queue := []string{startID}
	depth := 0

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		state, err := tracker.Get(current)
		if err != nil {
			continue
		}
		for neighbor := range state.ConnectedIDs {
			if _, ok := visited[neighbor]; ok {
				continue
			}
			visited[neighbor] = visited[current] + 1
			if visited[neighbor] > depth {
				depth = visited[neighbor]
			}
			queue = append(queue, neighbor)
		}
	}
	return depth
}

// persistTurn flushes the turn's durable outcome: graph deltas, the decision
// decomposition, the interviewer question and the updated session row.
func (c *Client) persistTurn(
	ctx context.Context,
	state *sessionState,
	turn int,
	selection *engine.Selection,
	question string,
	update *turnUpdate,
) error {
	sessionID := state.session.ID

	if err := c.storage.SaveConcepts(ctx, sessionID, update.newConcepts); err != nil {
		return fmt.Errorf("failed to save concepts: %w", err)
	}
	if err := c.storage.SaveRelationships(ctx, sessionID, update.newRelationships); err != nil {
		return fmt.Errorf("failed to save relationships: %w", err)
	}
	if err := c.storage.SaveDecision(ctx, sessionID, turn, selection); err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}

	if state.discoverer != nil {
		slots := make([]canonical.Slot, 0)
		for _, slot := range state.discoverer.Slots() {
			slots = append(slots, *slot)
		}
		if err := c.storage.SaveCanonicalSlots(ctx, sessionID, slots); err != nil {
			return fmt.Errorf("failed to save canonical slots: %w", err)
		}
		if err := c.storage.SaveReassignments(ctx, sessionID, update.reassignments); err != nil {
			return fmt.Errorf("failed to save reassignments: %w", err)
		}
	}

	interviewer := common.Utterance{
		ID:        util.MustNewID("utt"),
		SessionID: sessionID,
		Turn:      turn,
		Role:      "interviewer",
		Text:      question,
	}
	if err := c.storage.SaveUtterances(ctx, []common.Utterance{interviewer}); err != nil {
		return fmt.Errorf("failed to save question: %w", err)
	}

	if err := c.storage.UpdateSession(ctx, state.session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}
