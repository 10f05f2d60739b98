// Package interview orchestrates the per-turn pipeline: response analysis,
// concept extraction, graph update, canonical observation, strategy
// selection and question generation. The selection engine itself stays pure;
// everything with side effects lives here.
package interview

import (
	"context"
	"fmt"
	"sync"

	"github.com/delve-hq/delve/backend/internal/util"
	"github.com/delve-hq/delve/backend/pkg/ai"
	"github.com/delve-hq/delve/backend/pkg/canonical"
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/engine"
	"github.com/delve-hq/delve/backend/pkg/logger"
	"github.com/delve-hq/delve/backend/pkg/methodology"
	"github.com/delve-hq/delve/backend/pkg/store"
)

const defaultMaxTurns = 20

// Client runs interviews. It owns the in-memory runtime state of every
// active session (tracker, velocity counters, canonical discoverer) and
// coordinates the AI and storage collaborators around the selection engine.
type Client struct {
	aiClient  ai.InterviewAIClient
	storage   store.InterviewStorage
	registry  *methodology.Registry
	detectors *engine.DetectorRegistry

	stateLock sync.Mutex
	states    map[string]*sessionState
}

type NewClientParams struct {
	AIClient      ai.InterviewAIClient
	Storage       store.InterviewStorage
	Methodologies *methodology.Registry
	Detectors     *engine.DetectorRegistry
}

// sessionState is the per-session runtime state. It is rebuilt from storage
// when a session is first touched after a process restart.
type sessionState struct {
	session  *common.Session
	engine   *engine.Engine
	tracker  *engine.NodeStateTracker
	velocity *engine.VelocityTracker

	// discoverer is nil when the methodology does not enable the canonical
	// layer.
	discoverer *canonical.Discoverer

	// conceptsByKey maps normalized labels to concepts for extraction
	// matching.
	conceptsByKey map[string]common.Concept

	lastQuestion string
}

func NewClient(params NewClientParams) (*Client, error) {
	if params.AIClient == nil {
		return nil, fmt.Errorf("interview client requires an AI client")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("interview client requires storage")
	}
	if params.Methodologies == nil {
		return nil, fmt.Errorf("interview client requires a methodology registry")
	}
	if params.Detectors == nil {
		return nil, fmt.Errorf("interview client requires a detector registry")
	}
	return &Client{
		aiClient:  params.AIClient,
		storage:   params.Storage,
		registry:  params.Methodologies,
		detectors: params.Detectors,
		states:    make(map[string]*sessionState),
	}, nil
}

type StartSessionParams struct {
	Topic         string
	MethodologyID string
	Mode          string
	MaxTurns      int
}

// StartSession creates a session and produces its opening question.
func (c *Client) StartSession(ctx context.Context, params StartSessionParams) (*common.Session, string, error) {
	meth, err := c.registry.Get(params.MethodologyID)
	if err != nil {
		return nil, "", err
	}

	maxTurns := params.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	mode := params.Mode
	if mode == "" {
		mode = "automatic"
	}

	session := &common.Session{
		ID:            util.MustNewID("ses"),
		Topic:         params.Topic,
		MethodologyID: meth.ID,
		Mode:          mode,
		Turn:          0,
		MaxTurns:      maxTurns,
	}

	if err := c.storage.CreateSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	state, err := c.buildState(session, meth)
	if err != nil {
		return nil, "", err
	}

	question, err := ai.GenerateQuestion(ctx, c.aiClient, ai.QuestionRequest{
		Topic:        session.Topic,
		StrategyName: "opening",
		StrategyDescription: "Open the interview: a broad, inviting question " +
			"about the topic that lets the respondent pick their own entry point.",
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate opening question: %w", err)
	}

	opening := common.Utterance{
		ID:        util.MustNewID("utt"),
		SessionID: session.ID,
		Turn:      0,
		Role:      "interviewer",
		Text:      question,
	}
	if err := c.storage.SaveUtterances(ctx, []common.Utterance{opening}); err != nil {
		return nil, "", fmt.Errorf("failed to save opening question: %w", err)
	}

	state.lastQuestion = question

	c.stateLock.Lock()
	c.states[session.ID] = state
	c.stateLock.Unlock()

	logger.Info("[Interview] Session started", "session", session.ID, "methodology", meth.ID)
	return session, question, nil
}

// GetSession returns the durable session record.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*common.Session, error) {
	c.stateLock.Lock()
	state, ok := c.states[sessionID]
	c.stateLock.Unlock()
	if ok {
		return state.session, nil
	}
	return c.storage.GetSession(ctx, sessionID)
}

func (c *Client) buildState(session *common.Session, meth *methodology.Methodology) (*sessionState, error) {
	eng, err := engine.New(meth, c.detectors)
	if err != nil {
		return nil, err
	}

	state := &sessionState{
		session:       session,
		engine:        eng,
		tracker:       engine.NewNodeStateTracker(),
		velocity:      engine.NewVelocityTracker(),
		conceptsByKey: make(map[string]common.Concept),
	}

	if meth.Canonical != nil && meth.Canonical.Enabled {
		discoverer, err := canonical.NewDiscoverer(meth.Canonical)
		if err != nil {
			return nil, err
		}
		state.discoverer = discoverer
	}

	return state, nil
}

// sessionState returns the runtime state for a session, rehydrating it from
// storage when the session is not resident (worker restart, multi-process).
func (c *Client) sessionState(ctx context.Context, sessionID string) (*sessionState, error) {
	c.stateLock.Lock()
	state, ok := c.states[sessionID]
	c.stateLock.Unlock()
	if ok {
		return state, nil
	}

	session, err := c.storage.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	meth, err := c.registry.Get(session.MethodologyID)
	if err != nil {
		return nil, err
	}

	state, err = c.buildState(session, meth)
	if err != nil {
		return nil, err
	}
	if err := c.rehydrate(ctx, state); err != nil {
		return nil, err
	}

	c.stateLock.Lock()
	// Another goroutine may have rehydrated first; keep the resident state.
	if existing, ok := c.states[sessionID]; ok {
		state = existing
	} else {
		c.states[sessionID] = state
	}
	c.stateLock.Unlock()

	return state, nil
}

// rehydrate rebuilds tracker and velocity state from the persisted graph and
// transcript. Lifecycle counters that depend on turn-by-turn history (yield
// streaks, depth history) restart empty; the graph structure itself is
// restored in full.
func (c *Client) rehydrate(ctx context.Context, state *sessionState) error {
	sessionID := state.session.ID

	concepts, err := c.storage.GetConcepts(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load concepts: %w", err)
	}
	for _, concept := range concepts {
		state.tracker.Register(concept, state.session.Turn)
		state.conceptsByKey[labelKey(concept.Label)] = concept
	}

	relations, err := c.storage.GetRelationships(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load relationships: %w", err)
	}
	for _, rel := range relations {
		if err := state.tracker.Connect(rel.SourceID, rel.TargetID); err != nil {
			return err
		}
	}

	if state.discoverer != nil {
		slots, err := c.storage.GetCanonicalSlots(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("failed to load canonical slots: %w", err)
		}
		if err := state.discoverer.Restore(slots); err != nil {
			return err
		}
	}

	transcript, err := c.storage.GetTranscript(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Role == "interviewer" {
			state.lastQuestion = transcript[i].Text
			break
		}
	}

	logger.Info("[Interview] Session rehydrated",
		"session", sessionID,
		"concepts", len(concepts),
		"relationships", len(relations),
	)
	return nil
}
