package store

import (
	"context"
	"time"

	"github.com/delve-hq/delve/backend/pkg/canonical"
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/engine"
)

// TurnDecision is a persisted strategy selection for one turn, including the
// full scoring decomposition so a past decision can be audited without
// replaying the session.
type TurnDecision struct {
	SessionID string           `json:"session_id"`
	Turn      int              `json:"turn"`
	Selection engine.Selection `json:"selection"`
	CreatedAt time.Time        `json:"created_at"`
}

// InterviewStorage defines the interface for persisting interview sessions,
// transcripts, the per-session concept graph, canonical identity slots, and
// the decision trail produced by the selection engine.
type InterviewStorage interface {
	CreateSession(ctx context.Context, session *common.Session) error
	GetSession(ctx context.Context, id string) (*common.Session, error)
	UpdateSession(ctx context.Context, session *common.Session) error
	ListSessions(ctx context.Context) ([]common.Session, error)

	SaveUtterances(ctx context.Context, utterances []common.Utterance) error
	GetTranscript(ctx context.Context, sessionID string) ([]common.Utterance, error)

	SaveConcepts(ctx context.Context, sessionID string, concepts []common.Concept) error
	GetConcepts(ctx context.Context, sessionID string) ([]common.Concept, error)
	FindSimilarConcepts(ctx context.Context, sessionID string, embedding []float32, limit int) ([]common.Concept, error)

	SaveRelationships(ctx context.Context, sessionID string, relations []common.Relationship) error
	GetRelationships(ctx context.Context, sessionID string) ([]common.Relationship, error)

	SaveDecision(ctx context.Context, sessionID string, turn int, selection *engine.Selection) error
	GetDecisions(ctx context.Context, sessionID string) ([]TurnDecision, error)

	SaveCanonicalSlots(ctx context.Context, sessionID string, slots []canonical.Slot) error
	GetCanonicalSlots(ctx context.Context, sessionID string) ([]canonical.Slot, error)
	SaveReassignments(ctx context.Context, sessionID string, moves []canonical.Reassignment) error
	GetReassignments(ctx context.Context, sessionID string) ([]canonical.Reassignment, error)
}
