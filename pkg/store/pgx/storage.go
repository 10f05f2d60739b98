package pgx

import (
	"context"
	"sync"

	"github.com/delve-hq/delve/backend/pkg/ai"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// InterviewDBStorage implements the InterviewStorage interface using
// PostgreSQL with pgvector for concept similarity search. Writes are
// serialized with a mutex so a session's turn pipeline never interleaves
// partial graph updates.
type InterviewDBStorage struct {
	conn     pgxIConn
	aiClient ai.InterviewAIClient
	dbLock   sync.Mutex
}

type InterviewDBStorageOption func(*InterviewDBStorage)

// NewInterviewDBStorageWithConnection creates a new InterviewDBStorage using
// an existing database connection. The AI client is used for generating
// concept embeddings on save.
func NewInterviewDBStorageWithConnection(
	ctx context.Context,
	conn pgxIConn,
	aiClient ai.InterviewAIClient,
	opts ...InterviewDBStorageOption,
) (*InterviewDBStorage, error) {
	s := &InterviewDBStorage{
		conn:     conn,
		aiClient: aiClient,
		dbLock:   sync.Mutex{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}
