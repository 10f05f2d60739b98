package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pgxv5 "github.com/jackc/pgx/v5"

	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/logger"
)

const insertSessionSQL = `
INSERT INTO sessions (id, topic, methodology_id, seed_concept_id, mode, turn, max_turns, strategy_history, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
`

const updateSessionSQL = `
UPDATE sessions
SET turn = $2, max_turns = $3, seed_concept_id = $4, strategy_history = $5, updated_at = now()
WHERE id = $1
`

const selectSessionSQL = `
SELECT id, topic, methodology_id, seed_concept_id, mode, turn, max_turns, strategy_history, created_at, updated_at
FROM sessions
WHERE id = $1
`

const listSessionsSQL = `
SELECT id, topic, methodology_id, seed_concept_id, mode, turn, max_turns, strategy_history, created_at, updated_at
FROM sessions
ORDER BY created_at DESC
`

// ErrSessionNotFound is returned when a session id does not exist.
var ErrSessionNotFound = errors.New("session not found")

func (s *InterviewDBStorage) CreateSession(ctx context.Context, session *common.Session) error {
	history, err := json.Marshal(session.StrategyHistory)
	if err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	logger.Debug("[Store][CreateSession] Inserting session", "session", session.ID)
	_, err = s.conn.Exec(ctx, insertSessionSQL,
		session.ID,
		session.Topic,
		session.MethodologyID,
		session.SeedConceptID,
		session.Mode,
		session.Turn,
		session.MaxTurns,
		history,
	)
	return err
}

func (s *InterviewDBStorage) UpdateSession(ctx context.Context, session *common.Session) error {
	history, err := json.Marshal(session.StrategyHistory)
	if err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tag, err := s.conn.Exec(ctx, updateSessionSQL,
		session.ID,
		session.Turn,
		session.MaxTurns,
		session.SeedConceptID,
		history,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *InterviewDBStorage) GetSession(ctx context.Context, id string) (*common.Session, error) {
	row := s.conn.QueryRow(ctx, selectSessionSQL, id)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *InterviewDBStorage) ListSessions(ctx context.Context) ([]common.Session, error) {
	rows, err := s.conn.Query(ctx, listSessionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []common.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

func scanSession(row pgxv5.Row) (*common.Session, error) {
	var (
		session   common.Session
		history   []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&session.ID,
		&session.Topic,
		&session.MethodologyID,
		&session.SeedConceptID,
		&session.Mode,
		&session.Turn,
		&session.MaxTurns,
		&history,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &session.StrategyHistory); err != nil {
			return nil, err
		}
	}
	session.CreatedAt = createdAt
	session.UpdatedAt = updatedAt
	return &session, nil
}
