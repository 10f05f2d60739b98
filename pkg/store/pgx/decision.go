package pgx

import (
	"context"
	"encoding/json"

	"github.com/delve-hq/delve/backend/pkg/engine"
	"github.com/delve-hq/delve/backend/pkg/store"
)

const upsertDecisionSQL = `
INSERT INTO decisions (session_id, turn, selection, created_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (session_id, turn) DO UPDATE
SET selection = EXCLUDED.selection
`

const selectDecisionsSQL = `
SELECT session_id, turn, selection, created_at
FROM decisions
WHERE session_id = $1
ORDER BY turn ASC
`

// SaveDecision persists the scoring decomposition for one turn. Writing the
// same turn twice replaces the earlier record, which only happens when a
// turn is reprocessed after a transient failure.
func (s *InterviewDBStorage) SaveDecision(ctx context.Context, sessionID string, turn int, selection *engine.Selection) error {
	payload, err := json.Marshal(selection)
	if err != nil {
		return err
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	_, err = s.conn.Exec(ctx, upsertDecisionSQL, sessionID, turn, payload)
	return err
}

func (s *InterviewDBStorage) GetDecisions(ctx context.Context, sessionID string) ([]store.TurnDecision, error) {
	rows, err := s.conn.Query(ctx, selectDecisionsSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []store.TurnDecision
	for rows.Next() {
		var (
			d       store.TurnDecision
			payload []byte
		)
		if err := rows.Scan(&d.SessionID, &d.Turn, &payload, &d.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &d.Selection); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
