package pgx

import (
	"context"

	"github.com/delve-hq/delve/backend/pkg/common"
)

const insertUtteranceSQL = `
INSERT INTO utterances (id, session_id, turn, role, text, created_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (id) DO NOTHING
`

const selectTranscriptSQL = `
SELECT id, session_id, turn, role, text, created_at
FROM utterances
WHERE session_id = $1
ORDER BY turn ASC, created_at ASC
`

func (s *InterviewDBStorage) SaveUtterances(ctx context.Context, utterances []common.Utterance) error {
	if len(utterances) == 0 {
		return nil
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, u := range utterances {
		_, err := tx.Exec(ctx, insertUtteranceSQL, u.ID, u.SessionID, u.Turn, u.Role, u.Text)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *InterviewDBStorage) GetTranscript(ctx context.Context, sessionID string) ([]common.Utterance, error) {
	rows, err := s.conn.Query(ctx, selectTranscriptSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcript []common.Utterance
	for rows.Next() {
		var u common.Utterance
		if err := rows.Scan(&u.ID, &u.SessionID, &u.Turn, &u.Role, &u.Text, &u.CreatedAt); err != nil {
			return nil, err
		}
		transcript = append(transcript, u)
	}
	return transcript, rows.Err()
}
