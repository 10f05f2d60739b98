package pgx

import (
	"context"
	"encoding/json"

	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/logger"
)

const upsertRelationshipSQL = `
INSERT INTO relationships (id, session_id, source_id, target_id, type, confidence, sources, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now())
ON CONFLICT (id) DO UPDATE
SET confidence = EXCLUDED.confidence,
    sources    = EXCLUDED.sources
`

const selectRelationshipsSQL = `
SELECT id, source_id, target_id, type, confidence, sources
FROM relationships
WHERE session_id = $1
ORDER BY created_at ASC
`

func (s *InterviewDBStorage) SaveRelationships(ctx context.Context, sessionID string, relations []common.Relationship) error {
	if len(relations) == 0 {
		return nil
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	logger.Debug("[Store][SaveRelationships] Saving", "session", sessionID, "relationships", len(relations))

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range relations {
		sources, err := json.Marshal(r.Sources)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, upsertRelationshipSQL,
			r.ID,
			sessionID,
			r.SourceID,
			r.TargetID,
			r.Type,
			r.Confidence,
			sources,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *InterviewDBStorage) GetRelationships(ctx context.Context, sessionID string) ([]common.Relationship, error) {
	rows, err := s.conn.Query(ctx, selectRelationshipsSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []common.Relationship
	for rows.Next() {
		var (
			r       common.Relationship
			sources []byte
		)
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Type, &r.Confidence, &sources); err != nil {
			return nil, err
		}
		if len(sources) > 0 {
			if err := json.Unmarshal(sources, &r.Sources); err != nil {
				return nil, err
			}
		}
		relations = append(relations, r)
	}
	return relations, rows.Err()
}
