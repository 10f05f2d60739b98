package pgx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/logger"
	"github.com/delve-hq/delve/backend/pkg/store"
)

const upsertConceptSQL = `
INSERT INTO concepts (id, session_id, label, type, confidence, properties, sources, embedding, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (id) DO UPDATE
SET confidence = EXCLUDED.confidence,
    properties = EXCLUDED.properties,
    sources    = EXCLUDED.sources
`

const selectConceptsSQL = `
SELECT id, label, type, confidence, properties, sources
FROM concepts
WHERE session_id = $1
ORDER BY created_at ASC
`

const similarConceptsSQL = `
SELECT id, label, type, confidence, properties, sources
FROM concepts
WHERE session_id = $1
  AND embedding IS NOT NULL
  AND 1 - (embedding <=> $2) >= $4
ORDER BY embedding <=> $2
LIMIT $3
`

const conceptChunk = 100

// SaveConcepts persists a batch of concepts. Each concept is embedded from
// its label and type so later turns can find semantic near-duplicates.
// Re-saving an existing concept refreshes confidence, properties and sources
// but keeps the original embedding.
func (s *InterviewDBStorage) SaveConcepts(ctx context.Context, sessionID string, concepts []common.Concept) error {
	if len(concepts) == 0 {
		return nil
	}

	return store.ChunkRange(len(concepts), conceptChunk, func(start, end int) error {
		chunk := concepts[start:end]

		logger.Debug("[Store][SaveConcepts] Saving chunk", "session", sessionID, "concepts", len(chunk))

		inputs := make([][]byte, len(chunk))
		for i := range chunk {
			inputs[i] = []byte(fmt.Sprintf("%s (%s)", chunk[i].Label, chunk[i].Type))
		}
		embeddings, err := store.GenerateEmbeddings(ctx, s.aiClient, inputs)
		if err != nil {
			return err
		}

		s.dbLock.Lock()
		defer s.dbLock.Unlock()

		tx, err := s.conn.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for i, c := range chunk {
			properties, err := json.Marshal(c.Properties)
			if err != nil {
				return err
			}
			sources, err := json.Marshal(c.Sources)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, upsertConceptSQL,
				c.ID,
				sessionID,
				c.Label,
				c.Type,
				c.Confidence,
				properties,
				sources,
				pgvector.NewVector(embeddings[i]),
			)
			if err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
}

func (s *InterviewDBStorage) GetConcepts(ctx context.Context, sessionID string) ([]common.Concept, error) {
	rows, err := s.conn.Query(ctx, selectConceptsSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []common.Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, *c)
	}
	return concepts, rows.Err()
}

// FindSimilarConcepts returns the concepts closest to the given embedding by
// cosine similarity, filtered to a minimum similarity of 0.4.
func (s *InterviewDBStorage) FindSimilarConcepts(
	ctx context.Context,
	sessionID string,
	embedding []float32,
	limit int,
) ([]common.Concept, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.conn.Query(ctx, similarConceptsSQL, sessionID, pgvector.NewVector(embedding), limit, 0.4)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var concepts []common.Concept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, *c)
	}
	return concepts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConcept(row rowScanner) (*common.Concept, error) {
	var (
		c          common.Concept
		properties []byte
		sources    []byte
	)
	err := row.Scan(&c.ID, &c.Label, &c.Type, &c.Confidence, &properties, &sources)
	if err != nil {
		return nil, err
	}
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &c.Properties); err != nil {
			return nil, err
		}
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &c.Sources); err != nil {
			return nil, err
		}
	}
	return &c, nil
}
