package pgx

import (
	"context"
	"encoding/json"

	"github.com/pgvector/pgvector-go"

	"github.com/delve-hq/delve/backend/pkg/canonical"
)

const upsertSlotSQL = `
INSERT INTO canonical_slots (id, session_id, label, concept_type, status, centroid, member_ids, created_turn, promoted_turn)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE
SET label         = EXCLUDED.label,
    status        = EXCLUDED.status,
    centroid      = EXCLUDED.centroid,
    member_ids    = EXCLUDED.member_ids,
    promoted_turn = EXCLUDED.promoted_turn
`

const selectSlotsSQL = `
SELECT id, label, concept_type, status, centroid, member_ids, created_turn, promoted_turn
FROM canonical_slots
WHERE session_id = $1
ORDER BY created_turn ASC, id ASC
`

const insertReassignmentSQL = `
INSERT INTO canonical_reassignments (session_id, concept_id, from_slot_id, to_slot_id, similarity, turn, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (session_id, concept_id, turn, to_slot_id) DO NOTHING
`

const selectReassignmentsSQL = `
SELECT concept_id, from_slot_id, to_slot_id, similarity, turn
FROM canonical_reassignments
WHERE session_id = $1
ORDER BY turn ASC, created_at ASC
`

// SaveCanonicalSlots writes the discoverer's slot table for a session. Slots
// are upserted so each turn can flush the full table after observation.
func (s *InterviewDBStorage) SaveCanonicalSlots(ctx context.Context, sessionID string, slots []canonical.Slot) error {
	if len(slots) == 0 {
		return nil
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, slot := range slots {
		members, err := json.Marshal(slot.MemberIDs)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, upsertSlotSQL,
			slot.ID,
			sessionID,
			slot.Label,
			slot.ConceptType,
			string(slot.Status),
			pgvector.NewVector(slot.Centroid),
			members,
			slot.CreatedAt,
			slot.PromotedAt,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *InterviewDBStorage) GetCanonicalSlots(ctx context.Context, sessionID string) ([]canonical.Slot, error) {
	rows, err := s.conn.Query(ctx, selectSlotsSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []canonical.Slot
	for rows.Next() {
		var (
			slot     canonical.Slot
			status   string
			centroid pgvector.Vector
			members  []byte
		)
		err := rows.Scan(&slot.ID, &slot.Label, &slot.ConceptType, &status, &centroid, &members, &slot.CreatedAt, &slot.PromotedAt)
		if err != nil {
			return nil, err
		}
		slot.Status = canonical.SlotStatus(status)
		slot.Centroid = centroid.Slice()
		if len(members) > 0 {
			if err := json.Unmarshal(members, &slot.MemberIDs); err != nil {
				return nil, err
			}
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *InterviewDBStorage) SaveReassignments(ctx context.Context, sessionID string, moves []canonical.Reassignment) error {
	if len(moves) == 0 {
		return nil
	}

	s.dbLock.Lock()
	defer s.dbLock.Unlock()

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, m := range moves {
		_, err := tx.Exec(ctx, insertReassignmentSQL,
			sessionID,
			m.ConceptID,
			m.FromSlotID,
			m.ToSlotID,
			m.Similarity,
			m.Turn,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *InterviewDBStorage) GetReassignments(ctx context.Context, sessionID string) ([]canonical.Reassignment, error) {
	rows, err := s.conn.Query(ctx, selectReassignmentsSQL, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var moves []canonical.Reassignment
	for rows.Next() {
		var m canonical.Reassignment
		if err := rows.Scan(&m.ConceptID, &m.FromSlotID, &m.ToSlotID, &m.Similarity, &m.Turn); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}
