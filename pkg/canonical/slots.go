package canonical

import (
	"fmt"
	"strings"

	"github.com/delve-hq/delve/backend/internal/util"
	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/methodology"
)

// SlotStatus is the lifecycle state of a canonical slot.
type SlotStatus string

const (
	// SlotCandidate is a freshly proposed slot that has not yet accumulated
	// enough distinct supporting concepts.
	SlotCandidate SlotStatus = "candidate"
	// SlotActive is a slot with at least min_support distinct members.
	SlotActive SlotStatus = "active"
)

// Slot is one canonical concept grouping semantically similar surface
// concepts of the same type. Slots live in a secondary layer; the primary
// graph is never rewritten to point at them.
type Slot struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	ConceptType string     `json:"concept_type"`
	Status      SlotStatus `json:"status"`

	// Centroid is the running mean of the member embeddings. It drifts as
	// members join, so similarity is always judged against the current
	// center of the group, not the founding concept.
	Centroid []float32 `json:"-"`

	MemberIDs  []string `json:"member_ids"`
	CreatedAt  int      `json:"created_turn"`
	PromotedAt int      `json:"promoted_turn,omitempty"`
}

// Support is the number of distinct surface concepts backing the slot.
func (s *Slot) Support() int {
	return len(s.MemberIDs)
}

// Reassignment records a surface concept moving from one slot to another.
// Prior mappings are never overwritten silently; every move leaves one of
// these behind.
type Reassignment struct {
	ConceptID  string  `json:"concept_id"`
	FromSlotID string  `json:"from_slot_id"`
	ToSlotID   string  `json:"to_slot_id"`
	Similarity float64 `json:"similarity"`
	Turn       int     `json:"turn"`
}

// Observation is the outcome of observing one surface concept.
type Observation struct {
	SlotID     string  `json:"slot_id"`
	Similarity float64 `json:"similarity"`

	// CreatedSlot reports that the concept seeded a brand-new candidate
	// slot, which is what the canonical-novelty saturation signal counts.
	CreatedSlot  bool `json:"created_slot"`
	PromotedSlot bool `json:"promoted_slot"`
	Reassigned   bool `json:"reassigned"`
}

// Discoverer maintains the canonical slot layer for one session. It is
// mutated only inside that session's turn pipeline and needs no locking.
type Discoverer struct {
	threshold  float64
	minSupport int

	slots         []*Slot
	bySlotID      map[string]*Slot
	assignments   map[string]string // surface concept id -> slot id
	reassignments []Reassignment
}

// NewDiscoverer creates a discoverer from a methodology's canonical layer
// settings. A nil or disabled config is a ConfigurationError; callers gate
// on Methodology.Canonical before constructing one.
func NewDiscoverer(cfg *methodology.CanonicalConfig) (*Discoverer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, methodology.NewConfigurationError("canonical layer requested but not enabled")
	}
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		return nil, methodology.NewConfigurationError(
			"canonical similarity threshold %v outside (0, 1]", cfg.SimilarityThreshold)
	}
	if cfg.MinSupport < 1 {
		return nil, methodology.NewConfigurationError("canonical min_support %d < 1", cfg.MinSupport)
	}
	return &Discoverer{
		threshold:   cfg.SimilarityThreshold,
		minSupport:  cfg.MinSupport,
		bySlotID:    make(map[string]*Slot),
		assignments: make(map[string]string),
	}, nil
}

// Observe maps one surface concept into the slot layer. The concept joins
// the most similar slot of its own concept type when similarity clears the
// threshold, otherwise it seeds a new candidate slot. A concept observed
// again may move to a better slot; the move is recorded as a Reassignment.
func (d *Discoverer) Observe(concept common.Concept, embedding []float32, turn int) (*Observation, error) {
	if concept.ID == "" {
		return nil, fmt.Errorf("concept has no id")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("concept %s has no embedding", concept.ID)
	}

	prevID, hadPrev := d.assignments[concept.ID]

	best, bestSim := d.bestSlot(concept.Type, embedding)
	if best == nil || bestSim < d.threshold {
		slot := d.createSlot(concept, embedding, turn)
		obs := &Observation{SlotID: slot.ID, Similarity: 1, CreatedSlot: true}
		if hadPrev && prevID != slot.ID {
			d.detach(prevID, concept.ID)
			d.reassignments = append(d.reassignments, Reassignment{
				ConceptID:  concept.ID,
				FromSlotID: prevID,
				ToSlotID:   slot.ID,
				Similarity: 1,
				Turn:       turn,
			})
			obs.Reassigned = true
		}
		return obs, nil
	}

	obs := &Observation{SlotID: best.ID, Similarity: bestSim}

	if hadPrev {
		if prevID == best.ID {
			return obs, nil
		}
		d.detach(prevID, concept.ID)
		d.reassignments = append(d.reassignments, Reassignment{
			ConceptID:  concept.ID,
			FromSlotID: prevID,
			ToSlotID:   best.ID,
			Similarity: bestSim,
			Turn:       turn,
		})
		obs.Reassigned = true
	}

	d.attach(best, concept.ID, embedding)
	if best.Status == SlotCandidate && best.Support() >= d.minSupport {
		best.Status = SlotActive
		best.PromotedAt = turn
		obs.PromotedSlot = true
	}
	return obs, nil
}

// bestSlot returns the most similar slot sharing the concept type. Slots of
// other types are never considered: chain levels stay separate even when
// their embeddings sit close together.
func (d *Discoverer) bestSlot(conceptType string, embedding []float32) (*Slot, float64) {
	wantType := strings.ToLower(conceptType)

	var best *Slot
	bestSim := -1.0
	for _, slot := range d.slots {
		if slot.ConceptType != wantType {
			continue
		}
		if sim := CosineSimilarity(slot.Centroid, embedding); sim > bestSim {
			best, bestSim = slot, sim
		}
	}
	return best, bestSim
}

func (d *Discoverer) createSlot(concept common.Concept, embedding []float32, turn int) *Slot {
	centroid := make([]float32, len(embedding))
	copy(centroid, embedding)

	slot := &Slot{
		ID:          util.MustNewID("slot"),
		Label:       util.NormalizeLabel(concept.Label),
		ConceptType: strings.ToLower(concept.Type),
		Status:      SlotCandidate,
		Centroid:    centroid,
		MemberIDs:   []string{concept.ID},
		CreatedAt:   turn,
	}
	d.slots = append(d.slots, slot)
	d.bySlotID[slot.ID] = slot
	d.assignments[concept.ID] = slot.ID
	return slot
}

func (d *Discoverer) attach(slot *Slot, conceptID string, embedding []float32) {
	for _, id := range slot.MemberIDs {
		if id == conceptID {
			d.assignments[conceptID] = slot.ID
			return
		}
	}

	// Running mean: centroid' = (centroid*n + embedding) / (n+1).
	n := float32(len(slot.MemberIDs))
	for i := range slot.Centroid {
		slot.Centroid[i] = (slot.Centroid[i]*n + embedding[i]) / (n + 1)
	}
	slot.MemberIDs = append(slot.MemberIDs, conceptID)
	d.assignments[conceptID] = slot.ID
}

func (d *Discoverer) detach(slotID, conceptID string) {
	slot, ok := d.bySlotID[slotID]
	if !ok {
		return
	}
	for i, id := range slot.MemberIDs {
		if id == conceptID {
			slot.MemberIDs = append(slot.MemberIDs[:i], slot.MemberIDs[i+1:]...)
			break
		}
	}
}

// Restore reloads previously persisted slots into an empty discoverer so a
// session can continue on another process. Restoring into a discoverer that
// has already observed concepts is a caller bug.
func (d *Discoverer) Restore(slots []Slot) error {
	if len(d.slots) > 0 {
		return fmt.Errorf("cannot restore into a discoverer with %d live slots", len(d.slots))
	}
	for i := range slots {
		slot := slots[i]
		centroid := make([]float32, len(slot.Centroid))
		copy(centroid, slot.Centroid)
		slot.Centroid = centroid
		slot.MemberIDs = append([]string(nil), slot.MemberIDs...)

		d.slots = append(d.slots, &slot)
		d.bySlotID[slot.ID] = &slot
		for _, memberID := range slot.MemberIDs {
			d.assignments[memberID] = slot.ID
		}
	}
	return nil
}

// Assignment returns the slot id a surface concept currently maps to.
func (d *Discoverer) Assignment(conceptID string) (string, bool) {
	id, ok := d.assignments[conceptID]
	return id, ok
}

// Slots returns all slots in creation order.
func (d *Discoverer) Slots() []*Slot {
	out := make([]*Slot, len(d.slots))
	copy(out, d.slots)
	return out
}

// ActiveSlots returns only the slots promoted to active.
func (d *Discoverer) ActiveSlots() []*Slot {
	out := make([]*Slot, 0, len(d.slots))
	for _, slot := range d.slots {
		if slot.Status == SlotActive {
			out = append(out, slot)
		}
	}
	return out
}

// Reassignments returns the recorded mapping moves, oldest first.
func (d *Discoverer) Reassignments() []Reassignment {
	out := make([]Reassignment, len(d.reassignments))
	copy(out, d.reassignments)
	return out
}
