package canonical

import (
	"testing"

	"github.com/delve-hq/delve/backend/pkg/common"
	"github.com/delve-hq/delve/backend/pkg/methodology"
)

func testDiscoverer(t *testing.T, threshold float64, minSupport int) *Discoverer {
	t.Helper()
	d, err := NewDiscoverer(&methodology.CanonicalConfig{
		Enabled:             true,
		SimilarityThreshold: threshold,
		MinSupport:          minSupport,
	})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched lengths", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewDiscovererRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  *methodology.CanonicalConfig
	}{
		{"nil config", nil},
		{"disabled", &methodology.CanonicalConfig{SimilarityThreshold: 0.8, MinSupport: 2}},
		{"threshold zero", &methodology.CanonicalConfig{Enabled: true, MinSupport: 2}},
		{"threshold above one", &methodology.CanonicalConfig{Enabled: true, SimilarityThreshold: 1.5, MinSupport: 2}},
		{"min support zero", &methodology.CanonicalConfig{Enabled: true, SimilarityThreshold: 0.8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDiscoverer(tt.cfg); err == nil {
				t.Errorf("bad config accepted")
			}
		})
	}
}

func TestObserveGroupsSimilarConcepts(t *testing.T) {
	d := testDiscoverer(t, 0.9, 2)

	first, err := d.Observe(common.Concept{ID: "c1", Label: "price", Type: "attribute"}, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !first.CreatedSlot {
		t.Fatalf("first concept should create a slot")
	}

	// Nearly parallel vector joins the existing slot and promotes it.
	second, err := d.Observe(common.Concept{ID: "c2", Label: "cost", Type: "attribute"}, []float32{0.99, 0.01, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if second.CreatedSlot {
		t.Errorf("similar concept created a new slot instead of joining")
	}
	if second.SlotID != first.SlotID {
		t.Errorf("concepts landed in different slots")
	}
	if !second.PromotedSlot {
		t.Errorf("slot should promote at min support 2")
	}

	slot, ok := d.bySlotID[first.SlotID]
	if !ok {
		t.Fatal("slot disappeared")
	}
	if slot.Status != SlotActive || slot.Support() != 2 {
		t.Errorf("slot = %+v, want active with support 2", slot)
	}
}

func TestObserveNeverMergesAcrossConceptTypes(t *testing.T) {
	d := testDiscoverer(t, 0.9, 2)

	attr, err := d.Observe(common.Concept{ID: "c1", Label: "saving money", Type: "attribute"}, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	value, err := d.Observe(common.Concept{ID: "c2", Label: "financial security", Type: "value"}, []float32{1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}

	if attr.SlotID == value.SlotID {
		t.Fatalf("identical embeddings of different types merged into one slot")
	}
	if !value.CreatedSlot {
		t.Errorf("cross-type concept should seed its own slot")
	}
}

func TestObserveDissimilarConceptCreatesSlot(t *testing.T) {
	d := testDiscoverer(t, 0.9, 2)

	_, err := d.Observe(common.Concept{ID: "c1", Label: "price", Type: "attribute"}, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	obs, err := d.Observe(common.Concept{ID: "c2", Label: "durability", Type: "attribute"}, []float32{0, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !obs.CreatedSlot {
		t.Errorf("orthogonal concept joined a slot below the threshold")
	}
	if len(d.Slots()) != 2 {
		t.Errorf("slot count = %d, want 2", len(d.Slots()))
	}
}

func TestReassignmentIsRecorded(t *testing.T) {
	d := testDiscoverer(t, 0.8, 3)

	// Two far-apart slots of the same type.
	a, err := d.Observe(common.Concept{ID: "anchor-a", Label: "comfort", Type: "consequence"}, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := d.Observe(common.Concept{ID: "anchor-b", Label: "status", Type: "consequence"}, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}

	// The concept first lands near a, then is re-observed near b.
	obs, err := d.Observe(common.Concept{ID: "mover", Label: "prestige", Type: "consequence"}, []float32{0.95, 0.05, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if obs.SlotID != a.SlotID {
		t.Fatalf("mover did not join the first slot")
	}

	obs, err = d.Observe(common.Concept{ID: "mover", Label: "prestige", Type: "consequence"}, []float32{0.05, 0.95, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if obs.SlotID != b.SlotID {
		t.Fatalf("mover did not move to the second slot")
	}
	if !obs.Reassigned {
		t.Errorf("move not flagged as reassignment")
	}

	moves := d.Reassignments()
	if len(moves) != 1 {
		t.Fatalf("reassignments = %d, want 1", len(moves))
	}
	move := moves[0]
	if move.ConceptID != "mover" || move.FromSlotID != a.SlotID || move.ToSlotID != b.SlotID || move.Turn != 5 {
		t.Errorf("reassignment record = %+v", move)
	}

	if slotID, _ := d.Assignment("mover"); slotID != b.SlotID {
		t.Errorf("assignment = %s, want %s", slotID, b.SlotID)
	}
}

func TestObserveSameSlotTwiceIsStable(t *testing.T) {
	d := testDiscoverer(t, 0.8, 2)

	first, err := d.Observe(common.Concept{ID: "c1", Label: "price", Type: "attribute"}, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Observe(common.Concept{ID: "c2", Label: "cost", Type: "attribute"}, []float32{0.9, 0.1}, 2)
	if err != nil {
		t.Fatal(err)
	}

	again, err := d.Observe(common.Concept{ID: "c1", Label: "price", Type: "attribute"}, []float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if again.SlotID != first.SlotID || again.Reassigned || again.CreatedSlot {
		t.Errorf("re-observation changed the mapping: %+v", again)
	}

	slot := d.bySlotID[first.SlotID]
	if slot.Support() != 2 {
		t.Errorf("support = %d, want 2 (distinct concepts only)", slot.Support())
	}
	if len(d.Reassignments()) != 0 {
		t.Errorf("stable mapping produced a reassignment record")
	}
}

func TestRestoreResumesObservation(t *testing.T) {
	d := testDiscoverer(t, 0.8, 2)

	if _, err := d.Observe(common.Concept{ID: "c1", Label: "price", Type: "attribute"}, []float32{1, 0}, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Observe(common.Concept{ID: "c2", Label: "cost", Type: "attribute"}, []float32{0.9, 0.1}, 2); err != nil {
		t.Fatal(err)
	}

	persisted := make([]Slot, 0, len(d.Slots()))
	for _, slot := range d.Slots() {
		persisted = append(persisted, *slot)
	}

	restored := testDiscoverer(t, 0.8, 2)
	if err := restored.Restore(persisted); err != nil {
		t.Fatal(err)
	}

	if slotID, ok := restored.Assignment("c1"); !ok || slotID != persisted[0].ID {
		t.Errorf("assignment after restore = %s, want %s", slotID, persisted[0].ID)
	}

	obs, err := restored.Observe(common.Concept{ID: "c3", Label: "pricing", Type: "attribute"}, []float32{0.95, 0.05}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if obs.CreatedSlot || obs.SlotID != persisted[0].ID {
		t.Errorf("observation after restore = %+v, want join of restored slot", obs)
	}

	if err := restored.Restore(persisted); err == nil {
		t.Error("restore into a live discoverer accepted")
	}
}
