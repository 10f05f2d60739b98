package engine

// VelocityTracker keeps the per-session discovery-rate counters behind the
// saturation meta-signals. Both signals are instantaneous: they are
// recomputed each turn from running counters, never smoothed over history.
//
// The tracker is owned by the session object and mutated only inside that
// session's turn pipeline.
type VelocityTracker struct {
	turnsObserved int

	// peakVelocity is the monotonically non-decreasing running maximum of
	// per-turn new-concept counts.
	peakVelocity int

	lastNewConcepts  int
	lastNewCanonical int
	lastNewSurface   int

	totalConcepts int
}

// NewVelocityTracker creates a tracker with zeroed counters.
func NewVelocityTracker() *VelocityTracker {
	return &VelocityTracker{}
}

// ObserveTurn records the extraction outcome of one turn: how many surface
// concepts were newly added and, when the canonical layer is enabled, how
// many canonical slots those surfaced into.
func (v *VelocityTracker) ObserveTurn(newConcepts, newSurface, newCanonical int) {
	v.turnsObserved++
	v.lastNewConcepts = newConcepts
	v.lastNewSurface = newSurface
	v.lastNewCanonical = newCanonical
	v.totalConcepts += newConcepts
	if newConcepts > v.peakVelocity {
		v.peakVelocity = newConcepts
	}
}

// YieldSaturation is 1 - min(new/peak, 1). A zero peak (nothing discovered
// yet) yields exactly 0: an empty session is unexplored, not saturated.
func (v *VelocityTracker) YieldSaturation() float64 {
	if v.peakVelocity == 0 {
		return 0
	}
	ratio := float64(v.lastNewConcepts) / float64(v.peakVelocity)
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}

// CanonicalSaturation is 1 - min(newCanonical/newSurface, 1). With zero new
// surface concepts there is nothing to judge, so the result is exactly 0.
func (v *VelocityTracker) CanonicalSaturation() float64 {
	if v.lastNewSurface == 0 {
		return 0
	}
	ratio := float64(v.lastNewCanonical) / float64(v.lastNewSurface)
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}

// PeakVelocity returns the running per-turn new-concept maximum.
func (v *VelocityTracker) PeakVelocity() int {
	return v.peakVelocity
}

// LastNewConcepts returns the new-concept count of the most recent turn.
func (v *VelocityTracker) LastNewConcepts() int {
	return v.lastNewConcepts
}

// TurnsObserved returns how many turns have been recorded.
func (v *VelocityTracker) TurnsObserved() int {
	return v.turnsObserved
}
