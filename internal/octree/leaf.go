package octree

import "math"

// LeafData is the running aggregate carried by an octree leaf (spec §3
// "Leaf data"): sample count, sum and sum-of-squares of observed
// probabilities, plus the optional room label and object flag used by
// segmentation and boundary extraction.
type LeafData struct {
	Count       int64
	SumP        float64
	SumP2       float64
	RoomLabel   string
	IsObject    bool

	// SurfaceProb and PlanarProb/CornerProb hold the neighborhood
	// descriptors of spec §3. AddSample does not update them; they keep
	// whatever value a shape or caller stores in them.
	SurfaceProb float64
	PlanarProb  float64
	CornerProb  float64
}

// AddSample folds in one occupancy probability observation (spec §4.6
// "on sample insertion at depth == max (leaf)").
func (l *LeafData) AddSample(p float64) {
	l.Count++
	l.SumP += p
	l.SumP2 += p * p
}

// Probability returns the leaf's mean observed probability, or 0.5 (no
// information) if the leaf has never been sampled.
func (l *LeafData) Probability() float64 {
	if l.Count == 0 {
		return 0.5
	}
	return l.SumP / float64(l.Count)
}

// Variance returns the sample variance of the leaf's observed
// probabilities.
func (l *LeafData) Variance() float64 {
	if l.Count == 0 {
		return 0
	}
	mean := l.Probability()
	v := l.SumP2/float64(l.Count) - mean*mean
	if v < 0 {
		// Guards against floating-point cancellation producing a
		// slightly negative variance for near-zero-variance leaves.
		return 0
	}
	return v
}

// Interior reports whether the leaf should be considered interior space:
// probability >= 0.5 and not flagged as an object (spec §3).
func (l *LeafData) Interior() bool {
	return l.Probability() >= 0.5 && !l.IsObject
}

// clone returns a deep copy of l.
func (l *LeafData) clone() *LeafData {
	if l == nil {
		return nil
	}
	cp := *l
	return &cp
}

// equalAggregate reports whether a and b carry numerically equal
// aggregated probability (to within epsilon) and agree on room label,
// the condition simplifyRecur uses to decide whether eight leaf children
// can be collapsed into their parent (spec §4.6).
func equalAggregate(a, b *LeafData, epsilon float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.RoomLabel != b.RoomLabel || a.IsObject != b.IsObject {
		return false
	}
	return math.Abs(a.Probability()-b.Probability()) <= epsilon
}
