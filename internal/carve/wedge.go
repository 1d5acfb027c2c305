package carve

import (
	"math"

	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/progress"
	"gonum.org/v1/gonum/spatial/r3"
)

// Wedge is the 6-vertex volumetric primitive swept between two adjacent
// rays in two adjacent frames (spec §3, §4.4). It holds borrowed
// references to the four carve maps it was built from; those references
// are only guaranteed valid for the duration of one octree insert or one
// wedge-store write (spec §5).
type Wedge struct {
	A1, A2, B1, B2 *Map // frame j: rays k, k+1; frame j+1: rays k, k+1

	// Vertices, in the fixed order: sensor@j, hit@j[0] (inflated),
	// hit@j[1] (inflated), sensor@j+1, hit@j+1[0] (inflated),
	// hit@j+1[1] (inflated).
	Vertices [6]r3.Vec
}

// BuildWedge constructs the inflated hexahedron from four carve maps, two
// rays (a1, a2) in frame j and the same two ray indices (b1, b2) in frame
// j+1. nb is the carve-buffer parameter in standard deviations (spec
// §4.4); nb must be >= 2 for the 2-sigma-inclusion invariant to hold.
func BuildWedge(a1, a2, b1, b2 *Map, nb float64) (*Wedge, error) {
	if nb <= 0 || math.IsNaN(nb) || math.IsInf(nb, 0) {
		return nil, &carveerr.InvalidInput{Reason: "carve buffer stddevs must be positive and finite"}
	}

	w := &Wedge{A1: a1, A2: a2, B1: b1, B2: b2}
	w.Vertices = [6]r3.Vec{
		a1.Sensor.Mean,
		inflate(a1, nb),
		inflate(a2, nb),
		b1.Sensor.Mean,
		inflate(b1, nb),
		inflate(b2, nb),
	}
	return w, nil
}

// inflate extends m's hit mean by nb standard deviations past the mean,
// along the ray direction (spec §4.4).
func inflate(m *Map, nb float64) r3.Vec {
	sigma := math.Sqrt(m.hitV)
	return r3.Add(m.Hit.Mean, r3.Scale(nb*sigma, m.ray))
}

// CarveAt evaluates the wedge's carved probability at a leaf voxel
// centered at c with halfwidth hw: the average of the four carve maps'
// Compute values at double the voxel halfwidth (spec §4.4).
func (w *Wedge) CarveAt(c r3.Vec, hw float64, reporter progress.Reporter) float64 {
	maps := [4]*Map{w.A1, w.A2, w.B1, w.B2}
	sum := 0.0
	for _, m := range maps {
		sum += m.Compute(c, 2*hw, reporter)
	}
	return sum / 4
}
