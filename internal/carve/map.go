// Package carve implements spec §4.3 (the carve map, the continuous
// occupancy-probability field induced by one range return) and §4.4 (the
// carve wedge swept between two adjacent rays in two adjacent frames).
package carve

import (
	"math"

	"github.com/elturner/carve/internal/gaussian"
	"github.com/elturner/carve/internal/progress"
	"gonum.org/v1/gonum/spatial/r3"
)

// probability constants for the blend in Compute, spec §4.3 step 8.
const (
	probInterior = 1.0
	probTooFar   = 0.0
	probAPriori  = 0.5
)

// Map is the continuous occupancy field of one range return: two 3D
// Gaussians (sensor endpoint, hit endpoint) plus the cached derived
// values of spec §3 "Carve map". The Gaussians and derived values do not
// change after NewMap returns; only PlanarProb and CornerProb are set
// later, via SetNeighborhood.
type Map struct {
	Sensor gaussian.Gaussian3
	Hit    gaussian.Gaussian3

	// PlanarProb and CornerProb are neighborhood descriptors in [0,1],
	// set by a separate neighborhood analysis (spec §3); zero until the
	// caller sets them via SetNeighborhood.
	PlanarProb float64
	CornerProb float64

	ray      r3.Vec
	rng      float64
	sensorN  r3.Vec
	sensorD  float64
	sensorV  float64
	hitN     r3.Vec
	hitD     float64
	hitV     float64
}

// NewMap builds the cached derived state for one carve map from its two
// endpoint Gaussians (spec §4.3 "Construction").
func NewMap(sensor, hit gaussian.Gaussian3) *Map {
	diff := r3.Sub(hit.Mean, sensor.Mean)
	rng := r3.Norm(diff)
	var ray r3.Vec
	if rng > 0 {
		ray = r3.Scale(1/rng, diff)
	}

	sensorN, sensorD := sensor.AlignedAxis(ray)
	hitN, hitD := hit.AlignedAxis(ray)
	// The hit endpoint's normal and dot product are both negated (mirrors
	// the C++ reference's `scanpoint_dot *= -1; scanpoint_norm *= -1`).
	// Compute only uses their ratio, so dp is unchanged by this: it is
	// positive for points before the hit plane along +ray.
	hitN = r3.Scale(-1, hitN)
	hitD = -hitD

	sensorVar := sensor.VarianceAlong(ray)
	hitVar := hit.VarianceAlong(ray)

	return &Map{
		Sensor:  sensor,
		Hit:     hit,
		ray:     ray,
		rng:     rng,
		sensorN: sensorN,
		sensorD: sensorD,
		sensorV: sensorVar,
		hitN:    hitN,
		hitD:    hitD,
		hitV:    hitVar,
	}
}

// SetNeighborhood attaches the planar/corner probability descriptors
// computed by a separate neighborhood analysis pass (spec §3).
func (m *Map) SetNeighborhood(planar, corner float64) {
	m.PlanarProb = planar
	m.CornerProb = corner
}

// Ray returns the unit vector from the sensor mean to the hit mean.
func (m *Map) Ray() r3.Vec { return m.ray }

// Range returns the mean distance between sensor and hit.
func (m *Map) Range() float64 { return m.rng }

// Compute evaluates the occupancy probability at point x for a query
// voxel of side s, per the 8-step algorithm of spec §4.3.
func (m *Map) Compute(x r3.Vec, s float64, reporter progress.Reporter) float64 {
	// Step 1-2: signed distances of x before the sensor plane / past the
	// hit plane, along the ray.
	ds := r3.Dot(m.sensorN, r3.Sub(m.Sensor.Mean, x)) / m.sensorD
	dp := r3.Dot(m.hitN, r3.Sub(m.Hit.Mean, x)) / m.hitD

	// Step 3-4: forward / in-range probabilities via the Gaussian CDF.
	pForward := gaussian.NormalCDF(0, ds, m.sensorV)
	pInrange := 1 - gaussian.NormalCDF(0, dp, m.hitV)

	// Step 5: blend fraction and blended endpoint distribution.
	denom := dp - ds
	f := 0.0
	if denom != 0 {
		f = -ds / denom
	}
	f = clamp01(f)
	omf := 1 - f

	blendMean := r3.Add(r3.Scale(omf, m.Sensor.Mean), r3.Scale(f, m.Hit.Mean))
	blendCov := gaussian.Add3(gaussian.Scale3(omf, m.Sensor.Cov), gaussian.Scale3(f, m.Hit.Cov))

	// Step 6: lateral distance and variance.
	lat := r3.Sub(x, blendMean)
	latDist := r3.Norm(lat)
	var latVar float64
	if latDist > 0 {
		unit := r3.Scale(1/latDist, lat)
		latVar = gaussian.Gaussian3{Cov: blendCov}.VarianceAlong(unit)
	}

	// Step 7: lateral probability, density converted to a voxel
	// probability by scaling with the voxel side length.
	pLat := gaussian.NormalPDF(latDist, 0, latVar) * s

	// Step 8: blended output.
	pfl := pForward * pLat
	p := pfl*pInrange*probInterior + pfl*(1-pInrange)*probTooFar + (1-pfl)*probAPriori

	if math.IsNaN(p) || math.IsInf(p, 0) {
		if reporter != nil {
			reporter.Logf(progress.LevelWarn, "carve map produced non-finite probability at %v; substituting 0.5", x)
		}
		return probAPriori
	}
	return p
}

// SurfaceProb evaluates the auxiliary surface-probability field
// s^3 * MVN(x; hit.Mean, hit.Cov), used for planar-region weighting
// (spec §4.3, last paragraph).
func (m *Map) SurfaceProb(x r3.Vec, s float64) float64 {
	return s * s * s * gaussian.MVN3(m.Hit, x)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
