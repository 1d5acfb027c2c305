// Package carve is the pipeline glue of spec §4.8: it drives per-sensor
// scan sources through the scan model and carve-map/wedge construction,
// and either inserts the result into a shared octree or appends it to a
// wedge store, according to RunOptions.Mode.
package carve

import (
	"github.com/elturner/carve/internal/octree"
	"github.com/elturner/carve/internal/progress"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mode selects where a Carver's wedges go (spec §4.8).
type Mode int

const (
	// ModeTree inserts every wedge directly into the Carver's shared
	// *octree.Tree.
	ModeTree Mode = iota
	// ModeWedgeStore appends every wedge to a per-sensor *store.WedgeWriter
	// shard instead, for out-of-core runs.
	ModeWedgeStore
)

// RunOptions configures one Carver run (spec §6 "Runtime configuration
// options").
type RunOptions struct {
	// DefaultClockStddev seeds a sensor's clock-error stddev when its
	// descriptor does not set one explicitly.
	DefaultClockStddev float64

	// CarveBufferStddevs is nb, the carve-buffer inflation in standard
	// deviations (spec §4.4); must stay >= 2 for the 2-sigma-inclusion
	// invariant.
	CarveBufferStddevs float64

	// LinefitDistance is the maximum mean-squared residual a region
	// grower plane fit may have (spec §4.12 Thresholds.MaxResidual).
	LinefitDistance float64

	// ObjectRefineDepthIncrease is the number of extra octree levels for
	// leaves flagged IsObject. Carver does not read it: every wedge is
	// carved to MaxDepth.
	ObjectRefineDepthIncrease int

	// ChunkDepth is how many levels below the octree root the chunker
	// partitions (spec §4.9).
	ChunkDepth int

	// RootCenter and RootHalfwidth seed the shared octree's initial
	// bounds (spec §4.6); the tree still grows via root-doubling if a
	// sample falls outside them.
	RootCenter    r3.Vec
	RootHalfwidth float64
	MaxDepth      int

	Mode Mode

	Progress progress.Reporter
}

// DefaultRunOptions returns the pipeline's default configuration,
// mirroring the teacher's DefaultParseOptions/DefaultLoadOptions.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		DefaultClockStddev:        0.001,
		CarveBufferStddevs:        3,
		LinefitDistance:           0.05,
		ObjectRefineDepthIncrease: 2,
		ChunkDepth:                3,
		RootCenter:                r3.Vec{},
		RootHalfwidth:             32,
		MaxDepth:                  10,
		Mode:                      ModeTree,
		Progress:                  progress.Noop{},
	}
}

// NewTree builds the shared octree a ModeTree run inserts into, from
// opts' root bounds and max depth.
func (o RunOptions) NewTree() (*octree.Tree, error) {
	return octree.NewTree(o.RootCenter, o.RootHalfwidth, o.MaxDepth)
}
