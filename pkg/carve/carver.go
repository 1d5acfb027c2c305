package carve

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/elturner/carve/internal/carve"
	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/octree"
	"github.com/elturner/carve/internal/progress"
	"github.com/elturner/carve/internal/scanmodel"
	"github.com/elturner/carve/internal/shapes"
	"github.com/elturner/carve/internal/store"
	"github.com/elturner/carve/internal/trajectory"
)

// Frame is one sensor's batch of range returns at a single timestamp
// (spec §3 "Frame").
type Frame struct {
	Time   float64
	Points []scanmodel.NoisyPoint
}

// ScanSource streams one sensor's frames in time order. Vendor-specific
// readers are an injected collaborator (spec §1 out-of-scope); Next
// returns ok=false once the stream is exhausted.
type ScanSource interface {
	Sensor() scanmodel.SensorSetup
	Next() (frame Frame, ok bool, err error)
}

// TrajectorySource supplies the trajectory oracle a Carver run queries
// poses from; injected so callers can swap in a different pose-sample
// loader without the Carver depending on any particular file format.
type TrajectorySource interface {
	Oracle() (*trajectory.Oracle, error)
}

// Carver runs the pipeline of spec §4.8 over a set of per-sensor scan
// sources. Exactly one of Tree or Writers is populated, according to
// Options.Mode.
type Carver struct {
	Options RunOptions

	Tree *octree.Tree
	// treeMu serializes every insert into Tree: the Carver's
	// concurrency model (spec §5) allows per-sensor subtree sharding,
	// but sharding is a static coverage assignment the caller would have
	// to supply per deployment, so this implementation takes the always
	// -correct fallback of one mutex guarding the shared tree, the same
	// way a sensor writing only inside its own wedge-store shard needs
	// no lock at all.
	treeMu sync.Mutex

	// Writers holds one *store.WedgeWriter per sensor name, populated by
	// the caller before Run when Options.Mode == ModeWedgeStore.
	Writers map[string]*store.WedgeWriter
}

// NewCarver builds a Carver from opts, constructing the shared octree
// when opts.Mode == ModeTree.
func NewCarver(opts RunOptions) (*Carver, error) {
	c := &Carver{Options: opts}
	if opts.Mode == ModeTree {
		tr, err := opts.NewTree()
		if err != nil {
			return nil, err
		}
		c.Tree = tr
	} else {
		c.Writers = make(map[string]*store.WedgeWriter)
	}
	return c, nil
}

// Run drives every source concurrently (one goroutine per sensor stream,
// spec §5 "wedge generation is naturally per-sensor-stream"), building
// wedges from consecutive ray pairs in consecutive frames and routing
// them per Options.Mode. Run returns the first error any sensor goroutine
// produced, after every goroutine has exited (errgroup's default
// first-error-wins policy via ctx cancellation).
func (c *Carver) Run(ctx context.Context, traj TrajectorySource, sources []ScanSource) error {
	oracle, err := traj.Oracle()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		g.Go(func() error {
			return c.runSensor(gctx, oracle, src)
		})
	}
	return g.Wait()
}

func (c *Carver) runSensor(ctx context.Context, oracle *trajectory.Oracle, src ScanSource) error {
	reporter := c.reporter()
	sensor := src.Sensor()
	if sensor.Descriptor.ClockStddev == 0 {
		sensor.Descriptor.ClockStddev = c.Options.DefaultClockStddev
	}
	stage :="carve:" + sensor.Descriptor.Name
	reporter.Begin(stage, 0)
	defer reporter.Done(stage)

	var prevMaps []*carve.Map
	haveFrame := false

	for {
		select {
		case <-ctx.Done():
			return &carveerr.Cancelled{}
		default:
		}

		frame, ok, err := src.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		fs, err := scanmodel.NewFrameSetup(sensor, oracle, frame.Time, nil)
		if err != nil {
			return err
		}

		maps := make([]*carve.Map, 0, len(frame.Points))
		for i, p := range frame.Points {
			if !p.Valid() {
				continue
			}
			res, err := fs.BuildPoint(i, p)
			if err != nil {
				reporter.Logf(progress.LevelWarn, "sensor %s: dropping point %d: %v", sensor.Descriptor.Name, i, err)
				continue
			}
			maps = append(maps, carve.NewMap(res.Sensor, res.Hit))
		}

		if haveFrame {
			if err := c.carveConsecutiveFrames(prevMaps, maps, sensor.Descriptor.Name, reporter); err != nil {
				return err
			}
		}
		prevMaps = maps
		haveFrame = true
		reporter.Step(stage)
	}
}

// carveConsecutiveFrames builds one wedge per consecutive ray pair shared
// by prev and curr (spec §4.4) and routes each into the tree or a writer.
func (c *Carver) carveConsecutiveFrames(prev, curr []*carve.Map, sensorName string, reporter progress.Reporter) error {
	n := len(prev)
	if len(curr) < n {
		n = len(curr)
	}
	for k := 0; k+1 < n; k++ {
		w, err := carve.BuildWedge(prev[k], prev[k+1], curr[k], curr[k+1], c.Options.CarveBufferStddevs)
		if err != nil {
			reporter.Logf(progress.LevelWarn, "sensor %s: skipping degenerate wedge at ray %d: %v", sensorName, k, err)
			continue
		}
		if err := c.route(w, sensorName, reporter); err != nil {
			return err
		}
	}
	return nil
}

func (c *Carver) route(w *carve.Wedge, sensorName string, reporter progress.Reporter) error {
	switch c.Options.Mode {
	case ModeTree:
		shape := shapes.NewWedgeShape(w, reporter)
		c.treeMu.Lock()
		err := c.Tree.Carve(shape, c.Options.MaxDepth)
		c.treeMu.Unlock()
		return err
	case ModeWedgeStore:
		writer, ok := c.Writers[sensorName]
		if !ok {
			return &carveerr.InvalidInput{Reason: "no wedge writer configured for sensor " + sensorName}
		}
		_, err := writer.Append(w)
		return err
	default:
		return &carveerr.InvalidInput{Reason: "unrecognized carve mode"}
	}
}

func (c *Carver) reporter() progress.Reporter {
	if c.Options.Progress == nil {
		return progress.Noop{}
	}
	return c.Options.Progress
}
