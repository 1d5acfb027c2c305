package boundary

import (
	"github.com/katalvlaran/lvlath/core"
	"gonum.org/v1/gonum/spatial/r3"
)

// CornerGraph indexes canonical corners as vertices of an undirected
// graph from github.com/katalvlaran/lvlath/core, with an edge between
// two corners whenever they share an edge of some boundary face (spec
// §4.10). Each vertex's Metadata carries the corner's world position and
// the indices of every Face touching it.
type CornerGraph struct {
	Graph *core.Graph

	// Faces is the same Face slice BuildBoundary produced, indexed by
	// the face indices stored in each corner vertex's metadata.
	Faces []Face
}

// BuildCornerGraph constructs the corner adjacency graph from b's faces.
func BuildCornerGraph(b *Boundary) (*CornerGraph, error) {
	g := core.NewGraph()
	cg := &CornerGraph{Graph: g, Faces: b.Faces}

	ensureVertex := func(id CornerID, pos r3.Vec) error {
		if g.HasVertex(string(id)) {
			return nil
		}
		if err := g.AddVertex(string(id)); err != nil {
			return err
		}
		v := g.VerticesMap()[string(id)]
		v.Metadata["pos"] = pos
		v.Metadata["faces"] = []int{}
		return nil
	}

	for fi, f := range b.Faces {
		n := len(f.Corners)
		positions := faceCornerPositions(f)
		for i := 0; i < n; i++ {
			if err := ensureVertex(f.Corners[i], positions[i]); err != nil {
				return nil, err
			}
		}
		for i := 0; i < n; i++ {
			v := g.VerticesMap()[string(f.Corners[i])]
			v.Metadata["faces"] = append(v.Metadata["faces"].([]int), fi)

			j := (i + 1) % n
			if f.Corners[i] == f.Corners[j] {
				continue
			}
			if !g.HasEdge(string(f.Corners[i]), string(f.Corners[j])) {
				if _, err := g.AddEdge(string(f.Corners[i]), string(f.Corners[j]), 0); err != nil {
					return nil, err
				}
			}
		}
	}
	return cg, nil
}

// faceCornerPositions recomputes the world position of each of f's
// corners from its interior cube and direction (the same geometry
// faceCorners used to derive the IDs), since Face stores only the
// canonical ID, not the position.
func faceCornerPositions(f Face) [4]r3.Vec {
	c, hw, dir := f.InteriorCenter, f.InteriorHalfwidth, f.Dir
	axis := dir.Vector()
	var uAxis, vAxis r3.Vec
	switch dir {
	case DirPosX, DirNegX:
		uAxis, vAxis = r3.Vec{Y: 1}, r3.Vec{Z: 1}
	case DirPosY, DirNegY:
		uAxis, vAxis = r3.Vec{Z: 1}, r3.Vec{X: 1}
	default:
		uAxis, vAxis = r3.Vec{X: 1}, r3.Vec{Y: 1}
	}
	face := r3.Add(c, r3.Scale(hw, axis))
	var out [4]r3.Vec
	offsets := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for i, o := range offsets {
		out[i] = r3.Add(face, r3.Add(r3.Scale(hw*o[0], uAxis), r3.Scale(hw*o[1], vAxis)))
	}
	return out
}

// FacesAt returns the Face indices touching corner id.
func (cg *CornerGraph) FacesAt(id CornerID) []int {
	v, ok := cg.Graph.VerticesMap()[string(id)]
	if !ok {
		return nil
	}
	return v.Metadata["faces"].([]int)
}

// Position returns the world position of corner id.
func (cg *CornerGraph) Position(id CornerID) (r3.Vec, bool) {
	v, ok := cg.Graph.VerticesMap()[string(id)]
	if !ok {
		return r3.Vec{}, false
	}
	return v.Metadata["pos"].(r3.Vec), true
}
