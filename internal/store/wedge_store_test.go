package store

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/carve"
	"github.com/elturner/carve/internal/gaussian"
)

func identityGaussian(mean r3.Vec) gaussian.Gaussian3 {
	cov := mat.NewSymDense(3, nil)
	cov.SetSym(0, 0, 0.01)
	cov.SetSym(1, 1, 0.01)
	cov.SetSym(2, 2, 0.01)
	return gaussian.Gaussian3{Mean: mean, Cov: cov}
}

func sampleWedge(t *testing.T) *carve.Wedge {
	t.Helper()
	m1 := carve.NewMap(identityGaussian(r3.Vec{}), identityGaussian(r3.Vec{Z: 1}))
	m2 := carve.NewMap(identityGaussian(r3.Vec{}), identityGaussian(r3.Vec{X: 0.1, Z: 1}))
	m3 := carve.NewMap(identityGaussian(r3.Vec{Z: 0.05}), identityGaussian(r3.Vec{Z: 1.05}))
	m4 := carve.NewMap(identityGaussian(r3.Vec{Z: 0.05}), identityGaussian(r3.Vec{X: 0.1, Z: 1.05}))
	w, err := carve.BuildWedge(m1, m2, m3, m4, 3)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

// TestWedgeStoreRoundTrip exercises spec scenario S4: append N wedges,
// close, reopen, and fetch every one back with vertices and carve-map
// Gaussians numerically unchanged.
func TestWedgeStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wedges.bin")
	w, err := CreateWedgeWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	const n = 5
	var wedges []*carve.Wedge
	for i := 0; i < n; i++ {
		wedge := sampleWedge(t)
		idx, err := w.Append(wedge)
		if err != nil {
			t.Fatal(err)
		}
		if idx != i {
			t.Fatalf("Append returned index %d, want %d", idx, i)
		}
		wedges = append(wedges, wedge)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenWedgeReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if r.Count() != n {
		t.Fatalf("reader Count() = %d, want %d", r.Count(), n)
	}
	for i := 0; i < n; i++ {
		got, err := r.FetchAt(i)
		if err != nil {
			t.Fatal(err)
		}
		for v := range got.Vertices {
			if r3.Norm(r3.Sub(got.Vertices[v], wedges[i].Vertices[v])) > 1e-9 {
				t.Errorf("wedge %d vertex %d round-tripped as %v, want %v", i, v, got.Vertices[v], wedges[i].Vertices[v])
			}
		}
		if r3.Norm(r3.Sub(got.A1.Sensor.Mean, wedges[i].A1.Sensor.Mean)) > 1e-9 {
			t.Errorf("wedge %d A1.Sensor.Mean round-tripped as %v, want %v", i, got.A1.Sensor.Mean, wedges[i].A1.Sensor.Mean)
		}
	}
}

func TestOpenWedgeReaderRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	w, err := CreateWedgeWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	// Corrupt the magic in place.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	data[0] = 'X'
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenWedgeReader(path); err == nil {
		t.Fatal("expected an error opening a file with corrupted magic")
	}
}

func TestFetchAtRejectsOutOfRangeIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	w, err := CreateWedgeWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	r, err := OpenWedgeReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, err := r.FetchAt(0); err == nil {
		t.Fatal("expected an error fetching from an empty wedge store")
	}
}
