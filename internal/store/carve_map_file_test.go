package store

import (
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/elturner/carve/internal/carve"
)

func TestCarveMapFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maps.bin")
	w, err := CreateCarveMapFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []*carve.Map{
		carve.NewMap(identityGaussian(r3.Vec{}), identityGaussian(r3.Vec{Z: 1})),
		carve.NewMap(identityGaussian(r3.Vec{X: 1}), identityGaussian(r3.Vec{X: 1, Z: 2})),
	}
	for _, m := range want {
		if err := w.Append(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadCarveMapFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d maps, want %d", len(got), len(want))
	}
	for i := range want {
		if r3.Norm(r3.Sub(got[i].Sensor.Mean, want[i].Sensor.Mean)) > 1e-9 {
			t.Errorf("map %d Sensor.Mean = %v, want %v", i, got[i].Sensor.Mean, want[i].Sensor.Mean)
		}
		if r3.Norm(r3.Sub(got[i].Hit.Mean, want[i].Hit.Mean)) > 1e-9 {
			t.Errorf("map %d Hit.Mean = %v, want %v", i, got[i].Hit.Mean, want[i].Hit.Mean)
		}
	}
}

func TestReadCarveMapFileRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	w, err := CreateCarveMapFile(path)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	if _, err := ReadCarveMapFile(path + ".missing"); err == nil {
		t.Fatal("expected an error opening a nonexistent carve-map file")
	}

	badPath := filepath.Join(t.TempDir(), "badmagic.bin")
	if err := os.WriteFile(badPath, []byte{'x', 'x', 'x', 'x', 'x', 0}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCarveMapFile(badPath); err == nil {
		t.Fatal("expected an error reading a carve-map file with a bad magic header")
	}
}
