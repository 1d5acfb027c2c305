package store

import (
	"io"
	"os"

	"github.com/elturner/carve/internal/carve"
	"github.com/elturner/carve/internal/carveerr"
	"github.com/elturner/carve/internal/lebytes"
)

// CarveMapFileWriter appends carve maps sequentially after the file's
// "wedge" magic header (spec §6 "Carve-map file"); records are indexed
// by implicit position, with no trailing count field.
type CarveMapFileWriter struct {
	f *os.File
}

// CreateCarveMapFile creates path and writes the magic header.
func CreateCarveMapFile(path string) (*CarveMapFileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	if err := lebytes.WriteAll(f, wedgeMagic[:]); err != nil {
		f.Close()
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	return &CarveMapFileWriter{f: f}, nil
}

// Append writes one carve map record.
func (w *CarveMapFileWriter) Append(m *carve.Map) error {
	buf := putMap(nil, m)
	if err := lebytes.WriteAll(w.f, buf); err != nil {
		return &carveerr.IoError{Path: w.f.Name(), Err: err}
	}
	return nil
}

// Close closes the underlying file.
func (w *CarveMapFileWriter) Close() error {
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	if err != nil {
		return &carveerr.IoError{Path: "carve-map file", Err: err}
	}
	return nil
}

// ReadCarveMapFile reads every carve-map record from path after
// validating its magic header.
func ReadCarveMapFile(path string) ([]*carve.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &carveerr.IoError{Path: path, Err: err}
	}
	defer f.Close()

	magic := make([]byte, 6)
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, &carveerr.BadFormat{Path: path, Reason: "truncated header"}
	}
	for i := range wedgeMagic {
		if magic[i] != wedgeMagic[i] {
			return nil, &carveerr.BadFormat{Path: path, Reason: "bad magic"}
		}
	}

	var maps []*carve.Map
	record := make([]byte, mapRecordSize)
	for {
		_, err := io.ReadFull(f, record)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &carveerr.BadFormat{Path: path, Reason: "truncated record"}
		}
		m, _ := getMap(record)
		maps = append(maps, m)
	}
	return maps, nil
}
