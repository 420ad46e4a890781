// Package testutil provides shared test fixtures for dataset-backed tests.
//
// This package centralises fixture construction to reduce code duplication
// across test files.
package testutil

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// EncodeScan serialises points in the on-disk scan layout: four little-endian
// float32 fields per point.
func EncodeScan(points []semkitti.Point) []byte {
	buf := make([]byte, len(points)*semkitti.SCAN_RECORD_SIZE)
	for i, p := range points {
		off := i * semkitti.SCAN_RECORD_SIZE
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(p.Z))
		binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(p.Reflectance))
	}
	return buf
}

// WriteScan places an encoded scan in the dataset layout under root and
// returns its path.
func WriteScan(t *testing.T, fs fsutil.FileSystem, root, sequence, frame string, points []semkitti.Point) string {
	t.Helper()
	path := filepath.Join(root, "sequences", sequence, "velodyne", frame+".bin")
	if err := fs.WriteFile(path, EncodeScan(points), 0o644); err != nil {
		t.Fatalf("write scan fixture: %v", err)
	}
	return path
}

// WriteLabels places an encoded ground-truth label file in the dataset layout
// under root and returns its path.
func WriteLabels(t *testing.T, fs fsutil.FileSystem, root, sequence, frame string, labels semkitti.PointLabels) string {
	t.Helper()
	path := filepath.Join(root, "sequences", sequence, "labels", frame+".label")
	if err := fs.WriteFile(path, semkitti.EncodeLabels(labels), 0o644); err != nil {
		t.Fatalf("write label fixture: %v", err)
	}
	return path
}
