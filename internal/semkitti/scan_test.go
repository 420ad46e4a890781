package semkitti

import (
	"encoding/binary"
	"math"
	"testing"
)

func scanBytes(points ...[4]float32) []byte {
	out := make([]byte, 0, len(points)*SCAN_RECORD_SIZE)
	for _, p := range points {
		for _, f := range p {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
			out = append(out, b[:]...)
		}
	}
	return out
}

func TestParseScan(t *testing.T) {
	data := scanBytes(
		[4]float32{1.0, 2.0, 3.0, 0.5},
		[4]float32{-4.5, 0.0, -1.25, 0.9},
	)

	cloud, err := ParseScan(data)
	if err != nil {
		t.Fatalf("ParseScan failed: %v", err)
	}

	if len(cloud) != 2 {
		t.Fatalf("expected 2 points, got %d", len(cloud))
	}

	want := Point{X: 1.0, Y: 2.0, Z: 3.0, Reflectance: 0.5}
	if cloud[0] != want {
		t.Errorf("point 0: expected %+v, got %+v", want, cloud[0])
	}
	if cloud[1].X != -4.5 || cloud[1].Z != -1.25 {
		t.Errorf("point 1: expected x=-4.5 z=-1.25, got %+v", cloud[1])
	}
}

func TestParseScan_Empty(t *testing.T) {
	cloud, err := ParseScan(nil)
	if err != nil {
		t.Fatalf("ParseScan failed: %v", err)
	}
	if len(cloud) != 0 {
		t.Fatalf("expected 0 points, got %d", len(cloud))
	}
}

func TestParseScan_TruncatedRecord(t *testing.T) {
	data := scanBytes([4]float32{1, 2, 3, 4})
	data = data[:len(data)-3]

	if _, err := ParseScan(data); err == nil {
		t.Fatal("expected error for truncated scan, got nil")
	}
}

func TestPointCapacity(t *testing.T) {
	n, err := PointCapacity(16 * 123)
	if err != nil {
		t.Fatalf("PointCapacity failed: %v", err)
	}
	if n != 123 {
		t.Errorf("expected 123 points, got %d", n)
	}

	if _, err := PointCapacity(16*123 + 7); err == nil {
		t.Error("expected error for non-record-aligned size")
	}
}
