package semkitti

import (
	"testing"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
)

func TestSemanticInstanceSplit(t *testing.T) {
	// car (10) with instance 7 in the upper half-word
	raw := uint32(7)<<16 | 10

	if got := Semantic(raw); got != 10 {
		t.Errorf("Semantic: expected 10, got %d", got)
	}
	if got := Instance(raw); got != 7 {
		t.Errorf("Instance: expected 7, got %d", got)
	}
}

func TestEncodeParseLabels(t *testing.T) {
	labels := PointLabels{10, 40, 252, 0}

	data := EncodeLabels(labels)
	if len(data) != len(labels)*LABEL_RECORD_SIZE {
		t.Fatalf("expected %d bytes, got %d", len(labels)*LABEL_RECORD_SIZE, len(data))
	}

	// wire format is little-endian: 10 = 0x0a 0x00 0x00 0x00
	if data[0] != 0x0a || data[1] != 0 || data[2] != 0 || data[3] != 0 {
		t.Errorf("expected little-endian encoding of 10, got % x", data[:4])
	}

	back, err := ParseLabels(data)
	if err != nil {
		t.Fatalf("ParseLabels failed: %v", err)
	}
	for i := range labels {
		if back[i] != labels[i] {
			t.Errorf("label %d: expected %d, got %d", i, labels[i], back[i])
		}
	}
}

func TestParseLabels_Truncated(t *testing.T) {
	data := EncodeLabels(PointLabels{10, 40})
	if _, err := ParseLabels(data[:len(data)-1]); err == nil {
		t.Fatal("expected error for truncated label data, got nil")
	}
}

func TestReadLabels_StripsInstanceBits(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	raw := PointLabels{uint32(3)<<16 | 10, uint32(9)<<16 | 30, 40}
	if err := mfs.WriteFile("/000000.label", EncodeLabels(raw), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	labels, err := ReadLabels(mfs, "/000000.label")
	if err != nil {
		t.Fatalf("ReadLabels failed: %v", err)
	}

	want := PointLabels{10, 30, 40}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d: expected %d, got %d", i, want[i], labels[i])
		}
	}
}

func TestShiftUpDown(t *testing.T) {
	labels := PointLabels{0, 5, 18}

	up := labels.ShiftUp()
	want := PointLabels{1, 6, 19}
	for i := range want {
		if up[i] != want[i] {
			t.Errorf("ShiftUp[%d]: expected %d, got %d", i, want[i], up[i])
		}
	}

	down := up.ShiftDown()
	for i := range labels {
		if down[i] != labels[i] {
			t.Errorf("ShiftDown[%d]: expected %d, got %d", i, labels[i], down[i])
		}
	}

	// shifting zero down keeps the ignore class in place
	zero := PointLabels{0}.ShiftDown()
	if zero[0] != 0 {
		t.Errorf("ShiftDown of 0: expected 0, got %d", zero[0])
	}

	// inputs are not mutated
	if labels[0] != 0 || labels[1] != 5 {
		t.Error("ShiftUp mutated its receiver")
	}
}
