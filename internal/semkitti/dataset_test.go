package semkitti

import (
	"errors"
	"testing"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
)

func TestFrameID(t *testing.T) {
	if got := FrameID(0); got != "000000" {
		t.Errorf("expected 000000, got %s", got)
	}
	if got := FrameID(42); got != "000042" {
		t.Errorf("expected 000042, got %s", got)
	}
	if got := FrameID(123456); got != "123456" {
		t.Errorf("expected 123456, got %s", got)
	}
}

func TestSplitSequences(t *testing.T) {
	train, err := SplitSequences("train")
	if err != nil {
		t.Fatalf("SplitSequences(train) failed: %v", err)
	}
	if len(train) != 10 {
		t.Errorf("expected 10 training sequences, got %d", len(train))
	}

	valid, err := SplitSequences("valid")
	if err != nil {
		t.Fatalf("SplitSequences(valid) failed: %v", err)
	}
	if len(valid) != 1 || valid[0] != "08" {
		t.Errorf("expected validation split [08], got %v", valid)
	}

	test, err := SplitSequences("test")
	if err != nil {
		t.Fatalf("SplitSequences(test) failed: %v", err)
	}
	if len(test) != 11 {
		t.Errorf("expected 11 test sequences, got %d", len(test))
	}

	if _, err := SplitSequences("bogus"); err == nil {
		t.Error("expected error for unknown split")
	}
}

func TestDiscoverFrames(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	// sequence 08 with labels, frames written out of order
	writeScan := func(path string) {
		t.Helper()
		if err := mfs.WriteFile(path, make([]byte, 2*SCAN_RECORD_SIZE), 0644); err != nil {
			t.Fatalf("WriteFile %s failed: %v", path, err)
		}
	}
	writeScan("/data/sequences/08/velodyne/000001.bin")
	writeScan("/data/sequences/08/velodyne/000000.bin")
	if err := mfs.WriteFile("/data/sequences/08/labels/000000.label", make([]byte, 8), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	frames, err := DiscoverFrames(mfs, "/data", []string{"08"})
	if err != nil {
		t.Fatalf("DiscoverFrames failed: %v", err)
	}

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].ID != "000000" || frames[1].ID != "000001" {
		t.Errorf("expected frames sorted by ID, got %s then %s", frames[0].ID, frames[1].ID)
	}
	if frames[0].ScanPath != "/data/sequences/08/velodyne/000000.bin" {
		t.Errorf("unexpected scan path %s", frames[0].ScanPath)
	}
	if frames[0].LabelPath != "/data/sequences/08/labels/000000.label" {
		t.Errorf("unexpected label path %s", frames[0].LabelPath)
	}
	if frames[0].Key() != "08/000000" {
		t.Errorf("expected key 08/000000, got %s", frames[0].Key())
	}
}

func TestDiscoverFrames_TestSplitHasNoLabels(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	if err := mfs.WriteFile("/data/sequences/11/velodyne/000000.bin", make([]byte, SCAN_RECORD_SIZE), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	frames, err := DiscoverFrames(mfs, "/data", []string{"11"})
	if err != nil {
		t.Fatalf("DiscoverFrames failed: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if frames[0].LabelPath != "" {
		t.Errorf("expected empty label path for unlabeled sequence, got %s", frames[0].LabelPath)
	}
}

func TestDiscoverFrames_MissingSequence(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	if _, err := DiscoverFrames(mfs, "/data", []string{"00"}); err == nil {
		t.Error("expected error for missing sequence directory")
	}
}

func TestDiscoverFrames_NoScans(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	if err := mfs.MkdirAll("/data/sequences/08/velodyne", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	// a stray non-scan file must be skipped
	if err := mfs.WriteFile("/data/sequences/08/velodyne/readme.txt", []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := DiscoverFrames(mfs, "/data", []string{"08"})
	if !errors.Is(err, ErrNoScans) {
		t.Fatalf("expected ErrNoScans, got %v", err)
	}
}
