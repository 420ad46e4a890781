package semkitti

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
)

// Standard SemanticKITTI split assignment by sequence ID. Sequence 08 is the
// validation split; 11-21 carry no ground-truth labels.
var (
	TrainSequences = []string{"00", "01", "02", "03", "04", "05", "06", "07", "09", "10"}
	ValidSequences = []string{"08"}
	TestSequences  = []string{"11", "12", "13", "14", "15", "16", "17", "18", "19", "20", "21"}
)

// ErrNoScans is returned when frame discovery finds no scan files at all.
var ErrNoScans = errors.New("no scan files found")

// Frame identifies one scan inside a sequence, with resolved file paths.
// LabelPath is empty for sequences without ground truth.
type Frame struct {
	Sequence  string // two-digit sequence ID, e.g. "08"
	ID        string // six-digit frame ID, e.g. "000042"
	ScanPath  string
	LabelPath string
}

// FrameID formats a frame number the way the dataset and the scorer name
// files: zero-padded to six digits.
func FrameID(n int) string {
	return fmt.Sprintf("%06d", n)
}

// SplitSequences resolves a split name to its sequence IDs.
func SplitSequences(split string) ([]string, error) {
	switch split {
	case "train":
		return TrainSequences, nil
	case "valid":
		return ValidSequences, nil
	case "test":
		return TestSequences, nil
	default:
		return nil, fmt.Errorf("unknown split %q (want train, valid or test)", split)
	}
}

// DiscoverFrames walks root/sequences/<seq>/velodyne for each requested
// sequence and returns frames in sequence order, frames sorted by ID within
// a sequence. A sequence directory that does not exist is an error; an empty
// result across all sequences is ErrNoScans.
func DiscoverFrames(fsys fsutil.FileSystem, root string, sequences []string) ([]Frame, error) {
	var frames []Frame
	for _, seq := range sequences {
		scanDir := filepath.Join(root, "sequences", seq, "velodyne")
		entries, err := fsys.ReadDir(scanDir)
		if err != nil {
			return nil, fmt.Errorf("list sequence %s: %w", seq, err)
		}

		labelDir := filepath.Join(root, "sequences", seq, "labels")
		hasLabels := fsys.Exists(labelDir)

		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".bin") {
				continue
			}
			id := strings.TrimSuffix(e.Name(), ".bin")
			f := Frame{
				Sequence: seq,
				ID:       id,
				ScanPath: filepath.Join(scanDir, e.Name()),
			}
			if hasLabels {
				f.LabelPath = filepath.Join(labelDir, id+".label")
			}
			frames = append(frames, f)
		}
	}

	if len(frames) == 0 {
		return nil, ErrNoScans
	}
	return frames, nil
}

// Key returns the scan identifier used in logs and errors, e.g. "08/000042".
func (f Frame) Key() string {
	return f.Sequence + "/" + f.ID
}
