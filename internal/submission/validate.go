package submission

import (
	"fmt"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// ValidationError reports the first defect found while checking a
// submission tree. Path names the offending prediction file.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Path, e.Reason)
}

// Validate checks a finished submission tree against the dataset frames:
// every frame must have a prediction file, the file must hold exactly one
// uint32 per scan point, and every value must be a label the dictionary
// knows. It stops at the first defect so the error names a single path.
func Validate(fsys fsutil.FileSystem, root, model string, frames []semkitti.Frame, lm *semkitti.LabelMap) error {
	for _, frame := range frames {
		path := LabelPath(root, model, frame.Sequence, frame.ID)

		scanInfo, err := fsys.Stat(frame.ScanPath)
		if err != nil {
			return fmt.Errorf("stat scan for %s: %w", frame.Key(), err)
		}
		points, err := semkitti.PointCapacity(scanInfo.Size())
		if err != nil {
			return fmt.Errorf("scan for %s: %w", frame.Key(), err)
		}

		info, err := fsys.Stat(path)
		if err != nil {
			return &ValidationError{Path: path, Reason: "prediction file missing"}
		}
		wantBytes := int64(points) * semkitti.LABEL_RECORD_SIZE
		if info.Size() != wantBytes {
			return &ValidationError{
				Path:   path,
				Reason: fmt.Sprintf("has %d bytes for a %d-point scan, want %d", info.Size(), points, wantBytes),
			}
		}

		data, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		labels, err := semkitti.ParseLabels(data)
		if err != nil {
			return &ValidationError{Path: path, Reason: err.Error()}
		}
		for i, v := range labels {
			if !lm.IsValidExternal(v) {
				return &ValidationError{
					Path:   path,
					Reason: fmt.Sprintf("point %d has label %d outside the dictionary", i, v),
				}
			}
		}
	}
	return nil
}
