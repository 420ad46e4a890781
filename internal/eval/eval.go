// Package eval scores written predictions against SemanticKITTI ground truth
// using the benchmark's intersection-over-union protocol.
package eval

import (
	"fmt"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
	"github.com/bbejczy/polarseg-kitti/internal/submission"
)

// EvaluateFrames reads each frame's ground-truth labels and the matching
// prediction file from the submission tree, then scores the lot. Every frame
// must carry ground truth, so only the train and valid splits can be scored.
func EvaluateFrames(fsys fsutil.FileSystem, frames []semkitti.Frame, submissionRoot, model string, lm *semkitti.LabelMap) (*Result, error) {
	cm := NewConfusionMatrix(lm.NumClasses())
	for _, frame := range frames {
		if frame.LabelPath == "" {
			return nil, fmt.Errorf("scan %s has no ground-truth labels", frame.Key())
		}

		truthRaw, err := semkitti.ReadLabels(fsys, frame.LabelPath)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", frame.Key(), err)
		}
		truth, err := lm.MapToInternal(truthRaw)
		if err != nil {
			return nil, fmt.Errorf("scan %s ground truth: %w", frame.Key(), err)
		}

		predPath := submission.LabelPath(submissionRoot, model, frame.Sequence, frame.ID)
		predRaw, err := semkitti.ReadLabels(fsys, predPath)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", frame.Key(), err)
		}
		pred, err := lm.MapToInternal(predRaw)
		if err != nil {
			return nil, fmt.Errorf("scan %s prediction: %w", frame.Key(), err)
		}

		if err := cm.AddBatch(truth, pred); err != nil {
			return nil, fmt.Errorf("scan %s: %w", frame.Key(), err)
		}
	}
	return cm.Score(lm), nil
}
