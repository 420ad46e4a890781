package eval

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// ConfusionMatrix accumulates ground-truth/prediction pairs over training
// class IDs. Rows are ground truth, columns are predictions.
type ConfusionMatrix struct {
	n      int
	counts []int64
}

// NewConfusionMatrix returns a zeroed matrix over numClasses training
// classes, including the ignore class.
func NewConfusionMatrix(numClasses int) *ConfusionMatrix {
	return &ConfusionMatrix{
		n:      numClasses,
		counts: make([]int64, numClasses*numClasses),
	}
}

// NumClasses returns the class count the matrix was sized for.
func (m *ConfusionMatrix) NumClasses() int {
	return m.n
}

// Add records one point. Both IDs must be valid training classes.
func (m *ConfusionMatrix) Add(truth, pred uint32) error {
	if int(truth) >= m.n {
		return fmt.Errorf("ground-truth class %d out of range (have %d classes)", truth, m.n)
	}
	if int(pred) >= m.n {
		return fmt.Errorf("predicted class %d out of range (have %d classes)", pred, m.n)
	}
	m.counts[int(truth)*m.n+int(pred)]++
	return nil
}

// AddBatch records one pair per point. The slices must be the same length.
func (m *ConfusionMatrix) AddBatch(truth, pred semkitti.PointLabels) error {
	if len(truth) != len(pred) {
		return fmt.Errorf("ground truth has %d points, predictions %d", len(truth), len(pred))
	}
	for i := range truth {
		if err := m.Add(truth[i], pred[i]); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// Count returns the number of points with the given ground-truth and
// predicted class.
func (m *ConfusionMatrix) Count(truth, pred uint32) int64 {
	if int(truth) >= m.n || int(pred) >= m.n {
		return 0
	}
	return m.counts[int(truth)*m.n+int(pred)]
}

// Total returns the number of points recorded, ignored classes included.
func (m *ConfusionMatrix) Total() int64 {
	var total int64
	for _, v := range m.counts {
		total += v
	}
	return total
}

// ClassScore is the tally for one scored training class.
type ClassScore struct {
	Class uint32
	Name  string
	TP    int64
	FP    int64
	FN    int64
	IoU   float64 // NaN when the class appears in neither stream
}

// Result holds per-class scores and their aggregate. MeanIoU averages only
// classes that actually appear; it is NaN when none do.
type Result struct {
	Classes []ClassScore
	MeanIoU float64
	Points  int64
}

// Score folds the matrix into per-class intersection-over-union. Ignored
// classes are dropped from both axes, so unlabeled ground truth neither
// rewards nor punishes a prediction.
func (m *ConfusionMatrix) Score(lm *semkitti.LabelMap) *Result {
	scored := make([]uint32, 0, m.n)
	for _, c := range lm.InternalClasses() {
		if int(c) < m.n && !lm.IsIgnored(c) {
			scored = append(scored, c)
		}
	}

	res := &Result{
		Classes: make([]ClassScore, 0, len(scored)),
		Points:  m.Total(),
	}
	ious := make([]float64, 0, len(scored))
	for _, c := range scored {
		tp := m.counts[int(c)*m.n+int(c)]
		var fp, fn int64
		for _, other := range scored {
			if other == c {
				continue
			}
			fp += m.counts[int(other)*m.n+int(c)]
			fn += m.counts[int(c)*m.n+int(other)]
		}

		score := ClassScore{
			Class: c,
			Name:  lm.NameOfInternal(c),
			TP:    tp,
			FP:    fp,
			FN:    fn,
			IoU:   math.NaN(),
		}
		if denom := tp + fp + fn; denom > 0 {
			score.IoU = float64(tp) / float64(denom)
			ious = append(ious, score.IoU)
		}
		res.Classes = append(res.Classes, score)
	}

	res.MeanIoU = math.NaN()
	if len(ious) > 0 {
		res.MeanIoU = stat.Mean(ious, nil)
	}
	return res
}
