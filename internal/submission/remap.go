package submission

import "github.com/bbejczy/polarseg-kitti/internal/semkitti"

// TranslatePredictions converts per-point network classes into the raw
// dictionary labels the benchmark expects. The network's class axis starts
// at the first real class, so every prediction is first shifted up by one
// to make room for the ignore class, then mapped through the inverse
// dictionary. A class with no dictionary entry surfaces as a MappingError
// naming the offending point.
func TranslatePredictions(lm *semkitti.LabelMap, preds semkitti.PointLabels) (semkitti.PointLabels, error) {
	return lm.MapToExternal(preds.ShiftUp())
}
