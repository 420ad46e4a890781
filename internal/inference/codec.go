package inference

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/bbejczy/polarseg-kitti/internal/bev"
)

// EncodeInput packages a voxel grid into named network inputs. The tensors
// are shared with the grid, not copied; the network must treat them as
// read-only.
func EncodeInput(grid *bev.VoxelGrid) Tensors {
	return Tensors{
		InputFeatures:  grid.Features,
		InputOccupancy: grid.Occupancy,
	}
}

// DecodePrediction converts network outputs into a per-voxel class grid.
// A network may return either a direct classes tensor or a scores tensor;
// scores are reduced by argmax with ties going to the lowest class index,
// so decoding is deterministic for identical outputs.
func DecodePrediction(outputs Tensors, cfg *bev.GridConfig) (*bev.PredictionGrid, error) {
	if t, ok := outputs[OutputClasses]; ok {
		return decodeClasses(t, cfg)
	}
	if t, ok := outputs[OutputScores]; ok {
		return decodeScores(t, cfg)
	}
	return nil, fmt.Errorf("network returned neither %q nor %q tensor", OutputClasses, OutputScores)
}

func decodeClasses(t *tensor.Dense, cfg *bev.GridConfig) (*bev.PredictionGrid, error) {
	if !shapeMatches(t.Shape(), cfg.Rings, cfg.AzimuthBins, cfg.HeightBins) {
		return nil, fmt.Errorf("classes tensor shape %v does not match grid (%d, %d, %d)",
			t.Shape(), cfg.Rings, cfg.AzimuthBins, cfg.HeightBins)
	}
	data, ok := t.Data().([]int32)
	if !ok {
		return nil, fmt.Errorf("classes tensor has dtype %v, want int32", t.Dtype())
	}
	classes := make([]int32, len(data))
	copy(classes, data)
	return bev.NewPredictionGrid(cfg, classes)
}

func decodeScores(t *tensor.Dense, cfg *bev.GridConfig) (*bev.PredictionGrid, error) {
	shape := t.Shape()
	if len(shape) != 4 || !shapeMatches(shape[:3], cfg.Rings, cfg.AzimuthBins, cfg.HeightBins) {
		return nil, fmt.Errorf("scores tensor shape %v does not match grid (%d, %d, %d, classes)",
			shape, cfg.Rings, cfg.AzimuthBins, cfg.HeightBins)
	}
	numClasses := shape[3]
	if numClasses < 1 {
		return nil, fmt.Errorf("scores tensor has %d classes", numClasses)
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("scores tensor has dtype %v, want float32", t.Dtype())
	}

	cells := cfg.CellCount()
	classes := make([]int32, cells)
	for cell := 0; cell < cells; cell++ {
		row := data[cell*numClasses : (cell+1)*numClasses]
		best := 0
		for c := 1; c < numClasses; c++ {
			// Strict comparison keeps the lowest class index on ties.
			if row[c] > row[best] {
				best = c
			}
		}
		classes[cell] = int32(best)
	}
	return bev.NewPredictionGrid(cfg, classes)
}

// gridShape extracts the (rings, azimuth bins, height bins) shape from the
// inputs, preferring the occupancy mask.
func gridShape(inputs Tensors) ([]int, error) {
	if t, ok := inputs[InputOccupancy]; ok {
		s := t.Shape()
		if len(s) != 3 {
			return nil, fmt.Errorf("occupancy tensor has %d axes, want 3", len(s))
		}
		return []int{s[0], s[1], s[2]}, nil
	}
	if t, ok := inputs[InputFeatures]; ok {
		s := t.Shape()
		if len(s) != 4 {
			return nil, fmt.Errorf("features tensor has %d axes, want 4", len(s))
		}
		return []int{s[0], s[1], s[2]}, nil
	}
	return nil, fmt.Errorf("inputs carry neither %q nor %q tensor", InputOccupancy, InputFeatures)
}

func shapeMatches(got tensor.Shape, want ...int) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
