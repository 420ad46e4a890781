package bev

import (
	"fmt"

	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// PredictionGrid holds one class ID per voxel, flattened with the same
// layout as the feature tensor. It is produced either by decoding network
// output or by majority-voting ground-truth labels into training targets.
type PredictionGrid struct {
	cfg     *GridConfig
	classes []int32
}

// NewPredictionGrid wraps a flat class array. The array length must match
// the grid's cell count.
func NewPredictionGrid(cfg *GridConfig, classes []int32) (*PredictionGrid, error) {
	if len(classes) != cfg.CellCount() {
		return nil, fmt.Errorf("prediction grid has %d cells, config wants %d", len(classes), cfg.CellCount())
	}
	return &PredictionGrid{cfg: cfg, classes: classes}, nil
}

// EmptyPredictionGrid returns a grid with every voxel set to class 0.
func EmptyPredictionGrid(cfg *GridConfig) *PredictionGrid {
	return &PredictionGrid{cfg: cfg, classes: make([]int32, cfg.CellCount())}
}

// Config returns the grid config the predictions are laid out against.
func (g *PredictionGrid) Config() *GridConfig { return g.cfg }

// At returns the class of a voxel.
func (g *PredictionGrid) At(gi GridIndex) int32 { return g.classes[g.cfg.Idx(gi)] }

// AtFlat returns the class of a voxel by flat index.
func (g *PredictionGrid) AtFlat(flat int) int32 { return g.classes[flat] }

// Set assigns the class of a voxel.
func (g *PredictionGrid) Set(gi GridIndex, class int32) { g.classes[g.cfg.Idx(gi)] = class }

// Flat returns the underlying class array. Callers must treat it as
// read-only.
func (g *PredictionGrid) Flat() []int32 { return g.classes }

// InvertPredictions scatters per-voxel classes back onto the points of a
// scan: every point takes the class of the voxel it was assigned to. The
// output has exactly one label per input point, in scan order. The scatter
// reads only the arena and the grid, so it is safe to run concurrently
// across scans.
func InvertPredictions(pred *PredictionGrid, arena *CellArena) semkitti.PointLabels {
	out := make(semkitti.PointLabels, arena.PointCount())
	for i := range out {
		out[i] = uint32(pred.AtFlat(arena.FlatOf(i)))
	}
	return out
}

// VoteCellLabels builds per-voxel training targets from per-point ground
// truth by majority vote among each voxel's members. Ties go to the lowest
// class ID. Voxels with no members take the ignore class. Labels must
// already be in the internal class range [0, numClasses).
func VoteCellLabels(arena *CellArena, labels semkitti.PointLabels, numClasses int, ignore uint32) (*PredictionGrid, error) {
	if len(labels) != arena.PointCount() {
		return nil, fmt.Errorf("have %d labels for %d points", len(labels), arena.PointCount())
	}
	cfg := arena.Config()
	classes := make([]int32, cfg.CellCount())
	for i := range classes {
		classes[i] = int32(ignore)
	}

	counts := make([]int, numClasses)
	for _, flat := range arena.OccupiedCells() {
		for i := range counts {
			counts[i] = 0
		}
		for _, m := range arena.Members(flat) {
			l := labels[m]
			if int(l) >= numClasses {
				return nil, fmt.Errorf("point %d: label %d outside class range [0, %d)", m, l, numClasses)
			}
			counts[l]++
		}
		best := 0
		for c := 1; c < numClasses; c++ {
			// Strict comparison keeps the lowest class ID on ties.
			if counts[c] > counts[best] {
				best = c
			}
		}
		classes[flat] = int32(best)
	}
	return &PredictionGrid{cfg: cfg, classes: classes}, nil
}
