package bev

import (
	"sort"

	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// CellArena records the point-to-voxel assignment for one scan. Member
// lists are keyed by flat voxel index and kept in scan order, and the
// reverse mapping (point to voxel) is kept alongside so that scattering
// cell predictions back onto points is a single slice lookup.
//
// An arena is built once per scan and read many times; it is not safe for
// concurrent mutation but is safe to share read-only across goroutines.
type CellArena struct {
	cfg     *GridConfig
	polar   []PolarCoordinate
	byPoint []int32
	members map[int][]int32
}

// AssignPoints builds the arena for a scan in a single pass over the
// points. The grid config must have been validated. Every point receives a
// voxel: coordinates outside the crop volume land in the boundary bins.
func AssignPoints(cfg *GridConfig, cloud semkitti.PointCloud) *CellArena {
	a := &CellArena{
		cfg:     cfg,
		polar:   make([]PolarCoordinate, len(cloud)),
		byPoint: make([]int32, len(cloud)),
		members: make(map[int][]int32),
	}
	for i, p := range cloud {
		pol := TransformPoint(p)
		idx := cfg.Idx(cfg.CellIndex(pol))
		a.polar[i] = pol
		a.byPoint[i] = int32(idx)
		a.members[idx] = append(a.members[idx], int32(i))
	}
	return a
}

// Config returns the grid config the arena was built against.
func (a *CellArena) Config() *GridConfig { return a.cfg }

// PointCount returns the number of points in the scan.
func (a *CellArena) PointCount() int { return len(a.byPoint) }

// OccupiedCount returns the number of voxels with at least one member.
func (a *CellArena) OccupiedCount() int { return len(a.members) }

// FlatOf returns the flat voxel index of a point.
func (a *CellArena) FlatOf(pointIdx int) int { return int(a.byPoint[pointIdx]) }

// CellOf returns the voxel of a point.
func (a *CellArena) CellOf(pointIdx int) GridIndex {
	return a.cfg.Unflatten(int(a.byPoint[pointIdx]))
}

// Polar returns the polar coordinates of a point, computed once during
// assignment.
func (a *CellArena) Polar(pointIdx int) PolarCoordinate { return a.polar[pointIdx] }

// Members returns the point indices assigned to a flat voxel index, in
// scan order. The returned slice is owned by the arena; callers must not
// modify it.
func (a *CellArena) Members(flat int) []int32 { return a.members[flat] }

// OccupiedCells returns the flat indices of all occupied voxels in
// ascending order. Iterating this slice gives a deterministic traversal
// independent of map iteration order.
func (a *CellArena) OccupiedCells() []int {
	cells := make([]int, 0, len(a.members))
	for idx := range a.members {
		cells = append(cells, idx)
	}
	sort.Ints(cells)
	return cells
}
