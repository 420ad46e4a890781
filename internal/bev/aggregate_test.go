package bev

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// singleCellGrid collapses the whole crop volume into one voxel so pooling
// tests can reason about a single member list.
func singleCellGrid() *GridConfig {
	return DefaultGridConfig().
		WithRings(1).
		WithAzimuthBins(1).
		WithHeightBins(1).
		WithRadiusRange(0, 10).
		WithHeightRange(-2, 2)
}

func TestNewAggregator_RejectsBadModes(t *testing.T) {
	cfg := singleCellGrid()

	if _, err := NewAggregator(cfg, "median", FeaturesPolar9); err == nil {
		t.Error("expected error for unknown pooling mode")
	}
	if _, err := NewAggregator(cfg, PoolMax, "cartesian"); err == nil {
		t.Error("expected error for unknown feature mode")
	}
	if _, err := NewAggregator(cfg.WithRings(0), PoolMax, FeaturesPolar9); err == nil {
		t.Error("expected error for invalid grid config")
	}
}

func TestPoolCell_MaxPicksLargestValue(t *testing.T) {
	cfg := singleCellGrid()
	ag, err := NewAggregator(cfg, PoolMax, FeaturesPolar3)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	// Identical positions so only the reflectance channel varies.
	cloud := semkitti.PointCloud{
		{X: 1, Y: 0, Z: 0, Reflectance: 1},
		{X: 1, Y: 0, Z: 0, Reflectance: 5},
		{X: 1, Y: 0, Z: 0, Reflectance: 3},
	}
	arena := AssignPoints(cfg, cloud)

	vec, sources := ag.PoolCell(cloud, arena, arena.FlatOf(0))
	if vec[2] != 5 {
		t.Errorf("pooled reflectance = %v, want 5", vec[2])
	}
	if sources[2] != 1 {
		t.Errorf("reflectance sourced from point %d, want 1", sources[2])
	}
	// Position channels are equal across members, so the first member
	// keeps them.
	if sources[0] != 0 || sources[1] != 0 {
		t.Errorf("position channels sourced from %d, %d, want 0, 0", sources[0], sources[1])
	}
}

func TestPoolCell_MaxTieKeepsEarlierPoint(t *testing.T) {
	cfg := singleCellGrid()
	ag, err := NewAggregator(cfg, PoolMax, FeaturesPolar3)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	cloud := semkitti.PointCloud{
		{X: 2, Y: 0, Z: 0, Reflectance: 7},
		{X: 2, Y: 0, Z: 0, Reflectance: 7},
	}
	arena := AssignPoints(cfg, cloud)

	vec, sources := ag.PoolCell(cloud, arena, arena.FlatOf(0))
	if vec[2] != 7 {
		t.Errorf("pooled reflectance = %v, want 7", vec[2])
	}
	if sources[2] != 0 {
		t.Errorf("tied reflectance sourced from point %d, want 0", sources[2])
	}
}

func TestPoolCell_Mean(t *testing.T) {
	cfg := singleCellGrid()
	ag, err := NewAggregator(cfg, PoolMean, FeaturesPolar3)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	cloud := semkitti.PointCloud{
		{X: 1, Y: 0, Z: 0, Reflectance: 1},
		{X: 1, Y: 0, Z: 0, Reflectance: 5},
		{X: 1, Y: 0, Z: 0, Reflectance: 3},
	}
	arena := AssignPoints(cfg, cloud)

	vec, sources := ag.PoolCell(cloud, arena, arena.FlatOf(0))
	if vec[2] != 3 {
		t.Errorf("mean reflectance = %v, want 3", vec[2])
	}
	if sources != nil {
		t.Errorf("mean pooling returned sources %v, want nil", sources)
	}
}

func TestPoolCell_EmptyCell(t *testing.T) {
	cfg := DefaultGridConfig().
		WithRings(2).
		WithAzimuthBins(1).
		WithHeightBins(1).
		WithRadiusRange(0, 10).
		WithHeightRange(-2, 2)
	ag, err := NewAggregator(cfg, PoolMax, FeaturesPolar3)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	// One point in the inner ring; the outer ring stays empty.
	cloud := semkitti.PointCloud{{X: 1, Y: 0, Z: 0}}
	arena := AssignPoints(cfg, cloud)

	outer := cfg.Idx(GridIndex{Ring: 1})
	vec, sources := ag.PoolCell(cloud, arena, outer)
	if vec != nil || sources != nil {
		t.Errorf("empty cell pooled to (%v, %v), want (nil, nil)", vec, sources)
	}
}

func TestPoolCell_Polar9Channels(t *testing.T) {
	cfg := DefaultGridConfig().
		WithRings(1).
		WithAzimuthBins(1).
		WithHeightBins(1).
		WithRadiusRange(0, 2).
		WithHeightRange(-1, 1)
	ag, err := NewAggregator(cfg, PoolMax, FeaturesPolar9)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	cloud := semkitti.PointCloud{{X: 1, Y: 0, Z: 0, Reflectance: 0.5}}
	arena := AssignPoints(cfg, cloud)

	vec, _ := ag.PoolCell(cloud, arena, arena.FlatOf(0))
	// The single voxel's centre is (radius 1, azimuth pi, height 0), and
	// the point sits at (radius 1, azimuth 0, height 0).
	want := []float32{
		0, float32(-math.Pi), 0, // offsets from the voxel centre
		1, 0, 0, // absolute polar coordinates
		1, 0, // cartesian x, y
		0.5, // reflectance
	}
	if diff := cmp.Diff(want, vec); diff != "" {
		t.Errorf("polar9 features mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_Shapes(t *testing.T) {
	cfg := quarterGrid()
	ag, err := NewAggregator(cfg, PoolMax, FeaturesPolar9)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	cloud := semkitti.PointCloud{{X: 1, Y: 0, Z: 0}}
	grid := ag.Aggregate(cloud, AssignPoints(cfg, cloud))

	wantFeat := []int{4, 4, 1, 9}
	if diff := cmp.Diff(wantFeat, []int(grid.Features.Shape())); diff != "" {
		t.Errorf("Features shape mismatch (-want +got):\n%s", diff)
	}
	wantOcc := []int{4, 4, 1}
	if diff := cmp.Diff(wantOcc, []int(grid.Occupancy.Shape())); diff != "" {
		t.Errorf("Occupancy shape mismatch (-want +got):\n%s", diff)
	}
	if grid.Channels() != 9 {
		t.Errorf("Channels() = %d, want 9", grid.Channels())
	}
}

func TestAggregate_OccupancyDistinguishesZeroFeatures(t *testing.T) {
	cfg := DefaultGridConfig().
		WithRings(1).
		WithAzimuthBins(1).
		WithHeightBins(2).
		WithRadiusRange(0, 10).
		WithHeightRange(-1, 1)
	ag, err := NewAggregator(cfg, PoolMax, FeaturesPolar3)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	// A point on the sensor axis with zero reflectance pools to an
	// all-zero feature vector, which must still read as occupied.
	cloud := semkitti.PointCloud{{X: 0, Y: 0, Z: -0.5, Reflectance: 0}}
	grid := ag.Aggregate(cloud, AssignPoints(cfg, cloud))

	occupied := GridIndex{Ring: 0, AzBin: 0, HeightBin: 0}
	empty := GridIndex{Ring: 0, AzBin: 0, HeightBin: 1}

	for c := 0; c < 3; c++ {
		if got := grid.FeatureAt(occupied, c); got != 0 {
			t.Errorf("occupied voxel channel %d = %v, want 0", c, got)
		}
		if got := grid.FeatureAt(empty, c); got != 0 {
			t.Errorf("empty voxel channel %d = %v, want 0", c, got)
		}
	}
	if !grid.OccupiedAt(occupied) {
		t.Error("voxel with an all-zero member must read occupied")
	}
	if grid.OccupiedAt(empty) {
		t.Error("voxel with no members must read unoccupied")
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	cfg := quarterGrid()
	ag, err := NewAggregator(cfg, PoolMax, FeaturesPolar9)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}

	cloud := make(semkitti.PointCloud, 150)
	for i := range cloud {
		theta := float64(i) * 0.73
		cloud[i] = semkitti.Point{
			X:           float32(math.Cos(theta) * float64(1+i%4)),
			Y:           float32(math.Sin(theta) * float64(1+i%3)),
			Z:           float32(float64(i%9)/4 - 1),
			Reflectance: float32(i%17) / 16,
		}
	}

	a := ag.Aggregate(cloud, AssignPoints(cfg, cloud))
	b := ag.Aggregate(cloud, AssignPoints(cfg, cloud))

	if diff := cmp.Diff(a.Features.Data().([]float32), b.Features.Data().([]float32)); diff != "" {
		t.Errorf("feature tensors differ between runs (-a +b):\n%s", diff)
	}
	if diff := cmp.Diff(a.Occupancy.Data().([]bool), b.Occupancy.Data().([]bool)); diff != "" {
		t.Errorf("occupancy tensors differ between runs (-a +b):\n%s", diff)
	}
}
