package inference

import (
	"context"
	"errors"
	"testing"

	"gorgonia.org/tensor"

	"github.com/bbejczy/polarseg-kitti/internal/bev"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

func testGrid(t *testing.T) (*bev.GridConfig, *bev.VoxelGrid) {
	t.Helper()
	cfg := bev.DefaultGridConfig().
		WithRings(2).
		WithAzimuthBins(2).
		WithHeightBins(2).
		WithRadiusRange(0, 4).
		WithHeightRange(-1, 1)
	ag, err := bev.NewAggregator(cfg, bev.PoolMax, bev.FeaturesPolar3)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	cloud := semkitti.PointCloud{
		{X: 1, Y: 0.5, Z: 0.5, Reflectance: 0.25},
		{X: 3, Y: -1, Z: -0.5, Reflectance: 0.75},
	}
	return cfg, ag.Aggregate(cloud, bev.AssignPoints(cfg, cloud))
}

func TestEncodeInput_Names(t *testing.T) {
	_, grid := testGrid(t)

	inputs := EncodeInput(grid)
	if inputs[InputFeatures] != grid.Features {
		t.Error("features tensor not shared with the grid")
	}
	if inputs[InputOccupancy] != grid.Occupancy {
		t.Error("occupancy tensor not shared with the grid")
	}
}

func TestConstantNetwork_RoundTrip(t *testing.T) {
	cfg, grid := testGrid(t)

	net := &ConstantNetwork{Class: 6}
	outputs, err := net.Infer(context.Background(), EncodeInput(grid))
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	pred, err := DecodePrediction(outputs, cfg)
	if err != nil {
		t.Fatalf("DecodePrediction: %v", err)
	}
	for flat := 0; flat < cfg.CellCount(); flat++ {
		if pred.AtFlat(flat) != 6 {
			t.Fatalf("cell %d predicted %d, want 6", flat, pred.AtFlat(flat))
		}
	}
}

func TestConstantNetwork_CancelledContext(t *testing.T) {
	_, grid := testGrid(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	net := &ConstantNetwork{Class: 1}
	if _, err := net.Infer(ctx, EncodeInput(grid)); !errors.Is(err, context.Canceled) {
		t.Errorf("Infer error = %v, want context.Canceled", err)
	}
}

func TestNetworkFunc_Adapter(t *testing.T) {
	called := false
	net := NetworkFunc(func(ctx context.Context, inputs Tensors) (Tensors, error) {
		called = true
		return nil, errors.New("boom")
	})
	if _, err := net.Infer(context.Background(), nil); err == nil {
		t.Error("expected adapter to pass through the error")
	}
	if !called {
		t.Error("adapter did not call the wrapped function")
	}
}

func TestDecodePrediction_DirectClasses(t *testing.T) {
	cfg := bev.DefaultGridConfig().
		WithRings(2).
		WithAzimuthBins(1).
		WithHeightBins(1)

	classes := tensor.New(tensor.WithShape(2, 1, 1), tensor.WithBacking([]int32{4, 9}))
	pred, err := DecodePrediction(Tensors{OutputClasses: classes}, cfg)
	if err != nil {
		t.Fatalf("DecodePrediction: %v", err)
	}
	if got := pred.At(bev.GridIndex{Ring: 0}); got != 4 {
		t.Errorf("ring 0 class = %d, want 4", got)
	}
	if got := pred.At(bev.GridIndex{Ring: 1}); got != 9 {
		t.Errorf("ring 1 class = %d, want 9", got)
	}
}

func TestDecodePrediction_CopiesClassData(t *testing.T) {
	cfg := bev.DefaultGridConfig().
		WithRings(1).
		WithAzimuthBins(1).
		WithHeightBins(1)

	backing := []int32{3}
	classes := tensor.New(tensor.WithShape(1, 1, 1), tensor.WithBacking(backing))
	pred, err := DecodePrediction(Tensors{OutputClasses: classes}, cfg)
	if err != nil {
		t.Fatalf("DecodePrediction: %v", err)
	}

	// Mutating the network's tensor afterwards must not change the grid.
	backing[0] = 17
	if got := pred.AtFlat(0); got != 3 {
		t.Errorf("class = %d after mutating network tensor, want 3", got)
	}
}

func TestDecodePrediction_ScoresArgmax(t *testing.T) {
	cfg := bev.DefaultGridConfig().
		WithRings(2).
		WithAzimuthBins(1).
		WithHeightBins(1)

	// Cell 0 has a clear winner; cell 1 ties classes 0 and 1.
	scores := tensor.New(tensor.WithShape(2, 1, 1, 3), tensor.WithBacking([]float32{
		0.1, 0.9, 0.2,
		0.5, 0.5, 0.1,
	}))
	pred, err := DecodePrediction(Tensors{OutputScores: scores}, cfg)
	if err != nil {
		t.Fatalf("DecodePrediction: %v", err)
	}
	if got := pred.At(bev.GridIndex{Ring: 0}); got != 1 {
		t.Errorf("ring 0 class = %d, want 1", got)
	}
	if got := pred.At(bev.GridIndex{Ring: 1}); got != 0 {
		t.Errorf("tied ring 1 class = %d, want lowest index 0", got)
	}
}

func TestDecodePrediction_Errors(t *testing.T) {
	cfg := bev.DefaultGridConfig().
		WithRings(2).
		WithAzimuthBins(1).
		WithHeightBins(1)

	tests := []struct {
		name    string
		outputs Tensors
	}{
		{
			name:    "no recognised tensor",
			outputs: Tensors{"logits": tensor.New(tensor.WithShape(2, 1, 1), tensor.WithBacking(make([]float32, 2)))},
		},
		{
			name:    "classes with wrong shape",
			outputs: Tensors{OutputClasses: tensor.New(tensor.WithShape(3, 1, 1), tensor.WithBacking(make([]int32, 3)))},
		},
		{
			name:    "classes with wrong dtype",
			outputs: Tensors{OutputClasses: tensor.New(tensor.WithShape(2, 1, 1), tensor.WithBacking(make([]float32, 2)))},
		},
		{
			name:    "scores missing class axis",
			outputs: Tensors{OutputScores: tensor.New(tensor.WithShape(2, 1, 1), tensor.WithBacking(make([]float32, 2)))},
		},
		{
			name:    "scores with wrong dtype",
			outputs: Tensors{OutputScores: tensor.New(tensor.WithShape(2, 1, 1, 2), tensor.WithBacking(make([]int32, 4)))},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodePrediction(tc.outputs, cfg); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}
