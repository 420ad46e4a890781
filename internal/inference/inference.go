// Package inference defines the boundary between the pipeline and the
// segmentation network. The pipeline hands the network named tensors and
// receives named tensors back; everything behind Infer is opaque, so an
// in-process stub, a CGo-backed runtime, or a remote service all satisfy
// the same interface.
package inference

import (
	"context"

	"gorgonia.org/tensor"
)

// Tensors is a named collection of dense tensors passed across the network
// boundary.
type Tensors map[string]*tensor.Dense

// Tensor names used on the network boundary.
const (
	// InputFeatures is the pooled voxel feature tensor, float32 with shape
	// (rings, azimuth bins, height bins, channels).
	InputFeatures = "features"
	// InputOccupancy is the voxel occupancy mask, bool with shape
	// (rings, azimuth bins, height bins).
	InputOccupancy = "occupancy"
	// OutputClasses is a direct per-voxel class tensor, int32 with shape
	// (rings, azimuth bins, height bins).
	OutputClasses = "classes"
	// OutputScores is a per-voxel score tensor, float32 with shape
	// (rings, azimuth bins, height bins, classes).
	OutputScores = "scores"
)

// Network produces per-voxel predictions from voxel features. Infer must
// be safe for concurrent use; the pipeline calls it from every worker.
type Network interface {
	Infer(ctx context.Context, inputs Tensors) (Tensors, error)
}

// NetworkFunc adapts a plain function to the Network interface.
type NetworkFunc func(ctx context.Context, inputs Tensors) (Tensors, error)

// Infer calls f.
func (f NetworkFunc) Infer(ctx context.Context, inputs Tensors) (Tensors, error) {
	return f(ctx, inputs)
}

// ConstantNetwork predicts the same class for every voxel. It exists for
// pipeline tests and dry runs, where the interesting behaviour is the
// plumbing around the network rather than the network itself.
type ConstantNetwork struct {
	Class int32
}

// Infer returns a classes tensor shaped like the input grid with every
// voxel set to the constant class.
func (n *ConstantNetwork) Infer(ctx context.Context, inputs Tensors) (Tensors, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shape, err := gridShape(inputs)
	if err != nil {
		return nil, err
	}
	classes := make([]int32, shape[0]*shape[1]*shape[2])
	for i := range classes {
		classes[i] = n.Class
	}
	out := tensor.New(tensor.WithShape(shape...), tensor.WithBacking(classes))
	return Tensors{OutputClasses: out}, nil
}
