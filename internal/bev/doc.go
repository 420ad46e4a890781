// Package bev owns the polar bird's-eye-view stage of the segmentation
// pipeline.
//
// Responsibilities: Cartesian to polar conversion, voxel index assignment,
// per-cell feature pooling, and scattering cell predictions back onto
// points. Key types: GridConfig, CellArena, VoxelGrid, PredictionGrid.
//
// Dependency rule: bev may depend on semkitti and config, but never on
// inference, submission, or the pipeline runner. No file I/O is allowed in
// this package; scans arrive as decoded point clouds.
package bev
