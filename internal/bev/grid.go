package bev

import "math"

// GridIndex addresses one voxel in the polar grid.
type GridIndex struct {
	Ring      int // radial bin, 0 at RadiusMin
	AzBin     int // angular bin, 0 at azimuth 0
	HeightBin int // vertical bin, 0 at HeightMin
}

// CellCount returns the total number of voxels in the grid.
func (c *GridConfig) CellCount() int {
	return c.Rings * c.AzimuthBins * c.HeightBins
}

// Idx flattens a GridIndex into a single array offset. The layout is
// ring-major, then azimuth, then height, matching the feature tensor
// layout so a flat index can address both.
func (c *GridConfig) Idx(gi GridIndex) int {
	return (gi.Ring*c.AzimuthBins+gi.AzBin)*c.HeightBins + gi.HeightBin
}

// Unflatten inverts Idx.
func (c *GridConfig) Unflatten(idx int) GridIndex {
	h := idx % c.HeightBins
	idx /= c.HeightBins
	return GridIndex{
		Ring:      idx / c.AzimuthBins,
		AzBin:     idx % c.AzimuthBins,
		HeightBin: h,
	}
}

// CellIndex maps a polar point to its voxel. Out-of-range coordinates are
// clamped to the boundary bins: a point is never dropped, so the per-point
// prediction scatter later covers the whole scan.
func (c *GridConfig) CellIndex(p PolarCoordinate) GridIndex {
	ring := int(math.Floor((p.Radius - c.RadiusMin) / (c.RadiusMax - c.RadiusMin) * float64(c.Rings)))
	azBin := int(math.Floor(p.Azimuth / (2 * math.Pi) * float64(c.AzimuthBins)))
	heightBin := int(math.Floor((p.Height - c.HeightMin) / (c.HeightMax - c.HeightMin) * float64(c.HeightBins)))
	return GridIndex{
		Ring:      clampInt(ring, 0, c.Rings-1),
		AzBin:     clampInt(azBin, 0, c.AzimuthBins-1),
		HeightBin: clampInt(heightBin, 0, c.HeightBins-1),
	}
}

// VoxelSize returns the extent of one voxel along each polar axis.
func (c *GridConfig) VoxelSize() (dr, daz, dh float64) {
	dr = (c.RadiusMax - c.RadiusMin) / float64(c.Rings)
	daz = 2 * math.Pi / float64(c.AzimuthBins)
	dh = (c.HeightMax - c.HeightMin) / float64(c.HeightBins)
	return dr, daz, dh
}

// VoxelCenter returns the polar coordinates of a voxel's midpoint. Feature
// pooling uses it to centre member points on their cell.
func (c *GridConfig) VoxelCenter(gi GridIndex) PolarCoordinate {
	dr, daz, dh := c.VoxelSize()
	return PolarCoordinate{
		Radius:  c.RadiusMin + (float64(gi.Ring)+0.5)*dr,
		Azimuth: (float64(gi.AzBin) + 0.5) * daz,
		Height:  c.HeightMin + (float64(gi.HeightBin)+0.5)*dh,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
