package bev

import (
	"math"

	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// PolarCoordinate is a point in the sensor-centred polar frame: radial
// distance in the XY plane, azimuth angle, and unchanged Cartesian height.
type PolarCoordinate struct {
	Radius  float64 // metres from the sensor axis
	Azimuth float64 // radians in [0, 2*pi)
	Height  float64 // metres, same axis as Cartesian z
}

// CartesianToPolar converts sensor-frame Cartesian coordinates to the polar
// frame. Azimuth is normalised into [0, 2*pi) so that downstream binning
// never sees a negative angle. A point on the sensor axis (x == 0, y == 0)
// has radius 0 and azimuth 0.
func CartesianToPolar(x, y, z float64) PolarCoordinate {
	azimuth := math.Atan2(y, x)
	if azimuth < 0 {
		azimuth += 2 * math.Pi
	}
	return PolarCoordinate{
		Radius:  math.Hypot(x, y),
		Azimuth: azimuth,
		Height:  z,
	}
}

// TransformPoint converts a decoded scan point to the polar frame.
func TransformPoint(p semkitti.Point) PolarCoordinate {
	return CartesianToPolar(float64(p.X), float64(p.Y), float64(p.Z))
}

// TransformCloud converts a whole scan, preserving point order.
func TransformCloud(cloud semkitti.PointCloud) []PolarCoordinate {
	out := make([]PolarCoordinate, len(cloud))
	for i, p := range cloud {
		out[i] = TransformPoint(p)
	}
	return out
}
