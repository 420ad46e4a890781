package bev

import (
	"gorgonia.org/tensor"

	"github.com/bbejczy/polarseg-kitti/internal/config"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// PoolingMode selects how member features are reduced to one vector per
// voxel.
type PoolingMode string

const (
	PoolMax  PoolingMode = "max"  // per-channel maximum
	PoolMean PoolingMode = "mean" // per-channel arithmetic mean
)

// FeatureMode selects the per-point feature vector fed into pooling.
type FeatureMode string

const (
	// FeaturesPolar9 is the full vector: offsets from the voxel centre
	// (radius, azimuth, height), absolute polar coordinates, Cartesian x
	// and y, and reflectance.
	FeaturesPolar9 FeatureMode = "polar9"
	// FeaturesPolar3 is the reduced vector: radius, azimuth, reflectance.
	FeaturesPolar3 FeatureMode = "polar3"
)

// Channels returns the per-point feature width for the mode.
func (m FeatureMode) Channels() int {
	if m == FeaturesPolar3 {
		return 3
	}
	return 9
}

// Aggregator pools per-point features into a dense voxel grid. It holds no
// per-scan state, so one aggregator can serve all workers concurrently.
type Aggregator struct {
	cfg      *GridConfig
	pooling  PoolingMode
	features FeatureMode
}

// NewAggregator validates the grid config and modes and returns an
// aggregator. All failures are configuration errors.
func NewAggregator(cfg *GridConfig, pooling PoolingMode, features FeatureMode) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch pooling {
	case PoolMax, PoolMean:
	default:
		return nil, config.Errorf("Pooling", "must be %q or %q, got %q", PoolMax, PoolMean, pooling)
	}
	switch features {
	case FeaturesPolar9, FeaturesPolar3:
	default:
		return nil, config.Errorf("FeatureMode", "must be %q or %q, got %q", FeaturesPolar9, FeaturesPolar3, features)
	}
	return &Aggregator{cfg: cfg, pooling: pooling, features: features}, nil
}

// pointFeatures fills dst with one point's feature vector. dst must have
// ag.features.Channels() elements.
func (ag *Aggregator) pointFeatures(cloud semkitti.PointCloud, arena *CellArena, pointIdx int, center PolarCoordinate, dst []float32) {
	pol := arena.Polar(pointIdx)
	p := cloud[pointIdx]
	if ag.features == FeaturesPolar3 {
		dst[0] = float32(pol.Radius)
		dst[1] = float32(pol.Azimuth)
		dst[2] = p.Reflectance
		return
	}
	dst[0] = float32(pol.Radius - center.Radius)
	dst[1] = float32(pol.Azimuth - center.Azimuth)
	dst[2] = float32(pol.Height - center.Height)
	dst[3] = float32(pol.Radius)
	dst[4] = float32(pol.Azimuth)
	dst[5] = float32(pol.Height)
	dst[6] = p.X
	dst[7] = p.Y
	dst[8] = p.Reflectance
}

// PoolCell reduces the members of one voxel to a single feature vector.
// For max pooling the second return value gives, per channel, the index of
// the point whose value was taken; when several members tie on a channel,
// the earliest in scan order wins. For mean pooling sources is nil. An
// empty voxel returns (nil, nil).
func (ag *Aggregator) PoolCell(cloud semkitti.PointCloud, arena *CellArena, flat int) (vec []float32, sources []int) {
	members := arena.Members(flat)
	if len(members) == 0 {
		return nil, nil
	}
	ch := ag.features.Channels()
	center := ag.cfg.VoxelCenter(ag.cfg.Unflatten(flat))
	vec = make([]float32, ch)

	if ag.pooling == PoolMean {
		sums := make([]float64, ch)
		buf := make([]float32, ch)
		for _, m := range members {
			ag.pointFeatures(cloud, arena, int(m), center, buf)
			for c := 0; c < ch; c++ {
				sums[c] += float64(buf[c])
			}
		}
		n := float64(len(members))
		for c := 0; c < ch; c++ {
			vec[c] = float32(sums[c] / n)
		}
		return vec, nil
	}

	sources = make([]int, ch)
	ag.pointFeatures(cloud, arena, int(members[0]), center, vec)
	for c := range sources {
		sources[c] = int(members[0])
	}
	buf := make([]float32, ch)
	for _, m := range members[1:] {
		ag.pointFeatures(cloud, arena, int(m), center, buf)
		for c := 0; c < ch; c++ {
			// Strict comparison: a later point must exceed, not equal,
			// the running maximum to take over a channel.
			if buf[c] > vec[c] {
				vec[c] = buf[c]
				sources[c] = int(m)
			}
		}
	}
	return vec, sources
}

// VoxelGrid is the dense network input for one scan: a float32 feature
// tensor of shape (rings, azimuth bins, height bins, channels) and a bool
// occupancy tensor of shape (rings, azimuth bins, height bins). The mask
// distinguishes an occupied voxel whose pooled features happen to be zero
// from a voxel no point touched.
type VoxelGrid struct {
	Features  *tensor.Dense
	Occupancy *tensor.Dense

	cfg      *GridConfig
	channels int
}

// Aggregate pools every occupied voxel of a scan into a dense grid.
// Unoccupied voxels keep zero features and a false occupancy bit. The
// traversal is in ascending flat index order, so output is deterministic
// for a given scan.
func (ag *Aggregator) Aggregate(cloud semkitti.PointCloud, arena *CellArena) *VoxelGrid {
	ch := ag.features.Channels()
	cells := ag.cfg.CellCount()
	feat := make([]float32, cells*ch)
	occ := make([]bool, cells)

	for _, flat := range arena.OccupiedCells() {
		vec, _ := ag.PoolCell(cloud, arena, flat)
		copy(feat[flat*ch:(flat+1)*ch], vec)
		occ[flat] = true
	}

	return &VoxelGrid{
		Features: tensor.New(
			tensor.WithShape(ag.cfg.Rings, ag.cfg.AzimuthBins, ag.cfg.HeightBins, ch),
			tensor.WithBacking(feat),
		),
		Occupancy: tensor.New(
			tensor.WithShape(ag.cfg.Rings, ag.cfg.AzimuthBins, ag.cfg.HeightBins),
			tensor.WithBacking(occ),
		),
		cfg:      ag.cfg,
		channels: ch,
	}
}

// Config returns the grid config the voxel grid was built against.
func (g *VoxelGrid) Config() *GridConfig { return g.cfg }

// Channels returns the feature width per voxel.
func (g *VoxelGrid) Channels() int { return g.channels }

// FeatureAt returns one channel of one voxel's pooled features.
func (g *VoxelGrid) FeatureAt(gi GridIndex, channel int) float32 {
	data := g.Features.Data().([]float32)
	return data[g.cfg.Idx(gi)*g.channels+channel]
}

// OccupiedAt reports whether any point landed in the voxel.
func (g *VoxelGrid) OccupiedAt(gi GridIndex) bool {
	data := g.Occupancy.Data().([]bool)
	return data[g.cfg.Idx(gi)]
}
