// Package pipeline wires the segmentation stages into a per-scan worker
// pool: read scan, assign voxels, pool features, infer, scatter classes
// back to points, remap, write the prediction file.
//
// Scans are independent, so parallelism is one scan per worker. All shared
// state (grid config, label map, network) is read-only after construction;
// the only cross-worker mutation is the stats struct and the submission
// writer's directory bookkeeping, both of which serialise internally.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/bbejczy/polarseg-kitti/internal/bev"
	"github.com/bbejczy/polarseg-kitti/internal/config"
	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/inference"
	"github.com/bbejczy/polarseg-kitti/internal/monitoring"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
	"github.com/bbejczy/polarseg-kitti/internal/submission"
)

// Runner executes the pipeline over a set of frames.
type Runner struct {
	fs       fsutil.FileSystem
	grid     *bev.GridConfig
	agg      *bev.Aggregator
	lm       *semkitti.LabelMap
	net      inference.Network
	writer   *submission.Writer
	workers  int
	failFast bool
}

// New builds a Runner from a validated pipeline config. Setup failures are
// configuration errors; nothing is written before Run.
func New(cfg *config.PipelineConfig, fsys fsutil.FileSystem, net inference.Network) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid := bev.GridConfigFromPipeline(cfg)
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	agg, err := bev.NewAggregator(grid, bev.PoolingMode(cfg.GetPooling()), bev.FeatureMode(cfg.GetFeatureMode()))
	if err != nil {
		return nil, err
	}

	lm := semkitti.DefaultLabelMap()
	if path := cfg.GetLabelMapPath(); path != "" {
		lm, err = semkitti.LoadLabelMap(fsys, path)
		if err != nil {
			return nil, config.Errorf("label_map", "cannot load %s: %v", path, err)
		}
	}

	return &Runner{
		fs:       fsys,
		grid:     grid,
		agg:      agg,
		lm:       lm,
		net:      net,
		writer:   submission.NewWriter(fsys, cfg.GetSubmissionRoot(), cfg.GetModelName()),
		workers:  cfg.GetWorkers(),
		failFast: cfg.GetFailFast(),
	}, nil
}

// GridConfig returns the resolved grid config.
func (r *Runner) GridConfig() *bev.GridConfig { return r.grid }

// LabelMap returns the dictionary the runner remaps predictions through.
func (r *Runner) LabelMap() *semkitti.LabelMap { return r.lm }

// Run processes the frames with the configured number of workers and
// returns the aggregated stats. Without fail_fast, per-scan failures are
// logged and recorded and the remaining frames still run; with fail_fast,
// the first failure cancels the pool and is returned.
func (r *Runner) Run(ctx context.Context, frames []semkitti.Frame) (*Stats, error) {
	stats := NewStats()
	if len(frames) == 0 {
		return stats, nil
	}

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if r.failFast {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	jobs := make(chan semkitti.Frame)
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for frame := range jobs {
				if runCtx.Err() != nil {
					return
				}
				points, err := r.processFrame(runCtx, frame)
				if err != nil {
					monitoring.Logf("pipeline: %s: %v", frame.Key(), err)
					stats.recordFailure(frame.Key(), err)
					if r.failFast {
						once.Do(func() {
							firstErr = fmt.Errorf("%s: %w", frame.Key(), err)
							cancel()
						})
					}
					continue
				}
				stats.recordSuccess(points)
			}
		}()
	}

feed:
	for _, frame := range frames {
		select {
		case jobs <- frame:
		case <-runCtx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return stats, firstErr
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// processFrame runs every stage for one scan and writes its prediction
// file. The returned count is the number of points labelled.
func (r *Runner) processFrame(ctx context.Context, frame semkitti.Frame) (int, error) {
	cloud, err := semkitti.ReadScan(r.fs, frame.ScanPath)
	if err != nil {
		return 0, fmt.Errorf("read scan: %w", err)
	}

	arena := bev.AssignPoints(r.grid, cloud)
	monitoring.Debugf("pipeline: %s: %d points in %d occupied cells", frame.Key(), arena.PointCount(), arena.OccupiedCount())
	voxels := r.agg.Aggregate(cloud, arena)

	outputs, err := r.net.Infer(ctx, inference.EncodeInput(voxels))
	if err != nil {
		return 0, fmt.Errorf("infer: %w", err)
	}
	pred, err := inference.DecodePrediction(outputs, r.grid)
	if err != nil {
		return 0, fmt.Errorf("decode prediction: %w", err)
	}

	labels := bev.InvertPredictions(pred, arena)
	external, err := submission.TranslatePredictions(r.lm, labels)
	if err != nil {
		return 0, fmt.Errorf("remap: %w", err)
	}
	if err := r.writer.WriteFrame(frame.Sequence, frame.ID, external); err != nil {
		return 0, fmt.Errorf("write prediction: %w", err)
	}
	return len(cloud), nil
}
