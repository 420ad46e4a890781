package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/bbejczy/polarseg-kitti/internal/bev"
	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
	"github.com/bbejczy/polarseg-kitti/internal/units"
	"github.com/bbejczy/polarseg-kitti/internal/viz"
)

// bev-snapshot renders a single scan as a top-down scatter plot and prints
// how the polar grid covers it. Useful for eyeballing grid settings against
// real data before a full pipeline run.
func main() {
	scanPath := flag.String("scan", "", "Path to a velodyne scan (.bin)")
	labelPath := flag.String("labels", "", "Path to the matching .label file (ground truth or prediction)")
	mapPath := flag.String("map", "", "Label map YAML (default: embedded SemanticKITTI dictionary)")
	out := flag.String("out", "bev.png", "Output image path")
	title := flag.String("title", "", "Plot title (default: scan file name)")
	rings := flag.Int("rings", 0, "Radial bins for the coverage summary (0 uses the pipeline default)")
	azimuthBins := flag.Int("azimuth-bins", 0, "Azimuthal bins for the coverage summary (0 uses the pipeline default)")
	heightBins := flag.Int("height-bins", 0, "Height bins for the coverage summary (0 uses the pipeline default)")
	angleUnits := flag.String("angle-units", units.DEG, "Units for the azimuth resolution printout (rad, deg)")
	flag.Parse()

	if *scanPath == "" {
		log.Fatal("-scan is required")
	}
	if !units.IsValid(*angleUnits) {
		log.Fatalf("invalid -angle-units %q, must be one of: %s", *angleUnits, units.GetValidUnitsString())
	}

	fsys := fsutil.OSFileSystem{}
	cloud, err := semkitti.ReadScan(fsys, *scanPath)
	if err != nil {
		log.Fatalf("read scan: %v", err)
	}

	var labels semkitti.PointLabels
	if *labelPath != "" {
		labels, err = semkitti.ReadLabels(fsys, *labelPath)
		if err != nil {
			log.Fatalf("read labels: %v", err)
		}
		if len(labels) != len(cloud) {
			log.Fatalf("scan has %d points but label file has %d", len(cloud), len(labels))
		}
	} else {
		// Without labels everything plots as one unlabeled class.
		labels = make(semkitti.PointLabels, len(cloud))
	}

	lm := semkitti.DefaultLabelMap()
	if *mapPath != "" {
		lm, err = semkitti.LoadLabelMap(fsys, *mapPath)
		if err != nil {
			log.Fatalf("load label map: %v", err)
		}
	}

	grid := bev.DefaultGridConfig()
	if *rings > 0 {
		grid = grid.WithRings(*rings)
	}
	if *azimuthBins > 0 {
		grid = grid.WithAzimuthBins(*azimuthBins)
	}
	if *heightBins > 0 {
		grid = grid.WithHeightBins(*heightBins)
	}
	if err := grid.Validate(); err != nil {
		log.Fatalf("invalid grid: %v", err)
	}

	arena := bev.AssignPoints(grid, cloud)
	dr, daz, dh := grid.VoxelSize()
	occupied := arena.OccupiedCount()
	total := grid.CellCount()

	fmt.Printf("points: %d\n", len(cloud))
	fmt.Printf("grid %dx%dx%d: %d/%d cells occupied (%.2f%%)\n",
		grid.Rings, grid.AzimuthBins, grid.HeightBins,
		occupied, total, 100*float64(occupied)/float64(total))
	fmt.Printf("cell size: %.3f m radial, %.3f %s azimuthal, %.3f m vertical\n",
		dr, units.ConvertAngle(daz, *angleUnits), *angleUnits, dh)

	name := *title
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(*scanPath), ".bin")
	}
	if err := viz.SaveBEVPlot(cloud, labels, lm, name, *out); err != nil {
		log.Fatalf("render plot: %v", err)
	}
	log.Printf("wrote %s", *out)
}
