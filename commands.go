package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bbejczy/polarseg-kitti/internal/bev"
	"github.com/bbejczy/polarseg-kitti/internal/config"
	"github.com/bbejczy/polarseg-kitti/internal/eval"
	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/inference"
	"github.com/bbejczy/polarseg-kitti/internal/pipeline"
	"github.com/bbejczy/polarseg-kitti/internal/runstore"
	"github.com/bbejczy/polarseg-kitti/internal/security"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
	"github.com/bbejczy/polarseg-kitti/internal/submission"
	"github.com/bbejczy/polarseg-kitti/internal/viz"
)

// runInfer runs the full BEV pipeline over a split and writes one prediction
// file per scan into the submission tree.
func runInfer(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("infer", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to pipeline config JSON (default: built-in defaults)")
	dataRoot := fs.String("data", "", "Dataset root containing sequences/ (overrides config)")
	split := fs.String("split", "valid", "Dataset split to process (train, valid or test)")
	sequences := fs.String("sequences", "", "Comma-separated sequence IDs (overrides -split)")
	network := fs.String("network", "constant:9", "Network backend, e.g. constant:<class>")
	model := fs.String("model", "", "Model name for the submission tree (overrides config)")
	outRoot := fs.String("out", "", "Submission root directory (overrides config)")
	runDB := fs.String("run-db", DEFAULT_RUN_DB, "Run history database path (empty disables recording)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyOverrides(cfg, *dataRoot, *model, *outRoot)
	if cfg.GetDataRoot() == "" {
		log.Fatal("dataset root is required (set -data or data_root in the config)")
	}

	net, err := buildNetwork(*network)
	if err != nil {
		log.Fatalf("invalid -network: %v", err)
	}

	fsys := fsutil.OSFileSystem{}
	frames := resolveFrames(fsys, cfg.GetDataRoot(), *split, *sequences)

	runner, err := pipeline.New(cfg, fsys, net)
	if err != nil {
		log.Fatalf("pipeline setup failed: %v", err)
	}

	start := time.Now()
	stats, err := runner.Run(ctx, frames)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	for _, f := range stats.Failures() {
		log.Printf("scan %s failed: %v", f.Frame, f.Err)
	}
	log.Printf("processed %d/%d scans (%d points) in %s",
		stats.Scans(), len(frames), stats.Points(), time.Since(start).Round(time.Millisecond))

	if *runDB != "" {
		recordRun(*runDB, &runstore.Run{
			Model:    cfg.GetModelName(),
			Split:    splitLabel(*split, *sequences),
			Grid:     gridLabel(runner.GridConfig()),
			Pooling:  cfg.GetPooling(),
			Features: cfg.GetFeatureMode(),
			Scans:    int64(stats.Scans()),
			Points:   int64(stats.Points()),
			MeanIoU:  math.NaN(),
		})
	}

	if stats.Failed() > 0 {
		os.Exit(1)
	}
}

// runEval scores a written submission tree against ground truth and records
// the result in the run database.
func runEval(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to pipeline config JSON (default: built-in defaults)")
	dataRoot := fs.String("data", "", "Dataset root containing sequences/ (overrides config)")
	split := fs.String("split", "valid", "Dataset split to score (train or valid)")
	sequences := fs.String("sequences", "", "Comma-separated sequence IDs (overrides -split)")
	model := fs.String("model", "", "Model name of the submission tree (overrides config)")
	outRoot := fs.String("out", "", "Submission root directory (overrides config)")
	report := fs.String("report", "", "Write a per-class IoU chart to this HTML file")
	runDB := fs.String("run-db", DEFAULT_RUN_DB, "Run history database path (empty disables recording)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyOverrides(cfg, *dataRoot, *model, *outRoot)
	if cfg.GetDataRoot() == "" {
		log.Fatal("dataset root is required (set -data or data_root in the config)")
	}

	fsys := fsutil.OSFileSystem{}
	lm := loadLabelMap(fsys, cfg)
	frames := resolveFrames(fsys, cfg.GetDataRoot(), *split, *sequences)

	res, err := eval.EvaluateFrames(fsys, frames, cfg.GetSubmissionRoot(), cfg.GetModelName(), lm)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}

	for _, c := range res.Classes {
		log.Printf("%-16s IoU %s", c.Name, fmtIoU(c.IoU))
	}
	log.Printf("%s over %d points", viz.FormatMeanIoU(res), res.Points)

	if *report != "" {
		f, err := os.Create(*report)
		if err != nil {
			log.Fatalf("create report: %v", err)
		}
		title := fmt.Sprintf("%s on %s", cfg.GetModelName(), splitLabel(*split, *sequences))
		if err := viz.WriteIoUReport(f, res, title); err != nil {
			f.Close()
			log.Fatalf("write report: %v", err)
		}
		f.Close()
		log.Printf("wrote report to %s", *report)
	}

	if *runDB != "" {
		id := recordRun(*runDB, &runstore.Run{
			Model:    cfg.GetModelName(),
			Split:    splitLabel(*split, *sequences),
			Grid:     gridLabel(gridConfigFor(cfg)),
			Pooling:  cfg.GetPooling(),
			Features: cfg.GetFeatureMode(),
			Scans:    int64(len(frames)),
			Points:   res.Points,
			MeanIoU:  math.NaN(),
		})
		if id != "" {
			attachResult(*runDB, id, res)
		}
	}
}

// runPackage validates the submission tree and writes the scorer-ready zip.
func runPackage(args []string) {
	fs := flag.NewFlagSet("package", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to pipeline config JSON (default: built-in defaults)")
	dataRoot := fs.String("data", "", "Dataset root containing sequences/ (overrides config)")
	split := fs.String("split", "test", "Dataset split to package")
	sequences := fs.String("sequences", "", "Comma-separated sequence IDs (overrides -split)")
	model := fs.String("model", "", "Model name of the submission tree (overrides config)")
	outRoot := fs.String("out", "", "Submission root directory (overrides config)")
	archive := fs.String("archive", "", "Output zip path (default <model>_submission.zip)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	applyOverrides(cfg, *dataRoot, *model, *outRoot)
	if cfg.GetDataRoot() == "" {
		log.Fatal("dataset root is required (set -data or data_root in the config)")
	}

	fsys := fsutil.OSFileSystem{}
	lm := loadLabelMap(fsys, cfg)
	frames := resolveFrames(fsys, cfg.GetDataRoot(), *split, *sequences)

	path := *archive
	if path == "" {
		path = security.SanitizeFilename(cfg.GetModelName()) + "_submission.zip"
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("create archive: %v", err)
	}
	if err := submission.WriteArchive(fsys, cfg.GetSubmissionRoot(), cfg.GetModelName(), frames, lm, f); err != nil {
		f.Close()
		os.Remove(path)
		log.Fatalf("package failed: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("close archive: %v", err)
	}
	log.Printf("wrote %s (%d frames)", path, len(frames))
}

// runMigrate manages the run database schema. Flags come before the action:
// polarseg migrate [-run-db path] <up|down|status|force N>
func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	runDB := fs.String("run-db", DEFAULT_RUN_DB, "Run history database path")
	fs.Parse(args)

	action := fs.Arg(0)
	if action == "" || action == "help" {
		printMigrateHelp()
		if action == "" {
			os.Exit(1)
		}
		return
	}

	store, err := runstore.Open(*runDB)
	if err != nil {
		log.Fatalf("open run database: %v", err)
	}
	defer store.Close()

	switch action {
	case "up":
		if err := store.MigrateUp(); err != nil {
			log.Fatalf("migration up failed: %v", err)
		}
		version, dirty, _ := store.MigrateVersion()
		log.Printf("schema at version %d (dirty: %v)", version, dirty)

	case "down":
		if err := store.MigrateDown(); err != nil {
			log.Fatalf("migration down failed: %v", err)
		}
		version, dirty, _ := store.MigrateVersion()
		log.Printf("schema at version %d (dirty: %v)", version, dirty)

	case "status":
		version, dirty, err := store.MigrateVersion()
		if err != nil {
			log.Fatalf("read migration status: %v", err)
		}
		fmt.Printf("Current version: %d\n", version)
		fmt.Printf("Dirty: %v\n", dirty)

	case "force":
		v, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			log.Fatalf("force needs a numeric version, got %q", fs.Arg(1))
		}
		if err := store.MigrateForce(v); err != nil {
			log.Fatalf("force migration failed: %v", err)
		}
		log.Printf("schema version forced to %d", v)

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		printMigrateHelp()
		os.Exit(1)
	}
}

func printMigrateHelp() {
	fmt.Println("Run Database Migration Commands")
	fmt.Println()
	fmt.Println("Usage: polarseg migrate [-run-db path] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up           Apply all pending migrations")
	fmt.Println("  down         Rollback one migration")
	fmt.Println("  status       Show current migration status and version")
	fmt.Println("  force <N>    Force migration version to N (recovery only)")
	fmt.Println("  help         Show this help message")
}

// loadConfig resolves the pipeline config: an explicit file when given,
// otherwise the built-in defaults.
func loadConfig(path string) *config.PipelineConfig {
	if path == "" {
		return config.MustLoadDefaultConfig()
	}
	cfg, err := config.LoadPipelineConfig(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func applyOverrides(cfg *config.PipelineConfig, dataRoot, model, outRoot string) {
	if dataRoot != "" {
		cfg.DataRoot = &dataRoot
	}
	if model != "" {
		cfg.ModelName = &model
	}
	if outRoot != "" {
		cfg.SubmissionRoot = &outRoot
	}
}

func loadLabelMap(fsys fsutil.FileSystem, cfg *config.PipelineConfig) *semkitti.LabelMap {
	if path := cfg.GetLabelMapPath(); path != "" {
		lm, err := semkitti.LoadLabelMap(fsys, path)
		if err != nil {
			log.Fatalf("load label map: %v", err)
		}
		return lm
	}
	return semkitti.DefaultLabelMap()
}

// buildNetwork parses a -network spec. The only built-in backend predicts a
// constant training class for every cell, which exercises the full pipeline
// without model weights.
func buildNetwork(spec string) (inference.Network, error) {
	kind, val, _ := strings.Cut(spec, ":")
	switch kind {
	case "constant":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("want constant:<class>, got %q", spec)
		}
		return &inference.ConstantNetwork{Class: int32(n)}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want constant:<class>)", spec)
	}
}

func resolveFrames(fsys fsutil.FileSystem, dataRoot, split, sequenceList string) []semkitti.Frame {
	sequences, err := parseSequences(split, sequenceList)
	if err != nil {
		log.Fatalf("resolve sequences: %v", err)
	}
	frames, err := semkitti.DiscoverFrames(fsys, dataRoot, sequences)
	if err != nil {
		log.Fatalf("discover frames: %v", err)
	}
	log.Printf("found %d scans in %d sequence(s)", len(frames), len(sequences))
	return frames
}

// parseSequences prefers the explicit comma-separated list over the split.
func parseSequences(split, list string) ([]string, error) {
	if list == "" {
		return semkitti.SplitSequences(split)
	}
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sequence list %q is empty", list)
	}
	return out, nil
}

func splitLabel(split, sequences string) string {
	if sequences != "" {
		return "seqs:" + sequences
	}
	return split
}

func gridLabel(cfg *bev.GridConfig) string {
	return fmt.Sprintf("%dx%dx%d", cfg.Rings, cfg.AzimuthBins, cfg.HeightBins)
}

func gridConfigFor(cfg *config.PipelineConfig) *bev.GridConfig {
	return bev.GridConfigFromPipeline(cfg)
}

func fmtIoU(v float64) string {
	if math.IsNaN(v) {
		return "   n/a"
	}
	return fmt.Sprintf("%5.1f%%", v*100)
}

// recordRun writes a run row; failures are logged but never abort the
// command, since the pipeline output already exists on disk.
func recordRun(dbPath string, run *runstore.Run) string {
	store, err := runstore.OpenAndMigrate(dbPath)
	if err != nil {
		log.Printf("run not recorded: %v", err)
		return ""
	}
	defer store.Close()

	id, err := store.RecordRun(run)
	if err != nil {
		log.Printf("run not recorded: %v", err)
		return ""
	}
	log.Printf("recorded run %s", id)
	return id
}

func attachResult(dbPath, runID string, res *eval.Result) {
	store, err := runstore.Open(dbPath)
	if err != nil {
		log.Printf("result not recorded: %v", err)
		return
	}
	defer store.Close()

	if err := store.AttachResult(runID, res); err != nil {
		log.Printf("result not recorded: %v", err)
	}
}
