package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bbejczy/polarseg-kitti/internal/version"
)

// Constants
const DEFAULT_RUN_DB = "polarseg_runs.db"

func main() {
	log.SetFlags(log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "infer":
		runInfer(ctx, args)

	case "eval":
		runEval(args)

	case "package":
		runPackage(args)

	case "serve":
		runServe(ctx, args)

	case "migrate":
		runMigrate(args)

	case "version":
		fmt.Println(version.String())

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("PolarSeg BEV segmentation pipeline for SemanticKITTI")
	fmt.Println()
	fmt.Println("Usage: polarseg <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  infer       Run the BEV pipeline over a dataset split and write predictions")
	fmt.Println("  eval        Score written predictions against ground truth")
	fmt.Println("  package     Validate predictions and build a submission archive")
	fmt.Println("  serve       Serve run history and evaluation charts over HTTP")
	fmt.Println("  migrate     Manage the run database schema")
	fmt.Println("  version     Print build information")
	fmt.Println()
	fmt.Println("Run 'polarseg <command> -h' for command options.")
}
