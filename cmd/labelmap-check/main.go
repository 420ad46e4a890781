package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// labelmap-check verifies that a class dictionary can carry labels through
// the whole pipeline: every training class must map to a raw label and back
// unchanged, otherwise submissions written with it would be unscorable.
func main() {
	mapPath := flag.String("map", "", "Label map YAML (default: embedded SemanticKITTI dictionary)")
	verbose := flag.Bool("v", false, "List every training class")
	flag.Parse()

	var (
		lm  *semkitti.LabelMap
		err error
	)
	if *mapPath == "" {
		lm = semkitti.DefaultLabelMap()
		fmt.Println("checking embedded SemanticKITTI dictionary")
	} else {
		lm, err = semkitti.LoadLabelMap(fsutil.OSFileSystem{}, *mapPath)
		if err != nil {
			log.Fatalf("load label map: %v", err)
		}
		fmt.Printf("checking %s\n", *mapPath)
	}

	classes := lm.InternalClasses()
	ignored := 0
	broken := 0
	for _, c := range classes {
		raw, err := lm.ToExternal(c)
		if err != nil {
			fmt.Printf("FAIL: training class %d has no raw label: %v\n", c, err)
			broken++
			continue
		}
		back, err := lm.ToInternal(raw)
		if err != nil {
			fmt.Printf("FAIL: raw label %d (from training class %d) does not map back: %v\n", raw, c, err)
			broken++
			continue
		}
		if back != c {
			fmt.Printf("FAIL: training class %d -> raw %d -> training %d\n", c, raw, back)
			broken++
			continue
		}
		if lm.IsIgnored(c) {
			ignored++
		}
		if *verbose {
			marker := " "
			if lm.IsIgnored(c) {
				marker = "*"
			}
			fmt.Printf("%s %3d -> %3d  %s\n", marker, c, raw, lm.NameOfInternal(c))
		}
	}

	fmt.Printf("%d training classes, %d ignored in scoring\n", len(classes), ignored)
	if broken > 0 {
		fmt.Printf("%d broken mappings\n", broken)
		os.Exit(1)
	}
	fmt.Println("round trip OK")
}
