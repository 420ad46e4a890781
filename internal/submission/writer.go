// Package submission turns per-point predictions into the on-disk layout
// the benchmark server ingests, validates the finished tree, and packages
// it into an archive.
//
// Layout: <root>/<model>/sequences/<sequence>/predictions/<frame>.label,
// one little-endian uint32 per point in scan order.
package submission

import (
	"path/filepath"
	"sync"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/security"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// LabelPath returns the prediction file path for one frame.
func LabelPath(root, model, sequence, frame string) string {
	return filepath.Join(root, model, "sequences", sequence, "predictions", frame+".label")
}

// Writer persists prediction files. Frames may be written concurrently
// from many workers; directory creation is serialised so concurrent first
// writes into one sequence cannot race.
type Writer struct {
	fs    fsutil.FileSystem
	root  string
	model string

	mu   sync.Mutex
	dirs map[string]bool
}

// NewWriter returns a Writer rooted at root/model.
func NewWriter(fs fsutil.FileSystem, root, model string) *Writer {
	return &Writer{
		fs:    fs,
		root:  root,
		model: model,
		dirs:  make(map[string]bool),
	}
}

// WriteFrame encodes the labels and writes the frame's prediction file,
// creating the sequence directory on first use. The assembled path must stay
// inside the submission root; model and sequence IDs come from configs, so a
// crafted value must not be able to write elsewhere.
func (w *Writer) WriteFrame(sequence, frame string, labels semkitti.PointLabels) error {
	path := LabelPath(w.root, w.model, sequence, frame)
	if err := security.ValidatePathWithinDirectory(path, w.root); err != nil {
		return err
	}
	if err := w.ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return w.fs.WriteFile(path, semkitti.EncodeLabels(labels), 0o644)
}

func (w *Writer) ensureDir(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[dir] {
		return nil
	}
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	w.dirs[dir] = true
	return nil
}
