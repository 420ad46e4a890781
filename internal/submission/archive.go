package submission

import (
	"archive/zip"
	"fmt"
	"io"
	"path"

	"github.com/bbejczy/polarseg-kitti/internal/fsutil"
	"github.com/bbejczy/polarseg-kitti/internal/semkitti"
)

// WriteArchive validates the submission tree and, only if it passes,
// streams it into a zip archive with the benchmark's expected internal
// layout (sequences/<sequence>/predictions/<frame>.label). A validation
// failure returns before a single byte reaches out, so a rejected
// submission never leaves a partial archive behind.
func WriteArchive(fsys fsutil.FileSystem, root, model string, frames []semkitti.Frame, lm *semkitti.LabelMap, out io.Writer) error {
	if err := Validate(fsys, root, model, frames, lm); err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	for _, frame := range frames {
		data, err := fsys.ReadFile(LabelPath(root, model, frame.Sequence, frame.ID))
		if err != nil {
			return fmt.Errorf("read prediction for %s: %w", frame.Key(), err)
		}
		entry := path.Join("sequences", frame.Sequence, "predictions", frame.ID+".label")
		w, err := zw.Create(entry)
		if err != nil {
			return fmt.Errorf("create archive entry %s: %w", entry, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write archive entry %s: %w", entry, err)
		}
	}
	return zw.Close()
}
