package runstore

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/bbejczy/polarseg-kitti/internal/monitoring"
)

// AttachAdminRoutes mounts a live SQL console and a backup endpoint under
// /debug/ on mux. dbPath is only used to label the tailsql source.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux, dbPath string) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://"+dbPath, s.DB, &tailsql.DBOptions{
		Label: "Run history",
	})
	debug.Handle("tailsql/", "SQL console over the run history", tsql.NewMux())

	debug.Handle("backup", "Download a gzip backup of the run database", http.HandlerFunc(s.handleBackup))
	return nil
}

// handleBackup snapshots the database with VACUUM INTO and streams the copy
// back gzip-compressed. The snapshot is consistent even with writers active.
func (s *Store) handleBackup(w http.ResponseWriter, r *http.Request) {
	dir, err := os.MkdirTemp("", "runstore-backup-")
	if err != nil {
		http.Error(w, fmt.Sprintf("create backup dir: %v", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			monitoring.Logf("runstore: remove backup dir: %v", err)
		}
	}()

	name := fmt.Sprintf("runs-%d.db", time.Now().Unix())
	backupPath := filepath.Join(dir, name)
	if _, err := s.Exec("VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("create backup: %v", err), http.StatusInternalServerError)
		return
	}

	f, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("open backup: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Encoding", "gzip")

	gz := gzip.NewWriter(w)
	defer gz.Close()
	if _, err := io.Copy(gz, f); err != nil {
		// Headers are already out; all we can do is log.
		monitoring.Logf("runstore: stream backup: %v", err)
	}
}
