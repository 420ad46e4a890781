package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"html"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/bbejczy/polarseg-kitti/internal/eval"
	"github.com/bbejczy/polarseg-kitti/internal/httputil"
	"github.com/bbejczy/polarseg-kitti/internal/runstore"
	"github.com/bbejczy/polarseg-kitti/internal/viz"
)

// Server exposes the run history over HTTP: a browsable table, a JSON
// listing and a per-run IoU chart.
type Server struct {
	store *runstore.Store
}

func NewServer(store *runstore.Store) *Server {
	return &Server{store: store}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.homeHandler)
	mux.HandleFunc("/runs", s.listRuns)
	mux.HandleFunc("/runs/", s.runChart)
	mux.HandleFunc("/healthz", s.healthHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok\n"))
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	runs, err := s.store.Runs(50)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve runs: %v", err), http.StatusInternalServerError)
		return
	}

	var rows strings.Builder
	for _, run := range runs {
		fmt.Fprintf(&rows,
			`<tr><td><a href="/runs/%s">%s</a></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%s</td><td>%s</td></tr>`+"\n",
			html.EscapeString(run.ID), html.EscapeString(shortID(run.ID)),
			html.EscapeString(run.Model), html.EscapeString(run.Split),
			html.EscapeString(run.Grid), html.EscapeString(run.Pooling),
			run.Scans, run.Points, fmtIoU(run.MeanIoU),
			run.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
	<title>polarseg runs</title>
	<style>
		body { font-family: monospace; margin: 2em; }
		table { border-collapse: collapse; }
		th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; }
	</style>
</head>
<body>
	<h1>Pipeline Runs</h1>
	<table>
		<tr><th>Run</th><th>Model</th><th>Split</th><th>Grid</th><th>Pooling</th><th>Scans</th><th>Points</th><th>mIoU</th><th>Created</th></tr>
%s	</table>
	<p><a href="/runs">JSON</a> | <a href="/debug/">Debug</a></p>
</body>
</html>`, rows.String())
}

// runJSON mirrors runstore.Run for the API. The mean IoU is a pointer so an
// unevaluated run encodes as null instead of breaking json.Marshal on NaN.
type runJSON struct {
	ID       string    `json:"id"`
	Model    string    `json:"model"`
	Split    string    `json:"split"`
	Grid     string    `json:"grid"`
	Pooling  string    `json:"pooling"`
	Features string    `json:"features"`
	Scans    int64     `json:"scans"`
	Points   int64     `json:"points"`
	MeanIoU  *float64  `json:"mean_iou"`
	Created  time.Time `json:"created"`
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runs, err := s.store.Runs(50)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve runs: %v", err))
		return
	}

	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runJSON{
			ID:       run.ID,
			Model:    run.Model,
			Split:    run.Split,
			Grid:     run.Grid,
			Pooling:  run.Pooling,
			Features: run.Features,
			Scans:    run.Scans,
			Points:   run.Points,
			MeanIoU:  iouPtr(run.MeanIoU),
			Created:  run.CreatedAt,
		})
	}

	httputil.WriteJSONOK(w, out)
}

// runChart renders the stored per-class scores of one run as an IoU chart.
func (s *Server) runChart(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	run, classes, err := s.store.GetRun(id)
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load run: %v", err), http.StatusInternalServerError)
		return
	}
	if len(classes) == 0 {
		fmt.Fprintf(w, "run %s has no evaluation attached\n", id)
		return
	}

	res := &eval.Result{MeanIoU: run.MeanIoU, Points: run.Points}
	for _, c := range classes {
		res.Classes = append(res.Classes, eval.ClassScore{
			Class: uint32(c.Class),
			Name:  c.Name,
			TP:    c.TP,
			FP:    c.FP,
			FN:    c.FN,
			IoU:   c.IoU,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := fmt.Sprintf("%s on %s", run.Model, run.Split)
	if err := viz.WriteIoUReport(w, res, title); err != nil {
		log.Printf("render run %s: %v", id, err)
	}
}

func iouPtr(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runServe starts the run-history server and blocks until the context is
// cancelled.
func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", ":8080", "HTTP listen address")
	runDB := fs.String("run-db", DEFAULT_RUN_DB, "Run history database path")
	fs.Parse(args)

	store, err := runstore.OpenAndMigrate(*runDB)
	if err != nil {
		log.Fatalf("open run database: %v", err)
	}
	defer store.Close()

	server := NewServer(store)
	mux := server.ServeMux()
	if err := store.AttachAdminRoutes(mux, *runDB); err != nil {
		log.Fatalf("attach admin routes: %v", err)
	}

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %q", r.URL.Path)
		mux.ServeHTTP(w, r)
	})

	httpServer := &http.Server{
		Addr:    *listen,
		Handler: h,
	}

	// Start server in a goroutine so it doesn't block
	go func() {
		log.Printf("serving run history on %s", *listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
