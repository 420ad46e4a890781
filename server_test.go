package main

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bbejczy/polarseg-kitti/internal/eval"
	"github.com/bbejczy/polarseg-kitti/internal/runstore"
)

func newTestServer(t *testing.T) (*Server, *runstore.Store) {
	t.Helper()
	store, err := runstore.OpenAndMigrate(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(store), store
}

func recordTestRun(t *testing.T, store *runstore.Store, model string, meanIoU float64) string {
	t.Helper()
	id, err := store.RecordRun(&runstore.Run{
		Model:    model,
		Split:    "valid",
		Grid:     "480x360x32",
		Pooling:  "max",
		Features: "polar3",
		Scans:    10,
		Points:   1200,
		MeanIoU:  meanIoU,
	})
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	return id
}

func testEvalResult() *eval.Result {
	return &eval.Result{
		Classes: []eval.ClassScore{
			{Class: 1, Name: "car", TP: 3, FP: 1, FN: 0, IoU: 0.75},
			{Class: 2, Name: "road", TP: 2, FP: 0, FN: 1, IoU: 2.0 / 3.0},
		},
		MeanIoU: (0.75 + 2.0/3.0) / 2,
		Points:  7,
	}
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok\n" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestServer_Home(t *testing.T) {
	srv, store := newTestServer(t)
	id := recordTestRun(t, store, "baseline", math.NaN())

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "baseline") {
		t.Error("home page missing model name")
	}
	if !strings.Contains(body, "/runs/"+id) {
		t.Error("home page missing run link")
	}
	if !strings.Contains(body, "n/a") {
		t.Error("unevaluated run should show n/a for mIoU")
	}
}

func TestServer_Home_UnknownPathIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServer_RunsJSON(t *testing.T) {
	srv, store := newTestServer(t)
	pendingID := recordTestRun(t, store, "pending", math.NaN())
	scoredID := recordTestRun(t, store, "scored", math.NaN())
	if err := store.AttachResult(scoredID, testEvalResult()); err != nil {
		t.Fatalf("attach result: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []runJSON
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d runs, want 2", len(got))
	}

	byID := map[string]runJSON{}
	for _, r := range got {
		byID[r.ID] = r
	}
	if r := byID[pendingID]; r.MeanIoU != nil {
		t.Errorf("pending run mean_iou = %v, want null", *r.MeanIoU)
	}
	scored := byID[scoredID]
	if scored.MeanIoU == nil {
		t.Fatal("scored run mean_iou is null")
	}
	if want := (0.75 + 2.0/3.0) / 2; math.Abs(*scored.MeanIoU-want) > 1e-9 {
		t.Errorf("scored run mean_iou = %v, want %v", *scored.MeanIoU, want)
	}
}

func TestServer_RunsJSON_PostRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/runs", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestServer_RunChart(t *testing.T) {
	srv, store := newTestServer(t)
	id := recordTestRun(t, store, "scored", math.NaN())
	if err := store.AttachResult(id, testEvalResult()); err != nil {
		t.Fatalf("attach result: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+id, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"car", "road", "mIoU 70.83%"} {
		if !strings.Contains(body, want) {
			t.Errorf("chart missing %q", want)
		}
	}
}

func TestServer_RunChart_NoEvaluation(t *testing.T) {
	srv, store := newTestServer(t)
	id := recordTestRun(t, store, "pending", math.NaN())

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/"+id, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no evaluation") {
		t.Errorf("body = %q, want no-evaluation notice", rec.Body.String())
	}
}

func TestServer_RunChart_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/runs/no-such-run", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
