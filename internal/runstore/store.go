// Package runstore persists pipeline run history and evaluation scores in a
// local SQLite database.
//
// The schema is owned by the embedded migrations; Open never creates tables
// on its own. Use OpenAndMigrate unless the caller manages migrations itself.
package runstore

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bbejczy/polarseg-kitti/internal/eval"
	"github.com/bbejczy/polarseg-kitti/internal/timeutil"
)

// Store wraps the run-history database.
type Store struct {
	*sql.DB
	clock timeutil.Clock
}

// Open connects to the SQLite database at path, creating the file if needed.
// The schema is not touched; see OpenAndMigrate.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store %s: %w", path, err)
	}
	return &Store{DB: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the time source used to stamp new runs. Tests use this
// to make CreatedAt deterministic.
func (s *Store) SetClock(c timeutil.Clock) {
	s.clock = c
}

// OpenAndMigrate connects and brings the schema up to the latest version.
func OpenAndMigrate(path string) (*Store, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.MigrateUp(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Run is one pipeline invocation: the configuration it ran with, how much it
// processed, and (after evaluation) its headline score.
type Run struct {
	ID        string
	Model     string
	Split     string
	Grid      string // "RxAxH", e.g. "480x360x32"
	Pooling   string
	Features  string
	Scans     int64
	Points    int64
	MeanIoU   float64 // NaN until AttachResult stores a score
	CreatedAt time.Time
}

// ClassResult is one row of the per-class evaluation table.
type ClassResult struct {
	RunID string
	Class int64
	Name  string
	IoU   float64 // NaN when the class never appeared
	TP    int64
	FP    int64
	FN    int64
}

// RecordRun inserts a run row. A missing ID gets a fresh UUID and a missing
// CreatedAt is set to now. The stored ID is returned.
func (s *Store) RecordRun(run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.clock.Now()
	}

	_, err := s.Exec(
		`INSERT INTO runs (run_id, model, split, grid, pooling, features, scans, points, mean_iou, created_unix_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Model, run.Split, run.Grid, run.Pooling, run.Features,
		run.Scans, run.Points, nullableIoU(run.MeanIoU), run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return run.ID, nil
}

// AttachResult stores an evaluation against an existing run: the mean IoU on
// the run row plus one class_results row per scored class.
func (s *Store) AttachResult(runID string, res *eval.Result) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := tx.Exec(`UPDATE runs SET mean_iou = ? WHERE run_id = ?`, nullableIoU(res.MeanIoU), runID)
	if err != nil {
		return fmt.Errorf("update run %s: %w", runID, err)
	}
	if n, err := r.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("no run with id %s", runID)
	}

	for _, c := range res.Classes {
		_, err := tx.Exec(
			`INSERT INTO class_results (run_id, class_id, class_name, iou, tp, fp, fn)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, int64(c.Class), c.Name, nullableIoU(c.IoU), c.TP, c.FP, c.FN,
		)
		if err != nil {
			return fmt.Errorf("insert class result %s: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, model, split, grid, pooling, features, scans, points, mean_iou, created_unix_ms`

// Runs returns the most recent runs, newest first. A non-positive limit
// defaults to 50.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.Query(
		`SELECT `+runColumns+` FROM runs ORDER BY created_unix_ms DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun loads one run and its per-class results ordered by class ID.
func (s *Store) GetRun(id string) (*Run, []ClassResult, error) {
	row := s.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return nil, nil, fmt.Errorf("load run %s: %w", id, err)
	}

	rows, err := s.Query(
		`SELECT run_id, class_id, class_name, iou, tp, fp, fn
		 FROM class_results WHERE run_id = ? ORDER BY class_id`, id)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var classes []ClassResult
	for rows.Next() {
		var (
			cr  ClassResult
			iou sql.NullFloat64
		)
		if err := rows.Scan(&cr.RunID, &cr.Class, &cr.Name, &iou, &cr.TP, &cr.FP, &cr.FN); err != nil {
			return nil, nil, err
		}
		cr.IoU = iouValue(iou)
		classes = append(classes, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return &run, classes, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run    Run
		iou    sql.NullFloat64
		unixMs int64
	)
	err := row.Scan(&run.ID, &run.Model, &run.Split, &run.Grid, &run.Pooling,
		&run.Features, &run.Scans, &run.Points, &iou, &unixMs)
	if err != nil {
		return Run{}, err
	}
	run.MeanIoU = iouValue(iou)
	run.CreatedAt = time.UnixMilli(unixMs)
	return run, nil
}

// SQLite has no NaN, so an absent score is stored as NULL.
func nullableIoU(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v)}
}

func iouValue(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
