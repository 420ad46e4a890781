package pipeline

import "sync"

// FrameError records one failed scan.
type FrameError struct {
	Frame string // "<sequence>/<frame>"
	Err   error
}

// Stats aggregates counters across the worker pool.
type Stats struct {
	mu       sync.Mutex
	scans    int
	points   int
	failures []FrameError
}

// NewStats returns an empty Stats.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) recordSuccess(points int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans++
	s.points += points
}

func (s *Stats) recordFailure(frame string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, FrameError{Frame: frame, Err: err})
}

// Scans returns the number of scans processed successfully.
func (s *Stats) Scans() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scans
}

// Points returns the total number of points labelled.
func (s *Stats) Points() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points
}

// Failed returns the number of scans that failed.
func (s *Stats) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.failures)
}

// Failures returns a copy of the per-scan failure records.
func (s *Stats) Failures() []FrameError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FrameError, len(s.failures))
	copy(out, s.failures)
	return out
}
