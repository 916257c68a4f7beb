package scanner

import (
	"sync/atomic"
	"time"

	"github.com/swarmguard/needlescan/services/needlescan/record"
)

// Instrumented wraps a Searcher and counts the work passed through it.
// Safe for concurrent use when the wrapped searcher is.
type Instrumented struct {
	inner Searcher

	searches     atomic.Int64
	hits         atomic.Int64
	scannedBytes atomic.Int64
	compiles     atomic.Int64
	started      time.Time
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Searches     int64         `json:"searches"`
	Hits         int64         `json:"hits"`
	ScannedBytes int64         `json:"scanned_bytes"`
	Compiles     int64         `json:"compiles"`
	Elapsed      time.Duration `json:"elapsed"`
	BytesPerSec  float64       `json:"bytes_per_sec"`
}

// NewInstrumented wraps inner; a nil inner selects the default searcher.
func NewInstrumented(inner Searcher) *Instrumented {
	if inner == nil {
		inner = Default()
	}
	return &Instrumented{inner: inner, started: time.Now()}
}

// Unwrap returns the wrapped searcher.
func (s *Instrumented) Unwrap() Searcher { return s.inner }

func (s *Instrumented) Search(source, needle record.Sequence) (int, bool) {
	pos, ok := s.inner.Search(source, needle)
	s.record(len(source), ok)
	return pos, ok
}

func (s *Instrumented) Compile(needle record.Sequence) Pattern {
	s.compiles.Add(1)
	return &instrumentedPattern{s: s, inner: Compile(s.inner, needle)}
}

func (s *Instrumented) record(n int, hit bool) {
	s.searches.Add(1)
	s.scannedBytes.Add(int64(n))
	if hit {
		s.hits.Add(1)
	}
}

// Snapshot returns the counters accumulated since construction.
func (s *Instrumented) Snapshot() Snapshot {
	snap := Snapshot{
		Searches:     s.searches.Load(),
		Hits:         s.hits.Load(),
		ScannedBytes: s.scannedBytes.Load(),
		Compiles:     s.compiles.Load(),
		Elapsed:      time.Since(s.started),
	}
	if secs := snap.Elapsed.Seconds(); secs > 0 {
		snap.BytesPerSec = float64(snap.ScannedBytes) / secs
	}
	return snap
}

type instrumentedPattern struct {
	s     *Instrumented
	inner Pattern
}

func (p *instrumentedPattern) Index(source record.Sequence) (int, bool) {
	pos, ok := p.inner.Index(source)
	p.s.record(len(source), ok)
	return pos, ok
}
