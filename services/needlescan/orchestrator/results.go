package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/swarmguard/needlescan/services/needlescan/record"
	"github.com/swarmguard/needlescan/services/needlescan/scanner"
)

// Stats is a point-in-time view of the current or last run.
type Stats struct {
	RunID      string
	State      State
	Workers    int
	Iterations int64
	Searches   int64
	Matches    int
	// DistinctNeedles is approximate: it counts bloom filter misses at record time.
	DistinctNeedles int64
	// DistinctFill is the fraction of set bits in the distinct-needle filter.
	DistinctFill float64
	StartedAt    time.Time
}

func (m *Module) resetLog(runID string) {
	m.resultsMu.Lock()
	defer m.resultsMu.Unlock()
	m.results = nil
	m.distinct.Reset()
	m.unique = 0
	m.runID = runID
	m.startedAt = time.Now()
}

func (m *Module) record(needle record.Sequence) {
	m.resultsMu.Lock()
	m.results = append(m.results, record.Match{Time: time.Now(), Needle: needle})
	if m.distinct.AddIfAbsent(needle) {
		m.unique++
	}
	m.resultsMu.Unlock()
	m.metrics.matches.Add(context.Background(), 1)
}

func (m *Module) sortLocked() {
	sort.SliceStable(m.results, func(i, j int) bool {
		return m.results[i].Time.Before(m.results[j].Time)
	})
}

// Report sorts the log by timestamp and hands a copy to the reporter. Safe while running; the
// log lock is not held during reporter I/O.
func (m *Module) Report(ctx context.Context) error {
	reporter := m.Reporter()

	ctx, span := m.tracer.Start(ctx, "module.report")
	defer span.End()

	results := m.Results()
	span.SetAttributes(attribute.Int("matches", len(results)))
	if err := reporter.PrintLine(ctx, results); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report failed")
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Results returns a timestamp-sorted copy of the log.
func (m *Module) Results() []record.Match {
	m.resultsMu.Lock()
	defer m.resultsMu.Unlock()
	m.sortLocked()
	out := make([]record.Match, len(m.results))
	copy(out, m.results)
	return out
}

// Stats returns counters for the current or last run.
func (m *Module) Stats() Stats {
	m.resultsMu.Lock()
	defer m.resultsMu.Unlock()
	return Stats{
		RunID:           m.runID,
		State:           m.State(),
		Workers:         int(m.workers.Load()),
		Iterations:      m.iterations.Load(),
		Searches:        m.searches.Load(),
		Matches:         len(m.results),
		DistinctNeedles: m.unique,
		DistinctFill:    fillRatio(m.distinct),
		StartedAt:       m.startedAt,
	}
}

func fillRatio(bf *scanner.BloomFilter) float64 {
	ratio, _ := bf.Stats()["fill_ratio"].(float64)
	return ratio
}
