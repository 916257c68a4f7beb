// Package progress logs run statistics on a cron schedule while a search is active.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/metric"

	"github.com/swarmguard/needlescan/services/needlescan/orchestrator"
)

// Source yields the statistics to log.
type Source interface {
	Stats() orchestrator.Stats
}

// Ticker logs a Source's statistics on every schedule firing.
type Ticker struct {
	cron   *cron.Cron
	source Source
	logger *slog.Logger
	ticks  metric.Int64Counter

	mu   sync.Mutex
	last orchestrator.Stats
	at   time.Time
}

// New registers schedule, which accepts six-field cron expressions and descriptors
// such as "@every 10s".
func New(source Source, schedule string, logger *slog.Logger, meter metric.Meter) (*Ticker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ticks, _ := meter.Int64Counter("needlescan_progress_ticks_total")
	t := &Ticker{
		cron:   cron.New(cron.WithSeconds()),
		source: source,
		logger: logger,
		ticks:  ticks,
	}
	if _, err := t.cron.AddFunc(schedule, t.tick); err != nil {
		return nil, fmt.Errorf("add progress schedule %q: %w", schedule, err)
	}
	return t, nil
}

// Start begins firing in the background.
func (t *Ticker) Start() {
	t.cron.Start()
	t.logger.Debug("progress ticker started")
}

// Stop halts the schedule and waits for a running tick, bounded by ctx.
func (t *Ticker) Stop(ctx context.Context) error {
	done := t.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		t.logger.Warn("progress ticker stop timeout")
		return ctx.Err()
	}
}

func (t *Ticker) tick() {
	st := t.source.Stats()
	now := time.Now()
	t.ticks.Add(context.Background(), 1)

	t.mu.Lock()
	prev, prevAt := t.last, t.at
	t.last, t.at = st, now
	t.mu.Unlock()

	if st.State != orchestrator.StateRunning {
		t.logger.Debug("progress skipped", "state", st.State.String())
		return
	}
	var rate float64
	if prev.RunID == st.RunID && !prevAt.IsZero() {
		if secs := now.Sub(prevAt).Seconds(); secs > 0 {
			rate = float64(st.Iterations-prev.Iterations) / secs
		}
	}
	t.logger.Info("run progress",
		"run_id", st.RunID,
		"workers", st.Workers,
		"iterations", st.Iterations,
		"searches", st.Searches,
		"matches", st.Matches,
		"distinct_needles", st.DistinctNeedles,
		"iterations_per_sec", rate,
		"uptime", now.Sub(st.StartedAt).Truncate(time.Millisecond).String(),
	)
}
