package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/swarmguard/needlescan/services/needlescan/generator"
	"github.com/swarmguard/needlescan/services/needlescan/record"
	"github.com/swarmguard/needlescan/services/needlescan/scanner"
)

// Start begins a run. A running Module is stopped and joined first. The log is cleared, a fresh
// batch of haystacks is drawn, and one worker per hardware thread is spawned. Start returns
// without waiting for any worker. ctx only parents the span.
func (m *Module) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	ctx, span := m.tracer.Start(ctx, "module.start")
	defer span.End()

	if m.State() == StateRunning {
		m.stopLocked(ctx)
	}

	runID := uuid.NewString()
	m.resetLog(runID)
	m.iterations.Store(0)
	m.searches.Store(0)

	haystacks, err := m.haystacks()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "haystack generation failed")
		return fmt.Errorf("generate haystacks: %w", err)
	}

	workers := m.workerCount()
	gen, searcher := m.generator, m.searcher
	m.cancel.Store(false)
	m.workers.Store(int32(workers))
	m.setState(StateRunning)
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.work(i, haystacks, gen, searcher)
	}

	attrs := metric.WithAttributes(attribute.String("searcher", fmt.Sprintf("%T", searcher)))
	m.metrics.runs.Add(ctx, 1, attrs)
	m.metrics.activeWorkers.Add(ctx, int64(workers))
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.Int("workers", workers),
		attribute.Int("haystacks", len(haystacks)),
	)
	m.logger.Info("run started", "run_id", runID, "workers", workers, "haystacks", len(haystacks))
	return nil
}

// Stop cancels the running workers and joins them. It has no timeout and is a no-op unless
// running. The log is kept for Report.
func (m *Module) Stop(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopLocked(ctx)
	return nil
}

// Close joins any running workers. The Module stays usable afterwards.
func (m *Module) Close() error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	m.stopLocked(context.Background())
	return nil
}

// stopLocked must be called with lifecycle held.
func (m *Module) stopLocked(ctx context.Context) {
	if m.State() != StateRunning {
		return
	}
	ctx, span := m.tracer.Start(ctx, "module.stop")
	defer span.End()

	began := time.Now()
	m.setState(StateStopping)
	m.cancel.Store(true)
	m.wg.Wait()
	m.cancel.Store(false)

	workers := m.workers.Swap(0)
	m.setState(StateIdle)

	elapsed := time.Since(began)
	m.metrics.stopLatency.Record(ctx, float64(elapsed.Microseconds())/1000.0)
	m.metrics.activeWorkers.Add(ctx, -int64(workers))
	stats := m.Stats()
	span.SetAttributes(
		attribute.String("run_id", stats.RunID),
		attribute.Int("matches", stats.Matches),
		attribute.Int64("iterations", stats.Iterations),
	)
	m.logger.Info("run stopped",
		"run_id", stats.RunID,
		"workers", workers,
		"iterations", stats.Iterations,
		"matches", stats.Matches,
		"join", elapsed.String(),
	)
}

func (m *Module) workerCount() int {
	n := m.parallelism()
	if n <= 0 {
		return fallbackWorkers
	}
	return n
}

func (m *Module) haystacks() ([]record.Sequence, error) {
	out := make([]record.Sequence, 0, HaystackCount)
	for i := 0; i < HaystackCount; i++ {
		h, err := generator.RandomLength(m.generator, MinLength, MaxLength)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

func (m *Module) work(id int, haystacks []record.Sequence, gen generator.Generator, s scanner.Searcher) {
	defer m.wg.Done()
	for !m.cancel.Load() {
		m.iterate(id, haystacks, gen, s)
		time.Sleep(m.pace)
	}
}

// iterate draws one needle and records it on its first hit. Cancellation is checked before
// every haystack.
func (m *Module) iterate(id int, haystacks []record.Sequence, gen generator.Generator, s scanner.Searcher) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("worker iteration panicked", "worker", id, "panic", fmt.Sprint(r))
		}
	}()
	m.iterations.Add(1)
	m.metrics.iterations.Add(context.Background(), 1)

	needle, err := generator.RandomLength(gen, MinLength, MaxLength)
	if err != nil {
		m.logger.Warn("needle generation failed", "worker", id, "error", err)
		return
	}
	pattern := scanner.Compile(s, needle)
	for _, haystack := range haystacks {
		if m.cancel.Load() {
			return
		}
		m.searches.Add(1)
		if _, ok := pattern.Index(haystack); ok {
			m.record(needle)
			return
		}
	}
}
