// Package orchestrator runs the needle search: it owns the strategies, the worker goroutines and
// the result log, and moves between Idle, Running and Stopping.
//
// A run starts by clearing the log and drawing a fixed batch of haystacks. Every worker then loops
// until cancelled: draw a fresh needle, scan the haystacks in order, record the first hit, sleep a
// fixed pace. Cancellation is a polled atomic flag; Stop joins every worker before returning.
package orchestrator

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/swarmguard/needlescan/services/needlescan/generator"
	"github.com/swarmguard/needlescan/services/needlescan/record"
	"github.com/swarmguard/needlescan/services/needlescan/report"
	"github.com/swarmguard/needlescan/services/needlescan/scanner"
)

const (
	// HaystackCount is the number of haystacks drawn per run.
	HaystackCount = 100
	// MinLength and MaxLength bound every haystack and needle length.
	MinLength = 1
	MaxLength = 100
	// DefaultPace is the sleep between two iterations of a worker.
	DefaultPace = 50 * time.Millisecond

	fallbackWorkers = 2
)

// Module is the needle search orchestrator. The zero value is not usable; call New.
type Module struct {
	// lifecycle serializes Start, Stop, Close and strategy replacement.
	lifecycle sync.Mutex
	state     atomic.Int32

	generator generator.Generator
	searcher  scanner.Searcher
	reporter  report.Reporter

	cancel  atomic.Bool
	wg      sync.WaitGroup
	workers atomic.Int32

	resultsMu sync.Mutex
	results   []record.Match
	distinct  *scanner.BloomFilter
	unique    int64
	runID     string
	startedAt time.Time

	iterations atomic.Int64
	searches   atomic.Int64

	parallelism func() int
	pace        time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
	meter       metric.Meter
	metrics     instruments
}

// Option customizes a Module at construction.
type Option func(*Module)

// WithParallelism replaces the hardware parallelism probe (runtime.NumCPU).
// A probe reporting zero or less falls back to two workers.
func WithParallelism(probe func() int) Option {
	return func(m *Module) { m.parallelism = probe }
}

// WithPace sets the sleep between worker iterations.
func WithPace(d time.Duration) Option {
	return func(m *Module) { m.pace = d }
}

// WithLogger sets the logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Module) { m.logger = l }
}

// WithMeter sets the meter used for run instruments; defaults to the global provider.
func WithMeter(meter metric.Meter) Option {
	return func(m *Module) { m.meter = meter }
}

// WithTracer sets the tracer for lifecycle spans; defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(m *Module) { m.tracer = t }
}

// WithGenerator, WithSearcher and WithReporter preset the strategies.
func WithGenerator(g generator.Generator) Option {
	return func(m *Module) { m.generator = g }
}

func WithSearcher(s scanner.Searcher) Option {
	return func(m *Module) { m.searcher = s }
}

func WithReporter(r report.Reporter) Option {
	return func(m *Module) { m.reporter = r }
}

// New returns an idle Module with default strategies unless overridden.
func New(opts ...Option) *Module {
	m := &Module{
		parallelism: runtime.NumCPU,
		pace:        DefaultPace,
		distinct:    scanner.NewBloomFilter(10000, 0.01),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.generator == nil {
		m.generator = generator.New()
	}
	if m.searcher == nil {
		m.searcher = scanner.Default()
	}
	if m.reporter == nil {
		m.reporter = report.Default()
	}
	if m.parallelism == nil {
		m.parallelism = runtime.NumCPU
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.tracer == nil {
		m.tracer = otel.Tracer("needlescan-orchestrator")
	}
	if m.meter == nil {
		m.meter = otel.Meter("needlescan")
	}
	m.metrics = newInstruments(m.meter)
	return m
}

// State reports the current lifecycle state.
func (m *Module) State() State { return State(m.state.Load()) }

func (m *Module) setState(s State) { m.state.Store(int32(s)) }

// Generator returns the generator used by the next run.
func (m *Module) Generator() generator.Generator {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.generator
}

// Searcher returns the searcher used by the next run.
func (m *Module) Searcher() scanner.Searcher {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.searcher
}

// Reporter returns the reporter used by Report.
func (m *Module) Reporter() report.Reporter {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.reporter
}

// SetGenerator replaces the generator; nil restores the default. Only legal while idle.
func (m *Module) SetGenerator(g generator.Generator) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if err := m.requireIdle("set generator"); err != nil {
		return err
	}
	if g == nil {
		g = generator.New()
	}
	m.generator = g
	return nil
}

// SetSearcher replaces the searcher; nil restores the default. Only legal while idle.
func (m *Module) SetSearcher(s scanner.Searcher) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if err := m.requireIdle("set searcher"); err != nil {
		return err
	}
	if s == nil {
		s = scanner.Default()
	}
	m.searcher = s
	return nil
}

// SetReporter replaces the reporter; nil restores the default. Only legal while idle.
func (m *Module) SetReporter(r report.Reporter) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if err := m.requireIdle("set reporter"); err != nil {
		return err
	}
	if r == nil {
		r = report.Default()
	}
	m.reporter = r
	return nil
}

// requireIdle must be called with lifecycle held.
func (m *Module) requireIdle(op string) error {
	if s := m.State(); s != StateIdle {
		return &StateError{Op: op, State: s}
	}
	return nil
}

// WaitFor blocks the caller for d. It is a plain timer and does not observe the workers.
func (m *Module) WaitFor(d time.Duration) {
	time.Sleep(d)
}
