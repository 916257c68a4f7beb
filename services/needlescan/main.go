// Command needlescan searches random haystacks for random needles on every CPU for a fixed
// duration and reports the matches it found.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/swarmguard/needlescan/libs/core/logging"
	"github.com/swarmguard/needlescan/libs/core/otelinit"
	"github.com/swarmguard/needlescan/services/needlescan/orchestrator"
	"github.com/swarmguard/needlescan/services/needlescan/progress"
	"github.com/swarmguard/needlescan/services/needlescan/report"
	"github.com/swarmguard/needlescan/services/needlescan/scanner"
)

const (
	service      = "needlescan"
	natsAttempts = 5
)

func main() {
	logging.Init(service)
	cfg, err := loadConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	shutdownTrace := otelinit.InitTracer(ctx, service)
	shutdownMetrics := otelinit.InitMetrics(ctx, service)

	err = run(ctx, cfg, os.Stdout)
	otelinit.Flush(context.Background(), shutdownMetrics)
	otelinit.Flush(context.Background(), shutdownTrace)
	if err != nil {
		slog.Error("needlescan failed", "error", err)
		cancel()
		os.Exit(1)
	}
}

// run performs one timed search and reports to stdout (or NATS).
func run(ctx context.Context, cfg config, stdout io.Writer) error {
	ctx, end := otelinit.WithSpan(ctx, "needlescan.run")
	defer end()
	slog.Info("needlescan starting", "go", runtime.Version(), "cpus", runtime.NumCPU())

	searcher, err := scanner.New(cfg.Searcher)
	if err != nil {
		return err
	}
	counted := scanner.NewInstrumented(searcher)

	reporter, closeReporter, err := newReporter(ctx, cfg, stdout)
	if err != nil {
		return err
	}
	defer closeReporter()

	m := orchestrator.New(
		orchestrator.WithSearcher(counted),
		orchestrator.WithReporter(reporter),
		orchestrator.WithMeter(otel.GetMeterProvider().Meter(service)),
	)
	defer m.Close()

	slog.Info("running")
	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	if cfg.Progress != "" {
		ticker, err := progress.New(m, cfg.Progress, slog.Default(), otel.GetMeterProvider().Meter(service))
		if err != nil {
			return err
		}
		ticker.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = ticker.Stop(stopCtx)
		}()
	}

	slog.Info("waiting", "duration", cfg.Duration.String())
	wait(ctx, m, cfg.Duration)

	slog.Info("stopping")
	if err := m.Stop(ctx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	// A signal ends the wait, not the run: matches are still reported.
	if err := m.Report(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	stats, snap := m.Stats(), counted.Snapshot()
	slog.Info("search finished",
		"run_id", stats.RunID,
		"matches", stats.Matches,
		"distinct_needles", stats.DistinctNeedles,
		"distinct_fill", stats.DistinctFill,
		"iterations", stats.Iterations,
		"searches", snap.Searches,
		"scanned_bytes", snap.ScannedBytes,
		"bytes_per_sec", snap.BytesPerSec,
	)
	return nil
}

// wait blocks for d unless ctx is cancelled first.
func wait(ctx context.Context, m *orchestrator.Module, d time.Duration) {
	done := make(chan struct{})
	go func() {
		m.WaitFor(d)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("wait interrupted", "error", ctx.Err())
	}
}

// newReporter is replaced in tests.
var newReporter = buildReporter

func buildReporter(ctx context.Context, cfg config, stdout io.Writer) (report.Reporter, func(), error) {
	if !strings.EqualFold(cfg.Reporter, reporterNATS) {
		r, err := report.New(cfg.Reporter, stdout)
		return r, func() {}, err
	}
	nc, err := report.Dial(ctx, cfg.NATSURL, natsAttempts)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("nats connected", "url", cfg.NATSURL, "subject", cfg.NATSSubject)
	return report.NewPublisher(nc, cfg.NATSSubject), nc.Close, nil
}
