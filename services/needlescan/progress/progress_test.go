package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/swarmguard/needlescan/services/needlescan/orchestrator"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixedSource struct {
	mu    sync.Mutex
	stats orchestrator.Stats
}

func (f *fixedSource) Stats() orchestrator.Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

func (f *fixedSource) set(s orchestrator.Stats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = s
}

func jsonLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&fixedSource{}, "not a schedule", nil, noop.NewMeterProvider().Meter("test"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add progress schedule")
}

func TestTickLogsRunningStats(t *testing.T) {
	var out syncBuffer
	src := &fixedSource{}
	src.set(orchestrator.Stats{
		RunID:      "run-1",
		State:      orchestrator.StateRunning,
		Workers:    4,
		Iterations: 10,
		Searches:   900,
		Matches:    3,
		StartedAt:  time.Now().Add(-time.Second),
	})
	tk, err := New(src, "@every 1h", jsonLogger(&out), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	tk.tick()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out.String())), &entry))
	assert.Equal(t, "run progress", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.EqualValues(t, 4, entry["workers"])
	assert.EqualValues(t, 3, entry["matches"])
	assert.EqualValues(t, 0, entry["iterations_per_sec"])
}

func TestTickComputesRateWithinRun(t *testing.T) {
	var out syncBuffer
	src := &fixedSource{}
	src.set(orchestrator.Stats{RunID: "r", State: orchestrator.StateRunning, Iterations: 0})
	tk, err := New(src, "@every 1h", jsonLogger(&out), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	tk.tick()
	time.Sleep(20 * time.Millisecond)
	src.set(orchestrator.Stats{RunID: "r", State: orchestrator.StateRunning, Iterations: 100})
	tk.tick()

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	rate, ok := entry["iterations_per_sec"].(float64)
	require.True(t, ok)
	assert.Greater(t, rate, 0.0)
}

func TestTickSkipsIdle(t *testing.T) {
	var out syncBuffer
	tk, err := New(&fixedSource{}, "@every 1h", jsonLogger(&out), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	tk.tick()
	assert.Empty(t, out.String())
}

func TestStartStopFires(t *testing.T) {
	var out syncBuffer
	src := &fixedSource{}
	src.set(orchestrator.Stats{RunID: "r", State: orchestrator.StateRunning})
	tk, err := New(src, "* * * * * *", jsonLogger(&out), noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	tk.Start()
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "run progress")
	}, 3*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tk.Stop(ctx))
}
