package otelinit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	ctx := context.Background()

	shutdownTrace := InitTracer(ctx, "test-service")
	shutdownMetrics := InitMetrics(ctx, "test-service")
	require.NotNil(t, shutdownTrace)
	require.NotNil(t, shutdownMetrics)
	assert.NoError(t, shutdownTrace(ctx))
	assert.NoError(t, shutdownMetrics(ctx))
}

func TestWithSpanEnds(t *testing.T) {
	ctx, end := WithSpan(context.Background(), "test")
	require.NotNil(t, ctx)
	end()
	Flush(context.Background(), func(context.Context) error { return nil })
}
