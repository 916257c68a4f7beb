package natsctx

import (
	"context"
	"testing"

	nats "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type capture struct{ msgs []*nats.Msg }

func (c *capture) PublishMsg(m *nats.Msg) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func TestPublishPropagatesTraceContext(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	c := &capture{}
	require.NoError(t, Publish(ctx, c, "needlescan.matches", []byte("payload")))
	require.Len(t, c.msgs, 1)
	msg := c.msgs[0]
	assert.Equal(t, "needlescan.matches", msg.Subject)
	assert.Equal(t, []byte("payload"), msg.Data)
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", propagation.HeaderCarrier(msg.Header).Get("traceparent"))
}

func TestPublishWithoutSpanSendsNoTraceparent(t *testing.T) {
	c := &capture{}
	require.NoError(t, Publish(context.Background(), c, "needlescan.matches", nil))
	require.Len(t, c.msgs, 1)
	assert.Empty(t, propagation.HeaderCarrier(c.msgs[0].Header).Get("traceparent"))
}
