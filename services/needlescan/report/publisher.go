package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/swarmguard/needlescan/libs/core/natsctx"
	"github.com/swarmguard/needlescan/libs/core/resilience"
	"github.com/swarmguard/needlescan/services/needlescan/record"
)

// flushTimeout bounds the final flush when the caller gave no deadline.
const flushTimeout = 5 * time.Second

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	natsctx.MsgPublisher
	FlushWithContext(ctx context.Context) error
}

// Publisher sends every match as its own JSON message on a NATS subject.
type Publisher struct {
	conn    Conn
	subject string
}

// NewPublisher publishes on subject through conn.
func NewPublisher(conn Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// Dial connects to url, retrying with backoff.
func Dial(ctx context.Context, url string, attempts int) (*nats.Conn, error) {
	nc, err := resilience.Retry(ctx, attempts, 200*time.Millisecond, func() (*nats.Conn, error) {
		return nats.Connect(url, nats.Name("needlescan"))
	})
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

func (p *Publisher) PrintLine(ctx context.Context, ms []record.Match) error {
	for i, m := range ms {
		data, err := json.Marshal(NewEntry(m))
		if err != nil {
			return fmt.Errorf("marshal match %d: %w", i, err)
		}
		if err := natsctx.Publish(ctx, p.conn, p.subject, data); err != nil {
			return fmt.Errorf("publish match %d: %w", i, err)
		}
	}
	flushCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(ctx, flushTimeout)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	slog.Info("matches published", "subject", p.subject, "count", len(ms))
	return nil
}
