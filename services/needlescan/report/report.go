package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/swarmguard/needlescan/services/needlescan/record"
)

// Reporter receives the ordered result log of a run.
type Reporter interface {
	PrintLine(ctx context.Context, records []record.Match) error
}

// Console writes the human-readable form to a writer. Writes are serialized.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole writes to w, or stdout when w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

// Default returns the built-in reporter.
func Default() Reporter { return NewConsole(nil) }

func (c *Console) write(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, s)
	return err
}

func (c *Console) PrintByte(b byte) error { return c.write(FormatByte(b)) }

func (c *Console) PrintByteLine(b byte) error { return c.write(FormatByte(b) + "\n") }

func (c *Console) PrintTime(t time.Time) error { return c.write(FormatTime(t)) }

func (c *Console) PrintTimeLine(t time.Time) error { return c.write(FormatTime(t) + "\n") }

func (c *Console) PrintSequence(s record.Sequence) error { return c.write(FormatSequence(s)) }

func (c *Console) PrintSequenceLine(s record.Sequence) error {
	return c.write(FormatSequence(s) + "\n")
}

func (c *Console) PrintRecord(m record.Match) error { return c.write(FormatRecord(m)) }

func (c *Console) PrintRecordLine(m record.Match) error { return c.write(FormatRecord(m) + "\n") }

func (c *Console) PrintRecords(ms []record.Match) error { return c.write(FormatRecords(ms)) }

// PrintLine writes the records followed by a line terminator.
func (c *Console) PrintLine(_ context.Context, ms []record.Match) error {
	return c.write(FormatRecords(ms) + "\n")
}

// Names lists the reporters New can build without external connections.
var Names = []string{"console", "json"}

// New resolves a local reporter by name writing to w; "" selects the console.
func New(name string, w io.Writer) (Reporter, error) {
	switch strings.ToLower(name) {
	case "", "console":
		return NewConsole(w), nil
	case "json":
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown reporter %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}
