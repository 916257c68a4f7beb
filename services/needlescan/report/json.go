package report

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/swarmguard/needlescan/services/needlescan/record"
)

// Entry is the wire form of one match.
type Entry struct {
	Time   time.Time `json:"time"`
	Needle string    `json:"needle"`
	Length int       `json:"length"`
}

// Document is the JSON reporter output.
type Document struct {
	Count   int     `json:"count"`
	Matches []Entry `json:"matches"`
}

// NewEntry converts a match to its wire form.
func NewEntry(m record.Match) Entry {
	return Entry{Time: m.Time.UTC(), Needle: FormatSequence(m.Needle), Length: len(m.Needle)}
}

// JSON writes a single indented Document per report.
type JSON struct {
	w io.Writer
}

// NewJSON writes to w, or stdout when w is nil.
func NewJSON(w io.Writer) *JSON {
	if w == nil {
		w = os.Stdout
	}
	return &JSON{w: w}
}

func (j *JSON) PrintLine(_ context.Context, ms []record.Match) error {
	doc := Document{Count: len(ms), Matches: make([]Entry, 0, len(ms))}
	for _, m := range ms {
		doc.Matches = append(doc.Matches, NewEntry(m))
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
