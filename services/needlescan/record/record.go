// Package record holds the values exchanged between the needlescan strategies and the orchestrator.
package record

import "time"

// Sequence is an ordered run of bytes. Producers never mutate a Sequence after handing it out.
type Sequence []byte

// Match is a needle that was found in at least one haystack, stamped with the wall-clock time of
// the hit.
type Match struct {
	Time   time.Time
	Needle Sequence
}

// Clone returns an independent copy of s.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}
