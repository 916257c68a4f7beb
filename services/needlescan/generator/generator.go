// Package generator produces the random bytes and lengths used for haystacks and needles.
package generator

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/swarmguard/needlescan/services/needlescan/record"
)

// ErrInvalidRange is returned when a bounded draw is requested with min > max.
var ErrInvalidRange = errors.New("invalid range")

// RangeError reports the offending bounds of a draw.
type RangeError struct {
	Min, Max int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: min %d > max %d", ErrInvalidRange, e.Min, e.Max)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }

// Generator draws uniformly distributed random values. Implementations must be safe for
// concurrent use; no seed or determinism across calls is promised.
type Generator interface {
	// RandomByte is uniform over [0,255].
	RandomByte() byte
	// RandomByteMax is uniform over [0,max].
	RandomByteMax(max byte) byte
	// RandomByteRange is uniform over [min,max].
	RandomByteRange(min, max byte) (byte, error)
	// RandomBytes returns exactly count independent bytes; empty when count <= 0.
	RandomBytes(count int) record.Sequence
	// RandomInt is uniform over [0,max].
	RandomInt(max int) (int, error)
	// RandomIntRange is uniform over [min,max].
	RandomIntRange(min, max int) (int, error)
}

// Random is the default Generator backed by the auto-seeded math/rand/v2 source.
type Random struct{}

// New returns the default generator.
func New() *Random { return &Random{} }

func (Random) RandomByte() byte { return byte(rand.UintN(256)) }

func (Random) RandomByteMax(max byte) byte { return byte(rand.UintN(uint(max) + 1)) }

func (r Random) RandomByteRange(min, max byte) (byte, error) {
	v, err := r.RandomIntRange(int(min), int(max))
	if err != nil {
		return 0, err
	}
	return byte(v), nil
}

func (r Random) RandomBytes(count int) record.Sequence {
	if count <= 0 {
		return record.Sequence{}
	}
	out := make(record.Sequence, count)
	for i := range out {
		out[i] = r.RandomByte()
	}
	return out
}

func (r Random) RandomInt(max int) (int, error) { return r.RandomIntRange(0, max) }

func (Random) RandomIntRange(min, max int) (int, error) {
	if min > max {
		return 0, &RangeError{Min: min, Max: max}
	}
	// span computed in uint64 so [MinInt, MaxInt] does not overflow
	span := uint64(max) - uint64(min)
	if span == ^uint64(0) {
		return int(rand.Uint64()), nil
	}
	return min + int(rand.Uint64N(span+1)), nil
}

// RandomLength draws a length in [min,max] and then that many bytes.
func RandomLength(g Generator, min, max int) (record.Sequence, error) {
	n, err := g.RandomIntRange(min, max)
	if err != nil {
		return nil, fmt.Errorf("draw length: %w", err)
	}
	return g.RandomBytes(n), nil
}
