package scanner

import (
	"fmt"
	"strings"

	"github.com/swarmguard/needlescan/services/needlescan/record"
)

// Searcher finds the leftmost occurrence of needle as a contiguous run inside source.
// An empty source or needle is never found.
type Searcher interface {
	Search(source, needle record.Sequence) (int, bool)
}

// Pattern is a needle preprocessed once and matched against many sources.
type Pattern interface {
	Index(source record.Sequence) (int, bool)
}

// Compiler is implemented by searchers that can preprocess a needle for repeated scans.
type Compiler interface {
	Compile(needle record.Sequence) Pattern
}

// Compile returns s's compiled form of needle, or a Pattern that delegates every scan to s.
func Compile(s Searcher, needle record.Sequence) Pattern {
	if c, ok := s.(Compiler); ok {
		return c.Compile(needle)
	}
	return searchPattern{s: s, needle: needle}
}

type searchPattern struct {
	s      Searcher
	needle record.Sequence
}

func (p searchPattern) Index(source record.Sequence) (int, bool) { return p.s.Search(source, p.needle) }

// Names lists the searchers New accepts.
var Names = []string{"horspool", "automaton"}

// New resolves a searcher by name; "" selects the default.
func New(name string) (Searcher, error) {
	switch strings.ToLower(name) {
	case "", "horspool":
		return Horspool{}, nil
	case "automaton":
		return Automaton{}, nil
	default:
		return nil, fmt.Errorf("unknown searcher %q (want one of %s)", name, strings.Join(Names, ", "))
	}
}

// Default returns the built-in searcher.
func Default() Searcher { return Horspool{} }
