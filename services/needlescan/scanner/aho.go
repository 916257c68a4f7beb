package scanner

import "github.com/swarmguard/needlescan/services/needlescan/record"

// Automaton matches through a failure-link automaton built over the needle: the Aho-Corasick
// construction restricted to a single pattern. Linear in len(source) in the worst case.
type Automaton struct{}

func (a Automaton) Search(source, needle record.Sequence) (int, bool) {
	return a.Compile(needle).Index(source)
}

func (Automaton) Compile(needle record.Sequence) Pattern {
	return buildAutomaton(needle)
}

// automaton state k means the first k needle bytes are matched; fail[k] is the state to fall
// back to when the byte after state k mismatches.
type automaton struct {
	needle record.Sequence
	fail   []int
}

func buildAutomaton(needle record.Sequence) *automaton {
	a := &automaton{needle: needle, fail: make([]int, len(needle)+1)}
	// failure links in increasing depth, same order as the BFS over a single-branch trie
	k := 0
	for i := 1; i < len(needle); i++ {
		for k > 0 && needle[i] != needle[k] {
			k = a.fail[k]
		}
		if needle[i] == needle[k] {
			k++
		}
		a.fail[i+1] = k
	}
	return a
}

func (a *automaton) Index(source record.Sequence) (int, bool) {
	m := len(a.needle)
	if m == 0 || len(source) == 0 {
		return 0, false
	}
	state := 0
	for i, b := range source {
		for state > 0 && a.needle[state] != b {
			state = a.fail[state]
		}
		if a.needle[state] == b {
			state++
		}
		if state == m {
			return i - m + 1, true
		}
	}
	return 0, false
}
