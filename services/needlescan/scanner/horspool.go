package scanner

import "github.com/swarmguard/needlescan/services/needlescan/record"

// Horspool is a Boyer-Moore-Horspool searcher. Worst case O(len(source)*len(needle)),
// sub-linear on random data because mismatches skip up to len(needle) bytes.
type Horspool struct{}

func (h Horspool) Search(source, needle record.Sequence) (int, bool) {
	return h.Compile(needle).Index(source)
}

func (Horspool) Compile(needle record.Sequence) Pattern {
	p := &horspoolPattern{needle: needle}
	m := len(needle)
	for i := range p.shift {
		p.shift[i] = m
	}
	for i := 0; i < m-1; i++ {
		p.shift[needle[i]] = m - 1 - i
	}
	return p
}

type horspoolPattern struct {
	needle record.Sequence
	shift  [256]int // bad-character table keyed by the byte under the needle's last position
}

func (p *horspoolPattern) Index(source record.Sequence) (int, bool) {
	m, n := len(p.needle), len(source)
	if m == 0 || n == 0 || m > n {
		return 0, false
	}
	last := m - 1
	for i := 0; i <= n-m; i += p.shift[source[i+last]] {
		j := last
		for j >= 0 && source[i+j] == p.needle[j] {
			j--
		}
		if j < 0 {
			return i, true
		}
	}
	return 0, false
}
