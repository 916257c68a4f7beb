package scanner

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmguard/needlescan/services/needlescan/record"
)

func searchers() map[string]Searcher {
	return map[string]Searcher{
		"horspool":     Horspool{},
		"automaton":    Automaton{},
		"instrumented": NewInstrumented(nil),
		"fallback":     onlySearch{Horspool{}},
	}
}

// onlySearch hides the Compiler fast path so Compile falls back to Search.
type onlySearch struct{ s Searcher }

func (o onlySearch) Search(source, needle record.Sequence) (int, bool) {
	return o.s.Search(source, needle)
}

func TestSearchCases(t *testing.T) {
	cases := []struct {
		name   string
		source record.Sequence
		needle record.Sequence
		pos    int
		found  bool
	}{
		{"empty needle", record.Sequence{1, 2, 3}, nil, 0, false},
		{"empty source", nil, record.Sequence{1}, 0, false},
		{"both empty", record.Sequence{}, record.Sequence{}, 0, false},
		{"needle longer", record.Sequence{1, 2}, record.Sequence{1, 2, 3}, 0, false},
		{"prefix", record.Sequence{1, 2, 3}, record.Sequence{1, 2}, 0, true},
		{"middle", record.Sequence{0x00, 0x01, 0x02, 0x03}, record.Sequence{0x01, 0x02}, 1, true},
		{"suffix", record.Sequence{9, 8, 7}, record.Sequence{8, 7}, 1, true},
		{"whole", record.Sequence{4, 5}, record.Sequence{4, 5}, 0, true},
		{"leftmost of many", record.Sequence{7, 1, 7, 1, 7}, record.Sequence{7, 1}, 0, true},
		{"overlapping", record.Sequence{1, 1, 1, 2}, record.Sequence{1, 1, 2}, 1, true},
		{"absent", record.Sequence{1, 2, 3}, record.Sequence{3, 2}, 0, false},
		{"high bytes", record.Sequence{0xFE, 0xFF, 0x00}, record.Sequence{0xFF, 0x00}, 1, true},
	}
	for sname, s := range searchers() {
		for _, tc := range cases {
			t.Run(sname+"/"+tc.name, func(t *testing.T) {
				pos, ok := s.Search(tc.source, tc.needle)
				assert.Equal(t, tc.found, ok)
				assert.Equal(t, tc.pos, pos)

				pos, ok = Compile(s, tc.needle).Index(tc.source)
				assert.Equal(t, tc.found, ok)
				assert.Equal(t, tc.pos, pos)
			})
		}
	}
}

// Random slices cut out of a source must be found at their offset or at an earlier recurrence,
// which is exactly what bytes.Index reports.
func TestSearchMatchesBytesIndex(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for sname, s := range searchers() {
		for i := 0; i < 500; i++ {
			source := make(record.Sequence, 1+rng.IntN(200))
			for j := range source {
				source[j] = byte(rng.IntN(4)) // small alphabet forces recurrences
			}
			start := rng.IntN(len(source))
			end := start + 1 + rng.IntN(len(source)-start)
			needle := source[start:end]

			pos, ok := s.Search(source, needle)
			require.True(t, ok, "%s: slice [%d:%d] not found", sname, start, end)
			require.LessOrEqual(t, pos, start)
			require.Equal(t, bytes.Index(source, needle), pos, sname)
		}
	}
}

func TestNew(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.IsType(t, Horspool{}, s)

	s, err = New("Automaton")
	require.NoError(t, err)
	assert.IsType(t, Automaton{}, s)

	_, err = New("yara")
	assert.ErrorContains(t, err, "unknown searcher")
}

func TestInstrumentedCounts(t *testing.T) {
	s := NewInstrumented(Automaton{})
	assert.IsType(t, Automaton{}, s.Unwrap())

	_, ok := s.Search(record.Sequence{1, 2, 3}, record.Sequence{2})
	require.True(t, ok)
	p := s.Compile(record.Sequence{9})
	_, ok = p.Index(record.Sequence{1, 2, 3, 4})
	require.False(t, ok)

	snap := s.Snapshot()
	assert.EqualValues(t, 2, snap.Searches)
	assert.EqualValues(t, 1, snap.Hits)
	assert.EqualValues(t, 7, snap.ScannedBytes)
	assert.EqualValues(t, 1, snap.Compiles)
}

func TestBloomFilter(t *testing.T) {
	bf := NewBloomFilter(1000, 0.01)
	needles := []record.Sequence{{0x01, 0x02}, {0xFF}, {0x00, 0x00, 0x00}}
	for _, n := range needles {
		assert.True(t, bf.AddIfAbsent(n))
	}
	for _, n := range needles {
		assert.True(t, bf.MayContain(n))
		assert.False(t, bf.AddIfAbsent(n))
	}
	stats := bf.Stats()
	assert.Positive(t, stats["size_bits"].(int))
	assert.Positive(t, stats["set_bits"].(int))

	bf.Reset()
	assert.Zero(t, bf.Stats()["set_bits"].(int))
	assert.False(t, bf.MayContain(needles[0]))
}

func TestBloomFilterClampsInputs(t *testing.T) {
	bf := NewBloomFilter(0, 0)
	bf.Add([]byte("x"))
	assert.True(t, bf.MayContain([]byte("x")))
}

func BenchmarkSearchers(b *testing.B) {
	rng := rand.New(rand.NewPCG(3, 4))
	haystacks := make([]record.Sequence, 100)
	for i := range haystacks {
		haystacks[i] = make(record.Sequence, 1+rng.IntN(100))
		for j := range haystacks[i] {
			haystacks[i][j] = byte(rng.UintN(256))
		}
	}
	needle := record.Sequence{0x01, 0x02, 0x03}
	for name, s := range map[string]Searcher{"horspool": Horspool{}, "automaton": Automaton{}} {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				p := Compile(s, needle)
				for _, h := range haystacks {
					p.Index(h)
				}
			}
		})
	}
}
