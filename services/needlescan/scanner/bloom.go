package scanner

import (
	"math"

	"github.com/spaolacci/murmur3"
)

// BloomFilter provides fast negative lookups (if absent => guaranteed never added).
// Not safe for concurrent use; callers serialize access.
type BloomFilter struct {
	bits []uint64
	k    int // number of hash functions
	m    int // bit array size
}

// NewBloomFilter creates filter with desired false positive rate (e.g., 0.01 = 1%)
func NewBloomFilter(expectedElements int, fpRate float64) *BloomFilter {
	if expectedElements < 1 {
		expectedElements = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	m := optimalM(expectedElements, fpRate)
	k := optimalK(m, expectedElements)
	bits := make([]uint64, (m+63)/64)
	return &BloomFilter{bits: bits, k: k, m: m}
}

func optimalM(n int, p float64) int {
	return int(math.Ceil(-float64(n) * math.Log(p) / (math.Log(2) * math.Log(2))))
}

func optimalK(m, n int) int {
	k := int(math.Ceil(float64(m) / float64(n) * math.Log(2)))
	if k < 1 {
		k = 1
	}
	if k > 10 {
		k = 10
	}
	return k
}

// Add inserts data into the filter.
func (bf *BloomFilter) Add(data []byte) {
	for i := 0; i < bf.k; i++ {
		idx := bf.index(data, i)
		bf.bits[idx/64] |= 1 << (idx % 64)
	}
}

// MayContain checks if data possibly exists (false positive possible, no false negative)
func (bf *BloomFilter) MayContain(data []byte) bool {
	for i := 0; i < bf.k; i++ {
		idx := bf.index(data, i)
		if bf.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

// AddIfAbsent adds data and reports whether it was definitely new.
func (bf *BloomFilter) AddIfAbsent(data []byte) bool {
	if bf.MayContain(data) {
		return false
	}
	bf.Add(data)
	return true
}

// Reset clears every bit.
func (bf *BloomFilter) Reset() {
	clear(bf.bits)
}

// index derives the seed-th bit position from a seeded murmur3 hash.
func (bf *BloomFilter) index(data []byte, seed int) uint64 {
	return murmur3.Sum64WithSeed(data, uint32(seed)) % uint64(bf.m)
}

// Stats returns bloom filter statistics
func (bf *BloomFilter) Stats() map[string]interface{} {
	setBits := 0
	for _, word := range bf.bits {
		setBits += popcount(word)
	}
	return map[string]interface{}{
		"size_bits":  bf.m,
		"hash_funcs": bf.k,
		"set_bits":   setBits,
		"fill_ratio": float64(setBits) / float64(bf.m),
	}
}

func popcount(x uint64) int {
	count := 0
	for x != 0 {
		x &= x - 1
		count++
	}
	return count
}
