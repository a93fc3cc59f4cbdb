package negamax

import (
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/board"
)

// DefaultTableSize is a prime close to 2^23. A prime modulus spreads keys,
// which are sums of bit runs and far from uniform.
const DefaultTableSize = 8388593

// 4 bytes of truncated key + 1 byte of bound.
const entrySize = 5

// boundBias shifts every storable bound into 1..MaxScore-MinScore+1, so a
// stored 0 always means "empty".
const boundBias = 1 - board.MinScore

// TranspositionTable caches upper bounds of position scores. Keys are stored
// truncated to 32 bits; the slot index supplies the rest. Writes always
// overwrite.
type TranspositionTable struct {
	keys []uint32
	vals []uint8

	created uint64
	lookups uint64
	hits    uint64
	// "type 2" collisions: the slot holds a different position.
	t2collisions uint64
}

// NewTranspositionTable allocates a table with size slots.
func NewTranspositionTable(size int) *TranspositionTable {
	if size <= 0 {
		size = DefaultTableSize
	}
	log.Debug().Int("num-elems", size).
		Int("estimated-total-memory-bytes", size*entrySize).
		Msg("transposition-table-size")
	return &TranspositionTable{
		keys: make([]uint32, size),
		vals: make([]uint8, size),
	}
}

func (t *TranspositionTable) index(key uint64) uint64 {
	return key % uint64(len(t.keys))
}

func (t *TranspositionTable) lookup(key uint64) (int, bool) {
	t.lookups++
	idx := t.index(key)
	v := t.vals[idx]
	if v == 0 {
		return 0, false
	}
	if t.keys[idx] != uint32(key) {
		t.t2collisions++
		return 0, false
	}
	t.hits++
	return int(v) - boundBias, true
}

func (t *TranspositionTable) store(key uint64, bound int) {
	idx := t.index(key)
	t.keys[idx] = uint32(key)
	t.vals[idx] = uint8(bound + boundBias)
	t.created++
}

// Reset forgets every entry without reallocating.
func (t *TranspositionTable) Reset() {
	clear(t.vals)
	clear(t.keys)
	t.created = 0
	t.lookups = 0
	t.hits = 0
	t.t2collisions = 0
}

// Size returns the number of slots.
func (t *TranspositionTable) Size() int {
	return len(t.keys)
}

// SizeForMemory returns the largest prime table size, no bigger than
// DefaultTableSize, whose storage fits in the given fraction of system
// memory.
func SizeForMemory(fractionOfMemory float64) int {
	totalMem := memory.TotalMemory()
	size := DefaultTableSize
	if totalMem > 0 && fractionOfMemory > 0 {
		desired := int(fractionOfMemory * float64(totalMem) / entrySize)
		if desired < size {
			size = prevPrime(desired)
		}
	}
	log.Debug().Int("num-elems", size).
		Float64("fraction-of-memory", fractionOfMemory).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-size-for-memory")
	return size
}

func prevPrime(n int) int {
	if n < 2 {
		return 2
	}
	for ; n > 2; n-- {
		if isPrime(n) {
			return n
		}
	}
	return 2
}

func isPrime(n int) bool {
	if n < 2 {
		return false
	}
	if n%2 == 0 {
		return n == 2
	}
	for d := 3; d*d <= n; d += 2 {
		if n%d == 0 {
			return false
		}
	}
	return true
}
