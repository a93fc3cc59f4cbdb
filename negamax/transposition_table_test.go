package negamax

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/c4solver/board"
)

func TestTTableEntry(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1009)

	_, ok := tt.lookup(0)
	is.True(!ok)

	tt.store(9409641586937, 12)
	v, ok := tt.lookup(9409641586937)
	is.True(ok)
	is.Equal(v, 12)

	tt.store(42, board.MinScore)
	v, ok = tt.lookup(42)
	is.True(ok)
	is.Equal(v, board.MinScore)

	tt.store(43, board.MaxScore)
	v, ok = tt.lookup(43)
	is.True(ok)
	is.Equal(v, board.MaxScore)

	is.Equal(tt.created, uint64(3))
	is.Equal(tt.hits, uint64(3))
	is.Equal(tt.t2collisions, uint64(0))

	// same slot, different position
	_, ok = tt.lookup(9409641586937 + 1009)
	is.True(!ok)
	is.Equal(tt.t2collisions, uint64(1))
	is.Equal(tt.lookups, uint64(5))
}

func TestTTableOverwrite(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1009)
	tt.store(5, 3)
	tt.store(5+1009, -4)
	_, ok := tt.lookup(5)
	is.True(!ok)
	v, ok := tt.lookup(5 + 1009)
	is.True(ok)
	is.Equal(v, -4)
}

func TestTTableReset(t *testing.T) {
	is := is.New(t)
	tt := NewTranspositionTable(1009)
	tt.store(0, 0)
	v, ok := tt.lookup(0)
	is.True(ok)
	is.Equal(v, 0)

	tt.Reset()
	_, ok = tt.lookup(0)
	is.True(!ok)
	is.Equal(tt.Size(), 1009)
	is.Equal(tt.created, uint64(0))
}

func TestTableSizes(t *testing.T) {
	is := is.New(t)
	is.True(isPrime(DefaultTableSize))
	is.Equal(prevPrime(100), 97)
	is.Equal(prevPrime(97), 97)

	size := SizeForMemory(1e-12)
	is.True(isPrime(size))
	is.True(size < DefaultTableSize)
	is.True(SizeForMemory(0) == DefaultTableSize)
}
