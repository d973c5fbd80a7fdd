package peerwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitfieldSetAndHas(t *testing.T) {
	bf := make(Bitfield, 2)
	assert.False(t, bf.Has(0))
	bf.Set(0)
	bf.Set(9)
	assert.True(t, bf.Has(0))
	assert.True(t, bf.Has(9))
	assert.False(t, bf.Has(1))
}

func TestBitfieldOutOfRangeIsSafe(t *testing.T) {
	bf := make(Bitfield, 1)
	assert.False(t, bf.Has(100))
	bf.Set(100) // must not panic
}
