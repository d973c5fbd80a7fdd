package bencode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAllString(t *testing.T) {
	v, err := DecodeAll([]byte("5:hello"))
	require.NoError(t, err)
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, "hello", string(v.Str))
}

func TestDecodeAllInt(t *testing.T) {
	v, err := DecodeAll([]byte("i42e"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int)

	v, err = DecodeAll([]byte("i-7e"))
	require.NoError(t, err)
	assert.Equal(t, int64(-7), v.Int)

	_, err = DecodeAll([]byte("i-0e"))
	assert.Error(t, err)
}

func TestDecodeAllRejectsLeadingZeroInt(t *testing.T) {
	_, err := DecodeAll([]byte("i007e"))
	assert.ErrorIs(t, err, ErrInvalidSyntax)

	_, err = DecodeAll([]byte("i-007e"))
	assert.ErrorIs(t, err, ErrInvalidSyntax)

	v, err := DecodeAll([]byte("i0e"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.Int)
}

func TestDecodeAllList(t *testing.T) {
	v, err := DecodeAll([]byte("l5:helloi52ee"))
	require.NoError(t, err)
	require.Equal(t, KindList, v.Kind)
	require.Len(t, v.List, 2)
	assert.Equal(t, "hello", string(v.List[0].Str))
	assert.Equal(t, int64(52), v.List[1].Int)
}

func TestDecodeAllDict(t *testing.T) {
	v, err := DecodeAll([]byte("d3:foo3:bar5:helloi52ee"))
	require.NoError(t, err)
	require.Equal(t, KindDict, v.Kind)
	assert.Equal(t, "bar", string(v.Dict["foo"].Str))
	assert.Equal(t, int64(52), v.Dict["hello"].Int)
}

func TestDecodeAllRejectsTrailingData(t *testing.T) {
	_, err := DecodeAll([]byte("i1e garbage"))
	assert.ErrorIs(t, err, ErrTrailingData)
}

func TestDecodeAllRejectsUnsortedDictKeys(t *testing.T) {
	_, err := DecodeAll([]byte("d3:foo3:bar3:baz3:quxe"))
	assert.ErrorIs(t, err, ErrInvalidSyntax)
}

func TestEncodeRoundTrip(t *testing.T) {
	orig := NewDict(map[string]Value{
		"a": NewInt(1),
		"b": NewList([]Value{NewString([]byte("x")), NewInt(-3)}),
	})
	encoded := Encode(orig)
	decoded, err := DecodeAll(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(1), decoded.Dict["a"].Int)
	assert.Equal(t, "x", string(decoded.Dict["b"].List[0].Str))
	assert.Equal(t, int64(-3), decoded.Dict["b"].List[1].Int)
}

func TestDecodeReturnsRemainder(t *testing.T) {
	v, rest, err := Decode([]byte("i1e" + "tail"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Int)
	assert.Equal(t, "tail", string(rest))
}
