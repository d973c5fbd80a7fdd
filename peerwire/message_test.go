package peerwire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSerializeRoundTrip(t *testing.T) {
	m := &Message{ID: Piece, Payload: []byte{1, 2, 3}}
	raw := m.Serialize()

	got, err := ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.Payload, got.Payload)
}

func TestReadMessageKeepAlive(t *testing.T) {
	got, err := ReadMessage(bytes.NewReader([]byte{0, 0, 0, 0}))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFormatRequestAndParsePiece(t *testing.T) {
	req := FormatRequest(1, 16384, 16384)
	got, err := ReadMessage(bytes.NewReader(req.Serialize()))
	require.NoError(t, err)
	assert.Equal(t, Request, got.ID)

	piece := &Message{ID: Piece, Payload: append([]byte{0, 0, 0, 1, 0, 0, 64, 0}, []byte("block-data")...)}
	index, begin, block, err := ParsePiece(piece)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), index)
	assert.Equal(t, uint32(16384), begin)
	assert.Equal(t, "block-data", string(block))
}

func TestParsePieceRejectsWrongID(t *testing.T) {
	_, _, _, err := ParsePiece(&Message{ID: Choke})
	assert.ErrorIs(t, err, ErrUnexpectedMessage)
}

func TestFormatHaveAndParseHave(t *testing.T) {
	have := FormatHave(7)
	index, err := ParseHave(have)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), index)
}
