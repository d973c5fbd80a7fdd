package peerwire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopback implements io.ReadWriter by feeding a canned response back to
// the reader regardless of what was written.
type loopback struct {
	written bytes.Buffer
	toRead  *bytes.Buffer
}

func (l *loopback) Write(p []byte) (int, error) { return l.written.Write(p) }
func (l *loopback) Read(p []byte) (int, error)  { return l.toRead.Read(p) }

func TestHandshakeSerializeSetsExtensionBit(t *testing.T) {
	h := Handshake{InfoHash: [20]byte{1}, PeerID: [20]byte{2}}
	raw := h.Serialize()
	require.Len(t, raw, HandshakeLen)
	assert.Equal(t, byte(19), raw[0])
	assert.Equal(t, "BitTorrent protocol", string(raw[1:20]))
	reserved := raw[20:28]
	assert.Equal(t, byte(0x10), reserved[5])
}

func TestDoRejectsMismatchedInfoHash(t *testing.T) {
	peerResponse := Handshake{InfoHash: [20]byte{9, 9, 9}, PeerID: [20]byte{3}}.Serialize()
	conn := &loopback{toRead: bytes.NewBuffer(peerResponse)}

	_, err := Do(conn, [20]byte{1}, [20]byte{2})
	assert.ErrorIs(t, err, ErrHandshakeMismatch)
}

func TestDoAcceptsMatchingInfoHash(t *testing.T) {
	infoHash := [20]byte{5, 5, 5}
	peerResponse := Handshake{InfoHash: infoHash, PeerID: [20]byte{3}, SupportsExtension: true}.Serialize()
	conn := &loopback{toRead: bytes.NewBuffer(peerResponse)}

	in, err := Do(conn, infoHash, [20]byte{2})
	require.NoError(t, err)
	assert.Equal(t, [20]byte{3}, in.PeerID)
	assert.True(t, in.SupportsExtension)
}
