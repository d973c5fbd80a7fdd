package download

import (
	"crypto/sha1"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobit/peerwire"
)

// fakePeer serves a fixed bitfield, unchoke, and piece data over one end
// of a net.Pipe, standing in for a real peer connection in these tests.
func fakePeer(t *testing.T, bitfield []byte, pieceData []byte) net.Conn {
	client, server := net.Pipe()
	go func() {
		bf := &peerwire.Message{ID: peerwire.BitfieldID, Payload: bitfield}
		server.Write(bf.Serialize())

		unchoke := &peerwire.Message{ID: peerwire.Unchoke}

		// Drain the Interested message before sending Unchoke.
		_, _ = peerwire.ReadMessage(server)
		server.Write(unchoke.Serialize())

		// Replies go out from their own goroutine: net.Pipe has no
		// buffering, and the client writes a whole window of requests
		// before it reads any reply.
		replies := make(chan []byte, 16)
		go func() {
			for r := range replies {
				server.Write(r)
			}
		}()
		defer close(replies)

		for {
			msg, err := peerwire.ReadMessage(server)
			if err != nil || msg == nil {
				return
			}
			if msg.ID != peerwire.Request {
				continue
			}
			index := be32(msg.Payload[0:4])
			begin := be32(msg.Payload[4:8])
			length := be32(msg.Payload[8:12])
			_ = index
			block := pieceData[begin : begin+length]
			payload := append(append([]byte{}, msg.Payload[0:8]...), block...)
			piece := &peerwire.Message{ID: peerwire.Piece, Payload: payload}
			replies <- piece.Serialize()
		}
	}()
	return client
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func TestOpenRequiresBitfieldFirst(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go func() {
		m := &peerwire.Message{ID: peerwire.Unchoke}
		server.Write(m.Serialize())
		server.Close()
	}()

	_, err := Open(client, false)
	assert.ErrorIs(t, err, ErrNoBitfield)
}

func TestAwaitUnchokeRejectsUnexpectedMessage(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go func() {
		bf := &peerwire.Message{ID: peerwire.BitfieldID, Payload: []byte{0xFF}}
		server.Write(bf.Serialize())
		_, _ = peerwire.ReadMessage(server) // drain Interested
		req := peerwire.FormatRequest(0, 0, 16384)
		server.Write(req.Serialize())
	}()

	_, err := Open(client, false)
	assert.ErrorIs(t, err, peerwire.ErrUnexpectedMessage)
}

func TestAwaitUnchokeRejectsExtendedWhenNotAllowed(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go func() {
		bf := &peerwire.Message{ID: peerwire.BitfieldID, Payload: []byte{0xFF}}
		server.Write(bf.Serialize())
		_, _ = peerwire.ReadMessage(server) // drain Interested
		ext := &peerwire.Message{ID: peerwire.Extended, Payload: []byte{0}}
		server.Write(ext.Serialize())
	}()

	_, err := Open(client, false)
	assert.ErrorIs(t, err, peerwire.ErrUnexpectedMessage)
}

func TestAwaitUnchokeToleratesExtendedOnMagnetOriginSession(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	go func() {
		bf := &peerwire.Message{ID: peerwire.BitfieldID, Payload: []byte{0xFF}}
		server.Write(bf.Serialize())
		_, _ = peerwire.ReadMessage(server) // drain Interested
		ext := &peerwire.Message{ID: peerwire.Extended, Payload: []byte{0}}
		server.Write(ext.Serialize())
		unchoke := &peerwire.Message{ID: peerwire.Unchoke}
		server.Write(unchoke.Serialize())
	}()

	s, err := Open(client, true)
	require.NoError(t, err)
	assert.False(t, s.PeerChoking)
}

func TestDownloadPieceVerifiesHash(t *testing.T) {
	pieceData := make([]byte, 26527)
	for i := range pieceData {
		pieceData[i] = byte(i % 251)
	}
	expected := sha1.Sum(pieceData)

	conn := fakePeer(t, []byte{0xFF}, pieceData)
	defer conn.Close()

	s, err := Open(conn, false)
	require.NoError(t, err)
	assert.False(t, s.PeerChoking)

	data, err := s.DownloadPiece(0, uint32(len(pieceData)), expected)
	require.NoError(t, err)
	assert.Equal(t, pieceData, data)
}

func TestDownloadPieceRejectsBadHash(t *testing.T) {
	pieceData := make([]byte, 16384)
	conn := fakePeer(t, []byte{0xFF}, pieceData)
	defer conn.Close()

	s, err := Open(conn, false)
	require.NoError(t, err)

	_, err = s.DownloadPiece(0, uint32(len(pieceData)), [20]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrPieceHashMismatch)
}

func TestPlanBlocksSplitsIntoBlockSizeChunks(t *testing.T) {
	plan := planBlocks(26527)
	require.Len(t, plan, 2)
	assert.Equal(t, uint32(0), plan[0].begin)
	assert.Equal(t, uint32(BlockSize), plan[0].length)
	assert.Equal(t, uint32(BlockSize), plan[1].begin)
	assert.Equal(t, uint32(26527-BlockSize), plan[1].length)
}

func TestDownloadPieceTimesOutOnSilentPeer(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		bf := &peerwire.Message{ID: peerwire.BitfieldID, Payload: []byte{0xFF}}
		server.Write(bf.Serialize())
		_, _ = peerwire.ReadMessage(server)
		unchoke := &peerwire.Message{ID: peerwire.Unchoke}
		server.Write(unchoke.Serialize())
		// Then go silent forever, reading nothing; the client's
		// connection deadline should fire.
	}()

	// Shortened before Open, since the deadline Open sets is the one in
	// force when DownloadPiece writes its first request.
	old := readTimeout
	readTimeout = 100 * time.Millisecond
	defer func() { readTimeout = old }()

	s, err := Open(client, false)
	require.NoError(t, err)

	_, err = s.DownloadPiece(0, 16384, [20]byte{})
	assert.Error(t, err)
}
