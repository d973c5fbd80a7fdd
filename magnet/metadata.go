package magnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"gobit/bencode"
	"gobit/metainfo"
	"gobit/peerwire"
)

// utMetadataID is the local extended-message ID we assign to ut_metadata
// in our own extension handshake "m" dictionary. Peers echo back their
// own assignment, which we must use when addressing them.
const utMetadataID = 1

const handshakeTimeout = 10 * time.Second

// ErrInfoHashMismatch is returned when the info dictionary recovered over
// ut_metadata does not hash to the magnet's declared info hash.
var ErrInfoHashMismatch = errors.New("magnet: recovered info does not match magnet hash")

// ErrNoMetadataSupport is returned when a peer's extension handshake does
// not advertise ut_metadata.
var ErrNoMetadataSupport = errors.New("magnet: peer does not support ut_metadata")

// ExtensionHandshake performs the BEP 10 extension handshake over conn and
// returns the peer's assigned ut_metadata ID and the total metadata size it
// advertises (metadata_size, or total_size when only that is present).
// conn must already be past the base peer-wire handshake.
func ExtensionHandshake(conn net.Conn) (peerMetadataID uint8, metadataSize int, err error) {
	payload := bencode.Encode(bencode.NewDict(map[string]bencode.Value{
		"m": bencode.NewDict(map[string]bencode.Value{
			"ut_metadata": bencode.NewInt(utMetadataID),
			"ut_pex":      bencode.NewInt(2),
		}),
	}))
	msg := &peerwire.Message{ID: peerwire.Extended, Payload: append([]byte{0}, payload...)}
	if _, err := conn.Write(msg.Serialize()); err != nil {
		return 0, 0, fmt.Errorf("magnet: send extension handshake: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return 0, 0, fmt.Errorf("magnet: set deadline: %w", err)
	}
	for {
		reply, err := peerwire.ReadMessage(conn)
		if err != nil {
			return 0, 0, fmt.Errorf("magnet: await extension handshake: %w", err)
		}
		if reply == nil || reply.ID != peerwire.Extended || len(reply.Payload) == 0 || reply.Payload[0] != 0 {
			continue
		}
		v, _, err := bencode.Decode(reply.Payload[1:])
		if err != nil {
			return 0, 0, fmt.Errorf("magnet: decode extension handshake: %w", err)
		}
		m, ok := v.Dict["m"]
		if !ok || m.Kind != bencode.KindDict {
			return 0, 0, fmt.Errorf("%w: handshake has no m dict", ErrNoMetadataSupport)
		}
		ut, ok := m.Dict["ut_metadata"]
		if !ok || ut.Kind != bencode.KindInt {
			return 0, 0, fmt.Errorf("%w", ErrNoMetadataSupport)
		}
		size := 0
		if ms, ok := v.Dict["metadata_size"]; ok && ms.Kind == bencode.KindInt {
			size = int(ms.Int)
		} else if ts, ok := v.Dict["total_size"]; ok && ts.Kind == bencode.KindInt {
			size = int(ts.Int)
		}
		return uint8(ut.Int), size, nil
	}
}

// metadataPieceSize is the maximum size of one ut_metadata piece per BEP 9.
const metadataPieceSize = 16 * 1024

// FetchInfo runs the full BEP 9 ut_metadata flow over conn - extension
// handshake, then piece-by-piece metadata request - and builds the
// recovered Info, rejecting it if it does not hash to m.Hash.
func FetchInfo(ctx context.Context, conn net.Conn, m *Magnet) (*metainfo.Info, error) {
	peerMetadataID, size, err := ExtensionHandshake(conn)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: peer advertised no metadata_size", ErrNoMetadataSupport)
	}

	raw := make([]byte, 0, size)
	numPieces := (size + metadataPieceSize - 1) / metadataPieceSize
	for piece := 0; piece < numPieces; piece++ {
		chunk, err := requestMetadataPiece(conn, peerMetadataID, piece)
		if err != nil {
			return nil, err
		}
		raw = append(raw, chunk...)
	}

	v, _, err := bencode.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("magnet: decode recovered info: %w", err)
	}
	info, err := metainfo.FromValue(v)
	if err != nil {
		return nil, err
	}
	if got := info.Hash(); got != m.Hash {
		return nil, fmt.Errorf("%w: got %x, want %x", ErrInfoHashMismatch, got, m.Hash)
	}
	return info, nil
}

func requestMetadataPiece(conn net.Conn, peerMetadataID uint8, piece int) ([]byte, error) {
	req := bencode.Encode(bencode.NewDict(map[string]bencode.Value{
		"msg_type": bencode.NewInt(0),
		"piece":    bencode.NewInt(int64(piece)),
	}))
	msg := &peerwire.Message{ID: peerwire.Extended, Payload: append([]byte{peerMetadataID}, req...)}
	if _, err := conn.Write(msg.Serialize()); err != nil {
		return nil, fmt.Errorf("magnet: request metadata piece %d: %w", piece, err)
	}

	if err := conn.SetDeadline(time.Now().Add(handshakeTimeout)); err != nil {
		return nil, fmt.Errorf("magnet: set deadline: %w", err)
	}
	for {
		reply, err := peerwire.ReadMessage(conn)
		if err != nil {
			return nil, fmt.Errorf("magnet: await metadata piece %d: %w", piece, err)
		}
		if reply == nil || reply.ID != peerwire.Extended || len(reply.Payload) == 0 {
			continue
		}
		// The peer addresses messages to us using the ID we assigned to
		// ut_metadata in our own handshake (utMetadataID), not its own
		// assignment. Anything else - a stray ut_pex message, say - is not
		// the metadata response and must not be parsed as one.
		if reply.Payload[0] != utMetadataID {
			continue
		}
		header, rest, err := bencode.Decode(reply.Payload[1:])
		if err != nil {
			continue
		}
		msgType, ok := header.Dict["msg_type"]
		if !ok || msgType.Kind != bencode.KindInt {
			continue
		}
		switch msgType.Int {
		case 1: // data
			return rest, nil
		case 2: // reject
			return nil, fmt.Errorf("magnet: peer rejected metadata piece %d", piece)
		default:
			continue
		}
	}
}
