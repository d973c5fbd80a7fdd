// Package download drives the per-piece and whole-file download state
// machines over a peerwire connection: bitfield wait, interest, unchoke,
// and pipelined block requests, with mandatory SHA-1 verification of every
// completed piece.
package download

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"net"
	"time"

	"gobit/peerwire"
)

// BlockSize is the size of a single requested block: 16 KiB, the size
// every mainline client uses and the only size most peers will honor.
const BlockSize = 16 * 1024

// pipelineDepth is the number of outstanding block requests kept in
// flight at once.
const pipelineDepth = 5

// readTimeout bounds every blocking read from a peer connection. A var,
// not a const, so tests can shorten it instead of waiting out the real
// timeout.
var readTimeout = 30 * time.Second

// ErrPieceHashMismatch is returned when a downloaded piece's SHA-1 does
// not match the hash recorded in the torrent's info dictionary.
var ErrPieceHashMismatch = errors.New("download: piece hash mismatch")

// ErrNoBitfield is returned when a peer's first post-handshake message is
// not a Bitfield message. Session is abandoned rather than guessing at
// peer state from a missing bitfield.
var ErrNoBitfield = errors.New("download: peer did not send bitfield first")

// Session is one established, handshaken connection to a peer, carrying
// the state the piece-request FSM needs.
type Session struct {
	Conn          net.Conn
	Bitfield      peerwire.Bitfield
	PeerChoking   bool
	AmInterested  bool
	allowExtended bool
}

// Open completes the post-handshake setup for conn: it requires the
// peer's first message to be a Bitfield, then sends Interested and waits
// for Unchoke. This enforces the AwaitBitfield -> SendInterested ->
// AwaitUnchoke -> Ready sequence without the teacher's "extra read"
// workaround, which assumed the first message might be something else.
//
// allowExtended must be true only for a magnet-origin session: one a
// caller is about to run the ut_metadata exchange over, where a peer may
// send its own Extended handshake unprompted while we are still waiting
// for Unchoke. Every other session rejects Extended, and any other
// unexpected message ID, as a session error.
func Open(conn net.Conn, allowExtended bool) (*Session, error) {
	s := &Session{Conn: conn, PeerChoking: true, allowExtended: allowExtended}

	if err := conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
		return nil, fmt.Errorf("download: set deadline: %w", err)
	}
	msg, err := peerwire.ReadMessage(conn)
	if err != nil {
		return nil, fmt.Errorf("download: await bitfield: %w", err)
	}
	if msg == nil || msg.ID != peerwire.BitfieldID {
		return nil, ErrNoBitfield
	}
	s.Bitfield = peerwire.Bitfield(msg.Payload)

	if err := s.sendInterested(); err != nil {
		return nil, err
	}
	if err := s.awaitUnchoke(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) sendInterested() error {
	m := &peerwire.Message{ID: peerwire.Interested}
	if _, err := s.Conn.Write(m.Serialize()); err != nil {
		return fmt.Errorf("download: send interested: %w", err)
	}
	s.AmInterested = true
	return nil
}

// awaitUnchoke reads messages until Unchoke arrives, applying Have
// updates to the bitfield and ignoring keep-alives in the meantime.
// Extended is tolerated only when s.allowExtended (a magnet-origin
// session); any other unexpected message ID is a session error.
func (s *Session) awaitUnchoke() error {
	for {
		if err := s.Conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
			return fmt.Errorf("download: set deadline: %w", err)
		}
		msg, err := peerwire.ReadMessage(s.Conn)
		if err != nil {
			return fmt.Errorf("download: await unchoke: %w", err)
		}
		if msg == nil {
			continue
		}
		switch msg.ID {
		case peerwire.Unchoke:
			s.PeerChoking = false
			return nil
		case peerwire.Have:
			if index, err := peerwire.ParseHave(msg); err == nil {
				s.Bitfield.Set(int(index))
			}
		case peerwire.Choke:
			s.PeerChoking = true
		case peerwire.Extended:
			if !s.allowExtended {
				return fmt.Errorf("%w: id %d", peerwire.ErrUnexpectedMessage, msg.ID)
			}
		default:
			return fmt.Errorf("%w: id %d", peerwire.ErrUnexpectedMessage, msg.ID)
		}
	}
}

// DownloadPiece fetches one piece by pipelined block requests and
// verifies it against expectedHash before returning. Requests are
// dispatched by (index, begin) lookup against the blocks map rather than
// assumed arrival order, since a peer may interleave or reorder replies.
func (s *Session) DownloadPiece(index int, pieceLen uint32, expectedHash [20]byte) ([]byte, error) {
	plan := planBlocks(pieceLen)
	buf := make([]byte, pieceLen)
	pending := make(map[blockKey]blockRequest, len(plan))

	var nextToRequest int
	var inFlight int
	var received int

	requestNext := func() error {
		for inFlight < pipelineDepth && nextToRequest < len(plan) {
			b := plan[nextToRequest]
			req := peerwire.FormatRequest(uint32(index), b.begin, b.length)
			if _, err := s.Conn.Write(req.Serialize()); err != nil {
				return fmt.Errorf("download: send request: %w", err)
			}
			pending[blockKey{b.begin}] = b
			nextToRequest++
			inFlight++
		}
		return nil
	}

	if err := requestNext(); err != nil {
		return nil, err
	}

	for received < len(plan) {
		if err := s.Conn.SetDeadline(time.Now().Add(readTimeout)); err != nil {
			return nil, fmt.Errorf("download: set deadline: %w", err)
		}
		msg, err := peerwire.ReadMessage(s.Conn)
		if err != nil {
			return nil, fmt.Errorf("download: read piece block: %w", err)
		}
		if msg == nil {
			continue
		}
		switch msg.ID {
		case peerwire.Choke:
			s.PeerChoking = true
			return nil, fmt.Errorf("download: peer choked mid-piece")
		case peerwire.Have:
			if idx, err := peerwire.ParseHave(msg); err == nil {
				s.Bitfield.Set(int(idx))
			}
			continue
		case peerwire.Piece:
		default:
			continue
		}

		gotIndex, begin, block, err := peerwire.ParsePiece(msg)
		if err != nil {
			return nil, err
		}
		if int(gotIndex) != index {
			continue
		}
		key := blockKey{begin}
		b, ok := pending[key]
		if !ok {
			continue
		}
		if uint32(len(block)) != b.length {
			return nil, fmt.Errorf("download: block at offset %d has %d bytes, requested %d", begin, len(block), b.length)
		}
		copy(buf[b.begin:b.begin+uint32(len(block))], block)
		delete(pending, key)
		inFlight--
		received++

		if err := requestNext(); err != nil {
			return nil, err
		}
	}

	if got := sha1.Sum(buf); got != expectedHash {
		return nil, fmt.Errorf("%w: piece %d", ErrPieceHashMismatch, index)
	}
	return buf, nil
}

type blockKey struct {
	begin uint32
}

type blockRequest struct {
	begin  uint32
	length uint32
}

func planBlocks(pieceLen uint32) []blockRequest {
	var blocks []blockRequest
	for off := uint32(0); off < pieceLen; off += BlockSize {
		length := uint32(BlockSize)
		if remaining := pieceLen - off; remaining < length {
			length = remaining
		}
		blocks = append(blocks, blockRequest{begin: off, length: length})
	}
	return blocks
}
