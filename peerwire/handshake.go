// Package peerwire implements the wire-level primitives of the BitTorrent
// peer protocol: the fixed-size handshake, length-prefixed message framing,
// and the bitfield bitmap peers advertise.
package peerwire

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const protocolString = "BitTorrent protocol"

// HandshakeLen is the fixed size of a handshake frame: 1 + 19 + 8 + 20 + 20.
const HandshakeLen = 1 + len(protocolString) + 8 + 20 + 20

// extensionBit is bit 0x10 of the fifth reserved byte (BEP 10): when set,
// the sender advertises support for the extension protocol.
const extensionBit = 0x10

// ErrHandshakeMismatch is returned when a peer's handshake response does
// not echo the protocol string or our info_hash.
var ErrHandshakeMismatch = errors.New("peerwire: handshake mismatch")

// Handshake is the fixed 68-byte frame exchanged before any other message.
// It is built and parsed field-by-field, never by reinterpreting memory.
type Handshake struct {
	InfoHash          [20]byte
	PeerID            [20]byte
	SupportsExtension bool
}

// Serialize renders h as the 68-byte wire frame. Our client always sets the
// extension bit regardless of h.SupportsExtension, since that field on a
// locally-built Handshake records what WE are about to send.
func (h Handshake) Serialize() []byte {
	buf := make([]byte, 0, HandshakeLen)
	buf = append(buf, byte(len(protocolString)))
	buf = append(buf, protocolString...)
	reserved := make([]byte, 8)
	reserved[5] = extensionBit
	buf = append(buf, reserved...)
	buf = append(buf, h.InfoHash[:]...)
	buf = append(buf, h.PeerID[:]...)
	return buf
}

func readHandshake(r io.Reader) (Handshake, error) {
	raw := make([]byte, HandshakeLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Handshake{}, fmt.Errorf("peerwire: read handshake: %w", err)
	}
	pstrLen := int(raw[0])
	if pstrLen != len(protocolString) || string(raw[1:1+pstrLen]) != protocolString {
		return Handshake{}, fmt.Errorf("%w: unexpected protocol string", ErrHandshakeMismatch)
	}
	reserved := raw[1+pstrLen : 1+pstrLen+8]
	var h Handshake
	h.SupportsExtension = reserved[5]&extensionBit != 0
	copy(h.InfoHash[:], raw[1+pstrLen+8:1+pstrLen+8+20])
	copy(h.PeerID[:], raw[1+pstrLen+8+20:1+pstrLen+8+40])
	return h, nil
}

// Do writes our handshake and reads the peer's response over conn,
// rejecting a response whose echoed info_hash does not match ours. It
// returns the peer's side of the handshake, including whether the peer
// advertised extension support.
func Do(conn io.ReadWriter, infoHash, peerID [20]byte) (Handshake, error) {
	out := Handshake{InfoHash: infoHash, PeerID: peerID, SupportsExtension: true}
	if _, err := conn.Write(out.Serialize()); err != nil {
		return Handshake{}, fmt.Errorf("peerwire: write handshake: %w", err)
	}

	in, err := readHandshake(conn)
	if err != nil {
		return Handshake{}, err
	}
	if !bytes.Equal(in.InfoHash[:], infoHash[:]) {
		return Handshake{}, fmt.Errorf("%w: expected info_hash %x, got %x", ErrHandshakeMismatch, infoHash, in.InfoHash)
	}
	return in, nil
}
