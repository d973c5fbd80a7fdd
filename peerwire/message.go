package peerwire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageID identifies the type of a peer-wire message.
type MessageID uint8

const (
	Choke         MessageID = 0
	Unchoke       MessageID = 1
	Interested    MessageID = 2
	NotInterested MessageID = 3
	Have          MessageID = 4
	BitfieldID    MessageID = 5
	Request       MessageID = 6
	Piece         MessageID = 7
	Cancel        MessageID = 8
	// Extended carries BEP 10 extension-protocol messages, including the
	// ut_metadata exchange the magnet flow relies on. The teacher's message
	// set predates extensions and has no equivalent ID.
	Extended MessageID = 20
)

// ErrUnexpectedMessage is returned when a peer sends a message of a type
// the caller was not prepared to handle.
var ErrUnexpectedMessage = fmt.Errorf("peerwire: unexpected message")

// Message is a single length-prefixed peer-wire message: a keep-alive has
// no ID or Payload and is represented by a nil *Message.
type Message struct {
	ID      MessageID
	Payload []byte
}

// Serialize renders m as length-prefixed wire bytes: 4-byte big-endian
// length (1 + len(Payload)), the ID byte, then the payload.
func (m *Message) Serialize() []byte {
	if m == nil {
		return make([]byte, 4) // keep-alive: length 0
	}
	length := uint32(1 + len(m.Payload))
	buf := make([]byte, 4+length)
	binary.BigEndian.PutUint32(buf[0:4], length)
	buf[4] = byte(m.ID)
	copy(buf[5:], m.Payload)
	return buf
}

// ReadMessage reads one length-prefixed message from r. It returns a nil
// *Message for a keep-alive (zero-length) frame.
func ReadMessage(r io.Reader) (*Message, error) {
	lengthBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBuf); err != nil {
		return nil, fmt.Errorf("peerwire: read message length: %w", err)
	}
	length := binary.BigEndian.Uint32(lengthBuf)
	if length == 0 {
		return nil, nil
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("peerwire: read message body: %w", err)
	}
	return &Message{ID: MessageID(body[0]), Payload: body[1:]}, nil
}

// FormatRequest builds a Request message whose 12-byte payload holds index,
// begin, and length, each a 4-byte big-endian integer.
func FormatRequest(index, begin, length uint32) *Message {
	payload := make([]byte, 12)
	binary.BigEndian.PutUint32(payload[0:4], index)
	binary.BigEndian.PutUint32(payload[4:8], begin)
	binary.BigEndian.PutUint32(payload[8:12], length)
	return &Message{ID: Request, Payload: payload}
}

// FormatHave builds the 4-byte payload of a Have message.
func FormatHave(index uint32) *Message {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, index)
	return &Message{ID: Have, Payload: payload}
}

// ParsePiece reads the index, begin, and block out of a Piece message's
// payload.
func ParsePiece(m *Message) (index, begin uint32, block []byte, err error) {
	if m.ID != Piece {
		return 0, 0, nil, fmt.Errorf("%w: expected piece, got id %d", ErrUnexpectedMessage, m.ID)
	}
	if len(m.Payload) < 8 {
		return 0, 0, nil, fmt.Errorf("peerwire: piece payload too short: %d bytes", len(m.Payload))
	}
	index = binary.BigEndian.Uint32(m.Payload[0:4])
	begin = binary.BigEndian.Uint32(m.Payload[4:8])
	block = m.Payload[8:]
	return index, begin, block, nil
}

// ParseHave reads the piece index out of a Have message's payload.
func ParseHave(m *Message) (uint32, error) {
	if m.ID != Have {
		return 0, fmt.Errorf("%w: expected have, got id %d", ErrUnexpectedMessage, m.ID)
	}
	if len(m.Payload) != 4 {
		return 0, fmt.Errorf("peerwire: have payload wrong size: %d bytes", len(m.Payload))
	}
	return binary.BigEndian.Uint32(m.Payload), nil
}
