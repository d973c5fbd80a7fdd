package bencode

import (
	"io"

	bencodego "github.com/jackpal/bencode-go"
)

// UnmarshalStruct decodes bencoded data from r into v using struct tags,
// the way a .torrent file or a tracker's announce response is parsed: the
// schema is known ahead of time, so there is no need for the untyped Value
// walk that Decode performs.
func UnmarshalStruct(r io.Reader, v any) error {
	return bencodego.Unmarshal(r, v)
}

// MarshalStruct bencodes v, following its struct tags, and writes the
// result to w. jackpal/bencode-go sorts dictionary keys before writing
// regardless of struct field declaration order, so the result is always
// the canonical encoding.
func MarshalStruct(w io.Writer, v any) error {
	return bencodego.Marshal(w, v)
}
