// Package metainfo implements the typed view over a decoded "info"
// dictionary: the four required fields of a single-file torrent, and the
// SHA-1 info-hash computed over its canonical re-encoding.
package metainfo

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"math"

	"gobit/bencode"
)

// FieldError names a metainfo field that was missing or had the wrong
// bencode type or an out-of-range value.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("metainfo: field %q: %s", e.Field, e.Reason)
}

// Info is the metadata of a single-file torrent.
type Info struct {
	Length      uint32
	Name        string
	PieceLength uint32
	Pieces      [][20]byte
}

// PieceCount returns the number of pieces described by Info.
func (i Info) PieceCount() int {
	return len(i.Pieces)
}

// PieceLen returns the length of piece index, which is PieceLength for
// every piece except possibly the last.
func (i Info) PieceLen(index int) uint32 {
	if index == i.PieceCount()-1 {
		if rem := i.Length % i.PieceLength; rem != 0 {
			return rem
		}
	}
	return i.PieceLength
}

// Hash returns the SHA-1 of the canonical bencode re-encoding of the info
// dictionary. The dictionary is rebuilt from Info's fields, never read back
// from the original bytes, so this is purely a function of the model - the
// magnet flow, which never has the original bytes, computes the same hash
// the same way.
func (i Info) Hash() [20]byte {
	dto := bencodeInfo{
		Length:      int64(i.Length),
		Name:        i.Name,
		PieceLength: int64(i.PieceLength),
		Pieces:      piecesToString(i.Pieces),
	}
	var buf bytes.Buffer
	// A type built entirely from plain ints and strings cannot fail to
	// bencode; the only error bencode-go returns for this shape is a
	// write error from the buffer, which bytes.Buffer never produces.
	_ = bencode.MarshalStruct(&buf, dto)
	return sha1.Sum(buf.Bytes())
}

type bencodeInfo struct {
	Length      int64  `bencode:"length"`
	Name        string `bencode:"name"`
	PieceLength int64  `bencode:"piece length"`
	Pieces      string `bencode:"pieces"`
}

func piecesToString(pieces [][20]byte) string {
	b := make([]byte, 0, 20*len(pieces))
	for _, p := range pieces {
		b = append(b, p[:]...)
	}
	return string(b)
}

func buildInfo(b bencodeInfo) (*Info, error) {
	if b.Length <= 0 {
		return nil, &FieldError{"length", "must be positive"}
	}
	if b.Length > math.MaxUint32 {
		return nil, &FieldError{"length", "exceeds 2^32-1"}
	}
	if b.Name == "" {
		return nil, &FieldError{"name", "must be non-empty"}
	}
	if b.PieceLength <= 0 || b.PieceLength > math.MaxUint32 {
		return nil, &FieldError{"piece length", "must be in (0, 2^32-1]"}
	}
	if len(b.Pieces) == 0 || len(b.Pieces)%20 != 0 {
		return nil, &FieldError{"pieces", "length must be a positive multiple of 20"}
	}

	n := len(b.Pieces) / 20
	pieces := make([][20]byte, n)
	for i := 0; i < n; i++ {
		copy(pieces[i][:], b.Pieces[i*20:(i+1)*20])
	}

	last := b.Length - int64(n-1)*b.PieceLength
	if last <= 0 || last > b.PieceLength {
		return nil, &FieldError{"pieces", "implied last piece length is not in (0, piece_length]"}
	}

	return &Info{
		Length:      uint32(b.Length),
		Name:        b.Name,
		PieceLength: uint32(b.PieceLength),
		Pieces:      pieces,
	}, nil
}

// FromValue builds an Info from an untyped bencode.Value, the path the
// magnet metadata-extension flow uses since it never has a typed DTO to
// unmarshal into - only a bencode.Value decoded off the wire.
func FromValue(v bencode.Value) (*Info, error) {
	if v.Kind != bencode.KindDict {
		return nil, &FieldError{"info", "not a dictionary"}
	}
	dto := bencodeInfo{}
	length, ok := v.Dict["length"]
	if !ok || length.Kind != bencode.KindInt {
		return nil, &FieldError{"length", "missing or not an integer"}
	}
	dto.Length = length.Int

	name, ok := v.Dict["name"]
	if !ok || name.Kind != bencode.KindString {
		return nil, &FieldError{"name", "missing or not a string"}
	}
	dto.Name = string(name.Str)

	pieceLength, ok := v.Dict["piece length"]
	if !ok || pieceLength.Kind != bencode.KindInt {
		return nil, &FieldError{"piece length", "missing or not an integer"}
	}
	dto.PieceLength = pieceLength.Int

	pieces, ok := v.Dict["pieces"]
	if !ok || pieces.Kind != bencode.KindString {
		return nil, &FieldError{"pieces", "missing or not a string"}
	}
	dto.Pieces = string(pieces.Str)

	return buildInfo(dto)
}
