// Package bencode implements the bencode serialization used throughout the
// BitTorrent wire protocol: metainfo files, tracker responses, and the
// extension-protocol messages exchanged with peers.
package bencode

// Kind identifies which of the four bencode alternatives a Value holds.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindList
	KindDict
)

// Value is a bencoded value: a byte string, a signed integer, an ordered
// list, or a dictionary keyed by byte strings. Only the field matching Kind
// is meaningful.
type Value struct {
	Kind Kind
	Str  []byte
	Int  int64
	List []Value
	Dict map[string]Value
}

// NewString wraps a byte string as a bencode Value.
func NewString(b []byte) Value {
	return Value{Kind: KindString, Str: b}
}

// NewInt wraps an integer as a bencode Value.
func NewInt(i int64) Value {
	return Value{Kind: KindInt, Int: i}
}

// NewList wraps a slice of values as a bencode list.
func NewList(items []Value) Value {
	return Value{Kind: KindList, List: items}
}

// NewDict wraps a map as a bencode dictionary.
func NewDict(m map[string]Value) Value {
	return Value{Kind: KindDict, Dict: m}
}

// ToJSON projects a Value into plain Go values (string/int64/[]any/map[string]any)
// suitable for encoding/json. This is a debugging facility, not part of the
// protocol stack: byte strings are treated as UTF-8 for display only.
func (v Value) ToJSON() any {
	switch v.Kind {
	case KindString:
		return string(v.Str)
	case KindInt:
		return v.Int
	case KindList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.ToJSON()
		}
		return out
	case KindDict:
		out := make(map[string]any, len(v.Dict))
		for k, item := range v.Dict {
			out[k] = item.ToJSON()
		}
		return out
	default:
		return nil
	}
}
