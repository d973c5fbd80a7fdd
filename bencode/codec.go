package bencode

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrInvalidSyntax is wrapped by every decode error that is not a plain
// truncation: bad length prefixes, malformed integers, out-of-order keys.
var ErrInvalidSyntax = errors.New("bencode: invalid syntax")

// ErrUnexpectedEOF is wrapped when the input ends before a value is complete.
var ErrUnexpectedEOF = errors.New("bencode: unexpected end of input")

// ErrTrailingData is returned by DecodeAll when bytes remain after a
// complete top-level value.
var ErrTrailingData = errors.New("bencode: trailing data after top-level value")

// DecodeAll decodes exactly one top-level value and rejects any leftover
// bytes. This is the entry point used by callers that own the whole buffer
// (the decode CLI command, a parsed .torrent file).
func DecodeAll(data []byte) (Value, error) {
	v, rest, err := Decode(data)
	if err != nil {
		return Value{}, err
	}
	if len(rest) != 0 {
		return Value{}, ErrTrailingData
	}
	return v, nil
}

// Decode decodes one value from the front of data and returns it along with
// the unconsumed remainder. Callers that expect more values to follow (the
// magnet metadata-extension payload, which concatenates a header dict and
// raw info-dict bytes) use the returned remainder directly.
func Decode(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return Value{}, nil, ErrUnexpectedEOF
	}
	switch {
	case data[0] == 'i':
		return decodeInt(data)
	case data[0] == 'l':
		return decodeList(data)
	case data[0] == 'd':
		return decodeDict(data)
	case data[0] >= '0' && data[0] <= '9':
		return decodeString(data)
	default:
		return Value{}, nil, fmt.Errorf("%w: unexpected leading byte %q", ErrInvalidSyntax, data[0])
	}
}

func decodeString(data []byte) (Value, []byte, error) {
	colon := bytes.IndexByte(data, ':')
	if colon < 0 {
		return Value{}, nil, ErrUnexpectedEOF
	}
	lenBytes := data[:colon]
	if len(lenBytes) == 0 {
		return Value{}, nil, fmt.Errorf("%w: empty string length", ErrInvalidSyntax)
	}
	for _, c := range lenBytes {
		if c < '0' || c > '9' {
			return Value{}, nil, fmt.Errorf("%w: non-digit string length", ErrInvalidSyntax)
		}
	}
	length, err := strconv.ParseInt(string(lenBytes), 10, 63)
	if err != nil {
		return Value{}, nil, fmt.Errorf("%w: string length overflow: %v", ErrInvalidSyntax, err)
	}
	start := colon + 1
	end := start + int(length)
	if end < start || end > len(data) {
		return Value{}, nil, ErrUnexpectedEOF
	}
	s := make([]byte, length)
	copy(s, data[start:end])
	return Value{Kind: KindString, Str: s}, data[end:], nil
}

func decodeInt(data []byte) (Value, []byte, error) {
	e := bytes.IndexByte(data[1:], 'e')
	if e < 0 {
		return Value{}, nil, ErrUnexpectedEOF
	}
	body := data[1 : 1+e]
	if len(body) == 0 {
		return Value{}, nil, fmt.Errorf("%w: empty integer", ErrInvalidSyntax)
	}
	if string(body) == "-0" {
		return Value{}, nil, fmt.Errorf("%w: -0 is not a valid integer", ErrInvalidSyntax)
	}
	digits := body
	if digits[0] == '-' {
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return Value{}, nil, fmt.Errorf("%w: integer has no digits", ErrInvalidSyntax)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return Value{}, nil, fmt.Errorf("%w: non-digit in integer", ErrInvalidSyntax)
		}
	}
	if len(digits) > 1 && digits[0] == '0' {
		return Value{}, nil, fmt.Errorf("%w: leading zero in integer", ErrInvalidSyntax)
	}
	n, err := strconv.ParseInt(string(body), 10, 64)
	if err != nil {
		return Value{}, nil, fmt.Errorf("%w: integer overflow: %v", ErrInvalidSyntax, err)
	}
	return Value{Kind: KindInt, Int: n}, data[1+e+1:], nil
}

func decodeList(data []byte) (Value, []byte, error) {
	rest := data[1:]
	var items []Value
	for {
		if len(rest) == 0 {
			return Value{}, nil, ErrUnexpectedEOF
		}
		if rest[0] == 'e' {
			rest = rest[1:]
			break
		}
		v, r, err := Decode(rest)
		if err != nil {
			return Value{}, nil, err
		}
		items = append(items, v)
		rest = r
	}
	return Value{Kind: KindList, List: items}, rest, nil
}

func decodeDict(data []byte) (Value, []byte, error) {
	rest := data[1:]
	m := make(map[string]Value)
	var prevKey []byte
	first := true
	for {
		if len(rest) == 0 {
			return Value{}, nil, ErrUnexpectedEOF
		}
		if rest[0] == 'e' {
			rest = rest[1:]
			break
		}
		keyVal, r, err := decodeString(rest)
		if err != nil {
			return Value{}, nil, err
		}
		rest = r
		if !first && bytes.Compare(keyVal.Str, prevKey) <= 0 {
			return Value{}, nil, fmt.Errorf("%w: dictionary keys not in ascending order", ErrInvalidSyntax)
		}
		first = false
		prevKey = keyVal.Str

		val, r2, err := Decode(rest)
		if err != nil {
			return Value{}, nil, err
		}
		rest = r2
		m[string(keyVal.Str)] = val
	}
	return Value{Kind: KindDict, Dict: m}, rest, nil
}

// Encode canonically re-encodes v: dictionary keys in ascending byte order,
// no superfluous whitespace. For any Value built by this package's
// constructors, DecodeAll(Encode(v)) reproduces v; for canonical input
// bytes b, Encode(must(DecodeAll(b))) reproduces b exactly.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	encodeInto(&buf, v)
	return buf.Bytes()
}

func encodeInto(buf *bytes.Buffer, v Value) {
	switch v.Kind {
	case KindString:
		fmt.Fprintf(buf, "%d:", len(v.Str))
		buf.Write(v.Str)
	case KindInt:
		fmt.Fprintf(buf, "i%de", v.Int)
	case KindList:
		buf.WriteByte('l')
		for _, item := range v.List {
			encodeInto(buf, item)
		}
		buf.WriteByte('e')
	case KindDict:
		buf.WriteByte('d')
		keys := make([]string, 0, len(v.Dict))
		for k := range v.Dict {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeInto(buf, NewString([]byte(k)))
			encodeInto(buf, v.Dict[k])
		}
		buf.WriteByte('e')
	}
}
