// Package magnet parses magnet URIs and recovers their info dictionary
// over the BEP 9 ut_metadata extension protocol.
package magnet

import (
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Magnet is a parsed single-file magnet URI (BEP 9). The field is named
// Hash rather than InfoHash so it does not collide with the InfoHash()
// method that satisfies tracker.Torrentable.
type Magnet struct {
	Tracker string
	Name    string
	Hash    [20]byte
}

// ErrMalformedURI covers any magnet URI that is not well-formed: a bad
// scheme, a missing or unsupported xt parameter, or a hash of the wrong
// length or encoding.
var ErrMalformedURI = errors.New("magnet: malformed URI")

// Parse parses a magnet: URI into a Magnet, requiring a supported xt
// (BEP 9 urn:btih) parameter and a tr (tracker) parameter. When either is
// repeated, only the first occurrence is used.
func Parse(raw string) (*Magnet, error) {
	if !strings.HasPrefix(raw, "magnet:?") {
		return nil, fmt.Errorf("%w: must start with magnet:?", ErrMalformedURI)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}
	q := u.Query()

	hash, err := parseInfoHash(q)
	if err != nil {
		return nil, err
	}

	m := &Magnet{Hash: hash}
	if dn := q.Get("dn"); dn != "" {
		m.Name = dn
	}
	if tr := q.Get("tr"); tr != "" {
		m.Tracker = tr
	} else {
		return nil, fmt.Errorf("%w: missing tr (tracker) parameter", ErrMalformedURI)
	}
	return m, nil
}

func parseInfoHash(q url.Values) ([20]byte, error) {
	var hash [20]byte

	xt := q.Get("xt")
	if xt == "" {
		return hash, fmt.Errorf("%w: missing xt parameter", ErrMalformedURI)
	}

	var enc string
	switch {
	case strings.HasPrefix(xt, "urn:btih:"):
		enc = strings.TrimPrefix(xt, "urn:btih:")
	default:
		return hash, fmt.Errorf("%w: unsupported xt scheme %q", ErrMalformedURI, xt)
	}

	switch len(enc) {
	case 40:
		decoded, err := hex.DecodeString(enc)
		if err != nil {
			return hash, fmt.Errorf("%w: invalid hex hash: %v", ErrMalformedURI, err)
		}
		copy(hash[:], decoded)
	case 32:
		decoded, err := base32.StdEncoding.DecodeString(strings.ToUpper(enc))
		if err != nil {
			return hash, fmt.Errorf("%w: invalid base32 hash: %v", ErrMalformedURI, err)
		}
		copy(hash[:], decoded)
	default:
		return hash, fmt.Errorf("%w: hash length %d is neither 32 nor 40", ErrMalformedURI, len(enc))
	}
	return hash, nil
}

// AnnounceURL satisfies tracker.Torrentable.
func (m *Magnet) AnnounceURL() string { return m.Tracker }

// InfoHash satisfies tracker.Torrentable.
func (m *Magnet) InfoHash() [20]byte { return m.Hash }

// Left satisfies tracker.Torrentable. The true length is unknown until
// the info dictionary is recovered, so any positive placeholder signals
// "not yet complete" to the tracker.
func (m *Magnet) Left() uint32 { return 1 }
