package metainfo

import (
	"fmt"
	"io"

	"gobit/bencode"
)

// Torrent pairs a tracker announce URL with the Info of the single file it
// describes.
type Torrent struct {
	Announce string
	Info     Info
}

type bencodeTorrent struct {
	Announce string      `bencode:"announce"`
	Info     bencodeInfo `bencode:"info"`
}

// Parse reads a bencoded .torrent file from r and builds a Torrent,
// rejecting missing or mistyped fields with a *FieldError.
func Parse(r io.Reader) (*Torrent, error) {
	var bto bencodeTorrent
	if err := bencode.UnmarshalStruct(r, &bto); err != nil {
		return nil, fmt.Errorf("metainfo: decode metainfo file: %w", err)
	}
	if bto.Announce == "" {
		return nil, &FieldError{"announce", "missing or not a string"}
	}
	info, err := buildInfo(bto.Info)
	if err != nil {
		return nil, err
	}
	return &Torrent{Announce: bto.Announce, Info: *info}, nil
}

// AnnounceURL satisfies tracker.Torrentable.
func (t *Torrent) AnnounceURL() string { return t.Announce }

// InfoHash satisfies tracker.Torrentable.
func (t *Torrent) InfoHash() [20]byte { return t.Info.Hash() }

// Left satisfies tracker.Torrentable: for a single-file torrent the whole
// length is outstanding until the first announce.
func (t *Torrent) Left() uint32 { return t.Info.Length }
