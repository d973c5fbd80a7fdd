// Package tracker builds the HTTP announce request against a torrent's
// tracker and parses the compact peer list out of its bencoded response.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gobit/bencode"
)

// Port is the fixed listening port advertised in every announce request.
// This client never actually listens (it does not seed), but the tracker
// protocol requires a value.
const Port = 6881

// ErrTrackerResponse covers a non-2xx response or a response whose
// required "peers" key is missing or empty - fatal, no peer-discovery
// fallback.
var ErrTrackerResponse = errors.New("tracker: invalid response")

// Torrentable is the capability a torrent-like value must expose to the
// tracker client. metainfo.Torrent and magnet.Magnet both satisfy it
// structurally, with no shared base type.
type Torrentable interface {
	AnnounceURL() string
	InfoHash() [20]byte
	Left() uint32
}

// announceRequest names every query parameter the tracker protocol defines,
// mirroring the Rust original's TrackerRequest struct field-for-field
// rather than building the query ad hoc.
type announceRequest struct {
	InfoHash   [20]byte
	PeerID     [20]byte
	Port       int
	Uploaded   int
	Downloaded int
	Left       uint32
	Compact    int
}

func (r announceRequest) encode(base *url.URL) string {
	q := url.Values{
		"port":       {strconv.Itoa(r.Port)},
		"uploaded":   {strconv.Itoa(r.Uploaded)},
		"downloaded": {strconv.Itoa(r.Downloaded)},
		"left":       {strconv.FormatUint(uint64(r.Left), 10)},
		"compact":    {strconv.Itoa(r.Compact)},
	}
	raw := q.Encode()
	raw += "&info_hash=" + percentEncode(r.InfoHash[:])
	raw += "&peer_id=" + percentEncode(r.PeerID[:])
	return raw
}

// percentEncode renders every byte as %XX, which is what the tracker
// protocol requires for info_hash and peer_id: url.Values.Encode would
// otherwise leave printable-ASCII bytes unescaped.
func percentEncode(b []byte) string {
	out := make([]byte, 0, len(b)*3)
	const hex = "0123456789ABCDEF"
	for _, c := range b {
		out = append(out, '%', hex[c>>4], hex[c&0xf])
	}
	return string(out)
}

type trackerResponse struct {
	Interval int    `bencode:"interval"`
	Peers    string `bencode:"peers"`
}

// Announce performs the tracker GET request described by spec §4.3 and
// returns the discovered peers. It does not retry; callers retry at the
// peer-selection level.
func Announce(ctx context.Context, t Torrentable, peerID [20]byte) ([]Peer, error) {
	base, err := url.Parse(t.AnnounceURL())
	if err != nil {
		return nil, fmt.Errorf("tracker: parse announce URL: %w", err)
	}

	req := announceRequest{
		InfoHash: t.InfoHash(),
		PeerID:   peerID,
		Port:     Port,
		Left:     t.Left(),
		Compact:  1,
	}
	base.RawQuery = req.encode(base)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("tracker: build request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tracker: announce request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: tracker returned status %s", ErrTrackerResponse, resp.Status)
	}

	var tr trackerResponse
	if err := bencode.UnmarshalStruct(resp.Body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTrackerResponse, err)
	}
	if tr.Peers == "" {
		return nil, fmt.Errorf("%w: response has no peers", ErrTrackerResponse)
	}

	return unmarshalPeers([]byte(tr.Peers))
}
