// Package client wires together tracker announcement, peer selection, and
// piece download into the operations the command-line tool exposes.
package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"gobit/download"
	"gobit/magnet"
	"gobit/metainfo"
	"gobit/tracker"
)

// log is package-scoped the way the teacher's debugLog was: silent until
// SetVerbose turns it on.
var log = logrus.New()

func init() {
	log.SetOutput(io.Discard)
}

// SetVerbose toggles structured debug logging to stderr, the logrus
// equivalent of the teacher's log.New(io.Discard, ...) / SetVerbose pair.
func SetVerbose(v bool) {
	if v {
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetOutput(io.Discard)
	}
}

// NewPeerID generates a 20-byte peer ID with a fixed client prefix
// followed by random bytes, the convention most BitTorrent clients use.
func NewPeerID() ([20]byte, error) {
	var id [20]byte
	copy(id[:], "-GB0100-")
	if _, err := rand.Read(id[8:]); err != nil {
		return id, fmt.Errorf("client: generate peer id: %w", err)
	}
	return id, nil
}

// OpenTorrent loads a .torrent file from path.
func OpenTorrent(path string) (*metainfo.Torrent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("client: open torrent file: %w", err)
	}
	defer f.Close()
	return metainfo.Parse(f)
}

// DiscoverPeers announces t to its tracker and returns the peers it
// returned.
func DiscoverPeers(ctx context.Context, t tracker.Torrentable, peerID [20]byte) ([]tracker.Peer, error) {
	log.WithField("announce", t.AnnounceURL()).Debug("announcing to tracker")
	peers, err := tracker.Announce(ctx, t, peerID)
	if err != nil {
		return nil, err
	}
	log.WithField("count", len(peers)).Debug("tracker returned peers")
	return peers, nil
}

// DownloadPiece fetches a single piece of t from the first responsive peer.
func DownloadPiece(ctx context.Context, t *metainfo.Torrent, peers []tracker.Peer, peerID [20]byte, index int) ([]byte, error) {
	if index < 0 || index >= t.Info.PieceCount() {
		return nil, fmt.Errorf("client: piece index %d out of range [0,%d)", index, t.Info.PieceCount())
	}
	return download.DownloadPieceFromFirst(ctx, peers, t.InfoHash(), peerID, index, t.Info.PieceLen(index), t.Info.Pieces[index])
}

// DownloadFile fetches every piece of t across all discovered peers.
func DownloadFile(ctx context.Context, t *metainfo.Torrent, peers []tracker.Peer, peerID [20]byte) ([]byte, error) {
	return download.DownloadFile(ctx, t, peers, peerID)
}

// ResolveMagnet parses uri, announces to its tracker, and recovers its
// info dictionary from the first peer willing to serve it.
func ResolveMagnet(ctx context.Context, uri string, peerID [20]byte) (*magnet.Magnet, []tracker.Peer, *metainfo.Info, error) {
	m, err := magnet.Parse(uri)
	if err != nil {
		return nil, nil, nil, err
	}
	peers, err := DiscoverPeers(ctx, m, peerID)
	if err != nil {
		return m, nil, nil, err
	}

	var lastErr error
	for _, p := range peers {
		info, err := fetchInfoFrom(ctx, p, m, peerID)
		if err != nil {
			lastErr = err
			continue
		}
		return m, peers, info, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("client: no peers available")
	}
	return m, peers, nil, lastErr
}

func fetchInfoFrom(ctx context.Context, p tracker.Peer, m *magnet.Magnet, peerID [20]byte) (*metainfo.Info, error) {
	s, err := download.DialAndOpen(ctx, p.String(), m.Hash, peerID, true)
	if err != nil {
		return nil, err
	}
	defer s.Conn.Close()
	return magnet.FetchInfo(ctx, s.Conn, m)
}
