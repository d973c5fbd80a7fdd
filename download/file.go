package download

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"gobit/metainfo"
	"gobit/peerwire"
	"gobit/tracker"
)

// dialTimeout bounds the TCP connect + handshake setup for one peer.
const dialTimeout = 5 * time.Second

// pieceResult is one completed piece, ready to be placed into the output
// buffer at its offset.
type pieceResult struct {
	index int
	data  []byte
}

// DialAndOpen dials addr, performs the handshake, and opens a Session
// ready for piece requests. allowExtended must be true only when the
// caller is about to run the ut_metadata exchange over the returned
// session (the magnet path); every other caller passes false.
func DialAndOpen(ctx context.Context, addr string, infoHash, peerID [20]byte, allowExtended bool) (*Session, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("download: dial %s: %w", addr, err)
	}

	if err := conn.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("download: set handshake deadline: %w", err)
	}
	if _, err := peerwire.Do(conn, infoHash, peerID); err != nil {
		conn.Close()
		return nil, err
	}

	s, err := Open(conn, allowExtended)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// DownloadPieceFromFirst iterates peers in order and hands the piece to
// the first one that completes a handshake, a bitfield, and an unchoke.
// This is the "first to complete bitfield+unchoke wins" policy used by
// both single-piece and magnet recovery paths, which never need more than
// one working peer.
func DownloadPieceFromFirst(ctx context.Context, peers []tracker.Peer, infoHash, peerID [20]byte, index int, pieceLen uint32, expectedHash [20]byte) ([]byte, error) {
	var lastErr error
	for _, p := range peers {
		s, err := DialAndOpen(ctx, p.String(), infoHash, peerID, false)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := s.DownloadPiece(index, pieceLen, expectedHash)
		s.Conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("download: no peers available")
	}
	return nil, fmt.Errorf("download: piece %d: %w", index, lastErr)
}

// DownloadFile retrieves every piece of t.Info, using every peer in peers
// concurrently. Each peer runs its own session and worker loop, claiming
// pieces it has not yet seen completed and whose bitfield marks as
// present - the bitfield gate the teacher's worker pool already applied,
// generalized here to an arbitrary peer count via errgroup instead of a
// bare WaitGroup.
func DownloadFile(ctx context.Context, t *metainfo.Torrent, peers []tracker.Peer, peerID [20]byte) ([]byte, error) {
	info := t.Info
	infoHash := t.InfoHash()
	out := make([]byte, info.Length)

	// Buffered to the piece count: every piece is in the channel, in a
	// session's DownloadPiece call, or on results at any one time, so a
	// requeue can never block.
	work := make(chan int, info.PieceCount())
	for i := 0; i < info.PieceCount(); i++ {
		work <- i
	}

	results := make(chan pieceResult, info.PieceCount())

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range peers {
		p := p
		g.Go(func() error {
			runPeerWorker(gctx, p, infoHash, peerID, info, work, results)
			return nil
		})
	}

	// workersDone closes once every peer worker has returned; pieces still
	// outstanding then have no peer left to serve them.
	workersDone := make(chan struct{})
	go func() {
		g.Wait()
		close(workersDone)
	}()

	remaining := info.PieceCount()
	for remaining > 0 {
		select {
		case r := <-results:
			offset := r.index * int(info.PieceLength)
			copy(out[offset:offset+len(r.data)], r.data)
			remaining--
		case <-workersDone:
			if len(results) > 0 {
				continue
			}
			return nil, fmt.Errorf("download: every peer failed, %d pieces outstanding", remaining)
		case <-ctx.Done():
			return nil, fmt.Errorf("download: %w, %d pieces outstanding", ctx.Err(), remaining)
		}
	}
	return out, nil
}

// requeueDelay throttles how fast a worker re-offers a piece its peer's
// bitfield does not have, so peers missing most of the file don't spin.
const requeueDelay = 50 * time.Millisecond

// runPeerWorker claims pieces from work that this peer's bitfield marks
// as present, downloads each, and publishes it on results. Pieces it
// cannot serve - bitfield miss, or a failed download - go back on work
// for another peer. The worker itself never returns an error: a dead or
// useless peer just stops claiming work, generalizing the teacher's
// single-peer worker-pool loop to an arbitrary peer count.
func runPeerWorker(ctx context.Context, p tracker.Peer, infoHash, peerID [20]byte, info metainfo.Info, work chan int, results chan pieceResult) {
	s, err := DialAndOpen(ctx, p.String(), infoHash, peerID, false)
	if err != nil {
		return
	}
	defer s.Conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case index := <-work:
			if !s.Bitfield.Has(index) {
				go func() {
					time.Sleep(requeueDelay)
					work <- index
				}()
				continue
			}
			data, err := s.DownloadPiece(index, info.PieceLen(index), info.Pieces[index])
			if err != nil {
				work <- index
				return
			}
			results <- pieceResult{index: index, data: data}
		}
	}
}
