package tracker

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Peer is an IPv4 endpoint returned by the tracker's compact peer list.
type Peer struct {
	IP   net.IP
	Port uint16
}

func (p Peer) String() string {
	return net.JoinHostPort(p.IP.String(), fmt.Sprintf("%d", p.Port))
}

// unmarshalPeers splits a tracker's compact peers string into individual
// Peer records: 4 bytes of IPv4 address followed by 2 bytes of big-endian
// port, repeated.
func unmarshalPeers(compact []byte) ([]Peer, error) {
	const recordSize = 6
	if len(compact)%recordSize != 0 {
		return nil, fmt.Errorf("%w: peers string length %d is not a multiple of 6", ErrTrackerResponse, len(compact))
	}
	n := len(compact) / recordSize
	peers := make([]Peer, n)
	for i := 0; i < n; i++ {
		off := i * recordSize
		peers[i] = Peer{
			IP:   net.IP(compact[off : off+4]),
			Port: binary.BigEndian.Uint16(compact[off+4 : off+6]),
		}
	}
	return peers, nil
}
