package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPeers(t *testing.T) {
	compact := []byte{192, 168, 1, 1, 0x00, 0x50}
	peers, err := unmarshalPeers(compact)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "192.168.1.1", peers[0].IP.String())
	assert.Equal(t, uint16(80), peers[0].Port)
	assert.Equal(t, "192.168.1.1:80", peers[0].String())
}

func TestUnmarshalPeersRejectsBadLength(t *testing.T) {
	_, err := unmarshalPeers([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTrackerResponse)
}
