package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeerIDHasFixedPrefix(t *testing.T) {
	id, err := NewPeerID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(id[:8]), "-GB0100-"))
}

func TestNewPeerIDIsRandomized(t *testing.T) {
	a, err := NewPeerID()
	require.NoError(t, err)
	b, err := NewPeerID()
	require.NoError(t, err)
	assert.NotEqual(t, a[8:], b[8:])
}

func TestOpenTorrentParsesFile(t *testing.T) {
	pieces := strings.Repeat("a", 20)
	content := "d8:announce20:http://tracker.test/4:infod6:lengthi16384e4:name4:test12:piece lengthi16384e6:pieces20:" + pieces + "ee"
	path := filepath.Join(t.TempDir(), "sample.torrent")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	to, err := OpenTorrent(path)
	require.NoError(t, err)
	assert.Equal(t, "http://tracker.test/", to.Announce)
	assert.Equal(t, uint32(16384), to.Info.Length)
}
