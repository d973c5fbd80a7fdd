package metainfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTorrentBytes() string {
	pieces := strings.Repeat("a", 20) + strings.Repeat("b", 20)
	return "d8:announce20:http://tracker.test/4:infod" +
		"6:lengthi65536e4:name4:test12:piece lengthi32768e6:pieces40:" + pieces +
		"ee"
}

func TestParseValidTorrent(t *testing.T) {
	to, err := Parse(strings.NewReader(sampleTorrentBytes()))
	require.NoError(t, err)
	assert.Equal(t, "http://tracker.test/", to.Announce)
	assert.Equal(t, uint32(65536), to.Info.Length)
	assert.Equal(t, "test", to.Info.Name)
	assert.Equal(t, 2, to.Info.PieceCount())
}

func TestParseRejectsMissingAnnounce(t *testing.T) {
	_, err := Parse(strings.NewReader("d4:infod6:lengthi1e4:name1:a12:piece lengthi1e6:pieces20:" + strings.Repeat("a", 20) + "ee"))
	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "announce", fe.Field)
}

func TestTorrentSatisfiesTorrentable(t *testing.T) {
	to, err := Parse(strings.NewReader(sampleTorrentBytes()))
	require.NoError(t, err)
	assert.Equal(t, to.Announce, to.AnnounceURL())
	assert.Equal(t, to.Info.Length, to.Left())
	assert.NotEqual(t, [20]byte{}, to.InfoHash())
}
