// Command gobit is a single-file BitTorrent download client: bencode
// inspection, tracker/peer protocol introspection, and piece/file
// download, for both .torrent files and magnet URIs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gobit/client"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:   "gobit",
		Short: "A single-file BitTorrent download client",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client.SetVerbose(verbose)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newDecodeCmd(),
		newInfoCmd(),
		newPeersCmd(),
		newHandshakeCmd(),
		newDownloadPieceCmd(),
		newDownloadCmd(),
		newMagnetParseCmd(),
		newMagnetHandshakeCmd(),
		newMagnetInfoCmd(),
		newMagnetDownloadPieceCmd(),
		newMagnetDownloadCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
