package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"gobit/client"
	"gobit/peerwire"
)

func newHandshakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "handshake <torrent-file> <peer-ip:port>",
		Short: "Perform a peer-wire handshake and print the peer's ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := client.OpenTorrent(args[0])
			if err != nil {
				return err
			}
			peerID, err := client.NewPeerID()
			if err != nil {
				return err
			}

			var d net.Dialer
			conn, err := d.DialContext(context.Background(), "tcp", args[1])
			if err != nil {
				return err
			}
			defer conn.Close()

			in, err := peerwire.Do(conn, t.InfoHash(), peerID)
			if err != nil {
				return err
			}
			fmt.Printf("Peer ID: %x\n", in.PeerID)
			return nil
		},
	}
}
