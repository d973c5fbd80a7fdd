package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gobit/client"
)

func newPeersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peers <torrent-file>",
		Short: "Announce to a torrent's tracker and print the peers it returns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := client.OpenTorrent(args[0])
			if err != nil {
				return err
			}
			peerID, err := client.NewPeerID()
			if err != nil {
				return err
			}
			peers, err := client.DiscoverPeers(context.Background(), t, peerID)
			if err != nil {
				return err
			}
			header := color.New(color.FgGreen, color.Bold).SprintFunc()
			fmt.Println(header(fmt.Sprintf("%d peers:", len(peers))))
			for _, p := range peers {
				fmt.Println(p.String())
			}
			return nil
		},
	}
}
