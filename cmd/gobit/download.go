package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"gobit/client"
)

func newDownloadPieceCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download_piece <torrent-file> <piece-index>",
		Short: "Download a single piece of a torrent and write it to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid piece index %q: %w", args[1], err)
			}
			t, err := client.OpenTorrent(args[0])
			if err != nil {
				return err
			}
			peerID, err := client.NewPeerID()
			if err != nil {
				return err
			}
			ctx := context.Background()
			peers, err := client.DiscoverPeers(ctx, t, peerID)
			if err != nil {
				return err
			}
			data, err := client.DownloadPiece(ctx, t, peers, peerID, index)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output file: %w", err)
			}
			fmt.Printf("Piece %d downloaded to %s.\n", index, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file path")
	cmd.MarkFlagRequired("out")
	return cmd
}

func newDownloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <torrent-file>",
		Short: "Download an entire torrent and write it to a file",
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
			ctx := context.Background()
			peers, err := client.DiscoverPeers(ctx, t, peerID)
			if err != nil {
				return err
			}
			data, err := client.DownloadFile(ctx, t, peers, peerID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output file: %w", err)
			}
			fmt.Printf("Downloaded %s to %s.\n", args[0], output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file path")
	cmd.MarkFlagRequired("out")
	return cmd
}
