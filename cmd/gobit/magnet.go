package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"gobit/client"
	"gobit/magnet"
	"gobit/metainfo"
	"gobit/peerwire"
)

func newMagnetParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "magnet_parse <magnet-uri>",
		Short: "Parse a magnet link and print its tracker URL and info hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := magnet.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Tracker URL: %s\n", m.Tracker)
			fmt.Printf("Info Hash: %x\n", m.Hash)
			return nil
		},
	}
}

func newMagnetHandshakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "magnet_handshake <magnet-uri>",
		Short: "Discover a peer for a magnet link, handshake, and print extension support",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := magnet.Parse(args[0])
			if err != nil {
				return err
			}
			peerID, err := client.NewPeerID()
			if err != nil {
				return err
			}
			ctx := context.Background()
			peers, err := client.DiscoverPeers(ctx, m, peerID)
			if err != nil {
				return err
			}
			if len(peers) == 0 {
				return fmt.Errorf("no peers returned by tracker")
			}

			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", peers[0].String())
			if err != nil {
				return err
			}
			defer conn.Close()

			in, err := peerwire.Do(conn, m.Hash, peerID)
			if err != nil {
				return err
			}
			fmt.Printf("Peer ID: %x\n", in.PeerID)

			if in.SupportsExtension {
				peerMetadataID, _, err := magnet.ExtensionHandshake(conn)
				if err != nil {
					return err
				}
				fmt.Printf("Peer Metadata Extension ID: %d\n", peerMetadataID)
			}
			return nil
		},
	}
}

func newMagnetInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "magnet_info <magnet-uri>",
		Short: "Recover a magnet link's info dictionary and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, info, err := resolveMagnetInfo(args[0])
			if err != nil {
				return err
			}
			printInfo(m.Tracker, *info, info.Hash())
			return nil
		},
	}
}

func newMagnetDownloadPieceCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "magnet_download_piece <magnet-uri> <piece-index>",
		Short: "Download a single piece of a magnet's torrent and write it to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid piece index %q: %w", args[1], err)
			}
			ctx := context.Background()
			peerID, err := client.NewPeerID()
			if err != nil {
				return err
			}
			m, peers, info, err := client.ResolveMagnet(ctx, args[0], peerID)
			if err != nil {
				return err
			}
			t := &metainfo.Torrent{Announce: m.Tracker, Info: *info}
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

func newMagnetDownloadCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "magnet_download <magnet-uri>",
		Short: "Download an entire magnet's torrent and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			peerID, err := client.NewPeerID()
			if err != nil {
				return err
			}
			m, peers, info, err := client.ResolveMagnet(ctx, args[0], peerID)
			if err != nil {
				return err
			}
			t := &metainfo.Torrent{Announce: m.Tracker, Info: *info}
			data, err := client.DownloadFile(ctx, t, peers, peerID)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write output file: %w", err)
			}
			fmt.Printf("Downloaded magnet link to %s.\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "", "output file path")
	cmd.MarkFlagRequired("out")
	return cmd
}

func resolveMagnetInfo(uri string) (*magnet.Magnet, *metainfo.Info, error) {
	peerID, err := client.NewPeerID()
	if err != nil {
		return nil, nil, err
	}
	m, _, info, err := client.ResolveMagnet(context.Background(), uri, peerID)
	if err != nil {
		return nil, nil, err
	}
	return m, info, nil
}
