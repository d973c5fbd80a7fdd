package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gobit/client"
	"gobit/metainfo"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <torrent-file>",
		Short: "Print a .torrent file's tracker URL, length, info hash, and piece hashes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := client.OpenTorrent(args[0])
			if err != nil {
				return err
			}
			hash := t.InfoHash()
			printInfo(t.Announce, t.Info, hash)
			return nil
		},
	}
}

func printInfo(announce string, info metainfo.Info, hash [20]byte) {
	label := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Printf("%s %s\n", label("Tracker URL:"), announce)
	fmt.Printf("%s %d\n", label("Length:"), info.Length)
	fmt.Printf("%s %x\n", label("Info Hash:"), hash)
	fmt.Printf("%s %d\n", label("Piece Length:"), info.PieceLength)
	fmt.Println(label("Piece Hashes:"))
	for _, p := range info.Pieces {
		fmt.Printf("%x\n", p)
	}
}
