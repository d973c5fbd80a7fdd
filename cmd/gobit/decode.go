package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"gobit/bencode"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <bencoded-value>",
		Short: "Decode a bencoded value and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := bencode.DecodeAll([]byte(args[0]))
			if err != nil {
				return err
			}
			out, err := json.Marshal(v.ToJSON())
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
