package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/woxQAQ/taffy-bridge/internal/style"
	"github.com/woxQAQ/taffy-bridge/pkg/protocol"
)

func newStyleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "style <descriptor-file|->",
		Short: "Validate a style descriptor and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			var desc style.Descriptor
			if protocol.FormatFromPath(args[0]) == protocol.FormatYAML {
				desc, err = style.ParseYAML(data)
			} else {
				desc, err = style.ParseJSON(data)
			}
			if err != nil {
				return err
			}

			s, err := style.Encode(desc)
			if err != nil {
				return err
			}
			out, err := style.MarshalJSON(s)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
