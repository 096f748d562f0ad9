package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/taffy-bridge/pkg/protocol"
)

func newComputeCmd(a *app) *cobra.Command {
	var (
		format     string
		pretty     bool
		width      float32
		height     float32
		charWidth  float32
		lineHeight float32
	)

	cmd := &cobra.Command{
		Use:   "compute <tree-file|->",
		Short: "Lay out a tree document and print the geometry as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			f := protocol.Format(format)
			if f == "" {
				f = protocol.FormatFromPath(args[0])
			}
			doc, err := protocol.ParseDocument(data, f)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("width") {
				doc.Available.Width = width
			}
			if cmd.Flags().Changed("height") {
				doc.Available.Height = height
			}

			m, release, err := a.openModule(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			result, err := protocol.Compute(m, doc, protocol.MonospaceMeasure(charWidth, lineHeight))
			if err != nil {
				return err
			}
			a.logger.Debug("Document computed",
				zap.String("input", args[0]),
				zap.Int("nodes", m.Len()),
			)

			out, err := protocol.Marshal(result, pretty)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&format, "format", "f", "", "input format: json or yaml (default: by extension)")
	flags.BoolVarP(&pretty, "pretty", "p", false, "indent the output")
	flags.Float32Var(&width, "width", 0, "override the available width")
	flags.Float32Var(&height, "height", 0, "override the available height")
	flags.Float32Var(&charWidth, "char-width", 8, "glyph width for text leaves")
	flags.Float32Var(&lineHeight, "line-height", 16, "line height for text leaves")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
