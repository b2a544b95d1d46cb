package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newDescribeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "describe FILE PATH",
		Short: "Print the type, shape and storage size of a variable",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, args[0], func(s *session) error {
				req := s.reader.NewRequest(cmd.Context())
				defer req.Close()

				desc, err := req.Describe(args[1])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "path:    %s\n", desc.Path)
				fmt.Fprintf(w, "type:    %s\n", desc.Type)
				if len(desc.Dims) == 0 {
					fmt.Fprintln(w, "shape:   scalar")
				} else {
					fmt.Fprintf(w, "shape:   %v\n", desc.Dims)
				}
				_, err = fmt.Fprintf(w, "storage: %s\n", humanize.IBytes(desc.StorageSize))
				return err
			})
		},
	}
}
