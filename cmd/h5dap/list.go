package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5dap/storage/h5file"
)

func newListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list FILE",
		Short: "List the groups, datasets and attributes of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, g, args[0], func(s *session) error {
				w := cmd.OutOrStdout()
				return s.file.Walk(func(e h5file.Entry) error {
					kind := "group"
					if e.Dataset {
						kind = "dataset"
					}
					line := fmt.Sprintf("%-8s %s", kind, e.Path)
					if len(e.Attrs) > 0 {
						line += "  @" + strings.Join(e.Attrs, ",@")
					}
					_, err := fmt.Fprintln(w, line)
					return err
				})
			})
		},
	}
}
