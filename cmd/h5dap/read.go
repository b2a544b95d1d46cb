package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-h5dap/hyperslab"
	"github.com/robert-malhotra/go-h5dap/value"
)

func newReadCmd(g *globalFlags) *cobra.Command {
	var (
		slab   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "read FILE PATH",
		Short: "Read a variable, optionally restricted to a hyperslab",
		Long: `Read decodes the variable at PATH. A path of the form object@name
reads an attribute. --slab takes a DAP array constraint such as
"[0:2:9][4]".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var specs []hyperslab.Spec
			if slab != "" {
				var err error
				if specs, err = hyperslab.Parse(slab); err != nil {
					return err
				}
			}
			return withSession(cmd, g, args[0], func(s *session) error {
				v, err := s.reader.Read(cmd.Context(), args[1], specs)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(value.Interface(v))
				}
				return value.Format(cmd.OutOrStdout(), v)
			})
		},
	}
	cmd.Flags().StringVar(&slab, "slab", "", "hyperslab constraint")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the value as JSON")
	return cmd
}
