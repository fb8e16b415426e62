package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/treecol/treecol/column"
	"github.com/treecol/treecol/source"
)

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <file>",
		Short: "list the streamer records and columns a file carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := source.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer src.Close()
			im, err := column.OpenImage(cmd.Context(), src)
			if err != nil {
				return err
			}
			for _, name := range im.Registry.Names() {
				info, err := im.Registry.Resolve(name, -1)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "class %s version %d\n", info.Name, info.Version)
				for _, e := range info.Elements {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-20s %s\n", e.Name, e.TypeName)
				}
			}
			for _, name := range im.Columns() {
				col, err := im.Column(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "column %s type %s entries %d baskets %d\n",
					col.Name, col.TypeName, col.Entries, len(col.Baskets))
			}
			return nil
		},
	}
}
