package cmd

import (
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cardami/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List catalog cards in display order",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := readDefinitions(pathArg(args))
		if err != nil {
			return err
		}
		cat, err := catalog.New(defs)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		printf(tw, "%s\t%s\t%s\n", color.New(color.Bold).Sprint("ORDER"), color.New(color.Bold).Sprint("ID"), color.New(color.Bold).Sprint("IMAGE"))
		for _, c := range cat.Cards() {
			printf(tw, "%d\t%s\t%s\n", c.DisplayOrder, color.CyanString(c.ID), c.ImageRef)
		}
		return tw.Flush()
	},
}
