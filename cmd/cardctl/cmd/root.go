package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"cardami/internal/catalog"
	"cardami/internal/models"
)

// RootCmd is the cardctl entry point.
var RootCmd = &cobra.Command{
	Use:   "cardctl",
	Short: "Inspect and validate Cardami card catalogs",
	Long: `cardctl checks catalog files before they are deployed with CATALOG_PATH
and lists the cards a catalog deals from. Without a path the built-in catalog is used.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(listCmd)
}

// readDefinitions decodes the catalog at path, or the built-in one when path is empty.
func readDefinitions(path string) ([]models.CardDefinition, error) {
	if path == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, err
		}
		return cat.Cards(), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog file not found: %w", err)
	}
	defer fh.Close()
	return catalog.DecodeDefinitions(fh)
}

func pathArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func label(path string) string {
	if path == "" {
		return "built-in catalog"
	}
	return path
}

func printf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
