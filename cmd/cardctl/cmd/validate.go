package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cardami/internal/catalog"
)

var imagesDir string

var validateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a catalog file",
	Long: `Validate checks that every card has a unique id, an image reference and a
unique display order. With --images the referenced image files must also exist.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := pathArg(args)
		defs, err := readDefinitions(path)
		if err != nil {
			return err
		}

		problems := catalog.Validate(defs)
		var warnings []string
		if imagesDir != "" {
			for _, d := range defs {
				rel := strings.TrimPrefix(d.ImageRef, "/")
				if _, err := os.Stat(filepath.Join(imagesDir, rel)); err != nil {
					problems = append(problems, fmt.Sprintf("card %s: image %s not found", d.ID, d.ImageRef))
				}
			}
		}
		if len(defs) < 3 {
			warnings = append(warnings, fmt.Sprintf("catalog has %d cards, fewer than a full draw", len(defs)))
		}

		out := cmd.OutOrStdout()
		if len(problems) > 0 {
			printf(out, "%s %s has %d problems:\n", color.RedString("✗"), label(path), len(problems))
			for i, p := range problems {
				printf(out, "%d. %s\n", i+1, p)
			}
			return fmt.Errorf("validation failed")
		}
		printf(out, "%s %s is valid (%d cards)\n", color.GreenString("✓"), label(path), len(defs))
		for _, w := range warnings {
			printf(out, "%s %s\n", color.YellowString("!"), w)
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&imagesDir, "images", "", "directory the image references resolve against")
}
