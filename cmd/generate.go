package cmd

import (
	"fmt"

	"tiletagger/internal/models"
	"tiletagger/internal/tiled"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	generateWidth  int
	generateHeight int
	generateOutput string
)

// generateCmd builds a Tiled map from a natural-language description.
var generateCmd = &cobra.Command{
	Use:   "generate <tileset.tsj> <description>",
	Short: "Generate a Tiled map from a description",
	Long: `Asks the language model to lay out the tagged tiles of the tileset
according to the description, then writes the result as a Tiled map (.tmj).
The tileset must already carry tags; run 'analyze --apply' first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		ts, err := tiled.LoadTileset(args[0])
		if err != nil {
			return fmt.Errorf("failed to load tileset: %w", err)
		}

		m, err := appInstance.MapGenService.Generate(cmd.Context(), models.MapGenerationRequest{
			Description: args[1],
			Width:       generateWidth,
			Height:      generateHeight,
		}, ts, args[0])
		if err != nil {
			return fmt.Errorf("map generation failed: %w", err)
		}

		if err := m.Save(generateOutput); err != nil {
			return fmt.Errorf("failed to save map: %w", err)
		}
		fmt.Printf("%s: wrote %dx%d map to %s\n", color.GreenString("Done"), generateWidth, generateHeight, generateOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().IntVar(&generateWidth, "width", 16, "Map width in tiles")
	generateCmd.Flags().IntVar(&generateHeight, "height", 16, "Map height in tiles")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "generated.tmj", "Output map file")
}
