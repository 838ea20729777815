package cmd

import (
	"fmt"
	"strconv"

	"tiletagger/internal/tiled"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var similarMinConfidence float64

// similarCmd finds tiles whose stored tags overlap a reference tile's.
var similarCmd = &cobra.Command{
	Use:   "similar <tileset.tsj> <tile-id>",
	Short: "Find tiles similar to a reference tile",
	Long: `Compares the stored tags of the reference tile against every other tagged
tile. Two tiles match when they share a tag with both confidences at or above
the minimum.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		tileID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid tile ID %q: %w", args[1], err)
		}

		ts, err := tiled.LoadTileset(args[0])
		if err != nil {
			return fmt.Errorf("failed to load tileset: %w", err)
		}

		minConfidence := similarMinConfidence
		if !cmd.Flags().Changed("min-confidence") {
			minConfidence = appInstance.Config.Similarity.MinConfidence
		}

		similar, err := appInstance.AnalysisService.FindSimilarTiles(ts, tileID, minConfidence)
		if err != nil {
			return fmt.Errorf("similarity search failed: %w", err)
		}

		if len(similar) == 0 {
			fmt.Printf("No tiles similar to tile %d at min confidence %.2f.\n", tileID, minConfidence)
			return nil
		}
		fmt.Printf("Tiles similar to %s (min confidence %.2f):\n", color.CyanString("tile %d", tileID), minConfidence)
		for _, id := range similar {
			tags, _ := ts.TileTags(id)
			fmt.Printf("  tile %d (%d shared-category tags stored)\n", id, len(tags))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().Float64Var(&similarMinConfidence, "min-confidence", 0.7, "Minimum confidence for both sides of a tag match")
}
