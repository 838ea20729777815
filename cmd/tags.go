package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"tiletagger/internal/tiled"

	"github.com/spf13/cobra"
)

// tagsCmd shows the stored tags of one tile or the whole tileset.
var tagsCmd = &cobra.Command{
	Use:   "tags <tileset.tsj> [tile-id]",
	Short: "Show tags stored in a tileset",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := tiled.LoadTileset(args[0])
		if err != nil {
			return fmt.Errorf("failed to load tileset: %w", err)
		}

		if len(args) == 2 {
			tileID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid tile ID %q: %w", args[1], err)
			}
			tags, err := ts.TileTags(tileID)
			if err != nil {
				return fmt.Errorf("failed to read tags: %w", err)
			}
			if len(tags) == 0 {
				fmt.Printf("Tile %d has no stored tags.\n", tileID)
				return nil
			}
			for _, tag := range tags {
				fmt.Printf("%s (%.2f)\n", tag.Key(), tag.Confidence)
			}
			return nil
		}

		tagged, err := ts.AllTileTags()
		if err != nil {
			return fmt.Errorf("failed to read tags: %w", err)
		}
		if len(tagged) == 0 {
			fmt.Println("No tiles in this tileset carry stored tags.")
			return nil
		}
		ids := make([]int, 0, len(tagged))
		for id := range tagged {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Printf("Tile %d:\n", id)
			for _, tag := range tagged[id] {
				fmt.Printf("  %s (%.2f)\n", tag.Key(), tag.Confidence)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
}
