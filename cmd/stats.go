package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"tiletagger/internal/clix"
	"tiletagger/internal/tiled"
	"tiletagger/pkg/tagger"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// statsCmd aggregates the stored tags of a tileset.
var statsCmd = &cobra.Command{
	Use:   "stats <tileset.tsj>",
	Short: "Show tag statistics for a tileset",
	Long:  `Aggregates the tags stored in a tileset: how many tiles carry each tag and the average confidence per tag.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := tiled.LoadTileset(args[0])
		if err != nil {
			return fmt.Errorf("failed to load tileset: %w", err)
		}
		tagged, err := ts.AllTileTags()
		if err != nil {
			return fmt.Errorf("failed to read stored tags: %w", err)
		}
		if len(tagged) == 0 {
			fmt.Println("No tiles in this tileset carry stored tags. Run 'tiletagger analyze --apply' first.")
			return nil
		}

		categories, err := clix.ParseCategories(cmd.Flags())
		if err != nil {
			return fmt.Errorf("invalid category flag: %w", err)
		}

		stats := tagger.CalculateStatistics(tagged)
		keys := make([]string, 0, len(stats))
		for key := range stats {
			if len(categories) > 0 && !matchesCategory(key, categories) {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Tag", "Tiles", "Avg Confidence"})
		table.SetBorder(false)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)

		for _, key := range keys {
			s := stats[key]
			table.Append([]string{
				key,
				strconv.Itoa(s.TileCount),
				fmt.Sprintf("%.2f", s.AvgConfidence),
			})
		}
		table.Render()

		fmt.Printf("\n%d of %d tiles tagged\n", len(tagged), ts.TileCount)
		return nil
	},
}

// matchesCategory reports whether a "category.subcategory" key belongs to one
// of the requested categories.
func matchesCategory(key string, categories []string) bool {
	category, _, _ := strings.Cut(key, ".")
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("category", "", "Comma-separated list of categories to include (default all)")
}
