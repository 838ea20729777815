package cmd

import (
	"encoding/json"
	"fmt"

	"tiletagger/internal/app"
	"tiletagger/internal/tiled"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	analyzeTileID int
	analyzeApply  bool
	analyzeQueue  bool
	analyzeJSON   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <tileset.tsj>",
	Short: "Analyze a tileset (or one tile) with the vision model",
	Long: `Slices the tileset image into tiles, sends them to the configured vision
provider in batches, and prints the tags that clear the confidence threshold.
Use --apply to write the tags back into the tileset file, --queue to run the
analysis as a background job instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		path := args[0]

		if analyzeQueue {
			if analyzeTileID >= 0 {
				return fmt.Errorf("--tile cannot be combined with --queue")
			}
			jobID, err := appInstance.JobClient.EnqueueTilesetAnalysis(cmd.Context(), path, analyzeApply)
			if err != nil {
				return fmt.Errorf("failed to enqueue analysis: %w", err)
			}
			fmt.Printf("Enqueued analysis job %s\n", color.CyanString(jobID.String()))
			fmt.Println("Track it with: tiletagger jobs")
			return nil
		}

		ts, err := tiled.LoadTileset(path)
		if err != nil {
			return fmt.Errorf("failed to load tileset: %w", err)
		}

		if analyzeTileID >= 0 {
			return analyzeSingleTile(cmd, appInstance, ts, path)
		}

		progress := func(processed, total int) {
			fmt.Printf("\rAnalyzed %d/%d tiles", processed, total)
		}
		results, err := appInstance.AnalysisService.AnalyzeTileset(cmd.Context(), ts, progress, nil)
		fmt.Println()
		if err != nil {
			return fmt.Errorf("analysis failed: %w", err)
		}

		if analyzeJSON {
			out, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		} else {
			tagged := 0
			for _, r := range results {
				if len(r.Tags) == 0 {
					continue
				}
				tagged++
				fmt.Printf("Tile %d:\n", r.TileID)
				for _, tag := range r.Tags {
					fmt.Printf("  %s (%.2f)\n", tag.Key(), tag.Confidence)
				}
			}
			fmt.Printf("%s: %d of %d tiles received tags\n", color.GreenString("Done"), tagged, len(results))
		}

		if analyzeApply {
			if err := ts.ApplyAnalyses(results); err != nil {
				return fmt.Errorf("failed to apply tags: %w", err)
			}
			if err := ts.Save(path); err != nil {
				return fmt.Errorf("failed to save tileset: %w", err)
			}
			fmt.Printf("Tags written to %s\n", path)
		}
		return nil
	},
}

func analyzeSingleTile(cmd *cobra.Command, appInstance *app.App, ts *tiled.Tileset, path string) error {
	png, err := ts.TileImage(analyzeTileID)
	if err != nil {
		return fmt.Errorf("tile %d: %w", analyzeTileID, err)
	}
	tags, err := appInstance.AnalysisService.AnalyzeImage(cmd.Context(), png)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if len(tags) == 0 {
		fmt.Printf("Tile %d: no tags above the confidence threshold\n", analyzeTileID)
	} else {
		fmt.Printf("Tile %d:\n", analyzeTileID)
		for _, tag := range tags {
			fmt.Printf("  %s (%.2f)\n", tag.Key(), tag.Confidence)
		}
	}

	if analyzeApply {
		if err := ts.SetTileTags(analyzeTileID, tags); err != nil {
			return fmt.Errorf("failed to set tags: %w", err)
		}
		if err := ts.Save(path); err != nil {
			return fmt.Errorf("failed to save tileset: %w", err)
		}
		fmt.Printf("Tags written to %s\n", path)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().IntVar(&analyzeTileID, "tile", -1, "Analyze a single tile ID instead of the whole tileset")
	analyzeCmd.Flags().BoolVar(&analyzeApply, "apply", false, "Write the resulting tags back into the tileset file")
	analyzeCmd.Flags().BoolVar(&analyzeQueue, "queue", false, "Run the analysis as a background job via the worker")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print results as JSON")
}
