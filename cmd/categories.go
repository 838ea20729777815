package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// categoriesCmd prints the tag taxonomy the vision model chooses from.
var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the tag taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}

		for _, category := range appInstance.Taxonomy.Categories() {
			fmt.Println(color.CyanString(category))
			fmt.Printf("  %s\n", strings.Join(appInstance.Taxonomy[category], ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
