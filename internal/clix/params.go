package clix

import (
	"strings"

	"github.com/spf13/pflag"
)

type PaginationParams struct {
	Limit  int
	Offset int
}

func ParsePagination(flags *pflag.FlagSet) (PaginationParams, error) {
	limit, _ := flags.GetInt("limit")
	offset, _ := flags.GetInt("offset")
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return PaginationParams{Limit: limit, Offset: offset}, nil
}

// ParseCategories reads the comma-separated --category flag, trimming space
// and dropping empty entries.
func ParseCategories(flags *pflag.FlagSet) ([]string, error) {
	raw, _ := flags.GetString("category")
	var categories []string
	if raw != "" {
		for _, c := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(c)
			if trimmed != "" {
				categories = append(categories, trimmed)
			}
		}
	}
	return categories, nil
}
