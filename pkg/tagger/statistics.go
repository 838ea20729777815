package tagger

import "tiletagger/internal/models"

// CalculateStatistics aggregates tag usage across tiles: for each
// "category.subcategory" label, how many tiles carry it and at what average
// confidence.
func CalculateStatistics(tagsByTile map[int][]models.Tag) map[string]models.TagStatistics {
	type acc struct {
		count int
		total float64
	}
	accs := make(map[string]*acc)

	for _, tags := range tagsByTile {
		for _, tag := range tags {
			key := tag.Key()
			a, ok := accs[key]
			if !ok {
				a = &acc{}
				accs[key] = a
			}
			a.count++
			a.total += tag.Confidence
		}
	}

	stats := make(map[string]models.TagStatistics, len(accs))
	for key, a := range accs {
		stats[key] = models.TagStatistics{
			TileCount:     a.count,
			AvgConfidence: a.total / float64(a.count),
		}
	}
	return stats
}
