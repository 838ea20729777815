package tagger

import "tiletagger/internal/models"

// FindSimilarTags returns the indices of targets sharing at least one tag
// with the source, where both sides hold that tag at or above minConfidence.
// A plain linear scan; tag lists are tiny.
func FindSimilarTags(source []models.Tag, targets [][]models.Tag, minConfidence float64) []int {
	var highConfSource []models.Tag
	for _, tag := range source {
		if tag.Confidence >= minConfidence {
			highConfSource = append(highConfSource, tag)
		}
	}
	if len(highConfSource) == 0 {
		return nil
	}

	var similar []int
	for idx, target := range targets {
		if matchesAny(highConfSource, target, minConfidence) {
			similar = append(similar, idx)
		}
	}
	return similar
}

func matchesAny(source, target []models.Tag, minConfidence float64) bool {
	for _, s := range source {
		for _, t := range target {
			if t.Category == s.Category && t.Subcategory == s.Subcategory && t.Confidence >= minConfidence {
				return true
			}
		}
	}
	return false
}
