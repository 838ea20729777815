package tagger

import (
	"math"

	"tiletagger/internal/models"
)

// FilterTags keeps the tags scoring strictly above threshold. If nothing
// passes but the best tag still scores above half the threshold, that single
// best tag is kept, so a tile the model was lukewarm about is not left
// unlabeled.
func FilterTags(tags []models.Tag, threshold float64) []models.Tag {
	var kept []models.Tag
	bestIdx := -1
	for i, tag := range tags {
		if tag.Confidence > threshold {
			kept = append(kept, tag)
		}
		if bestIdx < 0 || tag.Confidence > tags[bestIdx].Confidence {
			bestIdx = i
		}
	}
	if len(kept) == 0 && bestIdx >= 0 && tags[bestIdx].Confidence > threshold/2 {
		kept = append(kept, tags[bestIdx])
	}
	return kept
}

// AdaptiveThreshold raises the base threshold to mean+stddev of the
// confidence distribution, clamped to [base, 0.8]. With a confident model a
// higher bar trims the noise tags; with a hesitant one it degrades to base.
func AdaptiveThreshold(tags []models.Tag, base float64) float64 {
	if len(tags) == 0 {
		return base
	}
	var sum float64
	for _, tag := range tags {
		sum += tag.Confidence
	}
	mean := sum / float64(len(tags))

	var varSum float64
	for _, tag := range tags {
		varSum += (tag.Confidence - mean) * (tag.Confidence - mean)
	}
	std := math.Sqrt(varSum / float64(len(tags)))

	threshold := mean + std
	if threshold < base {
		threshold = base
	}
	if threshold > 0.8 {
		threshold = 0.8
	}
	return threshold
}
