package tagger

import (
	"encoding/json"
	"fmt"

	"tiletagger/internal/models"

	log "github.com/sirupsen/logrus"
)

// ParseTileTags parses a model's tagging reply and validates it against the
// request: the reply must carry exactly count tile entries, and every tag
// must come from the taxonomy. Unknown tags are dropped with a warning
// rather than failing the whole batch; a wrong entry count is an error so
// the caller can retry.
func ParseTileTags(content string, count int, taxonomy Taxonomy) ([][]models.Tag, error) {
	content = StripCodeFences(content)

	var parsed struct {
		Tiles []struct {
			Tags []models.Tag `json:"tags"`
		} `json:"tiles"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w\nResponse content: %s", err, content)
	}

	if len(parsed.Tiles) != count {
		return nil, fmt.Errorf("%w: model returned %d tile entries, want %d", models.ErrValidation, len(parsed.Tiles), count)
	}

	results := make([][]models.Tag, count)
	for i, tile := range parsed.Tiles {
		var tags []models.Tag
		for _, tag := range tile.Tags {
			if !taxonomy.Validate(tag.Category, tag.Subcategory) {
				log.Warnf("Dropping unknown tag %q for tile entry %d", tag.Key(), i)
				continue
			}
			if tag.Confidence < 0 {
				tag.Confidence = 0
			}
			if tag.Confidence > 1 {
				tag.Confidence = 1
			}
			tags = append(tags, tag)
		}
		results[i] = tags
	}
	return results, nil
}

// ParseLayoutGrid parses a model's map layout reply and validates its shape:
// exactly height rows of width labels, every label known to the palette.
// Shape and label violations are errors so the generator can retry.
func ParseLayoutGrid(content string, width, height int, known map[string]bool) ([][]string, error) {
	content = StripCodeFences(content)

	var parsed struct {
		Rows [][]string `json:"rows"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w\nResponse content: %s", err, content)
	}

	if len(parsed.Rows) != height {
		return nil, fmt.Errorf("%w: got %d rows, want %d", models.ErrGridShape, len(parsed.Rows), height)
	}
	for y, row := range parsed.Rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", models.ErrGridShape, y, len(row), width)
		}
		for x, label := range row {
			if !known[label] {
				return nil, fmt.Errorf("%w: %q at (%d,%d)", models.ErrUnknownTagLabel, label, x, y)
			}
		}
	}
	return parsed.Rows, nil
}
