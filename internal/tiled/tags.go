package tiled

import (
	"encoding/json"
	"fmt"

	"tiletagger/internal/models"
)

// PropertyAITags is the tile property key the tags live under. The value is
// the tag list serialized as JSON, matching what the editor plugin reads.
const PropertyAITags = "ai_tags"

// TileTags reads the stored tags for a tile. Tiles without the property
// return (nil, nil).
func (ts *Tileset) TileTags(id int) ([]models.Tag, error) {
	t := ts.tileEntry(id)
	if t == nil {
		return nil, nil
	}
	for _, p := range t.Properties {
		if p.Name != PropertyAITags {
			continue
		}
		raw, ok := p.Value.(string)
		if !ok {
			return nil, fmt.Errorf("tile %d property %q is not a string", id, PropertyAITags)
		}
		if raw == "" {
			return nil, nil
		}
		var tags []models.Tag
		if err := json.Unmarshal([]byte(raw), &tags); err != nil {
			return nil, fmt.Errorf("tile %d has corrupt %q property: %w", id, PropertyAITags, err)
		}
		return tags, nil
	}
	return nil, nil
}

// SetTileTags serializes tags into the tile's property bag, replacing any
// previous value. An empty tag list removes the property.
func (ts *Tileset) SetTileTags(id int, tags []models.Tag) error {
	if id < 0 || (ts.TileCount > 0 && id >= ts.TileCount) {
		return fmt.Errorf("tile id %d out of range [0, %d)", id, ts.TileCount)
	}

	if len(tags) == 0 {
		t := ts.tileEntry(id)
		if t == nil {
			return nil
		}
		props := t.Properties[:0]
		for _, p := range t.Properties {
			if p.Name != PropertyAITags {
				props = append(props, p)
			}
		}
		t.Properties = props
		return nil
	}

	raw, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to serialize tags for tile %d: %w", id, err)
	}

	t := ts.ensureTileEntry(id)
	for i := range t.Properties {
		if t.Properties[i].Name == PropertyAITags {
			t.Properties[i].Value = string(raw)
			t.Properties[i].Type = "string"
			return nil
		}
	}
	t.Properties = append(t.Properties, Property{
		Name:  PropertyAITags,
		Type:  "string",
		Value: string(raw),
	})
	return nil
}

// AllTileTags returns the stored tags for every tagged tile, keyed by tile ID.
func (ts *Tileset) AllTileTags() (map[int][]models.Tag, error) {
	result := make(map[int][]models.Tag)
	for _, t := range ts.Tiles {
		tags, err := ts.TileTags(t.ID)
		if err != nil {
			return nil, err
		}
		if len(tags) > 0 {
			result[t.ID] = tags
		}
	}
	return result, nil
}

// ApplyAnalyses writes a batch of analysis results into the property bags.
func (ts *Tileset) ApplyAnalyses(results []models.TileAnalysis) error {
	for _, r := range results {
		if err := ts.SetTileTags(r.TileID, r.Tags); err != nil {
			return err
		}
	}
	return nil
}
