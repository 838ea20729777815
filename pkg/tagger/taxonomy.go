package tagger

import "sort"

// Taxonomy is the fixed set of tag categories and subcategories the model is
// allowed to use. Anything outside it is dropped during validation.
type Taxonomy map[string][]string

// DefaultTaxonomy returns the base categories that can apply to any tile.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		// Terrain types
		"terrain": {
			"ground", "water", "vegetation", "mountain", "road",
			"wall", "floor", "ceiling", "platform",
		},
		// Material types
		"material": {
			"dirt", "grass", "stone", "wood", "metal", "sand",
			"snow", "ice", "crystal", "brick", "concrete",
		},
		// Object types
		"object": {
			"tree", "rock", "bush", "flower", "building", "decoration",
			"furniture", "container", "door", "window", "fence",
		},
		// Visual characteristics
		"visual": {
			"light", "dark", "colorful", "plain", "detailed", "simple",
			"natural", "artificial", "damaged", "pristine",
		},
		// Gameplay attributes
		"attribute": {
			"solid", "walkable", "climbable", "dangerous", "interactive",
			"collectible", "decorative", "animated",
		},
	}
}

// TagList returns the flattened, sorted "category.subcategory" labels.
func (tx Taxonomy) TagList() []string {
	var tags []string
	for category, subcategories := range tx {
		for _, sub := range subcategories {
			tags = append(tags, category+"."+sub)
		}
	}
	sort.Strings(tags)
	return tags
}

// Validate reports whether a category/subcategory pair is in the taxonomy.
func (tx Taxonomy) Validate(category, subcategory string) bool {
	subs, ok := tx[category]
	if !ok {
		return false
	}
	for _, s := range subs {
		if s == subcategory {
			return true
		}
	}
	return false
}

// Categories returns the category names in sorted order.
func (tx Taxonomy) Categories() []string {
	names := make([]string, 0, len(tx))
	for name := range tx {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
