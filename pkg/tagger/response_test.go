package tagger

import (
	"testing"

	"tiletagger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTileTags_StripsCodeFences(t *testing.T) {
	content := "```json\n{\"tiles\": [{\"tags\": [{\"category\": \"terrain\", \"subcategory\": \"ground\", \"confidence\": 0.7}]}]}\n```"

	results, err := ParseTileTags(content, 1, DefaultTaxonomy())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "terrain.ground", results[0][0].Key())
}

func TestParseTileTags_DropsUnknownTags(t *testing.T) {
	content := `{"tiles": [{"tags": [
		{"category": "terrain", "subcategory": "lava", "confidence": 0.9},
		{"category": "nonsense", "subcategory": "ground", "confidence": 0.9},
		{"category": "terrain", "subcategory": "water", "confidence": 0.6}
	]}]}`

	results, err := ParseTileTags(content, 1, DefaultTaxonomy())
	require.NoError(t, err, "unknown tags are dropped, not fatal")
	require.Len(t, results[0], 1)
	assert.Equal(t, "terrain.water", results[0][0].Key())
}

func TestParseTileTags_ClampsConfidence(t *testing.T) {
	content := `{"tiles": [{"tags": [
		{"category": "terrain", "subcategory": "water", "confidence": 1.7},
		{"category": "terrain", "subcategory": "ground", "confidence": -0.3}
	]}]}`

	results, err := ParseTileTags(content, 1, DefaultTaxonomy())
	require.NoError(t, err)
	require.Len(t, results[0], 2)
	assert.Equal(t, 1.0, results[0][0].Confidence)
	assert.Equal(t, 0.0, results[0][1].Confidence)
}

func TestParseTileTags_CountMismatch(t *testing.T) {
	content := `{"tiles": [{"tags": []}]}`

	_, err := ParseTileTags(content, 3, DefaultTaxonomy())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestParseLayoutGrid_Valid(t *testing.T) {
	known := map[string]bool{"terrain.water": true, "terrain.ground": true}
	content := `{"rows": [["terrain.water", "terrain.ground"], ["terrain.ground", "terrain.ground"]]}`

	rows, err := ParseLayoutGrid(content, 2, 2, known)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"terrain.water", "terrain.ground"},
		{"terrain.ground", "terrain.ground"},
	}, rows)
}

func TestParseLayoutGrid_WrongRowCount(t *testing.T) {
	known := map[string]bool{"terrain.water": true}
	content := `{"rows": [["terrain.water"]]}`

	_, err := ParseLayoutGrid(content, 1, 2, known)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGridShape)
}

func TestParseLayoutGrid_WrongRowWidth(t *testing.T) {
	known := map[string]bool{"terrain.water": true}
	content := `{"rows": [["terrain.water", "terrain.water"], ["terrain.water"]]}`

	_, err := ParseLayoutGrid(content, 2, 2, known)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrGridShape)
}

func TestParseLayoutGrid_UnknownLabel(t *testing.T) {
	known := map[string]bool{"terrain.water": true}
	content := `{"rows": [["terrain.magma"]]}`

	_, err := ParseLayoutGrid(content, 1, 1, known)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUnknownTagLabel)
}
