package tiled

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"tiletagger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tileColor gives each tile of the test atlas a distinct color so slices can
// be verified.
func tileColor(id int) color.RGBA {
	return color.RGBA{R: uint8(10 * (id + 1)), G: uint8(20 * (id + 1)), B: uint8(5 * (id + 1)), A: 255}
}

// writeTestTileset writes a 2x2 atlas of 4x4 tiles plus its .tsj to dir and
// returns the tileset path.
func writeTestTileset(t *testing.T, dir string, margin, spacing int) string {
	t.Helper()

	const tileSize, cols, rows = 4, 2, 2
	imgW := 2*margin + cols*tileSize + (cols-1)*spacing
	imgH := 2*margin + rows*tileSize + (rows-1)*spacing

	atlas := image.NewRGBA(image.Rect(0, 0, imgW, imgH))
	for id := 0; id < cols*rows; id++ {
		col, row := id%cols, id/cols
		x0 := margin + col*(tileSize+spacing)
		y0 := margin + row*(tileSize+spacing)
		for y := y0; y < y0+tileSize; y++ {
			for x := x0; x < x0+tileSize; x++ {
				atlas.Set(x, y, tileColor(id))
			}
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, atlas))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "atlas.png"), buf.Bytes(), 0644))

	ts := Tileset{
		Type:        "tileset",
		Name:        "test",
		Image:       "atlas.png",
		ImageWidth:  imgW,
		ImageHeight: imgH,
		TileWidth:   tileSize,
		TileHeight:  tileSize,
		TileCount:   cols * rows,
		Columns:     cols,
		Margin:      margin,
		Spacing:     spacing,
	}
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	path := filepath.Join(dir, "test.tsj")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func decodeTile(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestLoadTileset_RejectsNonTilesets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.tmj")
	require.NoError(t, os.WriteFile(path, []byte(`{"type": "map", "tilewidth": 16, "tileheight": 16}`), 0644))

	_, err := LoadTileset(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a tileset")
}

func TestTileImage_SlicesCorrectTile(t *testing.T) {
	path := writeTestTileset(t, t.TempDir(), 0, 0)
	ts, err := LoadTileset(path)
	require.NoError(t, err)

	for id := 0; id < ts.TileCount; id++ {
		data, err := ts.TileImage(id)
		require.NoError(t, err)

		img := decodeTile(t, data)
		assert.Equal(t, ts.TileWidth, img.Bounds().Dx())
		assert.Equal(t, ts.TileHeight, img.Bounds().Dy())

		want := tileColor(id)
		got := color.RGBAModel.Convert(img.At(1, 1)).(color.RGBA)
		assert.Equal(t, want, got, "tile %d should carry its own color", id)
	}
}

func TestTileImage_MarginAndSpacing(t *testing.T) {
	path := writeTestTileset(t, t.TempDir(), 2, 1)
	ts, err := LoadTileset(path)
	require.NoError(t, err)

	data, err := ts.TileImage(3)
	require.NoError(t, err)
	img := decodeTile(t, data)
	got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA)
	assert.Equal(t, tileColor(3), got)
}

func TestTileImage_OutOfRange(t *testing.T) {
	path := writeTestTileset(t, t.TempDir(), 0, 0)
	ts, err := LoadTileset(path)
	require.NoError(t, err)

	_, err = ts.TileImage(4)
	require.Error(t, err)
	_, err = ts.TileImage(-1)
	require.Error(t, err)
}

func TestTileImages_ReturnsAllInOrder(t *testing.T) {
	path := writeTestTileset(t, t.TempDir(), 0, 0)
	ts, err := LoadTileset(path)
	require.NoError(t, err)

	images, err := ts.TileImages()
	require.NoError(t, err)
	require.Len(t, images, 4)
	for id, data := range images {
		img := decodeTile(t, data)
		got := color.RGBAModel.Convert(img.At(1, 1)).(color.RGBA)
		assert.Equal(t, tileColor(id), got)
	}
}

func TestTileTags_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeTestTileset(t, dir, 0, 0)
	ts, err := LoadTileset(path)
	require.NoError(t, err)

	tags := []models.Tag{
		{Category: "terrain", Subcategory: "water", Confidence: 0.9},
		{Category: "visual", Subcategory: "dark", Confidence: 0.6},
	}
	require.NoError(t, ts.SetTileTags(2, tags))
	require.NoError(t, ts.Save(path))

	reloaded, err := LoadTileset(path)
	require.NoError(t, err)
	got, err := reloaded.TileTags(2)
	require.NoError(t, err)
	assert.Equal(t, tags, got)

	// Untagged tiles stay empty.
	none, err := reloaded.TileTags(0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetTileTags_EmptyRemovesProperty(t *testing.T) {
	ts := &Tileset{TileWidth: 4, TileHeight: 4, TileCount: 4}
	require.NoError(t, ts.SetTileTags(1, []models.Tag{{Category: "terrain", Subcategory: "water", Confidence: 0.9}}))

	require.NoError(t, ts.SetTileTags(1, nil))
	tags, err := ts.TileTags(1)
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.Empty(t, ts.Tiles[0].Properties)
}

func TestSetTileTags_PreservesOtherProperties(t *testing.T) {
	ts := &Tileset{
		TileWidth: 4, TileHeight: 4, TileCount: 4,
		Tiles: []Tile{{ID: 0, Properties: []Property{{Name: "solid", Type: "bool", Value: true}}}},
	}
	require.NoError(t, ts.SetTileTags(0, []models.Tag{{Category: "terrain", Subcategory: "wall", Confidence: 0.8}}))

	require.Len(t, ts.Tiles[0].Properties, 2)
	assert.Equal(t, "solid", ts.Tiles[0].Properties[0].Name)

	require.NoError(t, ts.SetTileTags(0, nil))
	require.Len(t, ts.Tiles[0].Properties, 1)
	assert.Equal(t, "solid", ts.Tiles[0].Properties[0].Name)
}

func TestAllTileTags(t *testing.T) {
	ts := &Tileset{TileWidth: 4, TileHeight: 4, TileCount: 9}
	require.NoError(t, ts.SetTileTags(1, []models.Tag{{Category: "terrain", Subcategory: "water", Confidence: 0.9}}))
	require.NoError(t, ts.SetTileTags(5, []models.Tag{{Category: "object", Subcategory: "tree", Confidence: 0.7}}))

	tagged, err := ts.AllTileTags()
	require.NoError(t, err)
	require.Len(t, tagged, 2)
	assert.Equal(t, "terrain.water", tagged[1][0].Key())
	assert.Equal(t, "object.tree", tagged[5][0].Key())
}

func TestApplyAnalyses(t *testing.T) {
	ts := &Tileset{TileWidth: 4, TileHeight: 4, TileCount: 4}
	results := []models.TileAnalysis{
		{TileID: 0, Tags: []models.Tag{{Category: "terrain", Subcategory: "ground", Confidence: 0.8}}},
		{TileID: 3, Tags: nil},
	}
	require.NoError(t, ts.ApplyAnalyses(results))

	tagged, err := ts.AllTileTags()
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Contains(t, tagged, 0)
}
