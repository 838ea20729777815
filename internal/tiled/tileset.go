// Package tiled reads and writes Tiled's JSON tileset (.tsj) and map (.tmj)
// formats, slices per-tile images out of a tileset's source image, and
// exposes each tile's property bag where tags are stored.
package tiled

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	_ "image/gif"
	_ "image/jpeg"
)

// Property is one entry in a Tiled property bag.
type Property struct {
	Name  string      `json:"name"`
	Type  string      `json:"type,omitempty"`
	Value interface{} `json:"value"`
}

// Tile is a single tile entry in a tileset. Tiled only writes entries for
// tiles that carry data; plain tiles are implicit.
type Tile struct {
	ID          int             `json:"id"`
	Type        string          `json:"type,omitempty"`
	Probability float64         `json:"probability,omitempty"`
	Properties  []Property      `json:"properties,omitempty"`
	Animation   json.RawMessage `json:"animation,omitempty"`
	ObjectGroup json.RawMessage `json:"objectgroup,omitempty"`
}

// Tileset models a Tiled JSON tileset backed by a single source image.
type Tileset struct {
	Type         string     `json:"type,omitempty"`
	Version      string     `json:"version,omitempty"`
	TiledVersion string     `json:"tiledversion,omitempty"`
	Name         string     `json:"name"`
	Image        string     `json:"image"`
	ImageWidth   int        `json:"imagewidth"`
	ImageHeight  int        `json:"imageheight"`
	TileWidth    int        `json:"tilewidth"`
	TileHeight   int        `json:"tileheight"`
	TileCount    int        `json:"tilecount"`
	Columns      int        `json:"columns"`
	Margin       int        `json:"margin"`
	Spacing      int        `json:"spacing"`
	Tiles        []Tile     `json:"tiles,omitempty"`
	Properties   []Property `json:"properties,omitempty"`

	// baseDir resolves the source image path; src caches the decoded image.
	baseDir string
	src     image.Image
}

// LoadTileset reads a Tiled JSON tileset from disk.
func LoadTileset(path string) (*Tileset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tileset file '%s': %w", path, err)
	}
	var ts Tileset
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("failed to parse tileset file '%s': %w", path, err)
	}
	if ts.Type != "" && ts.Type != "tileset" {
		return nil, fmt.Errorf("'%s' is a Tiled %s file, not a tileset", path, ts.Type)
	}
	if ts.TileWidth <= 0 || ts.TileHeight <= 0 {
		return nil, fmt.Errorf("tileset '%s' has invalid tile dimensions %dx%d", path, ts.TileWidth, ts.TileHeight)
	}
	ts.baseDir = filepath.Dir(path)
	return &ts, nil
}

// Save writes the tileset back to disk as Tiled-compatible JSON.
func (ts *Tileset) Save(path string) error {
	sort.Slice(ts.Tiles, func(i, j int) bool { return ts.Tiles[i].ID < ts.Tiles[j].ID })
	if ts.Type == "" {
		ts.Type = "tileset"
	}
	data, err := json.MarshalIndent(ts, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal tileset: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tileset file '%s': %w", path, err)
	}
	return nil
}

// columns returns the column count, deriving it from the image width when the
// file omits it.
func (ts *Tileset) columns() int {
	if ts.Columns > 0 {
		return ts.Columns
	}
	if ts.TileWidth+ts.Spacing > 0 {
		return (ts.ImageWidth - 2*ts.Margin + ts.Spacing) / (ts.TileWidth + ts.Spacing)
	}
	return 0
}

func (ts *Tileset) sourceImage() (image.Image, error) {
	if ts.src != nil {
		return ts.src, nil
	}
	if ts.Image == "" {
		return nil, fmt.Errorf("tileset '%s' has no source image", ts.Name)
	}
	imgPath := ts.Image
	if !filepath.IsAbs(imgPath) {
		imgPath = filepath.Join(ts.baseDir, imgPath)
	}
	f, err := os.Open(imgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open tileset image '%s': %w", imgPath, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tileset image '%s': %w", imgPath, err)
	}
	ts.src = img
	return img, nil
}

// TileImage slices the tile with the given ID out of the source image and
// returns it encoded as PNG. This is the payload sent to the vision API.
func (ts *Tileset) TileImage(id int) ([]byte, error) {
	if id < 0 || id >= ts.TileCount {
		return nil, fmt.Errorf("tile id %d out of range [0, %d)", id, ts.TileCount)
	}
	cols := ts.columns()
	if cols <= 0 {
		return nil, fmt.Errorf("tileset '%s' has no columns; cannot locate tile %d", ts.Name, id)
	}
	src, err := ts.sourceImage()
	if err != nil {
		return nil, err
	}

	col := id % cols
	row := id / cols
	x := ts.Margin + col*(ts.TileWidth+ts.Spacing)
	y := ts.Margin + row*(ts.TileHeight+ts.Spacing)

	bounds := src.Bounds()
	rect := image.Rect(bounds.Min.X+x, bounds.Min.Y+y, bounds.Min.X+x+ts.TileWidth, bounds.Min.Y+y+ts.TileHeight)
	if !rect.In(bounds) {
		return nil, fmt.Errorf("tile %d rect %v exceeds image bounds %v", id, rect, bounds)
	}

	out := image.NewRGBA(image.Rect(0, 0, ts.TileWidth, ts.TileHeight))
	draw.Draw(out, out.Bounds(), src, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode tile %d as PNG: %w", id, err)
	}
	return buf.Bytes(), nil
}

// TileImages returns the PNG bytes of every tile in grid order.
func (ts *Tileset) TileImages() ([][]byte, error) {
	images := make([][]byte, 0, ts.TileCount)
	for id := 0; id < ts.TileCount; id++ {
		img, err := ts.TileImage(id)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

// tileEntry returns the tile entry for id, or nil if the file has none.
func (ts *Tileset) tileEntry(id int) *Tile {
	for i := range ts.Tiles {
		if ts.Tiles[i].ID == id {
			return &ts.Tiles[i]
		}
	}
	return nil
}

// ensureTileEntry returns the tile entry for id, creating it if needed.
func (ts *Tileset) ensureTileEntry(id int) *Tile {
	if t := ts.tileEntry(id); t != nil {
		return t
	}
	ts.Tiles = append(ts.Tiles, Tile{ID: id})
	return &ts.Tiles[len(ts.Tiles)-1]
}
