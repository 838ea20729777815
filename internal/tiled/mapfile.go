package tiled

import (
	"encoding/json"
	"fmt"
	"os"
)

// TileLayer is a finite orthogonal tile layer. Data holds one GID per cell
// in row-major order; GID 0 is the empty cell.
type TileLayer struct {
	Type    string  `json:"type"`
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Data    []int   `json:"data"`
	Opacity float64 `json:"opacity"`
	Visible bool    `json:"visible"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
}

// TilesetRef points a map at an external tileset file.
type TilesetRef struct {
	FirstGID int    `json:"firstgid"`
	Source   string `json:"source"`
}

// Map is a minimal Tiled JSON map: one tile layer over one external tileset,
// which is all the layout generator produces.
type Map struct {
	Type         string       `json:"type"`
	Version      string       `json:"version"`
	Orientation  string       `json:"orientation"`
	RenderOrder  string       `json:"renderorder"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	TileWidth    int          `json:"tilewidth"`
	TileHeight   int          `json:"tileheight"`
	Infinite     bool         `json:"infinite"`
	Layers       []TileLayer  `json:"layers"`
	Tilesets     []TilesetRef `json:"tilesets"`
	NextLayerID  int          `json:"nextlayerid"`
	NextObjectID int          `json:"nextobjectid"`
}

// NewMap builds an empty WxH map referencing the given tileset file.
func NewMap(width, height, tileWidth, tileHeight int, tilesetSource string) *Map {
	return &Map{
		Type:        "map",
		Version:     "1.10",
		Orientation: "orthogonal",
		RenderOrder: "right-down",
		Width:       width,
		Height:      height,
		TileWidth:   tileWidth,
		TileHeight:  tileHeight,
		Layers: []TileLayer{{
			Type:    "tilelayer",
			ID:      1,
			Name:    "Ground",
			Width:   width,
			Height:  height,
			Data:    make([]int, width*height),
			Opacity: 1,
			Visible: true,
		}},
		Tilesets:     []TilesetRef{{FirstGID: 1, Source: tilesetSource}},
		NextLayerID:  2,
		NextObjectID: 1,
	}
}

// SetLayerData fills the map's single layer from a row-major grid of tile
// IDs (not GIDs; -1 marks an empty cell).
func (m *Map) SetLayerData(tileIDs []int) error {
	layer := &m.Layers[0]
	if len(tileIDs) != layer.Width*layer.Height {
		return fmt.Errorf("layer data has %d cells, want %d", len(tileIDs), layer.Width*layer.Height)
	}
	firstGID := m.Tilesets[0].FirstGID
	for i, id := range tileIDs {
		if id < 0 {
			layer.Data[i] = 0
			continue
		}
		layer.Data[i] = firstGID + id
	}
	return nil
}

// Save writes the map to disk as Tiled-compatible JSON.
func (m *Map) Save(path string) error {
	data, err := json.MarshalIndent(m, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write map file '%s': %w", path, err)
	}
	return nil
}
