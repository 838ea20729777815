package tiled

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMap(t *testing.T) {
	m := NewMap(3, 2, 16, 16, "tiles.tsj")

	assert.Equal(t, "map", m.Type)
	require.Len(t, m.Layers, 1)
	assert.Equal(t, 3, m.Layers[0].Width)
	assert.Equal(t, 2, m.Layers[0].Height)
	assert.Len(t, m.Layers[0].Data, 6)
	require.Len(t, m.Tilesets, 1)
	assert.Equal(t, 1, m.Tilesets[0].FirstGID)
	assert.Equal(t, "tiles.tsj", m.Tilesets[0].Source)
}

func TestSetLayerData_MapsTileIDsToGIDs(t *testing.T) {
	m := NewMap(2, 2, 16, 16, "tiles.tsj")

	require.NoError(t, m.SetLayerData([]int{0, 3, -1, 1}))
	assert.Equal(t, []int{1, 4, 0, 2}, m.Layers[0].Data, "tile IDs are offset by firstgid; -1 becomes the empty GID")
}

func TestSetLayerData_WrongSize(t *testing.T) {
	m := NewMap(2, 2, 16, 16, "tiles.tsj")
	err := m.SetLayerData([]int{0, 1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 cells, want 4")
}

func TestMap_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	m := NewMap(2, 1, 8, 8, "tiles.tsj")
	require.NoError(t, m.SetLayerData([]int{2, -1}))

	path := filepath.Join(dir, "out.tmj")
	require.NoError(t, m.Save(path))
	assert.FileExists(t, path)
}
