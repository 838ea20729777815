package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptContent_InlineTemplate(t *testing.T) {
	inline := "Label the tiles.\nUse {{TAGS}}."
	got, err := LoadPromptContent(inline, "tagging.txt")
	require.NoError(t, err)
	assert.Equal(t, inline, got)

	// A single line with a placeholder is also inline.
	got, err = LoadPromptContent("use {{COUNT}} tiles", "tagging.txt")
	require.NoError(t, err)
	assert.Equal(t, "use {{COUNT}} tiles", got)
}

func TestLoadPromptContent_Empty(t *testing.T) {
	got, err := LoadPromptContent("", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadPromptContent_AbsolutePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0644))

	got, err := LoadPromptContent(path, "tagging.txt")
	require.NoError(t, err)
	assert.Equal(t, "from file", got)
}

func TestLoadPromptContent_MissingAbsolutePath(t *testing.T) {
	_, err := LoadPromptContent(filepath.Join(t.TempDir(), "nope.txt"), "")
	require.Error(t, err)
}
