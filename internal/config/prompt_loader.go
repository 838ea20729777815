package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// defaultPromptDir is the subdirectory within the user's home directory.
const defaultPromptDir = ".config/tiletagger/prompts"

// LoadPromptContent resolves a prompt template setting. A value containing a
// newline or template placeholder is treated as the template itself; an
// absolute path is read directly; anything else is treated as a filename
// within ~/.config/tiletagger/prompts/. An empty value with an empty
// defaultFilename returns "" so callers fall back to their built-in template.
func LoadPromptContent(configured, defaultFilename string) (string, error) {
	if strings.Contains(configured, "\n") || strings.Contains(configured, "{{") {
		return configured, nil
	}
	if configured == "" && defaultFilename == "" {
		return "", nil
	}

	finalPath := configured
	if !filepath.IsAbs(configured) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		filename := configured
		if filename == "" {
			filename = defaultFilename
		}
		finalPath = filepath.Join(homeDir, defaultPromptDir, filename)
	}

	promptBytes, err := os.ReadFile(finalPath)
	if err != nil {
		if os.IsNotExist(err) && !filepath.IsAbs(configured) {
			return "", fmt.Errorf("prompt file not found at '%s'; create it or set an absolute path in config.yaml: %w", finalPath, err)
		}
		return "", fmt.Errorf("failed to read prompt file '%s': %w", finalPath, err)
	}
	return string(promptBytes), nil
}
