package mcp

import (
	"fmt"
	"path/filepath"
	"strings"
)

// validateDescriptorPath accepts .cue and .json files, or directories,
// below the working directory.
func validateDescriptorPath(path string) error {
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "." || clean == "" {
		return fmt.Errorf("invalid path")
	}
	if filepath.IsAbs(clean) {
		return fmt.Errorf("path must be relative to the workspace")
	}
	if strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return fmt.Errorf("path escapes workspace")
	}
	switch filepath.Ext(clean) {
	case ".cue", ".json", "":
		return nil
	}
	return fmt.Errorf("path must be a .cue or .json descriptor")
}
