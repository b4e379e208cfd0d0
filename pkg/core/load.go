package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeydtaylor/steeze-iso/pkg/codec"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
)

// LoadConfig reads a manifest, TOML unless the file ends in .json, and
// validates it.
func LoadConfig(path string) (manifest.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return manifest.Config{}, err
	}
	return ParseConfig(b, filepath.Ext(path))
}

// ParseConfig decodes raw manifest bytes; ext selects the format.
func ParseConfig(b []byte, ext string) (manifest.Config, error) {
	var cfg manifest.Config
	if err := codec.ForExt(ext).Unmarshal(b, &cfg); err != nil {
		return manifest.Config{}, fmt.Errorf("manifest: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return manifest.Config{}, err
	}
	return cfg, nil
}
