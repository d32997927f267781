// Package config holds the normalization limits supplied by the host. Every
// field is required; the pipeline assumes no defaults of its own.
package config

import (
	"errors"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// Settings bundles all numeric limits for one render invocation. It is
// read-only once constructed and passed by value into every stage that
// needs it.
type Settings struct {
	MaxRowsPerTable       int `yaml:"maxRowsPerTable" json:"maxRowsPerTable"`
	MaxColumnsPerTable    int `yaml:"maxColumnsPerTable" json:"maxColumnsPerTable"`
	MaxBytesPerValue      int `yaml:"maxBytesPerValue" json:"maxBytesPerValue"`
	MaxBytesTextData      int `yaml:"maxBytesTextData" json:"maxBytesTextData"`
	MaxBytesPerColumnName int `yaml:"maxBytesPerColumnName" json:"maxBytesPerColumnName"`
	MaxCSVBytes           int `yaml:"maxCSVBytes" json:"maxCSVBytes"`

	// Dictionary-encoding heuristics: a text column is dictionary-encoded
	// only when its distinct-value payload fits MaxDictionaryBytes and the
	// plain payload is at least MinDictionaryCompressionRatio times larger.
	MaxDictionaryBytes            int     `yaml:"maxDictionaryBytes" json:"maxDictionaryBytes"`
	MinDictionaryCompressionRatio float64 `yaml:"minDictionaryCompressionRatio" json:"minDictionaryCompressionRatio"`
}

// Default returns the limits the CLI uses when no settings file is given.
func Default() Settings {
	return Settings{
		MaxRowsPerTable:               1_000_000,
		MaxColumnsPerTable:            500,
		MaxBytesPerValue:              32 * 1024,
		MaxBytesTextData:              100 * 1024 * 1024,
		MaxBytesPerColumnName:         120,
		MaxCSVBytes:                   2 * 1024 * 1024 * 1024,
		MaxDictionaryBytes:            1024 * 1024,
		MinDictionaryCompressionRatio: 2.0,
	}
}

// Validate checks every limit is positive. The core never fills gaps.
func (s Settings) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"maxRowsPerTable", s.MaxRowsPerTable > 0},
		{"maxColumnsPerTable", s.MaxColumnsPerTable > 0},
		{"maxBytesPerValue", s.MaxBytesPerValue > 0},
		{"maxBytesTextData", s.MaxBytesTextData > 0},
		{"maxBytesPerColumnName", s.MaxBytesPerColumnName > 0},
		{"maxCSVBytes", s.MaxCSVBytes > 0},
		{"maxDictionaryBytes", s.MaxDictionaryBytes > 0},
		{"minDictionaryCompressionRatio", s.MinDictionaryCompressionRatio > 0},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("settings: %s must be positive", c.name)
		}
	}
	return nil
}

// Load reads Settings from a YAML file. Missing fields fail Validate rather
// than being silently defaulted.
func Load(path string) (Settings, error) {
	var s Settings
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// ErrNotFound distinguishes a missing settings file for callers that want
// to fall back to Default.
var ErrNotFound = errors.New("settings file not found")

// LoadOrDefault loads path when non-empty, otherwise returns Default.
func LoadOrDefault(path string) (Settings, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Settings{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return Load(path)
}
