// Package settings loads optional defaults from .pairwise/settings.yaml in
// the working directory. The file supplies what a team would otherwise
// repeat on every invocation (generator path, tries, budgets, format);
// command-line flags always override it. A missing file is not an error,
// and a nil *Settings is safe to query.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds the optional defaults file.
type Settings struct {
	// PictPath overrides generator executable resolution.
	PictPath string `yaml:"pict_path"`

	// Generate defaults, applied before flag parsing.
	Tries           int     `yaml:"tries"`
	Seed            int     `yaml:"seed"`
	Format          string  `yaml:"format"`
	Ordering        string  `yaml:"ordering"`
	PictTimeoutSec  float64 `yaml:"pict_timeout_sec"`
	TotalTimeoutSec float64 `yaml:"total_timeout_sec"`
}

// Load reads .pairwise/settings.yaml relative to root. Returns nil (not an
// error) if the file does not exist.
func Load(root string) (*Settings, error) {
	path := filepath.Join(root, ".pairwise", "settings.yaml")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &s, nil
}

// TriesOr returns the configured tries, or fallback when unset. Safe on a
// nil receiver.
func (s *Settings) TriesOr(fallback int) int {
	if s == nil || s.Tries <= 0 {
		return fallback
	}
	return s.Tries
}

// FormatOr returns the configured output format, or fallback when unset.
func (s *Settings) FormatOr(fallback string) string {
	if s == nil || s.Format == "" {
		return fallback
	}
	return s.Format
}

// OrderingOr returns the configured ordering mode, or fallback when unset.
func (s *Settings) OrderingOr(fallback string) string {
	if s == nil || s.Ordering == "" {
		return fallback
	}
	return s.Ordering
}

// PictTimeoutOr returns the configured per-attempt budget in seconds, or
// fallback when unset.
func (s *Settings) PictTimeoutOr(fallback float64) float64 {
	if s == nil || s.PictTimeoutSec <= 0 {
		return fallback
	}
	return s.PictTimeoutSec
}

// TotalTimeoutOr returns the configured total budget in seconds, or
// fallback when unset.
func (s *Settings) TotalTimeoutOr(fallback float64) float64 {
	if s == nil || s.TotalTimeoutSec <= 0 {
		return fallback
	}
	return s.TotalTimeoutSec
}

// PictPathOr returns the configured generator path, or fallback when unset.
func (s *Settings) PictPathOr(fallback string) string {
	if s == nil || s.PictPath == "" {
		return fallback
	}
	return s.PictPath
}
