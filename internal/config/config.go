// Package config loads javadiff's YAML configuration document: the ignore
// tokens applied to a comparison, the preferred digest algorithm for
// manifest verification, and the rename-similarity threshold for
// distribution comparisons. There is no environment-variable discovery or
// layered override system — a caller either loads an explicit file or
// takes Default().
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/obriencj-go/javadiff/internal/diffengine"
	"github.com/obriencj-go/javadiff/internal/manifest"
)

// Config is the top-level configuration document.
type Config struct {
	// Ignore lists the diffengine ignore tokens active by default.
	Ignore []string `yaml:"ignore"`

	// ShowIgnored keeps ignored-but-unchanged nodes in the rendered delta
	// tree instead of pruning them.
	ShowIgnored bool `yaml:"show_ignored"`

	// DigestAlgorithm selects the preferred manifest digest algorithm, one
	// of manifest.DigestAlgorithms.
	DigestAlgorithm string `yaml:"digest_algorithm"`

	// RenameSimilarity configures the distribution comparator's optional
	// SimHash-based rename-detection pass.
	RenameSimilarity RenameSimilarityConfig `yaml:"rename_similarity"`
}

// RenameSimilarityConfig configures cache.SetRenameSimilarity.
type RenameSimilarityConfig struct {
	Enabled   bool `yaml:"enabled"`
	Threshold int  `yaml:"threshold"`
}

// Default returns the configuration used when no file is loaded: every
// diffengine ignore token active, ignored nodes pruned, SHA-256 digests,
// rename-similarity disabled.
func Default() *Config {
	return &Config{
		Ignore:          append([]string{}, diffengine.DefaultTokens...),
		ShowIgnored:     false,
		DigestAlgorithm: "SHA-256",
		RenameSimilarity: RenameSimilarityConfig{
			Enabled:   false,
			Threshold: 8,
		},
	}
}

// LoadFile reads and parses a YAML config document at path, merging it onto
// Default() so that a partial file only overrides the fields it sets.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML config document, merging it onto Default().
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the digest algorithm against the known registry; ignore
// tokens are deliberately not validated here, matching
// diffengine.IgnorePolicy's own open vocabulary.
func (c *Config) Validate() error {
	for _, algo := range manifest.DigestAlgorithms {
		if algo == c.DigestAlgorithm {
			return nil
		}
	}
	return fmt.Errorf("config: unknown digest_algorithm %q, want one of %v", c.DigestAlgorithm, manifest.DigestAlgorithms)
}

// IgnorePolicy builds a diffengine.IgnorePolicy from the configured tokens.
func (c *Config) IgnorePolicy() *diffengine.IgnorePolicy {
	return diffengine.NewIgnorePolicy(c.Ignore...)
}
