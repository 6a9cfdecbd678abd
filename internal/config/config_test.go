package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.NotEmpty(t, cfg.Ignore)
	require.False(t, cfg.ShowIgnored)
	require.False(t, cfg.RenameSimilarity.Enabled)
}

func TestParseMergesOntoDefaults(t *testing.T) {
	doc := []byte(`
digest_algorithm: SHA3-256
rename_similarity:
  enabled: true
  threshold: 4
`)
	cfg, err := Parse(doc)
	require.NoError(t, err)
	require.Equal(t, "SHA3-256", cfg.DigestAlgorithm)
	require.True(t, cfg.RenameSimilarity.Enabled)
	require.Equal(t, 4, cfg.RenameSimilarity.Threshold)
	// Untouched fields keep their default values.
	require.NotEmpty(t, cfg.Ignore)
}

func TestParseRejectsUnknownDigestAlgorithm(t *testing.T) {
	_, err := Parse([]byte("digest_algorithm: MD17\n"))
	require.Error(t, err)
}

func TestIgnorePolicyReflectsConfiguredTokens(t *testing.T) {
	cfg, err := Parse([]byte("ignore:\n  - pool\n  - lines\n"))
	require.NoError(t, err)
	pol := cfg.IgnorePolicy()
	_, hasPool := pol.Tokens["pool"]
	_, hasLines := pol.Tokens["lines"]
	_, hasSig := pol.Tokens["jar_signature"]
	require.True(t, hasPool)
	require.True(t, hasLines)
	require.False(t, hasSig)
}
