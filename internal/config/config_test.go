package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_MatchesSpecValues(t *testing.T) {
	cfg := Defaults()
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 20, cfg.Telemetry.BatchSize)
	assert.Equal(t, "auto", cfg.Retrieval.DefaultMode)
	assert.Equal(t, 1.5, cfg.Retrieval.BM25.K1)
	assert.Equal(t, 0.75, cfg.Retrieval.BM25.B)
	assert.True(t, cfg.Redaction.Entropy.Enabled)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_FileOverlayOverridesDefaultsForGivenKeysOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"telemetry":{"batch_size":50}}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Telemetry.BatchSize)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "auto", cfg.Retrieval.DefaultMode)
}

func TestLoad_MalformedFileReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not valid json`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"telemetry":{"batch_size":50}}`), 0o644))

	t.Setenv("RECALL_TELEMETRY_BATCH_SIZE", "99")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 99, cfg.Telemetry.BatchSize)
}

func TestLoad_BooleanEnvAcceptsTrueOneYesCaseInsensitive(t *testing.T) {
	for _, raw := range []string{"true", "TRUE", "1", "yes", "YES"} {
		t.Setenv("RECALL_TELEMETRY_ENABLED", raw)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.Enabled, "raw=%q", raw)
	}
}

func TestLoad_BooleanEnvRejectsAnythingElse(t *testing.T) {
	t.Setenv("RECALL_TELEMETRY_ENABLED", "nope")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_MalformedEnvIntLeavesPreviousValueUnchanged(t *testing.T) {
	t.Setenv("RECALL_TELEMETRY_BATCH_SIZE", "not-a-number")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Telemetry.BatchSize, cfg.Telemetry.BatchSize)
}

func TestGet_ResolvesDottedKey(t *testing.T) {
	cfg := Defaults()
	v, ok := cfg.Get("telemetry.batch_size")
	require.True(t, ok)
	assert.Equal(t, float64(20), v)
}

func TestGet_UnknownKeyIsNotFound(t *testing.T) {
	cfg := Defaults()
	_, ok := cfg.Get("telemetry.nonexistent")
	assert.False(t, ok)
}

func TestGetBool_AbsentKeyFailsClosed(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.GetBool("nonexistent.flag"))
}

func TestGetBool_PresentKeyReturnsValue(t *testing.T) {
	cfg := Defaults()
	assert.True(t, cfg.GetBool("telemetry.enabled"))
}

func TestGetString_ResolvesNestedDottedKey(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "auto", cfg.GetString("retrieval.default_mode"))
}

func TestGetFloat_ResolvesDoublyNestedDottedKey(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 0.5, cfg.GetFloat("retrieval.hybrid.bm25_weight"))
}
