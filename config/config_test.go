package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(path, false)
	require.Error(t, err)
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	data := "source_dir: assets\noutput: build/db.json\nhash: crc32\nlegacy_vector: true\nworkers: 2\ninclude:\n  - \"**/*.controller\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "assets"), cfg.SourceDir)
	assert.Equal(t, filepath.Join(dir, "build", "db.json"), cfg.Output)
	assert.Equal(t, "crc32", cfg.Hash)
	assert.True(t, cfg.LegacyVector)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, []string{"**/*.controller"}, cfg.Include)
	require.NoError(t, cfg.Validate())
}

func TestLayering(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ANIMDB_WORKERS=3\nANIMDB_HASH=crc32\n"), 0o644))

	// Already-set variables win over the dotenv file.
	t.Setenv("ANIMDB_HASH", "xxh3")
	t.Setenv("ANIMDB_OUTPUT", "env.db.yaml")
	t.Setenv("ANIMDB_WORKERS", "")
	require.NoError(t, os.Unsetenv("ANIMDB_WORKERS"))

	require.NoError(t, LoadEnvFile(envFile))
	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "xxh3", cfg.Hash)
	assert.Equal(t, "env.db.yaml", cfg.Output)
	assert.Equal(t, 3, cfg.Workers)

	cfg.Resolve(Flags{Output: "flag.db.yaml", LegacyVector: true})
	assert.Equal(t, "flag.db.yaml", cfg.Output)
	assert.True(t, cfg.LegacyVector)
	assert.Equal(t, 3, cfg.Workers)
}

func TestApplyEnvRejectsBadValues(t *testing.T) {
	t.Setenv("ANIMDB_WORKERS", "many")
	cfg := Default()
	require.ErrorIs(t, cfg.ApplyEnv(), ErrInvalid)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown_hash", func(c *Config) { c.Hash = "md5" }},
		{"negative_workers", func(c *Config) { c.Workers = -1 }},
		{"empty_output", func(c *Config) { c.Output = "" }},
		{"empty_source", func(c *Config) { c.SourceDir = "" }},
		{"bad_pattern", func(c *Config) { c.Include = []string{"a/["} }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Default()
			c.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
	require.NoError(t, Default().Validate())
}
