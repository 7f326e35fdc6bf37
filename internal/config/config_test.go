package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mahdiidarabi/blind-rsa/internal/logging"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(configDirPathEnv, t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", logging.NewLogger("test"))
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.KeyBits)
	assert.Equal(t, 16, cfg.KeyGenAttempts)
	assert.Equal(t, 64, cfg.BlindingAttempts)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "owner_vault.db", cfg.DatabasePath)
	assert.Equal(t, "signer_journal.db", cfg.JournalPath)
	assert.Empty(t, cfg.MetricsFile)
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("BLINDSIG_KEY_BITS", "2048")
	t.Setenv("BLINDSIG_WORKERS", "4")

	cfg, err := Load("", logging.NewLogger("test"))
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.KeyBits)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirPathEnv, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BLINDSIG_BLINDING_ATTEMPTS=7\n"), 0o600))
	// godotenv does not override variables that are already set; make sure it is unset
	// and restored afterwards.
	t.Setenv("BLINDSIG_BLINDING_ATTEMPTS", "")
	require.NoError(t, os.Unsetenv("BLINDSIG_BLINDING_ATTEMPTS"))

	cfg, err := Load("", logging.NewLogger("test"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BlindingAttempts)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "blindsig.yaml")
	require.NoError(t, os.WriteFile(path, []byte("key_bits: 768\nlog_level: debug\ndata_dir: /var/lib/blindsig\n"), 0o600))

	cfg, err := Load(path, logging.NewLogger("test"))
	require.NoError(t, err)
	assert.Equal(t, 768, cfg.KeyBits)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/blindsig", cfg.DataDir)
	assert.Equal(t, 64, cfg.BlindingAttempts)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"odd key size", "BLINDSIG_KEY_BITS", "1025"},
		{"small key", "BLINDSIG_KEY_BITS", "256"},
		{"no attempts", "BLINDSIG_BLINDING_ATTEMPTS", "0"},
		{"bad level", "BLINDSIG_LOG_LEVEL", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load("", logging.NewLogger("test"))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), logging.NewLogger("test"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	cfg := &Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "vault.db"), cfg.ResolvePath("vault.db"))
	assert.Equal(t, "/abs/vault.db", cfg.ResolvePath("/abs/vault.db"))
	assert.Equal(t, "", cfg.ResolvePath(""))
}

func TestDump(t *testing.T) {
	cfg := &Config{KeyBits: 1024, KeyGenAttempts: 16, BlindingAttempts: 64, DataDir: ".", LogLevel: "info"}

	var buf bytes.Buffer
	require.NoError(t, cfg.Dump(&buf))

	var back Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, *cfg, back)
	assert.Contains(t, buf.String(), "key_bits: 1024")
}
