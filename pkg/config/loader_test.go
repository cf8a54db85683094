package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DBTypeMemory, cfg.Engine.DBType)
	assert.Equal(t, time.Duration(0), cfg.Engine.TTLDuration)
	assert.False(t, cfg.Engine.LowDataMode)
	assert.Equal(t, "convoengine.db", cfg.SQLite.Path)
	assert.Equal(t, 1*time.Hour, cfg.Retention.CleanupInterval)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_DB_TYPE", "sqlite")
	t.Setenv("TTL_DURATION", "30")
	t.Setenv("LOW_DATA_MODE", "true")
	t.Setenv("DEBUG", "true")
	t.Setenv("SQLITE_PATH", "/tmp/custom.db")
	t.Setenv("POSTGRESQL_HOST", "db.internal")
	t.Setenv("POSTGRESQL_PORT", "6543")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DBTypeSQLite, cfg.Engine.DBType)
	assert.Equal(t, 30*24*time.Hour, cfg.Engine.TTLDuration)
	assert.True(t, cfg.Engine.LowDataMode)
	assert.True(t, cfg.Engine.Debug)
	assert.Equal(t, "/tmp/custom.db", cfg.SQLite.Path)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 6543, cfg.Postgres.Port)
}

func TestLoadRejectsInvalidDBType(t *testing.T) {
	t.Setenv("ENGINE_DB_TYPE", "oracle")

	_, err := Load()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ENGINE_DB_TYPE", verr.Field)
}

func TestLoadRejectsMalformedTTLDuration(t *testing.T) {
	t.Setenv("TTL_DURATION", "not-a-number")

	_, err := Load()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "TTL_DURATION", verr.Field)
}

func TestLoadRejectsMalformedLowDataMode(t *testing.T) {
	t.Setenv("LOW_DATA_MODE", "sorta")

	_, err := Load()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "LOW_DATA_MODE", verr.Field)
}

func TestMergeTOMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "operator.toml")
	contents := `
[sqlite]
path = "/var/lib/convoengine/operator.db"

[retention]
batch_size = 100
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg := Defaults()
	require.NoError(t, MergeTOML(cfg, path))

	assert.Equal(t, "/var/lib/convoengine/operator.db", cfg.SQLite.Path)
	assert.Equal(t, 100, cfg.Retention.BatchSize)
	// Values absent from the file keep their prior defaults.
	assert.Equal(t, 1*time.Hour, cfg.Retention.CleanupInterval)
}

func TestMergeTOMLExpandsEnvBeforeDecoding(t *testing.T) {
	t.Setenv("OPERATOR_DB_PASSWORD", "s3cr3t")

	dir := t.TempDir()
	path := filepath.Join(dir, "operator.toml")
	contents := `
[postgres]
password = "${OPERATOR_DB_PASSWORD}"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg := Defaults()
	require.NoError(t, MergeTOML(cfg, path))

	assert.Equal(t, "s3cr3t", cfg.Postgres.Password)
}

func TestMergeTOMLMissingFile(t *testing.T) {
	cfg := Defaults()
	err := MergeTOML(cfg, filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestMergeTOMLInvalidSyntax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not [valid toml"), 0o600))

	cfg := Defaults()
	err := MergeTOML(cfg, path)
	require.Error(t, err)
}
