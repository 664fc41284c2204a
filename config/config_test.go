package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	assert.Equal(t, ";", c.Delimiter)
	assert.Equal(t, FieldsByName, c.SchemaCompat)
	assert.Equal(t, "2006-01-02", c.DateFormat)
	assert.Equal(t, "2006-01-02 15:04:05", c.DateTimeFormat)
	assert.Equal(t, "info", c.Logging.Level)
	assert.NotNil(t, c.Location())
}

func TestResolveTimeZone(t *testing.T) {
	c := &Config{TimeZone: "America/New_York"}
	require.NoError(t, c.Resolve())
	assert.Equal(t, "America/New_York", c.Location().String())

	bad := &Config{TimeZone: "Nowhere/Special"}
	assert.Error(t, bad.Resolve())
}

func TestParseSchemaCompatibilityMode(t *testing.T) {
	mode, err := ParseSchemaCompatibilityMode("")
	require.NoError(t, err)
	assert.Equal(t, FieldsByName, mode)

	mode, err = ParseSchemaCompatibilityMode("label")
	require.NoError(t, err)
	assert.Equal(t, FieldsByLabel, mode)

	_, err = ParseSchemaCompatibilityMode("display")
	assert.Error(t, err)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldsync.yaml")
	content := `
delimiter: "|"
schema_compat: label
time_zone: UTC
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "|", c.Delimiter)
	assert.Equal(t, FieldsByLabel, c.SchemaCompat)
	assert.Equal(t, "UTC", c.Location().String())
	assert.Equal(t, "debug", c.Logging.Level)
	// Untouched settings still get defaults.
	assert.Equal(t, "2006-01-02", c.DateFormat)
}

func TestLoadYAMLRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema_compat: nope\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FIELDSYNC_DELIMITER", ",")
	t.Setenv("FIELDSYNC_SCHEMA_COMPAT", "label")
	t.Setenv("FIELDSYNC_TIME_ZONE", "UTC")
	t.Setenv("FIELDSYNC_LOG_LEVEL", "warn")

	c, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, ",", c.Delimiter)
	assert.Equal(t, FieldsByLabel, c.SchemaCompat)
	assert.Equal(t, "UTC", c.Location().String())
	assert.Equal(t, "warn", c.Logging.Level)
}
