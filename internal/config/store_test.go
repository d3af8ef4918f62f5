package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettingsIni(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	require.NoError(t, err)
	assert.Equal(t, "webcam", store.Current().Camera.DefaultCameraType)
	assert.Equal(t, 10, store.Current().Sensor.BufferFPS)
}

func TestLoad_ReadsOverrides(t *testing.T) {
	path := writeSettingsIni(t, "[camera]\ndefault_camera_type = industrial\n\n[logging]\nlog_level = DEBUG\n")
	store, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "industrial", store.Current().Camera.DefaultCameraType)
	assert.Equal(t, "DEBUG", store.Current().Logging.LogLevel)
}

func TestUpdate_RejectsInvalidAndLeavesCurrentUntouched(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)
	before := store.Current()

	bad := *before
	bad.Logging.LogLevel = "TRACE"
	violations := store.Update(&bad)
	assert.NotEmpty(t, violations)
	assert.Same(t, before, store.Current())
}

func TestUpdate_AcceptsValidAndSwapsAtomically(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	require.NoError(t, err)

	next := *store.Current()
	next.Camera.DefaultCameraType = "industrial"
	violations := store.Update(&next)
	assert.Empty(t, violations)
	assert.Equal(t, "industrial", store.Current().Camera.DefaultCameraType)
}
