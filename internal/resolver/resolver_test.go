package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupInspectionDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dateDir := filepath.Join(dir, "20260115")
	require.NoError(t, os.MkdirAll(dateDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dateDir, "frame001_640x480.bmp"), []byte("x"), 0o644))

	nested := filepath.Join(dir, "20260116", "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "frame002_640x480.bmp"), []byte("y"), 0o644))
	return dir
}

func TestResolve(t *testing.T) {
	dir := setupInspectionDir(t)

	cases := []struct {
		name    string
		path    string
		wantHit string
	}{
		{
			name:    "direct relative path under inspection dir",
			path:    "20260115/frame001_640x480.bmp",
			wantHit: filepath.Join(dir, "20260115", "frame001_640x480.bmp"),
		},
		{
			name:    "inspection-prefixed path",
			path:    "images/inspection/20260115/frame001_640x480.bmp",
			wantHit: filepath.Join(dir, "20260115", "frame001_640x480.bmp"),
		},
		{
			name:    "duplicated inspection segment collapses to the last one",
			path:    "inspection/20260115/inspection/20260115/frame001_640x480.bmp",
			wantHit: filepath.Join(dir, "20260115", "frame001_640x480.bmp"),
		},
		{
			name:    "bare filename found via date-folder scan",
			path:    "frame001_640x480.bmp",
			wantHit: filepath.Join(dir, "20260115", "frame001_640x480.bmp"),
		},
		{
			name:    "bare filename found via recursive walk only",
			path:    "frame002_640x480.bmp",
			wantHit: filepath.Join(dir, "20260116", "sub", "frame002_640x480.bmp"),
		},
		{
			name:    "windows absolute path rewritten to inspection-relative",
			path:    `C:\oin-wood-inspection\data\images\inspection\20260115\frame001_640x480.bmp`,
			wantHit: filepath.Join(dir, "20260115", "frame001_640x480.bmp"),
		},
		{
			name:    "renamed basename resolved by frame-id glob",
			path:    "frame001_20260115_993312_640x480.bmp",
			wantHit: filepath.Join(dir, "20260115", "frame001_640x480.bmp"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Resolve(tc.path, dir)
			assert.True(t, res.Found, "expected a match for %q, attempts: %+v", tc.path, res.Attempts)
			assert.Equal(t, tc.wantHit, res.FoundPath)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	dir := setupInspectionDir(t)
	res := Resolve("does-not-exist.bmp", dir)
	assert.False(t, res.Found)
	assert.NotEmpty(t, res.Attempts)
}
