package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

func testCache(t *testing.T) (*Cache, string) {
	t.Helper()
	srcDir := t.TempDir()
	cacheDir := t.TempDir()
	c, err := New(cacheDir, zap.NewNop().Sugar())
	require.NoError(t, err)
	return c, srcDir
}

func TestGet_CopiesNonConvertedFileAndCachesIt(t *testing.T) {
	c, srcDir := testCache(t)
	src := filepath.Join(srcDir, "frame001.jpg")
	require.NoError(t, os.WriteFile(src, []byte("fake-jpeg-bytes"), 0o644))

	entry, err := c.Get(src, model.VariantOriginal)
	require.NoError(t, err)
	assert.FileExists(t, entry.CachePath)
	assert.Equal(t, "image/jpeg", entry.ContentType)

	data, err := os.ReadFile(entry.CachePath)
	require.NoError(t, err)
	assert.Equal(t, "fake-jpeg-bytes", string(data))
}

func TestGet_CacheHitReturnsSamePath(t *testing.T) {
	c, srcDir := testCache(t)
	src := filepath.Join(srcDir, "frame002.jpg")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	first, err := c.Get(src, model.VariantOriginal)
	require.NoError(t, err)
	second, err := c.Get(src, model.VariantOriginal)
	require.NoError(t, err)

	assert.Equal(t, first.CachePath, second.CachePath)
	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Hits)
}

func TestGet_MissingSourceIsAnError(t *testing.T) {
	c, srcDir := testCache(t)
	_, err := c.Get(filepath.Join(srcDir, "nope.jpg"), model.VariantOriginal)
	assert.Error(t, err)
	assert.EqualValues(t, 1, c.Stats().Errors)
}

func TestCleanup_EvictsFilesOlderThanMaxAge(t *testing.T) {
	c, _ := testCache(t)
	oldPath := filepath.Join(c.dir, "old.jpg")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o644))
	oldTime := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, oldTime, oldTime))

	c.Cleanup()
	assert.NoFileExists(t, oldPath)
}

func TestCleanup_RemovesIndexEntryForEvictedFile(t *testing.T) {
	c, srcDir := testCache(t)
	src := filepath.Join(srcDir, "frame003.jpg")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	entry, err := c.Get(src, model.VariantOriginal)
	require.NoError(t, err)

	oldTime := time.Now().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(entry.CachePath, oldTime, oldTime))

	c.Cleanup()
	assert.NoFileExists(t, entry.CachePath)

	probe := model.CacheEntry{SourcePath: filepath.ToSlash(src), Variant: model.VariantOriginal}
	info, err := os.Stat(src)
	require.NoError(t, err)
	probe.SourceMTime = info.ModTime()
	probe.SourceSize = info.Size()
	_, stillIndexed := c.index.Peek(hashKey(probe.KeyInput()))
	assert.False(t, stillIndexed, "evicted entry must be removed from the index in the same pass, not left for Get's lazy self-heal")
}
