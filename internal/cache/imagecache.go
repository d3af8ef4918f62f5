// Package cache implements the content-addressed image cache (C8):
// MD5-keyed on source path + mtime + size + variant, BMP->JPEG transcode
// on miss, and size/age eviction. Grounded on
// original_source/endpoints/image_cache.py's path_cache/cache_stats shape
// and its 1 GiB / 7 day / hourly-cleanup thresholds.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

const (
	maxCacheSizeBytes = 1024 * 1024 * 1024 // 1 GiB
	maxCacheAge       = 7 * 24 * time.Hour
	cleanupInterval   = time.Hour
	indexCapacity     = 4096 // in-memory index entries; the files on disk are the real store
)

// Cache is the process-wide image cache singleton.
type Cache struct {
	dir string
	log *zap.SugaredLogger

	index *lru.Cache[string, *model.CacheEntry]
	mu    sync.Mutex

	hits, misses, errs atomic.Int64
	lastCleanup        atomic.Int64 // unix nanos
}

func New(dir string, log *zap.SugaredLogger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create %s: %w", dir, err)
	}
	idx, err := lru.New[string, *model.CacheEntry](indexCapacity)
	if err != nil {
		return nil, err
	}
	c := &Cache{dir: dir, log: log, index: idx}
	c.lastCleanup.Store(time.Now().UnixNano())
	return c, nil
}

// Get returns the cached (possibly just-produced) path for sourcePath,
// converting to JPEG when variant is VariantJPG and the source is a .bmp
// file. A cache hit returns the existing file without touching disk I/O
// beyond the Stat needed to validate it is still fresh.
func (c *Cache) Get(sourcePath string, variant model.CacheVariant) (*model.CacheEntry, error) {
	sourcePath = filepath.ToSlash(sourcePath)
	info, err := os.Stat(sourcePath)
	if err != nil {
		c.errs.Add(1)
		return nil, fmt.Errorf("cache: stat %s: %w", sourcePath, err)
	}

	probe := model.CacheEntry{SourcePath: sourcePath, SourceMTime: info.ModTime(), SourceSize: info.Size(), Variant: variant}
	key := hashKey(probe.KeyInput())

	if entry, ok := c.index.Get(key); ok {
		if _, err := os.Stat(entry.CachePath); err == nil {
			c.hits.Add(1)
			entry.LastAccess = time.Now()
			c.maybeCleanup()
			return entry, nil
		}
		c.index.Remove(key) // cached file vanished from disk; fall through to rebuild
	}

	c.misses.Add(1)
	entry, err := c.build(probe, key)
	if err != nil {
		c.errs.Add(1)
		return nil, err
	}
	c.index.Add(key, entry)
	c.maybeCleanup()
	return entry, nil
}

func (c *Cache) build(probe model.CacheEntry, key string) (*model.CacheEntry, error) {
	ext := filepath.Ext(probe.SourcePath)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	base := strings.TrimSuffix(filepath.Base(probe.SourcePath), ext)
	cacheExt := ext
	if probe.Variant == model.VariantJPG {
		cacheExt = ".jpg"
		contentType = "image/jpeg"
	}
	cachePath := filepath.Join(c.dir, fmt.Sprintf("%s_%s%s", base, key, cacheExt))

	if probe.Variant == model.VariantJPG && strings.EqualFold(ext, ".bmp") {
		bmp, err := os.ReadFile(probe.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("cache: read %s: %w", probe.SourcePath, err)
		}
		jpeg, err := camera.BMPToJPEG(bmp, 85)
		if err != nil {
			return nil, fmt.Errorf("cache: transcode %s: %w", probe.SourcePath, err)
		}
		if err := os.WriteFile(cachePath, jpeg, 0o644); err != nil {
			return nil, fmt.Errorf("cache: write %s: %w", cachePath, err)
		}
	} else if err := copyFile(probe.SourcePath, cachePath); err != nil {
		return nil, err
	}

	entry := probe
	entry.CachePath = cachePath
	entry.ContentType = contentType
	entry.LastAccess = time.Now()
	return &entry, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("cache: open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("cache: create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("cache: copy %s -> %s: %w", src, dst, err)
	}
	return nil
}

func hashKey(input string) string {
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Stats returns the process-wide counters (spec.md §4.8).
func (c *Cache) Stats() model.CacheStats {
	files, size := c.diskUsage()
	return model.CacheStats{
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		Errors:         c.errs.Load(),
		CachedFiles:    files,
		TotalSizeBytes: size,
		LastCleanup:    time.Unix(0, c.lastCleanup.Load()),
	}
}

func (c *Cache) diskUsage() (count, totalBytes int64) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, 0
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if info, err := e.Info(); err == nil {
			count++
			totalBytes += info.Size()
		}
	}
	return count, totalBytes
}

// maybeCleanup runs a size/age eviction pass at most once per
// cleanupInterval, off the hot path (spec.md §4.8's hourly cleanup).
func (c *Cache) maybeCleanup() {
	now := time.Now()
	if now.Sub(time.Unix(0, c.lastCleanup.Load())) < cleanupInterval {
		return
	}
	c.lastCleanup.Store(now.UnixNano())
	go c.Cleanup()
}

type cacheFile struct {
	path  string
	mtime time.Time
	size  int64
}

// Cleanup evicts files older than 7 days, then — if the cache is still
// over 1 GiB — evicts the oldest remaining files until it is under the
// limit. Safe to call directly (e.g. from an admin endpoint) in addition
// to the periodic trigger.
func (c *Cache) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		c.log.Warnw("cache: cleanup readdir failed", "dir", c.dir, "error", err)
		return
	}

	var files []cacheFile
	var totalSize int64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{path: filepath.Join(c.dir, e.Name()), mtime: info.ModTime(), size: info.Size()})
		totalSize += info.Size()
	}

	now := time.Now()
	var toDelete []cacheFile
	var remaining []cacheFile
	for _, f := range files {
		if now.Sub(f.mtime) > maxCacheAge {
			toDelete = append(toDelete, f)
		} else {
			remaining = append(remaining, f)
		}
	}

	currentSize := totalSize
	for _, f := range toDelete {
		currentSize -= f.size
	}
	if currentSize > maxCacheSizeBytes {
		sort.Slice(remaining, func(i, j int) bool { return remaining[i].mtime.Before(remaining[j].mtime) })
		for _, f := range remaining {
			if currentSize <= maxCacheSizeBytes {
				break
			}
			toDelete = append(toDelete, f)
			currentSize -= f.size
		}
	}

	// Reverse lookup (CachePath -> key), built once up front so each
	// eviction below drops the index entry in the same pass as the disk
	// delete instead of leaving it for Get's lazy self-heal to notice
	// (spec.md §8 invariant 4).
	keyByPath := make(map[string]string, c.index.Len())
	for _, key := range c.index.Keys() {
		if entry, ok := c.index.Peek(key); ok {
			keyByPath[entry.CachePath] = key
		}
	}

	for _, f := range toDelete {
		if err := os.Remove(f.path); err != nil {
			c.log.Warnw("cache: evict failed", "path", f.path, "error", err)
			continue
		}
		if key, ok := keyByPath[f.path]; ok {
			c.index.Remove(key)
		}
		c.log.Debugw("cache: evicted", "path", f.path)
	}
}
