package model

import (
	"strconv"
	"time"
)

// CacheVariant distinguishes a cached copy from a format-converted one.
type CacheVariant string

const (
	VariantOriginal CacheVariant = "original"
	VariantJPG      CacheVariant = "jpg"
)

// CacheEntry mirrors spec.md §3's cache entry record. CachePath is
// guaranteed to exist on disk for as long as the entry is reachable from
// the cache's index (invariant 4).
type CacheEntry struct {
	SourcePath   string
	SourceMTime  time.Time
	SourceSize   int64
	Variant      CacheVariant
	CachePath    string
	ContentType  string
	LastAccess   time.Time
}

// KeyInput formats the cache key input; callers hash it with crypto/md5 per
// spec.md §4.8.
func (e CacheEntry) KeyInput() string {
	return e.SourcePath + ":" + e.SourceMTime.UTC().Format(time.RFC3339Nano) + ":" +
		strconv.FormatInt(e.SourceSize, 10) + ":" + string(e.Variant)
}

// CacheStats are the process-wide counters spec.md §4.8 requires.
type CacheStats struct {
	Hits            int64
	Misses          int64
	Errors          int64
	CachedFiles     int64
	TotalSizeBytes  int64
	LastCleanup     time.Time
}
