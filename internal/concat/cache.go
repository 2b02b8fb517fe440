package concat

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// Cache limits.
const (
	DefaultCacheBytes = 32 << 20
	maxCacheEntries   = 4096
)

// FileCache keeps file contents between passes so unchanged inputs are not
// read again. An entry is served only while the file's modification time and
// size match the ones recorded when it was read. Least recently used entries
// are evicted once the cached bytes exceed the limit.
//
// A nil *FileCache reads straight from the filesystem.
type FileCache struct {
	maxBytes int64

	mu        sync.Mutex
	entries   *lru.Cache[string, cachedFile]
	bytes     int64
	hits      int64
	misses    int64
	evictions int64
}

type cachedFile struct {
	modTime time.Time
	size    int64
	data    []byte
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries   int
	Bytes     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// NewFileCache creates a cache holding at most maxBytes of file content.
// maxBytes <= 0 selects DefaultCacheBytes.
func NewFileCache(maxBytes int64) *FileCache {
	if maxBytes <= 0 {
		maxBytes = DefaultCacheBytes
	}

	c := &FileCache{maxBytes: maxBytes}

	// The callback runs synchronously inside calls made with c.mu held.
	entries, err := lru.NewWithEvict(maxCacheEntries, func(_ string, f cachedFile) {
		c.bytes -= int64(len(f.data))
	})
	if err != nil {
		panic(err)
	}
	c.entries = entries

	return c
}

// ReadFile returns the content of path, from the cache when the file is
// unchanged. The returned slice must not be modified.
func (c *FileCache) ReadFile(fs afero.Fs, path string) ([]byte, error) {
	if c == nil {
		return afero.ReadFile(fs, path)
	}

	info, err := fs.Stat(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if f, ok := c.entries.Get(path); ok && f.size == info.Size() && f.modTime.Equal(info.ModTime()) {
		c.hits++
		c.mu.Unlock()

		return f.data, nil
	}
	c.misses++
	c.mu.Unlock()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	c.store(path, cachedFile{modTime: info.ModTime(), size: info.Size(), data: data})

	return data, nil
}

func (c *FileCache) store(path string, f cachedFile) {
	size := int64(len(f.data))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(path)
	if size > c.maxBytes {
		return
	}
	for c.bytes+size > c.maxBytes {
		if _, _, ok := c.entries.RemoveOldest(); !ok {
			break
		}
		c.evictions++
	}

	c.bytes += size
	if c.entries.Add(path, f) {
		c.evictions++
	}
}

// Stats returns the current counters.
func (c *FileCache) Stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Entries:   c.entries.Len(),
		Bytes:     c.bytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Purge drops every entry. Counters are kept.
func (c *FileCache) Purge() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Purge()
}
