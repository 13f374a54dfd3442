package usage

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// CacheFilename is the name of the persisted cache file within the config
// directory.
const CacheFilename = "claude-usage-cache.json"

// StatsCache is project_slug -> file_name -> FileStats.
type StatsCache map[string]map[string]*FileStats

// Cache wraps a StatsCache with the mutex and disk persistence needed to
// serve concurrent HTTP requests while a scan is in flight.
type Cache struct {
	configDir string
	logger    *slog.Logger

	mu    sync.Mutex
	stats StatsCache
}

// NewCache loads the persisted cache from configDir, or starts empty if the
// file is missing or unreadable.
func NewCache(configDir string, logger *slog.Logger) *Cache {
	c := &Cache{configDir: configDir, logger: logger, stats: loadFromDisk(configDir, logger)}
	return c
}

func loadFromDisk(configDir string, logger *slog.Logger) StatsCache {
	path := filepath.Join(configDir, CacheFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return StatsCache{}
	}
	var cache StatsCache
	if err := json.Unmarshal(data, &cache); err != nil {
		logger.Warn("usage cache corrupt, starting fresh", "path", path, "error", err)
		return StatsCache{}
	}
	if cache == nil {
		cache = StatsCache{}
	}
	return cache
}

// saveToDisk persists the cache. Best-effort: errors are logged, not fatal.
func (c *Cache) saveToDisk(cache StatsCache) {
	path := filepath.Join(c.configDir, CacheFilename)
	data, err := json.Marshal(cache)
	if err != nil {
		c.logger.Warn("failed to serialize usage cache", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		c.logger.Warn("failed to write usage cache", "path", path, "error", err)
	}
}

// snapshot returns a deep-enough copy of the cache for read-only use outside
// the lock (scan holds its own working copy and swaps it in atomically).
func (c *Cache) snapshot() StatsCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(StatsCache, len(c.stats))
	for slug, files := range c.stats {
		fc := make(map[string]*FileStats, len(files))
		for name, fs := range files {
			fc[name] = fs
		}
		out[slug] = fc
	}
	return out
}

// replace swaps in a freshly scanned cache and persists it to disk.
func (c *Cache) replace(cache StatsCache) {
	c.mu.Lock()
	c.stats = cache
	c.mu.Unlock()
	c.saveToDisk(cache)
}
