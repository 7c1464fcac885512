// Package cache stores synthesized audio on disk so identical requests can
// be answered without another upstream call.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const fileExt = ".mp3"

// Params identifies one synthesis result.
type Params struct {
	Text            string
	ModelID         string
	VoiceID         string
	Language        string
	Stability       float64
	SimilarityBoost float64
}

// Key produces a deterministic SHA-256 hex key from synthesis parameters.
func Key(p Params) string {
	h := sha256.New()
	fmt.Fprintf(h, "text=%s\nmodel=%s\nvoice=%s\nlang=%s\n", p.Text, p.ModelID, p.VoiceID, p.Language)
	fmt.Fprintf(h, "stability=%f\nsimilarity_boost=%f\n", p.Stability, p.SimilarityBoost)
	return hex.EncodeToString(h.Sum(nil))
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries int
	Bytes   int64
	Hits    int64
	Misses  int64
}

// Cache is a disk-backed LRU cache for synthesized audio. It is safe for
// concurrent use.
type Cache struct {
	mu       sync.Mutex
	dir      string
	maxBytes int64
	log      *slog.Logger

	// lru front is most recently used.
	lru     *list.List
	entries map[string]*list.Element
	total   int64
	hits    int64
	misses  int64
}

type entry struct {
	key  string
	size int64
	path string
}

// New creates a Cache that stores files in dir with a total size cap of maxBytes.
// It creates dir if needed and indexes files left by a previous run.
func New(dir string, maxBytes int64, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}
	c := &Cache{
		dir:      dir,
		maxBytes: maxBytes,
		log:      logger.With("component", "cache"),
		lru:      list.New(),
		entries:  make(map[string]*list.Element),
	}
	c.loadExisting()
	return c, nil
}

// Get returns cached data for key and true on hit, or nil and false on miss.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*entry)
	data, err := os.ReadFile(e.path)
	if err != nil {
		c.log.Warn("cache file unreadable, dropping entry", "key", key, "error", err)
		c.remove(el)
		c.misses++
		return nil, false
	}

	c.lru.MoveToFront(el)
	c.hits++
	return data, true
}

// Put stores data under key, evicting least-recently-used entries as needed.
// Empty payloads and payloads larger than the cap are skipped.
func (c *Cache) Put(key string, data []byte) error {
	size := int64(len(data))
	if size == 0 || size > c.maxBytes {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.remove(el)
	}
	c.evict(size)

	p := filepath.Join(c.dir, key+fileExt)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("cache: write: %w", err)
	}

	c.entries[key] = c.lru.PushFront(&entry{key: key, size: size, path: p})
	c.total += size
	return nil
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Entries: len(c.entries),
		Bytes:   c.total,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// remove drops el from the index and disk. Must be called with mu held.
func (c *Cache) remove(el *list.Element) {
	e := el.Value.(*entry)
	os.Remove(e.path)
	c.lru.Remove(el)
	delete(c.entries, e.key)
	c.total -= e.size
}

// evict drops entries from the back until needed more bytes fit.
// Must be called with mu held.
func (c *Cache) evict(needed int64) {
	for c.total+needed > c.maxBytes {
		el := c.lru.Back()
		if el == nil {
			return
		}
		e := el.Value.(*entry)
		c.remove(el)
		c.log.Debug("evicted cache entry", "key", e.key, "size", e.size)
	}
}

// loadExisting indexes audio files in dir, oldest modification first so the
// newest end up at the front of the LRU.
func (c *Cache) loadExisting() {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*"+fileExt))
	if err != nil {
		c.log.Warn("cache: glob existing files", "error", err)
		return
	}

	type found struct {
		key  string
		path string
		info os.FileInfo
	}
	var files []found
	for _, p := range matches {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, found{
			key:  strings.TrimSuffix(filepath.Base(p), fileExt),
			path: p,
			info: info,
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].info.ModTime().Before(files[j].info.ModTime())
	})

	for _, f := range files {
		c.entries[f.key] = c.lru.PushFront(&entry{key: f.key, size: f.info.Size(), path: f.path})
		c.total += f.info.Size()
	}
	if len(c.entries) > 0 {
		c.log.Info("loaded existing cache entries", "count", len(c.entries), "total_bytes", c.total)
		// The cap may have shrunk since the files were written.
		c.evict(0)
	}
}
