package llm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/ohler55/ojg/oj"
)

// FileCache persists entries in a single JSON file mapping fingerprints to
// response text. The whole file is loaded on open and rewritten on every Put
// under a mutex, keeping a single-writer discipline over the file.
type FileCache struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewFileCache opens (or creates on first Put) a JSON file cache at path.
// A missing file is an empty cache; an unreadable or malformed file is an
// error, since silently starting empty would re-issue every remote call.
func NewFileCache(path string) (*FileCache, error) {
	c := &FileCache{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path) // #nosec G304 - cache path is caller-chosen
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	parsed, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse cache file %s: %w", path, err)
	}

	entries, ok := parsed.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cache file %s: expected a JSON object, got %T", path, parsed)
	}
	for k, v := range entries {
		text, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("cache file %s: entry %q is %T, not a string", path, k, v)
		}
		c.data[k] = text
	}

	return c, nil
}

// Get returns the cached response for a fingerprint, if present.
func (c *FileCache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text, ok := c.data[fingerprint]
	return text, ok, nil
}

// Put stores a response and rewrites the backing file.
func (c *FileCache) Put(ctx context.Context, fingerprint, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[fingerprint] = text

	encoded := oj.JSON(c.data)
	if err := os.WriteFile(c.path, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}
