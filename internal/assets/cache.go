// Package assets holds the process-wide screenshot display-URL cache.
// Any component that resolves a screenshot writes through it; entries
// are invalidated only on a successful save of that filename, never
// speculatively.
package assets

import (
	"context"
	"log"
	"sync"

	"github.com/hpungsan/snipboard/internal/gateway"
)

// URLCache maps screenshot filenames to display URLs. A resolution
// failure is cached as "known missing" and logged once per filename so
// repeated renders do not spam warnings.
type URLCache struct {
	gw gateway.Gateway

	mu      sync.Mutex
	urls    map[string]string
	missing map[string]bool
	warned  map[string]bool
}

// NewURLCache creates a cache resolving through the given gateway.
func NewURLCache(gw gateway.Gateway) *URLCache {
	return &URLCache{
		gw:      gw,
		urls:    make(map[string]string),
		missing: make(map[string]bool),
		warned:  make(map[string]bool),
	}
}

// URL resolves a display URL for a filename. The second return is false
// for blank filenames and assets the gateway cannot resolve.
func (c *URLCache) URL(ctx context.Context, filename string) (string, bool) {
	if filename == "" {
		return "", false
	}

	c.mu.Lock()
	if url, ok := c.urls[filename]; ok {
		c.mu.Unlock()
		return url, true
	}
	if c.missing[filename] {
		c.mu.Unlock()
		return "", false
	}
	c.mu.Unlock()

	url, err := c.gw.ScreenshotURL(ctx, filename)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil || url == "" {
		if !c.warned[filename] {
			log.Printf("missing screenshot: %s", filename)
			c.warned[filename] = true
		}
		c.missing[filename] = true
		return "", false
	}
	c.urls[filename] = url
	return url, true
}

// Invalidate drops the cached entry for a filename. Called only after a
// successful save of that filename.
func (c *URLCache) Invalidate(filename string) {
	c.mu.Lock()
	delete(c.urls, filename)
	delete(c.missing, filename)
	delete(c.warned, filename)
	c.mu.Unlock()
}
