package formstats

import (
	"sync"
	"time"
)

// DefaultChartCacheTTL bounds how long a session's chart markup is reused.
const DefaultChartCacheTTL = 5 * time.Minute

// RenderCache holds the rendered markup of each session's current chart.
type RenderCache interface {
	Markup(sessionID string, revision uint64, render func() (string, error)) (string, error)
}

// ChartCache keeps one rendered chart per session, tagged with the canvas
// revision it was drawn from. A newer revision replaces the stored markup,
// so a redrawn chart is never served stale. A zero TTL disables the cache.
type ChartCache struct {
	ttl      time.Duration
	mu       sync.Mutex
	sessions map[string]renderedChart
}

type renderedChart struct {
	revision uint64
	html     string
	expires  time.Time
}

func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{ttl: ttl, sessions: make(map[string]renderedChart)}
}

// Markup returns the stored chart for sessionID when it matches revision and
// has not expired. Otherwise render runs and its result replaces the entry.
// Render errors are returned and nothing is stored.
func (c *ChartCache) Markup(sessionID string, revision uint64, render func() (string, error)) (string, error) {
	if c == nil || c.ttl <= 0 {
		return render()
	}
	now := time.Now()
	c.mu.Lock()
	entry, ok := c.sessions[sessionID]
	c.mu.Unlock()
	if ok && entry.revision == revision && now.Before(entry.expires) {
		return entry.html, nil
	}

	html, err := render()
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent reader may already have stored a later revision.
	if current, ok := c.sessions[sessionID]; !ok || current.revision <= revision {
		c.sessions[sessionID] = renderedChart{revision: revision, html: html, expires: now.Add(c.ttl)}
	}
	return html, nil
}

// Forget drops the markup of a session.
func (c *ChartCache) Forget(sessionID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
}

// Sweep drops expired markup and returns how many sessions were cleared.
func (c *ChartCache) Sweep() int {
	if c == nil {
		return 0
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for id, entry := range c.sessions {
		if !now.Before(entry.expires) {
			delete(c.sessions, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of sessions with stored markup.
func (c *ChartCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}
