package session

import (
	"sync"
	"time"

	"iterboard/internal/board"
)

// EngineCache keeps at most one live board engine per session. Engines
// are stateful values with in-memory memoization, so they cannot live in
// Redis; instead each is rebuilt after the TTL lapses or when the user
// asks for a refresh. Expiry is judged against the engine's CreatedAt.
type EngineCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*board.Engine
}

func NewEngineCache(ttl time.Duration) *EngineCache {
	return &EngineCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*board.Engine),
	}
}

// Get returns the cached engine for a session, evicting and reporting a
// miss when it has aged out.
func (c *EngineCache) Get(sessionID string) (*board.Engine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	engine, ok := c.entries[sessionID]
	if !ok {
		return nil, false
	}
	if c.now().Sub(engine.CreatedAt) >= c.ttl {
		delete(c.entries, sessionID)
		return nil, false
	}
	return engine, true
}

// Put caches an engine for a session, replacing any previous one.
func (c *EngineCache) Put(sessionID string, engine *board.Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = engine
}

// Invalidate drops a session's engine so the next access rebuilds it
// from a fresh fetch.
func (c *EngineCache) Invalidate(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
}
