package analytics

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

// Cache keeps one generated dataset per session so the dashboard does not
// redraw on every request. Invalidate drops a session's dataset on reset.
type Cache struct {
	gen    *Generator
	store  *ristretto.Cache[string, *Dataset]
	logger *zap.Logger
}

func NewCache(gen *Generator, maxSessions int64, logger *zap.Logger) (*Cache, error) {
	if maxSessions <= 0 {
		maxSessions = 1000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, *Dataset]{
		NumCounters: maxSessions * 10,
		MaxCost:     maxSessions,
		BufferItems: 64,
		// cost counts datasets, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics cache: %w", err)
	}
	return &Cache{gen: gen, store: store, logger: logger.Named("analytics")}, nil
}

// ForSession returns the session's dataset, generating it on first use.
func (c *Cache) ForSession(sessionID string) *Dataset {
	if ds, ok := c.store.Get(sessionID); ok {
		return ds
	}
	ds := c.gen.Generate()
	if !c.store.Set(sessionID, ds, 1) {
		c.logger.Debug("analytics dataset not admitted to cache", zap.String("session_id", sessionID))
	}
	c.store.Wait()
	c.logger.Debug("generated analytics dataset",
		zap.String("session_id", sessionID),
		zap.Int("days", len(ds.Daily)))
	return ds
}

func (c *Cache) Invalidate(sessionID string) {
	c.store.Del(sessionID)
	c.store.Wait()
}

func (c *Cache) Close() {
	c.store.Close()
}
