// Package storecache wraps a postconfirm.Store so the pattern-rule table is
// held in memory as an immutable, lazily-initialized slice rather than
// queried from the backend on every lookup miss, refreshing it only on
// framework/hooks.EventReload (an operator SIGUSR2).
package storecache

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ietf-svn-conversion/postconfirm/framework/hooks"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/internal/postconfirm"
)

// PatternStore decorates a postconfirm.Store, caching Patterns() in memory.
type PatternStore struct {
	postconfirm.Store

	log log.Logger

	// Concurrent sessions hitting a cold cache (process start, right after
	// a reload) collapse into one backend query instead of racing.
	group singleflight.Group

	mu       sync.RWMutex
	loaded   bool
	patterns []postconfirm.PatternRule
}

// Wrap returns a Store whose Patterns() method is served from an in-memory
// cache, loaded on first use and refreshed whenever EventReload fires. The
// underlying store's ExactLookup and SetAction are passed through unchanged.
func Wrap(store postconfirm.Store, logger log.Logger) *PatternStore {
	p := &PatternStore{Store: store, log: logger}
	hooks.AddHook(hooks.EventReload, p.invalidate)
	return p
}

func (p *PatternStore) invalidate() {
	p.mu.Lock()
	p.loaded = false
	p.patterns = nil
	p.mu.Unlock()
	p.log.Msg("pattern table invalidated, will reload on next lookup")
}

// Patterns implements postconfirm.Store, serving from cache once populated.
func (p *PatternStore) Patterns(ctx context.Context) ([]postconfirm.PatternRule, error) {
	p.mu.RLock()
	if p.loaded {
		cached := p.patterns
		p.mu.RUnlock()
		return cached, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.group.Do("patterns", func() (interface{}, error) {
		patterns, err := p.Store.Patterns(ctx)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.patterns = patterns
		p.loaded = true
		p.mu.Unlock()
		return patterns, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]postconfirm.PatternRule), nil
}
