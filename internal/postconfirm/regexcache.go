package postconfirm

import (
	"regexp"
	"sync"
)

// regexCache is a process-wide, lazy, append-only cache of compiled regular
// expressions. Entries are immutable after first insert; publication is via
// a mutex rather than an atomic pointer swap, which is simpler and
// sufficiently cheap given compilation, not lookup, dominates cost here.
type regexCache struct {
	mu sync.RWMutex
	m  map[string]*regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{m: make(map[string]*regexp.Regexp)}
}

func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	if re, ok := c.m[pattern]; ok {
		c.mu.RUnlock()
		return re, nil
	}
	c.mu.RUnlock()

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.m[pattern]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.m[pattern] = re
	c.mu.Unlock()

	return re, nil
}

var globalRegexCache = newRegexCache()
