package policyeval

import (
	"container/list"
	"regexp"
	"sync"
)

// regexCacheSize bounds the number of compiled patterns kept resident.
// Regex policy values are untrusted input, so this is a cache of
// compilation results, not a trust boundary.
const regexCacheSize = 256

type regexCache struct {
	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

type regexCacheEntry struct {
	pattern string
	re      *regexp.Regexp
	err     error
}

var defaultRegexCache = newRegexCache(regexCacheSize)

func newRegexCache(size int) *regexCache {
	return &regexCache{
		order: list.New(),
		items: make(map[string]*list.Element, size),
	}
}

// compileRegex compiles pattern, reusing a cached compilation when present.
// A failed compilation is cached too, so a persistently-bad policy value
// doesn't pay the compile cost on every turn.
func compileRegex(pattern string) (*regexp.Regexp, error) {
	return defaultRegexCache.compile(pattern)
}

func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	if el, ok := c.items[pattern]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*regexCacheEntry)
		c.mu.Unlock()
		return entry.re, entry.err
	}
	c.mu.Unlock()

	re, err := regexp.Compile(pattern)

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[pattern]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*regexCacheEntry)
		return entry.re, entry.err
	}
	el := c.order.PushFront(&regexCacheEntry{pattern: pattern, re: re, err: err})
	c.items[pattern] = el
	if c.order.Len() > regexCacheSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*regexCacheEntry).pattern)
		}
	}
	return re, err
}
