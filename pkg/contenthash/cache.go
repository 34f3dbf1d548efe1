package contenthash

import "bytes"

// Stats counts cache activity since creation.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Collisions uint64 // VerifyOnMatch only: digest matched, bytes did not
	Resets     uint64
	Entries    int
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	policy Policy
	size   int
}

// WithPolicy sets the digest-match policy. Default: ContentAddressed.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithSizeHint preallocates room for n entries.
func WithSizeHint(n int) Option {
	return func(o *options) {
		o.size = n
	}
}

type entry[V any] struct {
	value   V
	content []byte // kept only under VerifyOnMatch
}

// Cache maps the content digest of a key source to a value of type V.
//
// A Cache is not safe for concurrent use. Each owner (an encoder, a decoder)
// holds its own instance on a single goroutine.
type Cache[V any] struct {
	entries map[Key]entry[V]
	policy  Policy
	stats   Stats
	keyOf   func(any) (Key, []byte, error)
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{policy: ContentAddressed}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries: make(map[Key]entry[V], o.size),
		policy:  o.policy,
		keyOf:   KeyOf,
	}
}

// Policy returns the digest-match policy.
func (c *Cache[V]) Policy() Policy {
	return c.policy
}

// GetOrCompute returns the value cached for source's content. On a miss it
// calls build, stores the result and returns it. A build error is returned
// as is and nothing is stored.
func (c *Cache[V]) GetOrCompute(source any, build func() (V, error)) (V, error) {
	key, content, err := c.keyOf(source)
	if err != nil {
		var zero V
		return zero, err
	}

	if v, ok := c.lookup(key, content); ok {
		c.stats.Hits++
		return v, nil
	}
	c.stats.Misses++

	v, err := build()
	if err != nil {
		var zero V
		return zero, err
	}
	c.store(key, content, v)
	return v, nil
}

// Lookup returns the value cached for source's content, if any.
func (c *Cache[V]) Lookup(source any) (V, bool, error) {
	key, content, err := c.keyOf(source)
	if err != nil {
		var zero V
		return zero, false, err
	}
	v, ok := c.lookup(key, content)
	if ok {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
	return v, ok, nil
}

// Insert stores v for source's content unless an equal entry already exists.
// It reports whether v was stored.
func (c *Cache[V]) Insert(source any, v V) (bool, error) {
	key, content, err := c.keyOf(source)
	if err != nil {
		return false, err
	}
	if _, ok := c.lookup(key, content); ok {
		return false, nil
	}
	c.store(key, content, v)
	return true, nil
}

// Reset drops every entry.
func (c *Cache[V]) Reset() {
	clear(c.entries)
	c.stats.Resets++
}

// Len returns the number of entries.
func (c *Cache[V]) Len() int {
	return len(c.entries)
}

// Stats returns a snapshot of cache counters.
func (c *Cache[V]) Stats() Stats {
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

func (c *Cache[V]) lookup(key Key, content []byte) (V, bool) {
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.policy == VerifyOnMatch && !bytes.Equal(e.content, content) {
		c.stats.Collisions++
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) store(key Key, content []byte, v V) {
	e := entry[V]{value: v}
	if c.policy == VerifyOnMatch {
		e.content = content
	}
	c.entries[key] = e
}
