// Package events feeds the live event console: an initial snapshot fetch
// merged with a server-sent-event subscription, kept in a bounded
// most-recent-first log. An optional Postgres archive records everything
// received.
package events

import "sync"

// DefaultMaxEntries bounds the console log.
const DefaultMaxEntries = 300

// Console is the bounded, de-duplicated event log. Entries are the
// server's formatted event strings, newest first.
type Console struct {
	mu        sync.Mutex
	entries   []string
	max       int
	connected bool
	listeners []func()
}

func NewConsole(maxEntries int) *Console {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Console{max: maxEntries}
}

// Push prepends a live entry, trimming the tail past the bound.
func (c *Console) Push(entry string) {
	c.mu.Lock()
	c.entries = append([]string{entry}, c.entries...)
	if len(c.entries) > c.max {
		c.entries = c.entries[:c.max]
	}
	c.mu.Unlock()
	c.notify()
}

// Merge folds a snapshot (newest first) into the log, de-duplicating by
// exact string equality against what is already present. Snapshot
// entries win the ordering, live entries keep their relative order.
func (c *Console) Merge(snapshot []string) {
	c.mu.Lock()
	if len(snapshot) > c.max {
		snapshot = snapshot[:c.max]
	}
	seen := make(map[string]struct{}, len(snapshot)+len(c.entries))
	merged := make([]string, 0, len(snapshot)+len(c.entries))
	for _, entry := range append(append([]string{}, snapshot...), c.entries...) {
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		merged = append(merged, entry)
	}
	if len(merged) > c.max {
		merged = merged[:c.max]
	}
	c.entries = merged
	c.mu.Unlock()
	c.notify()
}

// Clear empties the log.
func (c *Console) Clear() {
	c.mu.Lock()
	c.entries = nil
	c.mu.Unlock()
	c.notify()
}

// Entries returns a copy of the log, newest first.
func (c *Console) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.entries))
	copy(out, c.entries)
	return out
}

// SetConnected flips the live-stream indicator.
func (c *Console) SetConnected(connected bool) {
	c.mu.Lock()
	changed := c.connected != connected
	c.connected = connected
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Connected reports whether the live stream is up.
func (c *Console) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Subscribe registers a listener invoked after every change.
func (c *Console) Subscribe(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Console) notify() {
	c.mu.Lock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
