package notify

import (
	"sync"
	"time"
)

// Deduper is the process-wide signature cache that collapses duplicate event
// triggers. The common race it absorbs: a client optimistically announces an
// eagle while the authoritative server-side write detects the same eagle a
// moment later; only one popup should ever reach viewers.
//
// It is a lock-protected map from signature to the most recent time that
// signature was seen, with a periodic sweep evicting entries older than the TTL.
// Memory stays bounded by the number of distinct signatures per TTL window, and
// there are no per-entry timers.
type Deduper struct {
	ttl time.Duration
	now func() time.Time // replaceable in tests

	mu   sync.Mutex
	seen map[string]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewDeduper builds a Deduper with the given TTL (10s is the production default)
// and starts its sweeper goroutine. Call Close when done.
func NewDeduper(ttl time.Duration) *Deduper {
	d := &Deduper{
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
		stop: make(chan struct{}),
	}
	go d.sweep()
	return d
}

// Seen records the signature at the current time and reports whether it was
// already seen within the TTL. The timestamp is refreshed on every call, and a
// later timestamp always wins: an insertion racing the sweeper can only lose an
// entry that was genuinely expired at the moment it was re-seen.
func (d *Deduper) Seen(signature string) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.seen[signature]
	if !ok || now.After(last) {
		d.seen[signature] = now
	}
	return ok && now.Sub(last) < d.ttl
}

// sweep lazily evicts expired signatures once per TTL. Eviction happens under
// the same lock as Seen, so a concurrent refresh always keeps its entry.
func (d *Deduper) sweep() {
	ticker := time.NewTicker(d.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			now := d.now()
			d.mu.Lock()
			for sig, last := range d.seen {
				if now.Sub(last) >= d.ttl {
					delete(d.seen, sig)
				}
			}
			d.mu.Unlock()
		}
	}
}

// Close stops the sweeper goroutine. Safe to call more than once.
func (d *Deduper) Close() {
	d.stopOnce.Do(func() { close(d.stop) })
}
