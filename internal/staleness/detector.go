// Package staleness decides whether a plugin must concatenate again, based on
// the file timestamps reported by the host.
//
// A file counts as changed when its current timestamp is later than both the
// detector's construction time and the timestamp recorded at the previous
// check. Hosts whose clock and filesystem mtimes differ in granularity can
// under-report changes; the policy is kept as is.
package staleness

import (
	"sync"
	"time"
)

// Detector keeps the timestamp snapshot of one plugin instance.
type Detector struct {
	startTime time.Time

	mu      sync.Mutex
	checked bool
	prev    map[string]time.Time
}

// New creates a Detector anchored at the current time.
func New() *Detector {
	return NewAt(time.Now())
}

// NewAt creates a Detector anchored at start.
func NewAt(start time.Time) *Detector {
	return &Detector{
		startTime: start,
		prev:      make(map[string]time.Time),
	}
}

// HasChanged reports whether any file of resolved changed since the last
// check. The first call always reports true. Every call replaces the
// snapshot with current, whatever the outcome.
func (d *Detector) HasChanged(current map[string]time.Time, resolved []string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	first := !d.checked
	prev := d.prev

	d.checked = true
	d.prev = make(map[string]time.Time, len(current))
	for file, ts := range current {
		d.prev[file] = ts
	}

	if first || len(current) == 0 {
		return true
	}

	inputs := make(map[string]struct{}, len(resolved))
	for _, file := range resolved {
		inputs[file] = struct{}{}
	}

	for file, end := range current {
		if _, ok := inputs[file]; !ok {
			continue
		}
		if changedSince(d.since(prev, file), end) {
			return true
		}
	}

	return false
}

// Snapshot returns a copy of the recorded timestamps.
func (d *Detector) Snapshot() map[string]time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]time.Time, len(d.prev))
	for k, v := range d.prev {
		out[k] = v
	}

	return out
}

func (d *Detector) since(prev map[string]time.Time, file string) time.Time {
	ts, ok := prev[file]
	if !ok || ts.IsZero() || ts.Before(d.startTime) {
		return d.startTime
	}

	return ts
}

// changedSince treats an unknown current timestamp as changed.
func changedSince(start, end time.Time) bool {
	if end.IsZero() {
		return true
	}

	return start.Before(end)
}
