package storage

import (
	"strings"
	"sync"
	"time"
)

// nameLayout renders e.g. 20261014-154501PM. The hour is 24-hour so that
// lexicographic order matches chronological order across noon; the AM/PM
// marker is kept for the established filename shape.
const nameLayout = "20060102-150405PM"

// Namer assigns time-ordered artifact names. Names are strictly increasing
// per bucket: when the clock has not advanced past the last issued second,
// the next name is issued one second later. Safe for concurrent use.
type Namer struct {
	now func() time.Time

	mu   sync.Mutex
	last map[Bucket]time.Time
}

// NewNamer creates a Namer reading the given clock (time.Now when nil).
func NewNamer(now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now, last: make(map[Bucket]time.Time)}
}

// Assign returns a fresh artifact filename for bucket.
func (n *Namer) Assign(bucket Bucket) string {
	t := n.now().Truncate(time.Second)

	n.mu.Lock()
	if last, ok := n.last[bucket]; ok && !t.After(last) {
		t = last.Add(time.Second)
	}
	n.last[bucket] = t
	n.mu.Unlock()

	return t.Format(nameLayout) + AudioExt
}

// Observe advances the bucket's high-water mark past an existing name, so
// names issued after a restart never collide with files already on disk.
// Names that don't parse are ignored.
func (n *Namer) Observe(bucket Bucket, name string) {
	t, ok := ParseName(name, n.now().Location())
	if !ok {
		return
	}
	n.mu.Lock()
	if last, seen := n.last[bucket]; !seen || t.After(last) {
		n.last[bucket] = t
	}
	n.mu.Unlock()
}

// ParseName recovers the timestamp encoded in an artifact filename.
func ParseName(name string, loc *time.Location) (time.Time, bool) {
	base := name
	if len(base) < len(AudioExt) || !strings.EqualFold(base[len(base)-len(AudioExt):], AudioExt) {
		return time.Time{}, false
	}
	base = base[:len(base)-len(AudioExt)]
	t, err := time.ParseInLocation(nameLayout, base, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
