package snapshot

import "math"

// Gate admits snapshots in strictly increasing counter order. Stale,
// duplicate and replayed snapshots are expected under at-least-once
// delivery and are dropped without error. Nothing is buffered or
// reordered.
type Gate struct {
	last     int64
	admitted uint64
	dropped  uint64
}

// NewGate returns a gate that admits any first counter.
func NewGate() *Gate {
	return &Gate{last: math.MinInt64}
}

// Admit reports whether s is newer than every previously admitted
// snapshot, recording its counter if so.
func (g *Gate) Admit(s *Snapshot) bool {
	if s == nil || s.Counter <= g.last {
		g.dropped++
		return false
	}
	g.last = s.Counter
	g.admitted++
	return true
}

// Last returns the counter of the most recently admitted snapshot and
// false if none has been admitted yet.
func (g *Gate) Last() (int64, bool) {
	return g.last, g.admitted > 0
}

// Stats returns how many snapshots were admitted and dropped.
func (g *Gate) Stats() (admitted, dropped uint64) {
	return g.admitted, g.dropped
}
