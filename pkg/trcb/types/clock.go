package types

import (
	"sort"
	"strconv"
	"strings"
)

// VClock is a mapping from ActorId to a non-negative counter. Absent keys
// read as zero. VClock is treated as an immutable value everywhere in this
// package: every operation returns a new map rather than mutating its
// receiver, so a VClock stored inside a Message or a retransmit entry can be
// shared freely without defensive copying at every call site.
type VClock map[ActorId]uint64

// FreshClock returns an empty vector clock.
func FreshClock() VClock {
	return VClock{}
}

// Clone returns a shallow copy of vc. Since values are uint64, a shallow
// copy is a full copy.
func (vc VClock) Clone() VClock {
	out := make(VClock, len(vc))
	for k, v := range vc {
		out[k] = v
	}
	return out
}

// At returns the counter for actor a, treating an absent key as zero.
func (vc VClock) At(a ActorId) uint64 {
	return vc[a]
}

// Increment returns a new clock equal to vc with actor a's entry advanced by
// one (or set to one, if a was absent).
func Increment(a ActorId, vc VClock) VClock {
	out := vc.Clone()
	out[a] = vc.At(a) + 1
	return out
}

// Merge returns the pointwise maximum of x and y.
func Merge(x, y VClock) VClock {
	out := make(VClock, len(x)+len(y))
	for k, v := range x {
		out[k] = v
	}
	for k, v := range y {
		if v > out[k] {
			out[k] = v
		}
	}
	return out
}

// Descends reports whether x is pointwise >= y, i.e. x knows everything y
// knows (and possibly more).
func Descends(x, y VClock) bool {
	for k, v := range y {
		if x.At(k) < v {
			return false
		}
	}
	return true
}

// Dominates reports whether x strictly descends from y: x descends from y
// and the two clocks are not equal.
func Dominates(x, y VClock) bool {
	return Descends(x, y) && !Equal(x, y)
}

// Deliverable reports whether a message stamped ts by origin may be
// delivered to a receiver whose current clock is vv: origin's own entry
// must be exactly one past what vv has seen, and every other actor's entry
// in ts must already be known to vv. This is the delivery-readiness test of
// spec.md §4.C — it is deliberately not Dominates(ts, vv): Dominates only
// walks vv's keys, so it is satisfied too eagerly whenever vv simply has no
// entry yet for an actor ts names (spec.md §8 Scenario 2).
func Deliverable(origin ActorId, ts, vv VClock) bool {
	if ts.At(origin) != vv.At(origin)+1 {
		return false
	}
	for a, v := range ts {
		if a == origin {
			continue
		}
		if v > vv.At(a) {
			return false
		}
	}
	return true
}

// Equal reports pointwise equality, ignoring zero-valued entries so that an
// absent key and an explicit zero compare equal.
func Equal(x, y VClock) bool {
	for k, v := range x {
		if v != 0 && y.At(k) != v {
			return false
		}
	}
	for k, v := range y {
		if v != 0 && x.At(k) != v {
			return false
		}
	}
	return true
}

// Min returns the pointwise minimum of x and y. Keys present in only one of
// the two operands are treated as zero in the other, so they never survive
// into the result unless the corresponding entry in the other clock is also
// absent/zero — this is what lets the Stable Version Vector fall back to
// "nothing is stable yet" for a freshly joined peer with an empty row.
func Min(x, y VClock) VClock {
	out := make(VClock, len(x))
	seen := make(map[ActorId]struct{}, len(x)+len(y))
	for k := range x {
		seen[k] = struct{}{}
	}
	for k := range y {
		seen[k] = struct{}{}
	}
	for k := range seen {
		xv, yv := x.At(k), y.At(k)
		if xv < yv {
			out[k] = xv
		} else {
			out[k] = yv
		}
	}
	return out
}

// Entry is a single (actor, counter) pair, used for the wire representation
// of a VClock as a sorted list per spec.md §6.
type Entry struct {
	Actor   ActorId `json:"actor"`
	Counter uint64  `json:"counter"`
}

// Entries renders vc as a list of (actor, counter) pairs sorted by actor id,
// giving a deterministic wire encoding and a deterministic String().
func (vc VClock) Entries() []Entry {
	entries := make([]Entry, 0, len(vc))
	for k, v := range vc {
		entries = append(entries, Entry{Actor: k, Counter: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Actor < entries[j].Actor })
	return entries
}

// FromEntries rebuilds a VClock from its wire representation.
func FromEntries(entries []Entry) VClock {
	vc := make(VClock, len(entries))
	for _, e := range entries {
		if e.Counter != 0 {
			vc[e.Actor] = e.Counter
		}
	}
	return vc
}

// Key renders vc as a canonical, comparable string: VClock itself is a map
// and cannot be a Go map key, but the retransmit queue is keyed by
// timestamp (spec.md §3, retransmit: map<VClock, RetransmitEntry>), so every
// lookup site uses Key() as the map key instead.
func (vc VClock) Key() string {
	entries := vc.Entries()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, string(e.Actor)+"="+strconv.FormatUint(e.Counter, 10))
	}
	return strings.Join(parts, ",")
}

// String implements fmt.Stringer for debug/log output.
func (vc VClock) String() string {
	return "{" + vc.Key() + "}"
}
