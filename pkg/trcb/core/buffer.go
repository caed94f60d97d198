package core

import "github.com/jabolina/trcb/pkg/trcb/types"

// pendingMessage is a single buffered entry. It is a struct, not a
// positional tuple, by design: spec.md §9 calls out a field-order bug in the
// source (`try_to_deliver` pattern-matching (Origin, Ts, Body) while the
// insertion site builds (Origin, Body, Ts)) and resolves it by treating the
// *intended* re-scan behavior as authoritative. A named-field struct makes
// that whole class of bug impossible to reintroduce.
type pendingMessage struct {
	origin types.ActorId
	body   []byte
	ts     types.VClock
}

// Buffer holds messages that are not yet causally deliverable
// (pending_delivery in spec.md §3). It is an ordered sequence, not a set,
// so Rescan always reconsiders entries in the order they were admitted —
// correctness does not depend on that order (spec.md §4.C), only on every
// entry being reconsidered on every rescan.
type Buffer struct {
	entries []pendingMessage
}

// NewBuffer returns an empty causal-delivery buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Len reports how many messages are currently buffered.
func (b *Buffer) Len() int {
	return len(b.entries)
}

// Contains reports whether a message with exactly this timestamp is already
// buffered, used by the forwarder's duplicate test (spec.md §4.D).
func (b *Buffer) Contains(ts types.VClock) bool {
	key := ts.Key()
	for _, e := range b.entries {
		if e.ts.Key() == key {
			return true
		}
	}
	return false
}

// Append adds a not-yet-deliverable message to the tail of the buffer,
// preserving stable insertion order (spec.md §4.C step 3).
func (b *Buffer) Append(origin types.ActorId, body []byte, ts types.VClock) {
	b.entries = append(b.entries, pendingMessage{origin: origin, body: body, ts: ts})
}

// Remove drops every buffered entry whose timestamp equals ts. It is a
// no-op if ts isn't buffered, satisfying invariant 7 of spec.md §3 ("If the
// deliver handler succeeded for ts, then eventually no copy of ts remains in
// pending_delivery") without requiring callers to track buffer positions.
func (b *Buffer) Remove(ts types.VClock) {
	key := ts.Key()
	out := b.entries[:0]
	for _, e := range b.entries {
		if e.ts.Key() != key {
			out = append(out, e)
		}
	}
	b.entries = out
}

// Rescan repeatedly sweeps the buffer from the head, admitting any entry
// that deliverable accepts, removing it, and restarting the sweep — until a
// full pass admits nothing. This is the "re-scan ... to its causal fixed
// point" behavior of spec.md §4.C.
//
// deliverable is consulted with each entry's origin alongside its
// timestamp, since the delivery-readiness test of spec.md §4.C depends on
// which actor stamped ts, not just ts's values. It is expected to read the
// caller's live vv, so a vv advanced inside admit is seen on the next sweep.
//
// admit is called once per admitted entry, in admission order, and returns
// true on success. false signals the entry should be left in the buffer
// (e.g. the delivery handler failed), in which case Rescan returns without
// considering any further entries, matching spec.md §4.C step 2's "On
// handler error: enqueue and stop".
//
// Removal is always by ts's key, never by the index the outer sweep is
// currently looking at: admit (typically wired to the same delivery path
// that calls Buffer.Remove directly on success) may already have dropped
// this or another entry from b.entries by the time Rescan gets to act on
// the result, and removing by stale index would then silently drop
// whatever had slid into that slot instead.
func (b *Buffer) Rescan(deliverable func(origin types.ActorId, ts types.VClock) bool, admit func(origin types.ActorId, body []byte, ts types.VClock) bool) {
	for {
		progressed := false
		for i := 0; i < len(b.entries); i++ {
			e := b.entries[i]
			if !deliverable(e.origin, e.ts) {
				continue
			}
			if !admit(e.origin, e.body, e.ts) {
				// Handler failed: leave this entry buffered and stop the
				// rescan, per spec.md §4.C step 2.
				return
			}
			b.Remove(e.ts)
			progressed = true
			break // restart the sweep from the head against the new vv
		}
		if !progressed {
			return
		}
	}
}
