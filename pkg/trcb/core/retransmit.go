package core

import (
	"time"

	"github.com/jabolina/trcb/pkg/trcb/types"
)

// Entry is a single outstanding retransmit registration: a message this
// node has sent (as originator or forwarder) and the set of destinations
// that have not yet acknowledged it (spec.md §3, RetransmitEntry).
type Entry struct {
	Origin     types.ActorId
	Body       []byte
	Ts         types.VClock
	LastSentAt time.Time
	Awaiting   map[types.ActorId]struct{}
}

// RetransmitQueue is the per-outgoing-message, per-destination
// acknowledgement tracker of spec.md §3/§4.E. A ts appears in the queue
// only while it has outstanding unacked recipients (invariant 3); the entry
// is erased the instant Awaiting becomes empty.
type RetransmitQueue struct {
	entries map[string]*Entry
}

// NewRetransmitQueue returns an empty retransmit queue.
func NewRetransmitQueue() *RetransmitQueue {
	return &RetransmitQueue{entries: make(map[string]*Entry)}
}

// Len reports how many timestamps currently have outstanding acks.
func (q *RetransmitQueue) Len() int {
	return len(q.entries)
}

// Register creates a retransmit entry for ts awaiting acks from every actor
// in awaiting. If awaiting is empty, no entry is created (there is nothing
// to await), matching invariant 3's "has outstanding unacked recipients".
func (q *RetransmitQueue) Register(origin types.ActorId, body []byte, ts types.VClock, awaiting []types.ActorId, now time.Time) {
	if len(awaiting) == 0 {
		return
	}
	set := make(map[types.ActorId]struct{}, len(awaiting))
	for _, a := range awaiting {
		set[a] = struct{}{}
	}
	q.entries[ts.Key()] = &Entry{
		Origin:     origin,
		Body:       body,
		Ts:         ts,
		LastSentAt: now,
		Awaiting:   set,
	}
}

// Ack removes sender from ts's awaiting set, erasing the entry entirely
// once no destination remains outstanding (spec.md §4.E "Ack handling").
// It reports whether a matching entry existed at all — an unmatched ack is
// the UnknownAck condition of spec.md §7 and is simply dropped by the
// caller.
func (q *RetransmitQueue) Ack(ts types.VClock, sender types.ActorId) bool {
	e, ok := q.entries[ts.Key()]
	if !ok {
		return false
	}
	delete(e.Awaiting, sender)
	if len(e.Awaiting) == 0 {
		delete(q.entries, ts.Key())
	}
	return true
}

// Due returns every entry whose age exceeds after as of now, for the
// periodic resend scan of spec.md §4.E.
func (q *RetransmitQueue) Due(now time.Time, after time.Duration) []*Entry {
	var due []*Entry
	for _, e := range q.entries {
		if now.Sub(e.LastSentAt) > after {
			due = append(due, e)
		}
	}
	return due
}

// Touch refreshes an entry's LastSentAt after it has been resent.
func (q *RetransmitQueue) Touch(ts types.VClock, now time.Time) {
	if e, ok := q.entries[ts.Key()]; ok {
		e.LastSentAt = now
	}
}

// DropDestination removes dest from every outstanding entry's awaiting set,
// erasing entries that become fully acknowledged as a result. TRCB does NOT
// call this from on_membership — spec.md §4.E/§9 are explicit that resends
// are not gated on continued membership, so a permanently removed peer's
// outstanding ack is an accepted leak (spec.md §7, UnknownPeer), recovered
// only through the membership-scoped RTM/SVV calculation. This method
// exists for an application that wants to opt into pruning anyway (e.g.
// after confirming via an out-of-band mechanism that dest is gone for
// good), and is never invoked by package trcb itself.
func (q *RetransmitQueue) DropDestination(dest types.ActorId) {
	for key, e := range q.entries {
		delete(e.Awaiting, dest)
		if len(e.Awaiting) == 0 {
			delete(q.entries, key)
		}
	}
}
