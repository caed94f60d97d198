package trcb

import (
	"github.com/pkg/errors"

	"github.com/jabolina/trcb/pkg/trcb/core"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

// handleBroadcast implements spec.md §4.E "Local broadcast".
func (n *Node) handleBroadcast(s *actorState, body []byte) types.VClock {
	ts := types.Increment(n.actor, s.vv)
	s.vv = ts
	// Own row must track self's latest emitted timestamp too, since
	// StableVersionVector takes the minimum over members plus self
	// (spec.md invariant 5): without this, local broadcasts would never
	// factor into the node's own view of its contribution to stability.
	s.rtm.Observe(n.actor, ts)

	if n.conf.DeliverLocally {
		n.deliver(s, ts, body)
	}

	frame := types.NewCastFrame(n.actor, body, ts, n.actor)
	dests := make([]types.ActorId, 0, len(s.members))
	for p := range s.members {
		dests = append(dests, p)
	}
	n.sendAll(dests, frame)

	s.retransmit.Register(n.actor, body, ts, dests, n.now())
	n.reportMetrics(s)
	return ts
}

// handleFrame dispatches a received wire frame to the Cast or Ack path,
// per spec.md §4.D / §4.E "Ack handling".
func (n *Node) handleFrame(s *actorState, frame types.Frame) {
	if err := types.CheckVersion(frame); err != nil {
		n.log.Warnf("dropping frame from %s: %v", frame.Sender, err)
		return
	}

	switch frame.Kind {
	case types.KindCast:
		n.handleCast(s, frame.Origin, frame.Body, frame.Clock(), frame.Sender)
	case types.KindAck:
		n.handleAck(s, frame.Clock(), frame.Sender)
	default:
		n.log.Warnf("unknown frame kind %d from %s", frame.Kind, frame.Sender)
	}
}

// handleCast implements spec.md §4.D, the forwarder and duplicate filter.
func (n *Node) handleCast(s *actorState, origin types.ActorId, body []byte, ts types.VClock, sender types.ActorId) {
	if core.IsDuplicate(s.vv, ts, s.pending) {
		n.log.Debugf("%v", errors.Wrapf(ErrDuplicateFrame, "%s from %s", ts, sender))
		return
	}

	s.rtm.Observe(origin, ts)

	forwardTo := core.ForwardSet(s.members, sender, origin)
	n.sendAll(forwardTo, types.NewCastFrame(origin, body, ts, n.actor))
	n.sendAll([]types.ActorId{sender}, types.NewAckFrame(ts, n.actor))

	s.pending.Append(origin, body, ts)
	n.tryDeliver(s)

	s.retransmit.Register(origin, body, ts, forwardTo, n.now())
	n.reportMetrics(s)
}

// handleAck implements spec.md §4.E "Ack handling".
func (n *Node) handleAck(s *actorState, ts types.VClock, sender types.ActorId) {
	if !s.retransmit.Ack(ts, sender) {
		n.log.Debugf("%v", errors.Wrapf(ErrUnknownAck, "%s from %s", ts, sender))
	}
	n.reportMetrics(s)
}

// handleMembership implements spec.md §4.F "on_membership": replace members
// with new_set \ {self}, initialize fresh RTM rows for newcomers, and drop
// rows for peers that left (spec.md §4.B).
func (n *Node) handleMembership(s *actorState, newSet map[types.ActorId]struct{}) {
	next := make(map[types.ActorId]struct{}, len(newSet))
	for p := range newSet {
		if p == n.actor {
			continue
		}
		next[p] = struct{}{}
	}

	for p := range next {
		if _, already := s.members[p]; !already {
			s.rtm.EnsureMember(p)
		}
	}
	for p := range s.members {
		if _, still := next[p]; !still {
			s.rtm.Drop(p)
		}
	}

	s.members = next
	n.reportMetrics(s)
}

// handleTick implements spec.md §4.E "Periodic resend".
func (n *Node) handleTick(s *actorState) {
	now := n.now()
	due := s.retransmit.Due(now, n.conf.ResendAfter())
	for _, e := range due {
		dests := make([]types.ActorId, 0, len(e.Awaiting))
		for p := range e.Awaiting {
			// An implementation MAY intersect awaiting with current
			// membership on resend to avoid futile sends (spec.md §4.E,
			// §9) — awaiting itself is never pruned by membership
			// changes, so stability can still advance past a departed
			// peer via the RTM/SVV path.
			if _, member := s.members[p]; member {
				dests = append(dests, p)
			}
		}
		n.sendAll(dests, types.NewCastFrame(e.Origin, e.Body, e.Ts, n.actor))
		s.retransmit.Touch(e.Ts, now)
	}
	n.reportMetrics(s)
}

// tryDeliver drives the causal-delivery buffer's admission algorithm of
// spec.md §4.C: a newly-buffered message may itself be immediately
// deliverable, and delivering it can in turn unblock others, so every call
// re-scans to a fixed point.
func (n *Node) tryDeliver(s *actorState) {
	deliverable := func(origin types.ActorId, ts types.VClock) bool {
		return types.Deliverable(origin, ts, s.vv)
	}
	admit := func(origin types.ActorId, body []byte, ts types.VClock) bool {
		return n.deliver(s, ts, body)
	}
	s.pending.Rescan(deliverable, admit)
}

// deliver performs the admission side effects of spec.md §4.C step 2: on
// handler success, advance vv and drop any buffered copy of ts; on handler
// error, leave vv and the buffer untouched and report failure so
// Buffer.Rescan stops. handleBroadcast ignores the result.
func (n *Node) deliver(s *actorState, ts types.VClock, body []byte) bool {
	if s.handler == nil {
		// No application handler registered yet: per spec.md §7 a
		// handler error leaves the message buffered for a future
		// retry, and an absent handler is the same condition.
		return false
	}
	if err := s.handler(ts, body); err != nil {
		n.log.Warnf("%v", errors.Wrapf(ErrHandlerFailed, "%s: %v", ts, err))
		return false
	}
	s.vv = types.Merge(s.vv, ts)
	s.pending.Remove(ts)
	if n.metrics != nil {
		n.metrics.Delivered.Inc()
	}
	return true
}

func (n *Node) reportMetrics(s *actorState) {
	if n.metrics == nil {
		return
	}
	n.metrics.PendingBufferDepth.Set(float64(s.pending.Len()))
	n.metrics.RetransmitBacklog.Set(float64(s.retransmit.Len()))

	svv := s.rtm.StableVersionVector(s.members, s.rtm.Row(n.actor))
	var lag float64
	for a, v := range s.vv {
		if v > svv.At(a) {
			lag += float64(v - svv.At(a))
		}
	}
	n.metrics.StabilityLag.Set(lag)
}
