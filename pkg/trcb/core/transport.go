package core

import "github.com/jabolina/trcb/pkg/trcb/types"

// Transport is the abstract peer-service collaborator consumed by the
// broadcast actor (spec.md §1, §6): "The core consumes
// {send(peer, msg), on_membership(new_set)} and nothing more." Membership
// discovery and point-to-point delivery live entirely outside this package;
// Transport is the seam between them and the actor.
type Transport interface {
	// Send is best-effort and fire-and-forget: it must not block the
	// caller for more than a bounded time, and may silently drop the
	// frame (spec.md §5, §7 TransportSendFailure — unobservable to the
	// core; the retransmit timer is the recovery mechanism).
	Send(peer types.ActorId, frame types.Frame) error

	// Frames returns the channel the transport pushes received frames
	// onto. The actor is the sole consumer.
	Frames() <-chan types.Frame

	// Membership returns the channel the transport pushes membership
	// snapshots onto, one per change, per spec.md §6 ("The transport
	// invokes on_membership(new_set) on every membership change").
	Membership() <-chan map[types.ActorId]struct{}

	// Close releases the transport's resources. It does not drain
	// pending work (spec.md §4.F, "Terminal state").
	Close() error
}
