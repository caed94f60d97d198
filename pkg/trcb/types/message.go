package types

// Message is an application broadcast: the actor that assigned it a
// timestamp, the opaque payload, and the vector-clock timestamp itself
// (assigned by origin at broadcast time as Increment(origin, local_vv), per
// spec.md §3).
type Message struct {
	Origin ActorId
	Body   []byte
	Ts     VClock
}

// DeliveryHandler is the application-supplied callback invoked once, in
// causal order, for every message this node delivers. Returning a non-nil
// error leaves the message in (or returns it to) the causal-delivery
// buffer and does not advance the node's vector clock (spec.md §7,
// HandlerError).
type DeliveryHandler func(ts VClock, body []byte) error
