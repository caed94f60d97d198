// Package trcb implements the per-node Transitive Reliable Causal Broadcast
// engine described by spec.md: a single-threaded broadcast actor (Node)
// coordinating a vector clock, a timestamp matrix / stability tracker, a
// causal-delivery buffer, a retransmit queue and a forwarder over an
// external peer transport.
package trcb

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jabolina/trcb/pkg/trcb/core"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

// Node is the broadcast actor of spec.md §4.F. All of its state (vv,
// members, rtm, svv, pending_delivery, retransmit) is owned exclusively by
// the single goroutine running loop(); every other method only ever talks
// to that goroutine through a channel, so state mutation always serializes
// on one logical thread per spec.md §5, never on fine-grained locking.
type Node struct {
	actor     types.ActorId
	conf      types.Configuration
	transport core.Transport
	metrics   *core.Metrics
	log       types.Logger

	// mailbox, FIFO per event kind; loop() selects over all of them.
	broadcastReq     chan broadcastRequest
	setHandlerReq    chan setHandlerRequest
	stableFilterReq  chan stableFilterRequest
	shutdownReq      chan chan struct{}

	ticker *core.Ticker
	now    func() time.Time

	closeOnce sync.Once
	done      chan struct{}
}

type broadcastRequest struct {
	body []byte
	resp chan types.VClock
}

type setHandlerRequest struct {
	handler types.DeliveryHandler
	resp    chan struct{}
}

type stableFilterRequest struct {
	ts   []types.VClock
	resp chan []types.VClock
}

// NewNode constructs a Node for actor, wired to transport, and starts its
// event loop in a background goroutine. metrics may be nil to disable
// metrics collection.
func NewNode(actor types.ActorId, conf types.Configuration, transport core.Transport, metrics *core.Metrics) *Node {
	if conf.Logger == nil {
		conf.Logger = DefaultConfiguration().Logger
	}
	if conf.CheckResendIntervalMS == 0 {
		conf.CheckResendIntervalMS = types.DefaultCheckResendIntervalMS
	}
	if conf.ResendAfterMS == 0 {
		conf.ResendAfterMS = types.DefaultResendAfterMS
	}

	n := &Node{
		actor:           actor,
		conf:            conf,
		transport:       transport,
		metrics:         metrics,
		log:             conf.Logger,
		broadcastReq:    make(chan broadcastRequest),
		setHandlerReq:   make(chan setHandlerRequest),
		stableFilterReq: make(chan stableFilterRequest),
		shutdownReq:     make(chan chan struct{}),
		ticker:          core.NewTicker(conf.CheckResendInterval()),
		now:             time.Now,
		done:            make(chan struct{}),
	}

	state := newActorState()
	go n.loop(state)
	return n
}

// actorState is every piece of data spec.md §3 says the node owns. It is
// only ever touched from inside loop(), never concurrently.
type actorState struct {
	vv         types.VClock
	members    map[types.ActorId]struct{}
	rtm        *core.Matrix
	pending    *core.Buffer
	retransmit *core.RetransmitQueue
	handler    types.DeliveryHandler
}

func newActorState() *actorState {
	return &actorState{
		vv:         types.FreshClock(),
		members:    make(map[types.ActorId]struct{}),
		rtm:        core.NewMatrix(),
		pending:    core.NewBuffer(),
		retransmit: core.NewRetransmitQueue(),
	}
}

// loop is the single goroutine that owns all actor state, processing
// exactly one event at a time; when several kinds of event are ready, the
// select picks among them in no fixed order.
func (n *Node) loop(s *actorState) {
	defer n.ticker.Stop()
	defer close(n.done)

	for {
		select {
		case req := <-n.broadcastReq:
			req.resp <- n.handleBroadcast(s, req.body)

		case req := <-n.setHandlerReq:
			s.handler = req.handler
			close(req.resp)

		case req := <-n.stableFilterReq:
			svv := s.rtm.StableVersionVector(s.members, s.rtm.Row(n.actor))
			req.resp <- core.StableFilter(svv, req.ts)

		case frame := <-n.transport.Frames():
			n.handleFrame(s, frame)

		case members := <-n.transport.Membership():
			n.handleMembership(s, members)

		case <-n.ticker.C():
			n.handleTick(s)

		case reply := <-n.shutdownReq:
			close(reply)
			return
		}
	}
}

// Broadcast initiates a causally-ready broadcast and returns the timestamp
// assigned to it (spec.md §4.E "Local broadcast", §6).
func (n *Node) Broadcast(body []byte) types.VClock {
	resp := make(chan types.VClock, 1)
	select {
	case n.broadcastReq <- broadcastRequest{body: body, resp: resp}:
		return <-resp
	case <-n.done:
		return types.FreshClock()
	}
}

// SetDeliveryHandler replaces the current delivery handler (spec.md §6).
func (n *Node) SetDeliveryHandler(f types.DeliveryHandler) {
	resp := make(chan struct{})
	select {
	case n.setHandlerReq <- setHandlerRequest{handler: f, resp: resp}:
		<-resp
	case <-n.done:
	}
}

// StableFilter returns the subset of ts known to every current member
// (spec.md §4.B, §6).
func (n *Node) StableFilter(ts []types.VClock) []types.VClock {
	resp := make(chan []types.VClock, 1)
	select {
	case n.stableFilterReq <- stableFilterRequest{ts: ts, resp: resp}:
		return <-resp
	case <-n.done:
		return nil
	}
}

// Compact is sugar over StableFilter for a downstream causal-consistency
// layer's own log-compaction loop (SPEC_FULL.md §4): every stable
// timestamp is always dropped; keep is consulted only for the rest, so a
// caller can still retain not-yet-stable entries it isn't ready to lose.
// Compact never touches pending_delivery or retransmit — it only reads the
// stability boundary they imply.
func (n *Node) Compact(entries []types.VClock, keep func(ts types.VClock) bool) []types.VClock {
	stable := n.StableFilter(entries)
	stableSet := make(map[string]struct{}, len(stable))
	for _, t := range stable {
		stableSet[t.Key()] = struct{}{}
	}
	retained := make([]types.VClock, 0, len(entries))
	for _, t := range entries {
		if _, isStable := stableSet[t.Key()]; isStable {
			continue
		}
		if keep(t) {
			retained = append(retained, t)
		}
	}
	return retained
}

// Shutdown stops the actor's event loop. Pending work is abandoned, per
// spec.md §4.F "Terminal state".
func (n *Node) Shutdown() {
	n.closeOnce.Do(func() {
		reply := make(chan struct{})
		select {
		case n.shutdownReq <- reply:
			<-reply
		case <-n.done:
		}
	})
}

// sendAll fan-outs frame to every peer in dests concurrently, bounding how
// long a single slow destination can hold up the rest of the event handler
// (SPEC_FULL.md §3: golang.org/x/sync/errgroup). Every error is logged and
// otherwise ignored — spec.md §7 TransportSendFailure is unobservable to
// the core; the retransmit timer is the recovery path.
func (n *Node) sendAll(dests []types.ActorId, frame types.Frame) {
	if len(dests) == 0 {
		return
	}
	var g errgroup.Group
	for _, dest := range dests {
		dest := dest
		g.Go(func() error {
			if err := n.transport.Send(dest, frame); err != nil {
				n.log.Warnf("send to %s failed: %v", dest, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
