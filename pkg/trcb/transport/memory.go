package transport

import (
	"sync"

	"github.com/jabolina/trcb/pkg/trcb/types"
)

// Network is an in-process peer-service used for tests: it routes frames
// between MemoryTransport instances directly, with optional synthetic frame
// drops, so the scenarios of spec.md §8 (reordering, duplication, loss,
// membership churn) can be driven deterministically without real sockets.
type Network struct {
	mu    sync.Mutex
	nodes map[types.ActorId]*MemoryTransport
	drops map[dropKey]int
}

type dropKey struct {
	from, to types.ActorId
}

// NewNetwork returns an empty in-process network.
func NewNetwork() *Network {
	return &Network{
		nodes: make(map[types.ActorId]*MemoryTransport),
		drops: make(map[dropKey]int),
	}
}

// Connect registers actor on the network and returns its Transport, then
// publishes the updated membership snapshot to every connected node.
func (net *Network) Connect(actor types.ActorId) *MemoryTransport {
	net.mu.Lock()
	t := &MemoryTransport{
		self:       actor,
		net:        net,
		frames:     make(chan types.Frame, 256),
		membership: make(chan map[types.ActorId]struct{}, 4),
		done:       make(chan struct{}),
	}
	net.nodes[actor] = t
	net.mu.Unlock()
	net.broadcastMembership()
	return t
}

// Disconnect removes actor from the network and publishes the updated
// membership snapshot to the remaining nodes.
func (net *Network) Disconnect(actor types.ActorId) {
	net.mu.Lock()
	if t, ok := net.nodes[actor]; ok {
		delete(net.nodes, actor)
		close(t.done)
	}
	net.mu.Unlock()
	net.broadcastMembership()
}

// DropNext makes the network silently drop the next n frames sent from
// `from` to `to`, modeling spec.md Scenario 5's "drop the first copy of
// every frame".
func (net *Network) DropNext(from, to types.ActorId, n int) {
	net.mu.Lock()
	defer net.mu.Unlock()
	net.drops[dropKey{from: from, to: to}] = n
}

func (net *Network) broadcastMembership() {
	net.mu.Lock()
	snapshot := make(map[types.ActorId]struct{}, len(net.nodes))
	for a := range net.nodes {
		snapshot[a] = struct{}{}
	}
	targets := make([]*MemoryTransport, 0, len(net.nodes))
	for _, t := range net.nodes {
		targets = append(targets, t)
	}
	net.mu.Unlock()

	for _, t := range targets {
		select {
		case t.membership <- snapshot:
		case <-t.done:
		}
	}
}

func (net *Network) route(from, to types.ActorId, frame types.Frame) {
	net.mu.Lock()
	key := dropKey{from: from, to: to}
	if remaining := net.drops[key]; remaining > 0 {
		net.drops[key] = remaining - 1
		net.mu.Unlock()
		return
	}
	dest, ok := net.nodes[to]
	net.mu.Unlock()
	if !ok {
		return
	}
	select {
	case dest.frames <- frame:
	case <-dest.done:
	}
}

// MemoryTransport is a Network-routed core.Transport for a single actor.
type MemoryTransport struct {
	self types.ActorId
	net  *Network

	frames     chan types.Frame
	membership chan map[types.ActorId]struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

// Send implements core.Transport.
func (t *MemoryTransport) Send(peer types.ActorId, frame types.Frame) error {
	t.net.route(t.self, peer, frame)
	return nil
}

// Frames implements core.Transport.
func (t *MemoryTransport) Frames() <-chan types.Frame {
	return t.frames
}

// Membership implements core.Transport.
func (t *MemoryTransport) Membership() <-chan map[types.ActorId]struct{} {
	return t.membership
}

// Close implements core.Transport.
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		t.net.Disconnect(t.self)
	})
	return nil
}
