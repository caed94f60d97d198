// Package test provides a cluster test harness shared by the scenario
// tests in this directory and by the fuzzy tests in ../fuzzy. Structurally
// adapted from the teacher's own test/testing.go (UnityCluster ->
// NodeCluster, CreateCluster/Next/Off survive with the same shape), but
// built against pkg/trcb's Node and in-process Network instead of the
// teacher's partition/unity model.
package test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/jabolina/trcb/pkg/trcb"
	"github.com/jabolina/trcb/pkg/trcb/transport"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

// Delivery is one recorded invocation of a node's delivery handler.
type Delivery struct {
	Ts   types.VClock
	Body string
}

// RecordingNode wraps a *trcb.Node with a handler that appends every
// delivery to a slice, so tests can assert on delivered order/contents.
type RecordingNode struct {
	Actor types.ActorId
	Node  *trcb.Node

	mutex      sync.Mutex
	Delivered  []Delivery
}

func (n *RecordingNode) record(ts types.VClock, body []byte) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.Delivered = append(n.Delivered, Delivery{Ts: ts, Body: string(body)})
	return nil
}

// Snapshot returns a copy of the deliveries recorded so far.
func (n *RecordingNode) Snapshot() []Delivery {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	out := make([]Delivery, len(n.Delivered))
	copy(out, n.Delivered)
	return out
}

// NodeCluster is a fixed set of TRCB nodes wired together over a single
// in-process transport.Network, fully connected (every node is a member of
// every other node's membership), mirroring the teacher's UnityCluster.
type NodeCluster struct {
	T     *testing.T
	Names []types.ActorId
	Nodes []*RecordingNode

	network *transport.Network
	mutex   sync.Mutex
	index   int
}

// NewCluster builds size nodes named prefix-A, prefix-B, ... over a fresh
// Network, each configured with deliverLocally as given.
func NewCluster(t *testing.T, size int, prefix string, deliverLocally bool) *NodeCluster {
	net := transport.NewNetwork()
	cluster := &NodeCluster{T: t, network: net}

	var actors []types.ActorId
	var mem *transport.MemoryTransport
	var mems []*transport.MemoryTransport
	for i := 0; i < size; i++ {
		actor := types.ActorId(prefix + "-" + string(rune('A'+i)))
		actors = append(actors, actor)
		mem = net.Connect(actor)
		mems = append(mems, mem)
	}

	for i, actor := range actors {
		conf := trcb.DefaultConfiguration()
		conf.DeliverLocally = deliverLocally
		conf.Logger.ToggleDebug(false)
		node := trcb.NewNode(actor, conf, mems[i], nil)
		rn := &RecordingNode{Actor: actor, Node: node}
		node.SetDeliveryHandler(rn.record)
		cluster.Names = append(cluster.Names, actor)
		cluster.Nodes = append(cluster.Nodes, rn)
	}
	return cluster
}

// Network exposes the underlying in-process network for fault injection
// (e.g. DropNext for spec.md Scenario 5).
func (c *NodeCluster) Network() *transport.Network {
	return c.network
}

// Next round-robins through the cluster's nodes, mirroring the teacher's
// UnityCluster.Next.
func (c *NodeCluster) Next() *RecordingNode {
	c.mutex.Lock()
	defer func() {
		c.index++
		c.mutex.Unlock()
	}()
	if c.index >= len(c.Nodes) {
		c.index = 0
	}
	return c.Nodes[c.index]
}

// Off shuts down every node concurrently and waits for all to finish,
// mirroring the teacher's UnityCluster.Off.
func (c *NodeCluster) Off() {
	var wg sync.WaitGroup
	for _, n := range c.Nodes {
		wg.Add(1)
		go func(n *RecordingNode) {
			defer wg.Done()
			n.Node.Shutdown()
		}(n)
	}
	wg.Wait()
}

// DeliveredBodies returns, for node i, the bodies it has delivered so far
// in delivery order.
func (c *NodeCluster) DeliveredBodies(i int) []string {
	snap := c.Nodes[i].Snapshot()
	out := make([]string, len(snap))
	for j, d := range snap {
		out[j] = d.Body
	}
	return out
}

// WaitUntilAllDelivered polls until every node has delivered at least n
// messages or the timeout elapses, returning whether it succeeded.
func (c *NodeCluster) WaitUntilAllDelivered(n int, timeout time.Duration) bool {
	indices := make([]int, len(c.Nodes))
	for i := range c.Nodes {
		indices[i] = i
	}
	return c.WaitUntilDelivered(indices, n, timeout)
}

// WaitUntilDelivered is WaitUntilAllDelivered restricted to the given node
// indices, for scenarios (e.g. after a peer has been disconnected) where
// waiting on the whole cluster would never converge.
func (c *NodeCluster) WaitUntilDelivered(indices []int, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		done := true
		for _, i := range indices {
			if len(c.Nodes[i].Snapshot()) < n {
				done = false
				break
			}
		}
		if done {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

// PrintStackTrace dumps every goroutine's stack, used when a cluster fails
// to shut down within a deadline.
func PrintStackTrace(t *testing.T) {
	buf := make([]byte, 1<<16)
	n := runtime.Stack(buf, true)
	t.Errorf("%s", buf[:n])
}

// WaitThisOrTimeout runs cb in a goroutine and reports whether it finished
// before duration elapsed, mirroring the teacher's helper of the same name.
func WaitThisOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan struct{})
	go func() {
		cb()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}
