package test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/trcb/pkg/trcb/types"
)

// TestProtocol_BootstrapCluster mirrors the teacher's
// TestProtocol_BootstrapUnity: a cluster must come up cleanly and every
// node's event loop must be responsive before any broadcast is attempted.
func TestProtocol_BootstrapCluster(t *testing.T) {
	cluster := NewCluster(t, 3, "bootstrap", true)
	defer cluster.Off()

	for _, n := range cluster.Nodes {
		require.Empty(t, n.Node.StableFilter(nil))
	}
}

// TestProtocol_TwoNodeBasicDelivery covers spec.md Scenario 1: a single
// broadcast from A must be delivered, in causal order, at B.
func TestProtocol_TwoNodeBasicDelivery(t *testing.T) {
	cluster := NewCluster(t, 2, "basic", true)
	defer cluster.Off()

	a := cluster.Nodes[0]
	ts := a.Node.Broadcast([]byte("hello"))
	require.Equal(t, uint64(1), ts.At(a.Actor))

	require.True(t, cluster.WaitUntilAllDelivered(1, time.Second))
	require.Equal(t, []string{"hello"}, cluster.DeliveredBodies(0))
	require.Equal(t, []string{"hello"}, cluster.DeliveredBodies(1))
}

// TestProtocol_CausalReordering covers spec.md Scenario 2: A casts "x", C's
// direct copy of it is dropped, and B casts "y" (causally dependent on "x")
// before the retransmit timer ever fires. C still learns of "x" from B,
// which relays every cast to all members other than its sender and origin;
// every node must deliver "x" before the "y" that depends on it.
func TestProtocol_CausalReordering(t *testing.T) {
	cluster := NewCluster(t, 3, "causal", true)
	defer cluster.Off()
	time.Sleep(50 * time.Millisecond) // let membership settle

	a, b, c := cluster.Nodes[0], cluster.Nodes[1], cluster.Nodes[2]
	cluster.Network().DropNext(a.Actor, c.Actor, 1)

	a.Node.Broadcast([]byte("x"))
	time.Sleep(50 * time.Millisecond) // let b observe x (via direct cast) before casting y
	b.Node.Broadcast([]byte("y"))

	require.True(t, cluster.WaitUntilAllDelivered(2, 3*time.Second),
		"c must still deliver both messages after its direct copy of x is dropped, via b's relay of x")
	for i := range cluster.Nodes {
		require.Equal(t, []string{"x", "y"}, cluster.DeliveredBodies(i),
			"node %d must never deliver y ahead of the x it causally depends on", i)
	}
}

// TestProtocol_ConcurrentMessages covers spec.md Scenario 3: concurrent
// broadcasts from distinct origins are unordered with respect to each
// other, but both must still be delivered everywhere.
func TestProtocol_ConcurrentMessages(t *testing.T) {
	cluster := NewCluster(t, 3, "concurrent", true)
	defer cluster.Off()
	time.Sleep(50 * time.Millisecond)

	cluster.Nodes[0].Node.Broadcast([]byte("from-a"))
	cluster.Nodes[1].Node.Broadcast([]byte("from-b"))

	require.True(t, cluster.WaitUntilAllDelivered(2, 2*time.Second))
	for i := range cluster.Nodes {
		require.ElementsMatch(t, []string{"from-a", "from-b"}, cluster.DeliveredBodies(i))
	}
}

// TestProtocol_DuplicateFloodThreeNodeRing covers spec.md Scenario 4: in a
// fully connected 3-node ring the forwarder necessarily re-floods a cast to
// nodes that already saw it; the duplicate filter must still converge on
// exactly one delivery per node.
func TestProtocol_DuplicateFloodThreeNodeRing(t *testing.T) {
	cluster := NewCluster(t, 3, "ring", true)
	defer cluster.Off()
	time.Sleep(50 * time.Millisecond)

	cluster.Nodes[0].Node.Broadcast([]byte("once"))
	require.True(t, cluster.WaitUntilAllDelivered(1, time.Second))

	time.Sleep(200 * time.Millisecond) // allow any duplicate flood to arrive
	for i := range cluster.Nodes {
		require.Len(t, cluster.DeliveredBodies(i), 1, "node %d must deliver exactly once despite re-flooding", i)
	}
}

// TestProtocol_RetransmitAfterDrop covers spec.md Scenario 5: the first
// copy of a cast from A to B is dropped; the retransmit timer must recover
// delivery at B without A's application ever re-calling Broadcast.
func TestProtocol_RetransmitAfterDrop(t *testing.T) {
	cluster := NewCluster(t, 2, "retransmit", true)
	defer cluster.Off()
	time.Sleep(50 * time.Millisecond)

	a, b := cluster.Nodes[0], cluster.Nodes[1]
	cluster.Network().DropNext(a.Actor, b.Actor, 1)

	a.Node.Broadcast([]byte("retried"))

	// With the default configuration an entry is resent once it is older
	// than 10s, checked every 5s, so the resend lands about 15s in.
	require.True(t, cluster.WaitUntilAllDelivered(1, 20*time.Second),
		"b must eventually receive the cast via retransmit after the first copy is dropped")
	require.Equal(t, []string{"retried"}, cluster.DeliveredBodies(1))
}

// TestProtocol_StabilityConverges covers spec.md Scenario 6. An rtm row only
// advances when its indexed actor originates a cast (spec.md §4.B), so a's
// broadcast only becomes stable at a once every other member has itself
// broadcast something causally after it — here, once b and c each echo
// back, their merged vv (and so their own next cast's ts) already
// dominates a's original timestamp.
func TestProtocol_StabilityConverges(t *testing.T) {
	cluster := NewCluster(t, 3, "stability", true)
	defer cluster.Off()
	time.Sleep(50 * time.Millisecond)

	ts := cluster.Nodes[0].Node.Broadcast([]byte("payload"))
	require.True(t, cluster.WaitUntilAllDelivered(1, time.Second))

	cluster.Nodes[1].Node.Broadcast([]byte("echo-b"))
	cluster.Nodes[2].Node.Broadcast([]byte("echo-c"))
	require.True(t, cluster.WaitUntilAllDelivered(3, 2*time.Second))

	time.Sleep(100 * time.Millisecond) // let the resulting rtm observations settle
	stable := cluster.Nodes[0].Node.StableFilter([]types.VClock{ts})
	require.Len(t, stable, 1, "timestamp observed by every member must become stable")
}

// TestProtocol_MembershipChurnDropsStaleRow exercises on_membership: once a
// peer leaves, its stale rtm row must be dropped so stability among the
// remaining members does not stay blocked on a row that will never advance
// again.
func TestProtocol_MembershipChurnDropsStaleRow(t *testing.T) {
	cluster := NewCluster(t, 3, "churn", true)
	defer cluster.Off()
	time.Sleep(50 * time.Millisecond)

	leaving := cluster.Nodes[2]
	cluster.Network().Disconnect(leaving.Actor)
	time.Sleep(50 * time.Millisecond)

	ts := cluster.Nodes[0].Node.Broadcast([]byte("after-churn"))
	require.True(t, cluster.WaitUntilDelivered([]int{0, 1}, 1, time.Second))

	cluster.Nodes[1].Node.Broadcast([]byte("echo-b"))
	require.True(t, cluster.WaitUntilDelivered([]int{0, 1}, 2, 2*time.Second))

	time.Sleep(100 * time.Millisecond)
	stable := cluster.Nodes[0].Node.StableFilter([]types.VClock{ts})
	require.Len(t, stable, 1, "stability must not be blocked forever by a departed member's stale row")
}
