package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/trcb/pkg/trcb/core"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

func TestRetransmitQueue_AckDrainsEntry(t *testing.T) {
	q := core.NewRetransmitQueue()
	ts := types.VClock{A: 1}
	now := time.Now()
	q.Register(A, []byte("x"), ts, []types.ActorId{B, C}, now)
	require.Equal(t, 1, q.Len())

	require.True(t, q.Ack(ts, B))
	require.Equal(t, 1, q.Len(), "entry survives until every destination acks")

	require.True(t, q.Ack(ts, C))
	require.Equal(t, 0, q.Len(), "entry is erased once awaiting is empty")
}

func TestRetransmitQueue_UnknownAckIsNoop(t *testing.T) {
	q := core.NewRetransmitQueue()
	require.False(t, q.Ack(types.VClock{A: 1}, B))
}

func TestRetransmitQueue_DueAfterThreshold(t *testing.T) {
	q := core.NewRetransmitQueue()
	ts := types.VClock{A: 1}
	old := time.Now().Add(-time.Hour)
	q.Register(A, []byte("x"), ts, []types.ActorId{B}, old)

	due := q.Due(time.Now(), 10*time.Second)
	require.Len(t, due, 1)

	q.Touch(ts, time.Now())
	require.Empty(t, q.Due(time.Now(), 10*time.Second))
}

func TestRetransmitQueue_EmptyAwaitingNeverRegistered(t *testing.T) {
	q := core.NewRetransmitQueue()
	q.Register(A, []byte("x"), types.VClock{A: 1}, nil, time.Now())
	require.Equal(t, 0, q.Len())
}
