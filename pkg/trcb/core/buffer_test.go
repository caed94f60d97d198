package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/trcb/pkg/trcb/core"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

func TestBuffer_RescanDrainsToFixedPoint(t *testing.T) {
	// "y" = {A:1,B:1} arrives before "x" = {A:1}: y is buffered first,
	// not yet deliverable; once x arrives and is delivered, y must drain
	// in the same Rescan pass (spec.md Scenario 2).
	buf := core.NewBuffer()
	buf.Append(B, []byte("y"), types.VClock{A: 1, B: 1})

	vv := types.FreshClock()
	var delivered []string

	deliverable := func(origin types.ActorId, ts types.VClock) bool { return types.Deliverable(origin, ts, vv) }
	admit := func(origin types.ActorId, body []byte, ts types.VClock) bool {
		vv = types.Merge(vv, ts)
		delivered = append(delivered, string(body))
		return true
	}

	buf.Rescan(deliverable, admit) // nothing deliverable yet
	require.Empty(t, delivered)
	require.Equal(t, 1, buf.Len())

	// "x" arrives directly (not through the buffer) and is delivered,
	// advancing vv; then the pending buffer is rescanned.
	vv = types.Merge(vv, types.VClock{A: 1})
	buf.Rescan(deliverable, admit)

	require.Equal(t, []string{"y"}, delivered)
	require.Equal(t, 0, buf.Len())
}

func TestBuffer_HandlerErrorLeavesEntryBuffered(t *testing.T) {
	buf := core.NewBuffer()
	buf.Append(A, []byte("x"), types.VClock{A: 1})

	deliverable := func(origin types.ActorId, ts types.VClock) bool { return true }
	calls := 0
	admit := func(origin types.ActorId, body []byte, ts types.VClock) bool {
		calls++
		return false // handler failed
	}

	buf.Rescan(deliverable, admit)
	require.Equal(t, 1, calls)
	require.Equal(t, 1, buf.Len(), "a failed handler must leave the message buffered")
}

func TestBuffer_ContainsAndRemove(t *testing.T) {
	buf := core.NewBuffer()
	ts := types.VClock{A: 1}
	buf.Append(A, []byte("x"), ts)
	require.True(t, buf.Contains(ts))

	buf.Remove(ts)
	require.False(t, buf.Contains(ts))
	require.Equal(t, 0, buf.Len())
}

func TestBuffer_OrderDoesNotAffectCorrectness(t *testing.T) {
	// Concurrent messages {A:1} and {B:1} buffered in either order must
	// both eventually drain once vv covers them (spec.md Scenario 3).
	buf := core.NewBuffer()
	buf.Append(B, []byte("y"), types.VClock{B: 1})
	buf.Append(A, []byte("x"), types.VClock{A: 1})

	vv := types.FreshClock()
	deliverable := func(origin types.ActorId, ts types.VClock) bool { return types.Deliverable(origin, ts, vv) }
	var delivered []string
	admit := func(origin types.ActorId, body []byte, ts types.VClock) bool {
		delivered = append(delivered, string(body))
		return true
	}
	buf.Rescan(deliverable, admit)
	require.ElementsMatch(t, []string{"x", "y"}, delivered)
}
