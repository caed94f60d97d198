package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/trcb/pkg/trcb/core"
	"github.com/jabolina/trcb/pkg/trcb/types"
)

const (
	A types.ActorId = "A"
	B types.ActorId = "B"
	C types.ActorId = "C"
)

func membersOf(ids ...types.ActorId) map[types.ActorId]struct{} {
	m := make(map[types.ActorId]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func TestMatrix_FreshMemberKeepsSVVLow(t *testing.T) {
	m := core.NewMatrix()
	m.Observe(A, types.VClock{A: 1})
	m.EnsureMember(B) // newly joined, no observations yet

	svv := m.StableVersionVector(membersOf(A, B), types.FreshClock())
	require.Equal(t, uint64(0), svv.At(A), "B's fresh row must keep svv at 0 for A too")
}

func TestMatrix_SVVAdvancesOnceAllRowsCatchUp(t *testing.T) {
	m := core.NewMatrix()
	m.Observe(A, types.VClock{A: 1})
	m.Observe(B, types.VClock{A: 1, B: 1})

	svv := m.StableVersionVector(membersOf(A, B), types.VClock{A: 1})
	require.Equal(t, uint64(1), svv.At(A))
	require.Equal(t, uint64(0), svv.At(B), "self's and A's rows have not observed B yet")
}

func TestMatrix_DropNeverRetreatsAlreadyStable(t *testing.T) {
	m := core.NewMatrix()
	m.Observe(A, types.VClock{A: 1})
	m.Observe(B, types.VClock{A: 1, B: 1})
	before := m.StableVersionVector(membersOf(A, B), types.VClock{A: 1})
	require.True(t, types.Descends(before, types.VClock{A: 1}))

	m.Drop(B)
	after := m.StableVersionVector(membersOf(A), types.VClock{A: 1})
	require.True(t, types.Descends(after, before), "dropping a member must never make already-stable timestamps un-stable")
}

func TestStableFilter(t *testing.T) {
	svv := types.VClock{A: 1, B: 1}
	candidates := []types.VClock{
		{A: 1},
		{A: 1, B: 1},
		{A: 2, B: 1},
	}
	stable := core.StableFilter(svv, candidates)
	require.Len(t, stable, 2)
}
