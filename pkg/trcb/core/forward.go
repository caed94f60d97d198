package core

import "github.com/jabolina/trcb/pkg/trcb/types"

// ForwardSet computes F = members \ {sender, origin}, the set of peers a
// received cast must be relayed to (spec.md §4.D step 2). Forwarding to
// everyone except the immediate sender and the origin means every receiver
// contributes to flooding while removing the two peers that demonstrably
// already have the message; residual cycles are absorbed by the duplicate
// test in IsDuplicate.
func ForwardSet(members map[types.ActorId]struct{}, sender, origin types.ActorId) []types.ActorId {
	out := make([]types.ActorId, 0, len(members))
	for p := range members {
		if p == sender || p == origin {
			continue
		}
		out = append(out, p)
	}
	return out
}

// IsDuplicate implements the duplicate test of spec.md §4.D step 1: a
// received cast is dropped silently if the node's vv already descends from
// its timestamp, or if an entry with the identical timestamp is already
// buffered.
func IsDuplicate(vv types.VClock, ts types.VClock, buffer *Buffer) bool {
	if types.Descends(vv, ts) {
		return true
	}
	return buffer.Contains(ts)
}
