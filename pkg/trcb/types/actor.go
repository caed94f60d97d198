package types

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
)

// ActorId is an opaque, globally unique, totally ordered identifier for a
// node. It is derived once at startup from host identity plus a
// process-unique integer and stays stable for the lifetime of the process.
//
// ActorId is a plain string under the hood so it can be used as a map key
// (VClock is map[ActorId]uint64) and compares with the regular `<` operator,
// which gives the total order spec.md requires without a custom Less method.
type ActorId string

var sequence uint64

// NewActorId derives a fresh ActorId from the local hostname and a
// process-unique, monotonically increasing sequence number, followed by a
// random UUID suffix so actors from different processes on the same host
// do not collide either.
func NewActorId() ActorId {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown-host"
	}
	seq := atomic.AddUint64(&sequence, 1)
	return ActorId(fmt.Sprintf("%s-%d-%s", host, seq, uuid.New().String()[:8]))
}

// String implements fmt.Stringer.
func (a ActorId) String() string {
	return string(a)
}
