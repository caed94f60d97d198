package trcb

import "github.com/pkg/errors"

// Error taxonomy of spec.md §7. None of these ever reach the application
// from the receive path — they exist for internal logging and for tests
// that assert on error identity via errors.Is.
var (
	// ErrHandlerFailed means the application delivery handler returned an
	// error. The failing message is left in (or returned to)
	// pending_delivery and vv is not advanced.
	ErrHandlerFailed = errors.New("trcb: delivery handler failed")

	// ErrDuplicateFrame means a cast was already delivered or already
	// buffered. It is dropped silently and never surfaced past internal
	// logging.
	ErrDuplicateFrame = errors.New("trcb: duplicate frame")

	// ErrUnknownAck means an ack arrived for a timestamp no longer (or
	// never) present in the retransmit queue. It is dropped silently.
	ErrUnknownAck = errors.New("trcb: unknown ack")
)
