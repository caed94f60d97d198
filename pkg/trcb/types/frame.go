package types

import (
	"encoding/json"

	goversion "github.com/hashicorp/go-version"
	"github.com/pkg/errors"
)

// ProtocolVersion is the wire protocol version this build of the engine
// speaks. It follows the teacher's RPCHeader.ProtocolVersion idea: every
// frame carries it, and a node refuses to interpret a frame from an
// incompatible version (§2.4 of SPEC_FULL.md).
const ProtocolVersion = "1.0.0"

// MinSupportedProtocolVersion is the oldest wire version this build will
// still accept. A real deployment bumps this only on a breaking wire
// change, never on a feature release.
const MinSupportedProtocolVersion = "1.0.0"

// ErrUnsupportedProtocol is returned when a received frame's
// ProtocolVersion cannot be parsed or falls below MinSupportedProtocolVersion.
var ErrUnsupportedProtocol = errors.New("trcb: protocol version not supported")

// FrameKind discriminates the two wire variants described in spec.md §6.
type FrameKind uint8

const (
	// KindCast carries an application broadcast relayed hop-by-hop.
	KindCast FrameKind = iota
	// KindAck acknowledges receipt of a Cast back to its immediate sender.
	KindAck
)

// Frame is the tagged union transmitted between peers. The Cast-only fields
// (Origin, Body) are meaningful only when Kind == KindCast; Ack frames only
// need Ts and Sender.
type Frame struct {
	Kind            FrameKind `json:"kind"`
	ProtocolVersion string    `json:"protocol_version"`

	// Sender is the immediate hop that emitted this frame, always set.
	Sender ActorId `json:"sender"`

	// Cast-only fields.
	Origin ActorId `json:"origin,omitempty"`
	Body   []byte  `json:"body,omitempty"`

	// Ts is meaningful for both Cast (the message timestamp) and Ack
	// (the timestamp being acknowledged).
	Ts []Entry `json:"ts,omitempty"`
}

// Clock decodes the wire-format timestamp back into a VClock.
func (f Frame) Clock() VClock {
	return FromEntries(f.Ts)
}

// NewCastFrame builds a Cast frame for the message (origin, body, ts),
// relayed by sender, stamping it with this build's ProtocolVersion.
func NewCastFrame(origin ActorId, body []byte, ts VClock, sender ActorId) Frame {
	return Frame{
		Kind:            KindCast,
		ProtocolVersion: ProtocolVersion,
		Sender:          sender,
		Origin:          origin,
		Body:            body,
		Ts:              ts.Entries(),
	}
}

// NewAckFrame builds an Ack frame acknowledging ts, with sender set to the
// acknowledging node.
func NewAckFrame(ts VClock, sender ActorId) Frame {
	return Frame{
		Kind:            KindAck,
		ProtocolVersion: ProtocolVersion,
		Sender:          sender,
		Ts:              ts.Entries(),
	}
}

// CheckVersion verifies that f was produced by a protocol version this
// build still understands.
func CheckVersion(f Frame) error {
	got, err := goversion.NewVersion(f.ProtocolVersion)
	if err != nil {
		return errors.Wrapf(ErrUnsupportedProtocol, "malformed version %q", f.ProtocolVersion)
	}
	min, err := goversion.NewVersion(MinSupportedProtocolVersion)
	if err != nil {
		// MinSupportedProtocolVersion is a package constant; a parse
		// failure here is a programmer error, not a wire condition.
		panic(err)
	}
	if got.LessThan(min) {
		return errors.Wrapf(ErrUnsupportedProtocol, "frame version %s older than minimum %s", got, min)
	}
	return nil
}

// Marshal encodes f for the wire. Grounded on the teacher's own
// core/transport.go, which uses encoding/json for exactly this purpose; no
// third-party codec appears anywhere in the retrieved corpus for this
// concern.
func Marshal(f Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	return data, errors.Wrap(err, "marshal frame")
}

// Unmarshal decodes a frame previously produced by Marshal.
func Unmarshal(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, errors.Wrap(err, "unmarshal frame")
}
