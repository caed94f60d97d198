// Package transport provides reference Transport implementations for the
// core.Transport seam (spec.md §1, §6 — "the underlying peer-service" is an
// explicit external collaborator, out of scope for the engine itself). None
// of this package is required to use pkg/trcb; it exists so the module is
// directly runnable, the way the teacher shipped its own (test-only, never
// checked in) mcast.NewTCPTransport.
package transport

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/jabolina/trcb/pkg/trcb/types"
)

// ErrNotAdvertisableAddress is returned by NewTCPTransport when asked to
// bind a wildcard (unspecified IP) address without an explicit advertise
// address to hand out to peers instead.
var ErrNotAdvertisableAddress = errors.New("trcb/transport: could not determine an advertisable address")

const maxFrameBytes = 16 << 20 // 16MiB, generous for opaque application payloads.

// TCPTransport is a length-prefixed, JSON-framed TCP implementation of
// core.Transport. Each peer is dialed fresh per send (frames are
// fire-and-forget per spec.md §5), with outbound dials bounded by a
// semaphore sized maxPool so a burst of sends to many peers cannot open
// unbounded concurrent sockets.
type TCPTransport struct {
	listener net.Listener
	advertise string
	timeout  time.Duration
	sem      *semaphore.Weighted

	mu    sync.RWMutex
	peers map[types.ActorId]string

	frames     chan types.Frame
	membership chan map[types.ActorId]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

// NewTCPTransport binds bindAddr and begins accepting connections. If
// advertise is nil, the bound address (with the port the listener actually
// got, so "127.0.0.1:0" works) is used as-is; binding a wildcard address
// (e.g. "0.0.0.0:0") without an explicit advertise address leaves peers
// with no usable address to dial back, so that combination fails with
// ErrNotAdvertisableAddress — mirroring the
// behavior the teacher's own tcp_transport_test.go exercises against
// mcast.NewTCPTransport.
func NewTCPTransport(bindAddr string, advertise net.Addr, maxPool int, timeout time.Duration, logOutput io.Writer) (*TCPTransport, error) {
	listener, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s", bindAddr)
	}

	var advertised string
	if advertise != nil {
		advertised = advertise.String()
	} else {
		tcpAddr, ok := listener.Addr().(*net.TCPAddr)
		if !ok || tcpAddr.IP.IsUnspecified() || tcpAddr.Port == 0 {
			listener.Close()
			return nil, ErrNotAdvertisableAddress
		}
		advertised = tcpAddr.String()
	}

	if maxPool <= 0 {
		maxPool = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	t := &TCPTransport{
		listener:   listener,
		advertise:  advertised,
		timeout:    timeout,
		sem:        semaphore.NewWeighted(int64(maxPool)),
		peers:      make(map[types.ActorId]string),
		frames:     make(chan types.Frame, 256),
		membership: make(chan map[types.ActorId]struct{}, 1),
		done:       make(chan struct{}),
	}
	go t.accept()
	return t, nil
}

// LocalAddress returns the address this transport advertises to peers.
func (t *TCPTransport) LocalAddress() string {
	return t.advertise
}

// AddPeer registers addr as where frames for actor should be dialed, and
// publishes the resulting membership snapshot (spec.md §6, "the transport
// invokes on_membership on every membership change").
func (t *TCPTransport) AddPeer(actor types.ActorId, addr string) {
	t.mu.Lock()
	t.peers[actor] = addr
	snapshot := t.snapshotLocked()
	t.mu.Unlock()
	t.publishMembership(snapshot)
}

// RemovePeer unregisters actor and publishes the resulting membership
// snapshot.
func (t *TCPTransport) RemovePeer(actor types.ActorId) {
	t.mu.Lock()
	delete(t.peers, actor)
	snapshot := t.snapshotLocked()
	t.mu.Unlock()
	t.publishMembership(snapshot)
}

func (t *TCPTransport) snapshotLocked() map[types.ActorId]struct{} {
	snap := make(map[types.ActorId]struct{}, len(t.peers))
	for a := range t.peers {
		snap[a] = struct{}{}
	}
	return snap
}

func (t *TCPTransport) publishMembership(snapshot map[types.ActorId]struct{}) {
	select {
	case t.membership <- snapshot:
	case <-t.done:
	}
}

// Send implements core.Transport.
func (t *TCPTransport) Send(peer types.ActorId, frame types.Frame) error {
	t.mu.RLock()
	addr, ok := t.peers[peer]
	t.mu.RUnlock()
	if !ok {
		return errors.Errorf("trcb/transport: unknown peer %s", peer)
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "acquire send slot")
	}
	defer t.sem.Release(1)

	conn, err := net.DialTimeout("tcp", addr, t.timeout)
	if err != nil {
		return errors.Wrapf(err, "dial %s", addr)
	}
	defer conn.Close()

	data, err := types.Marshal(frame)
	if err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(t.timeout))
	if err := writeFrame(conn, data); err != nil {
		return errors.Wrap(err, "write frame")
	}
	return nil
}

// Frames implements core.Transport.
func (t *TCPTransport) Frames() <-chan types.Frame {
	return t.frames
}

// Membership implements core.Transport.
func (t *TCPTransport) Membership() <-chan map[types.ActorId]struct{} {
	return t.membership
}

// Close implements core.Transport.
func (t *TCPTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.listener.Close()
	})
	return err
}

func (t *TCPTransport) accept() {
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			select {
			case <-t.done:
				return
			default:
				continue
			}
		}
		go t.handleConn(conn)
	}
}

func (t *TCPTransport) handleConn(conn net.Conn) {
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(t.timeout))
	data, err := readFrame(conn)
	if err != nil {
		return
	}
	frame, err := types.Unmarshal(data)
	if err != nil {
		return
	}
	select {
	case t.frames <- frame:
	case <-t.done:
	}
}

func writeFrame(w io.Writer, payload []byte) error {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(payload)))
	if _, err := w.Write(length[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(length[:])
	if n > maxFrameBytes {
		return nil, errors.Errorf("trcb/transport: frame of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
