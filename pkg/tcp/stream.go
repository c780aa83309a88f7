package tcp

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
)

// How selects which direction of a stream Shutdown closes.
type How int

const (
	// ShutRead closes the read side; further reads return EOF.
	ShutRead How = unix.SHUT_RD

	// ShutWrite closes the write side; the peer observes EOF after
	// draining buffered data.
	ShutWrite How = unix.SHUT_WR

	// ShutBoth closes both directions.
	ShutBoth How = unix.SHUT_RDWR
)

// Stream owns a connected (or still connecting) TCP socket descriptor.
type Stream struct {
	fd     socketFD
	family sockaddr.Family
}

// Connect creates a non-blocking stream endpoint and initiates a connection
// to addr. Because the socket never blocks, the kernel normally reports the
// connect as in progress; that status is success here, and the handshake
// completes asynchronously. Observe writability through an external
// readiness facility and then call ConnectComplete to learn the outcome.
// Any other connect error closes the descriptor and is returned.
func Connect(addr sockaddr.Addr) (*Stream, error) {
	sa, salen, err := sockaddr.Encode(addr)
	if err != nil {
		return nil, err
	}
	fd, err := createSocket(int(addr.Family()))
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if err := connectSocket(fd, &sa, salen); err != nil && err != unix.EINPROGRESS {
		closeSocket(fd)
		return nil, fmt.Errorf("connect %s: %w", addr, err)
	}
	return &Stream{fd: fd, family: addr.Family()}, nil
}

// StreamFromRaw wraps an existing raw descriptor, taking ownership. The
// caller guarantees the descriptor is a non-blocking, close-on-exec TCP
// socket in the connection state it claims; nothing is re-validated.
func StreamFromRaw(raw int, family sockaddr.Family) *Stream {
	return &Stream{fd: socketFD(raw), family: family}
}

// ConnectComplete reports whether the connect initiated by Connect has
// finished. It returns (false, nil) while the handshake is still in flight,
// (true, nil) once the stream is connected, and a non-nil error carrying
// the failure the kernel recorded on the socket (connection refused,
// timeout, unreachable).
func (s *Stream) ConnectComplete() (bool, error) {
	if err := s.TakeError(); err != nil {
		return false, err
	}
	if _, err := peerName(s.fd); err != nil {
		if err == unix.ENOTCONN {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Read transfers bytes from the stream into p, returning the raw count. A
// count of zero with a nil error means the peer closed its write side. When
// no data is buffered it returns ErrWouldBlock.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := unix.Read(int(s.fd), p)
	if err != nil {
		return 0, mapWouldBlock(err)
	}
	return n, nil
}

// Write transfers bytes from p into the stream, returning the raw count,
// which may be short. When the send buffer is full it returns
// ErrWouldBlock.
func (s *Stream) Write(p []byte) (int, error) {
	n, err := unix.Write(int(s.fd), p)
	if err != nil {
		return 0, mapWouldBlock(err)
	}
	return n, nil
}

// ReadVectored scatters one read across bufs, filling each in order, and
// returns the total byte count.
func (s *Stream) ReadVectored(bufs [][]byte) (int, error) {
	n, err := unix.Readv(int(s.fd), bufs)
	if err != nil {
		return 0, mapWouldBlock(err)
	}
	return n, nil
}

// WriteVectored gathers bufs into one write, consuming them in order, and
// returns the total byte count, which may land inside any buffer.
func (s *Stream) WriteVectored(bufs [][]byte) (int, error) {
	n, err := unix.Writev(int(s.fd), bufs)
	if err != nil {
		return 0, mapWouldBlock(err)
	}
	return n, nil
}

// Peek reads buffered bytes into p without consuming them; a later Read
// sees the same bytes again.
func (s *Stream) Peek(p []byte) (int, error) {
	n, _, err := unix.Recvfrom(int(s.fd), p, unix.MSG_PEEK)
	if err != nil {
		return 0, mapWouldBlock(err)
	}
	return n, nil
}

// LocalAddr queries the kernel for the stream's local address.
func (s *Stream) LocalAddr() (sockaddr.Addr, error) {
	return localName(s.fd)
}

// RemoteAddr queries the kernel for the connected peer's address.
func (s *Stream) RemoteAddr() (sockaddr.Addr, error) {
	return peerName(s.fd)
}

// Shutdown closes one or both directions of the stream without releasing
// the descriptor.
func (s *Stream) Shutdown(how How) error {
	return unix.Shutdown(int(s.fd), int(how))
}

// Family returns the address family the stream was constructed for.
func (s *Stream) Family() sockaddr.Family { return s.family }

// NoDelay queries whether Nagle's algorithm is disabled on the stream.
func (s *Stream) NoDelay() (bool, error) {
	v, err := unix.GetsockoptInt(int(s.fd), unix.IPPROTO_TCP, unix.TCP_NODELAY)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// SetNoDelay enables or disables Nagle's algorithm on the stream.
func (s *Stream) SetNoDelay(noDelay bool) error {
	v := 0
	if noDelay {
		v = 1
	}
	return unix.SetsockoptInt(int(s.fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// TTL queries the TTL (IPv4) or hop limit (IPv6) on the stream's socket.
func (s *Stream) TTL() (int, error) {
	level, opt := ttlOption(s.family)
	return unix.GetsockoptInt(int(s.fd), level, opt)
}

// SetTTL sets the TTL (IPv4) or hop limit (IPv6) on the stream's socket.
func (s *Stream) SetTTL(ttl int) error {
	level, opt := ttlOption(s.family)
	return unix.SetsockoptInt(int(s.fd), level, opt, ttl)
}

// TakeError returns and clears any error asynchronously recorded on the
// socket, or nil when none is pending.
func (s *Stream) TakeError() error {
	return takeSocketError(s.fd)
}

// Raw exposes the underlying descriptor for registration with an external
// readiness facility. Ownership stays with the stream.
func (s *Stream) Raw() int { return int(s.fd) }

// Release transfers ownership of the descriptor to the caller and leaves
// the stream empty; a later Close is a no-op.
func (s *Stream) Release() int {
	raw := int(s.fd)
	s.fd = invalidSocket
	return raw
}

// Close releases the descriptor if the stream still owns it. Closing an
// already closed or released stream is a no-op. Buffered but unsent data is
// not guaranteed to reach the peer; drain explicitly before closing when
// that matters.
func (s *Stream) Close() error {
	if s.fd == invalidSocket {
		return nil
	}
	err := closeSocket(s.fd)
	s.fd = invalidSocket
	return err
}
