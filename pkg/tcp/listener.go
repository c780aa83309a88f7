// Package tcp provides non-blocking TCP listener and stream endpoints whose
// descriptors carry the non-blocking and close-on-exec flags from the
// moment of creation.
//
// The package performs no waiting of its own: every operation either
// completes immediately or reports ErrWouldBlock, and readiness-driven
// retry is left to an external notification facility fed through the Raw
// descriptor surface. Endpoints are not safe for concurrent use without
// external coordination. Linux only.
package tcp

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
)

// Listener owns a listening TCP socket descriptor.
type Listener struct {
	fd     socketFD
	family sockaddr.Family
}

// Listen creates a non-blocking listening endpoint bound to addr, with
// address reuse enabled and a backlog of 1024. A failure at any step closes
// the partially configured descriptor before the step's error is returned.
func Listen(addr sockaddr.Addr) (*Listener, error) {
	sa, salen, err := sockaddr.Encode(addr)
	if err != nil {
		return nil, err
	}
	fd, err := createSocket(int(addr.Family()))
	if err != nil {
		return nil, fmt.Errorf("create socket: %w", err)
	}
	if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		closeSocket(fd)
		return nil, fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if err := bindSocket(fd, &sa, salen); err != nil {
		closeSocket(fd)
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	if err := listenSocket(fd, listenBacklog); err != nil {
		closeSocket(fd)
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return &Listener{fd: fd, family: addr.Family()}, nil
}

// ListenerFromRaw wraps an existing raw descriptor, taking ownership. The
// caller guarantees the descriptor is already in listening state with the
// non-blocking and close-on-exec flags set; nothing is re-validated.
func ListenerFromRaw(raw int, family sockaddr.Family) *Listener {
	return &Listener{fd: socketFD(raw), family: family}
}

// Accept takes the next pending connection without blocking. When none is
// pending it returns ErrWouldBlock; retry once the listener's descriptor is
// reported readable. The new stream's descriptor gets the non-blocking and
// close-on-exec flags in the accept call itself.
func (l *Listener) Accept() (*Stream, sockaddr.Addr, error) {
	var sa sockaddr.Storage
	nfd, salen, err := acceptSocket(l.fd, &sa)
	if err != nil {
		return nil, sockaddr.Addr{}, mapWouldBlock(err)
	}
	peer, err := sockaddr.Decode(sa[:salen])
	if err != nil {
		// The kernel filled this buffer, so an undecodable family points
		// at a platform mismatch. Don't leak the connection it came with.
		closeSocket(nfd)
		return nil, sockaddr.Addr{}, fmt.Errorf("decode peer address: %w", err)
	}
	return &Stream{fd: nfd, family: peer.Family()}, peer, nil
}

// Addr queries the kernel for the listener's bound address. After binding
// port 0 this reports the ephemeral port actually assigned.
func (l *Listener) Addr() (sockaddr.Addr, error) {
	return localName(l.fd)
}

// Family returns the address family the listener was constructed for.
func (l *Listener) Family() sockaddr.Family { return l.family }

// TTL queries the TTL (IPv4) or hop limit (IPv6) on the listening socket.
func (l *Listener) TTL() (int, error) {
	level, opt := ttlOption(l.family)
	return unix.GetsockoptInt(int(l.fd), level, opt)
}

// SetTTL sets the TTL (IPv4) or hop limit (IPv6) on the listening socket.
func (l *Listener) SetTTL(ttl int) error {
	level, opt := ttlOption(l.family)
	return unix.SetsockoptInt(int(l.fd), level, opt, ttl)
}

// TakeError returns and clears any error asynchronously recorded on the
// socket, or nil when none is pending.
func (l *Listener) TakeError() error {
	return takeSocketError(l.fd)
}

// Raw exposes the underlying descriptor for registration with an external
// readiness facility. Ownership stays with the listener.
func (l *Listener) Raw() int { return int(l.fd) }

// Release transfers ownership of the descriptor to the caller and leaves
// the listener empty; a later Close is a no-op.
func (l *Listener) Release() int {
	raw := int(l.fd)
	l.fd = invalidSocket
	return raw
}

// Close releases the descriptor if the listener still owns it. Closing an
// already closed or released listener is a no-op.
func (l *Listener) Close() error {
	if l.fd == invalidSocket {
		return nil
	}
	err := closeSocket(l.fd)
	l.fd = invalidSocket
	return err
}
