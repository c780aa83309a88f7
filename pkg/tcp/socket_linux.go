package tcp

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
)

// socketFD names an owned kernel socket descriptor.
type socketFD int

// invalidSocket marks a descriptor slot whose ownership has been released.
// A valid socketFD is never this value.
const invalidSocket socketFD = -1

// listenBacklog is the fixed accept queue depth for listeners.
const listenBacklog = 1024

// createSocket opens a TCP socket for the given domain with the
// non-blocking and close-on-exec flags applied by the kernel in the same
// call. Setting them afterwards would leave a window where the fresh
// descriptor is blocking and inheritable across exec.
func createSocket(domain int) (socketFD, error) {
	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return invalidSocket, err
	}
	return socketFD(fd), nil
}

// closeSocket releases the descriptor back to the kernel.
func closeSocket(fd socketFD) error {
	return unix.Close(int(fd))
}

// bindSocket hands an encoded native address to the kernel. salen must be
// the exact structure length for the address family, not the Storage size.
func bindSocket(fd socketFD, sa *sockaddr.Storage, salen uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(sa)), uintptr(salen))
	if errno != 0 {
		return errno
	}
	return nil
}

// listenSocket starts accepting connections on a bound socket.
func listenSocket(fd socketFD, backlog int) error {
	return unix.Listen(int(fd), backlog)
}

// connectSocket initiates a connection to an encoded native address. On a
// non-blocking socket the kernel returns EINPROGRESS; callers decide how to
// treat it.
func connectSocket(fd socketFD, sa *sockaddr.Storage, salen uint32) error {
	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(unsafe.Pointer(sa)), uintptr(salen))
	if errno != 0 {
		return errno
	}
	return nil
}

// acceptSocket takes one pending connection off the queue, requesting
// non-blocking and close-on-exec for the new descriptor atomically. The
// kernel writes the peer's native address into sa and returns its length.
func acceptSocket(fd socketFD, sa *sockaddr.Storage) (socketFD, uint32, error) {
	salen := uint32(sockaddr.SizeofStorage)
	nfd, _, errno := unix.Syscall6(unix.SYS_ACCEPT4,
		uintptr(fd),
		uintptr(unsafe.Pointer(sa)),
		uintptr(unsafe.Pointer(&salen)),
		uintptr(unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC),
		0, 0)
	if errno != 0 {
		return invalidSocket, 0, errno
	}
	return socketFD(nfd), salen, nil
}

// localName asks the kernel for the socket's bound address.
func localName(fd socketFD) (sockaddr.Addr, error) {
	return sockName(fd, unix.SYS_GETSOCKNAME)
}

// peerName asks the kernel for the address of the connected peer. Fails
// with ENOTCONN while a non-blocking connect is still in flight.
func peerName(fd socketFD) (sockaddr.Addr, error) {
	return sockName(fd, unix.SYS_GETPEERNAME)
}

func sockName(fd socketFD, trap uintptr) (sockaddr.Addr, error) {
	var sa sockaddr.Storage
	salen := uint32(sockaddr.SizeofStorage)
	_, _, errno := unix.Syscall(trap, uintptr(fd), uintptr(unsafe.Pointer(&sa)), uintptr(unsafe.Pointer(&salen)))
	if errno != 0 {
		return sockaddr.Addr{}, errno
	}
	return sockaddr.Decode(sa[:salen])
}

// takeSocketError returns and clears the error asynchronously recorded on
// the socket, or nil when none is pending.
func takeSocketError(fd socketFD) error {
	v, err := unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if v == 0 {
		return nil
	}
	return unix.Errno(v)
}

// ttlOption returns the socket option level and name controlling the TTL
// (IPv4) or hop limit (IPv6) for the given family.
func ttlOption(family sockaddr.Family) (level, opt int) {
	if family == sockaddr.FamilyIPv6 {
		return unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS
	}
	return unix.IPPROTO_IP, unix.IP_TTL
}
