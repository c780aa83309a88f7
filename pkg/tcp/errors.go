package tcp

import (
	"errors"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock reports that a non-blocking operation cannot complete right
// now. It is an expected condition, not a failure: retry the operation once
// the descriptor is signalled ready by an external readiness facility.
var ErrWouldBlock = errors.New("tcp: operation would block")

// mapWouldBlock converts the kernel's EAGAIN family into ErrWouldBlock and
// passes every other error through untouched.
func mapWouldBlock(err error) error {
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
		return ErrWouldBlock
	}
	return err
}

// IsWouldBlock checks if the error indicates the operation should be
// retried after readiness.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock) || errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// IsInProgress checks if the error indicates a non-blocking connect is
// still in flight.
func IsInProgress(err error) bool {
	return errors.Is(err, unix.EINPROGRESS)
}

// IsConnRefused checks if the error indicates the peer refused the
// connection (RST received).
func IsConnRefused(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED)
}

// IsAddrInUse checks if the error indicates the requested local address is
// already bound.
func IsAddrInUse(err error) bool {
	return errors.Is(err, unix.EADDRINUSE)
}
