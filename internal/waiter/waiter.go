// Package waiter parks the caller until a socket descriptor becomes ready.
//
// The endpoint types in pkg/tcp never wait; they hand back ErrWouldBlock
// and leave readiness to their caller. waiter is that caller-side facility
// for the gsock CLI and tests, consuming endpoints only through their raw
// descriptor surface.
package waiter

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// Event selects the readiness condition to wait for.
type Event int16

const (
	// Readable fires when a read or accept would make progress.
	Readable Event = unix.POLLIN

	// Writable fires when a write would make progress, including when a
	// non-blocking connect finishes (successfully or not).
	Writable Event = unix.POLLOUT
)

// ErrTimeout reports that the deadline expired before the descriptor
// became ready.
var ErrTimeout = errors.New("waiter: wait timed out")

// Wait blocks until raw reports the requested event or an error condition,
// or until the timeout expires. A negative timeout waits indefinitely.
// Error conditions (hangup, socket error) also wake the wait, so the
// retried operation observes them directly.
func Wait(raw int, ev Event, timeout time.Duration) error {
	ms := -1
	if timeout >= 0 {
		ms = int((timeout + time.Millisecond - 1) / time.Millisecond)
	}
	fds := []unix.PollFd{{Fd: int32(raw), Events: int16(ev)}}
	for {
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrTimeout
		}
		return nil
	}
}
