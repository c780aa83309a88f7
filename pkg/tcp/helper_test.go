package tcp

import (
	"testing"
	"time"

	"github.com/hervehildenbrand/gsock/internal/waiter"
	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
)

// testTimeout bounds every readiness wait in these tests.
const testTimeout = 5 * time.Second

// loopbackV4 is the IPv4 loopback address with an ephemeral port.
func loopbackV4() sockaddr.Addr {
	return sockaddr.NewV4([4]byte{127, 0, 0, 1}, 0)
}

// listenLoopback binds a listener to 127.0.0.1:0 and returns it with its
// kernel-assigned address.
func listenLoopback(t *testing.T) (*Listener, sockaddr.Addr) {
	t.Helper()
	l, err := Listen(loopbackV4())
	if err != nil {
		t.Fatalf("Listen() failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	addr, err := l.Addr()
	if err != nil {
		t.Fatalf("Addr() failed: %v", err)
	}
	return l, addr
}

// acceptOne waits for and accepts a single connection.
func acceptOne(t *testing.T, l *Listener) (*Stream, sockaddr.Addr) {
	t.Helper()
	for {
		s, peer, err := l.Accept()
		if IsWouldBlock(err) {
			if err := waiter.Wait(l.Raw(), waiter.Readable, testTimeout); err != nil {
				t.Fatalf("waiting for pending connection: %v", err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Accept() failed: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s, peer
	}
}

// connectTo opens a stream to addr and drives the non-blocking connect to
// completion.
func connectTo(t *testing.T, addr sockaddr.Addr) *Stream {
	t.Helper()
	s, err := Connect(addr)
	if err != nil {
		t.Fatalf("Connect(%s) failed: %v", addr, err)
	}
	t.Cleanup(func() { s.Close() })
	deadline := time.Now().Add(testTimeout)
	for {
		done, err := s.ConnectComplete()
		if err != nil {
			t.Fatalf("ConnectComplete() failed: %v", err)
		}
		if done {
			return s
		}
		if err := waiter.Wait(s.Raw(), waiter.Writable, time.Until(deadline)); err != nil {
			t.Fatalf("waiting for connect completion: %v", err)
		}
	}
}

// connectedPair returns a client stream and the server-side stream the
// listener accepted for it. Connect never blocks, so the handshake can be
// driven sequentially: initiate, accept, then confirm completion.
func connectedPair(t *testing.T) (client, server *Stream) {
	t.Helper()
	l, addr := listenLoopback(t)
	client, err := Connect(addr)
	if err != nil {
		t.Fatalf("Connect(%s) failed: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })
	server, _ = acceptOne(t, l)
	deadline := time.Now().Add(testTimeout)
	for {
		done, err := client.ConnectComplete()
		if err != nil {
			t.Fatalf("ConnectComplete() failed: %v", err)
		}
		if done {
			return client, server
		}
		if err := waiter.Wait(client.Raw(), waiter.Writable, time.Until(deadline)); err != nil {
			t.Fatalf("waiting for connect completion: %v", err)
		}
	}
}

// writeAll writes all of p to s, parking on writability when the send
// buffer fills.
func writeAll(t *testing.T, s *Stream, p []byte) {
	t.Helper()
	for len(p) > 0 {
		n, err := s.Write(p)
		if IsWouldBlock(err) {
			if err := waiter.Wait(s.Raw(), waiter.Writable, testTimeout); err != nil {
				t.Errorf("waiting for writability: %v", err)
				return
			}
			continue
		}
		if err != nil {
			t.Errorf("Write() failed: %v", err)
			return
		}
		p = p[n:]
	}
}

// readFull reads exactly len(p) bytes from s, parking on readability
// between partial reads.
func readFull(t *testing.T, s *Stream, p []byte) {
	t.Helper()
	for off := 0; off < len(p); {
		n, err := s.Read(p[off:])
		if IsWouldBlock(err) {
			if err := waiter.Wait(s.Raw(), waiter.Readable, testTimeout); err != nil {
				t.Fatalf("waiting for readability: %v", err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Read() failed: %v", err)
		}
		if n == 0 {
			t.Fatalf("unexpected EOF after %d of %d bytes", off, len(p))
		}
		off += n
	}
}
