package tcp

import (
	"testing"

	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
)

func TestListen_EphemeralPortAssigned(t *testing.T) {
	_, addr := listenLoopback(t)

	if addr.Port() == 0 {
		t.Error("expected a nonzero kernel-assigned port")
	}
	if addr.V4() != [4]byte{127, 0, 0, 1} {
		t.Errorf("bound address = %v, want 127.0.0.1", addr.V4())
	}
}

func TestListen_ZeroAddrRejected(t *testing.T) {
	_, err := Listen(sockaddr.Addr{})
	if err == nil {
		t.Fatal("expected error for zero address")
	}
}

func TestListen_AddrInUse(t *testing.T) {
	_, addr := listenLoopback(t)

	_, err := Listen(addr)
	if err == nil {
		t.Fatal("expected second bind to the same address to fail")
	}
	if !IsAddrInUse(err) {
		t.Errorf("error = %v, want address-in-use", err)
	}
}

func TestListen_RebindAfterClose(t *testing.T) {
	l, addr := listenLoopback(t)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	l2, err := Listen(addr)
	if err != nil {
		t.Fatalf("rebind after close failed: %v", err)
	}
	l2.Close()
}

func TestAccept_WouldBlockWhenNoPendingConnection(t *testing.T) {
	l, _ := listenLoopback(t)

	s, _, err := l.Accept()
	if s != nil {
		t.Error("expected no stream from an idle listener")
	}
	if !IsWouldBlock(err) {
		t.Errorf("Accept() error = %v, want would-block", err)
	}
}

func TestListener_TTLRoundTrip(t *testing.T) {
	l, _ := listenLoopback(t)

	if err := l.SetTTL(42); err != nil {
		t.Fatalf("SetTTL() failed: %v", err)
	}
	ttl, err := l.TTL()
	if err != nil {
		t.Fatalf("TTL() failed: %v", err)
	}
	if ttl != 42 {
		t.Errorf("TTL() = %d, want 42", ttl)
	}
}

func TestListener_TakeError_NilWhenClean(t *testing.T) {
	l, _ := listenLoopback(t)

	if err := l.TakeError(); err != nil {
		t.Errorf("TakeError() = %v, want nil", err)
	}
}

func TestListener_Family(t *testing.T) {
	l, _ := listenLoopback(t)

	if l.Family() != sockaddr.FamilyIPv4 {
		t.Errorf("Family() = %v, want %v", l.Family(), sockaddr.FamilyIPv4)
	}
}

func TestListener_CloseIdempotent(t *testing.T) {
	l, _ := listenLoopback(t)

	if err := l.Close(); err != nil {
		t.Fatalf("first Close() failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestListener_ReleaseAndRewrap(t *testing.T) {
	l, addr := listenLoopback(t)

	raw := l.Release()
	if raw < 0 {
		t.Fatalf("Release() = %d, want a valid descriptor", raw)
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close() after Release() = %v, want nil (no double close)", err)
	}

	// The rewrapped listener must accept connections without any
	// re-validation of the descriptor's state.
	l2 := ListenerFromRaw(raw, sockaddr.FamilyIPv4)
	t.Cleanup(func() { l2.Close() })
	connectTo(t, addr)
	_, peer := acceptOne(t, l2)
	if peer.Port() == 0 {
		t.Error("accepted peer has zero port")
	}
}

func TestListen_IPv6Loopback(t *testing.T) {
	l, err := Listen(sockaddr.NewV6([16]byte{15: 1}, 0, 0, 0))
	if err != nil {
		t.Skipf("IPv6 loopback unavailable: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	addr, err := l.Addr()
	if err != nil {
		t.Fatalf("Addr() failed: %v", err)
	}
	if addr.Family() != sockaddr.FamilyIPv6 {
		t.Errorf("Family() = %v, want %v", addr.Family(), sockaddr.FamilyIPv6)
	}
	if addr.Port() == 0 {
		t.Error("expected a nonzero kernel-assigned port")
	}

	client := connectTo(t, addr)
	_, peer := acceptOne(t, l)
	local, err := client.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr() failed: %v", err)
	}
	if peer != local {
		t.Errorf("accepted peer = %v, want client local address %v", peer, local)
	}
}
