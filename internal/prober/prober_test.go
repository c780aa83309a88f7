package prober

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hervehildenbrand/gsock/pkg/probe"
	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
	"github.com/hervehildenbrand/gsock/pkg/tcp"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"zero count", func(c *Config) { c.Count = 0 }, true},
		{"negative interval", func(c *Config) { c.Interval = -time.Second }, true},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, true},
		{"ttl too large", func(c *Config) { c.TTL = 256 }, true},
		{"ttl in range", func(c *Config) { c.TTL = 64 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(&Config{})
	if err == nil {
		t.Error("expected error for invalid config")
	}
}

// listenLoopback binds a throwaway listener for probing.
func listenLoopback(t *testing.T) (*tcp.Listener, sockaddr.Addr) {
	t.Helper()
	l, err := tcp.Listen(sockaddr.NewV4([4]byte{127, 0, 0, 1}, 0))
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

func TestOnce_ReachableListener(t *testing.T) {
	_, addr := listenLoopback(t)

	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	attempt, err := p.Once(addr)
	if err != nil {
		t.Fatalf("Once() failed: %v", err)
	}
	if attempt.Timeout || attempt.Refused {
		t.Errorf("attempt = %+v, want completed handshake", attempt)
	}
	if attempt.RTT <= 0 {
		t.Errorf("RTT = %v, want positive", attempt.RTT)
	}
}

func TestOnce_RefusedPort(t *testing.T) {
	l, addr := listenLoopback(t)
	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	attempt, err := p.Once(addr)
	if err != nil {
		t.Fatalf("Once() failed: %v", err)
	}
	if !attempt.Refused {
		t.Errorf("attempt = %+v, want refused", attempt)
	}
}

func TestRun_CountAndCallback(t *testing.T) {
	_, addr := listenLoopback(t)

	cfg := DefaultConfig()
	cfg.Count = 3
	cfg.Interval = 0
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	var callbacks int
	result, err := p.Run(context.Background(), addr, func(probe.Attempt) {
		callbacks++
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Sent() != 3 {
		t.Errorf("Sent() = %d, want 3", result.Sent())
	}
	if callbacks != 3 {
		t.Errorf("callback count = %d, want 3", callbacks)
	}
	if !result.Reachable() {
		t.Error("Reachable() = false, want true")
	}
	if result.EndTime.Before(result.StartTime) {
		t.Error("EndTime precedes StartTime")
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	_, addr := listenLoopback(t)

	cfg := DefaultConfig()
	cfg.Count = 100
	cfg.Interval = 50 * time.Millisecond
	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	result, err := p.Run(ctx, addr, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if result.Sent() == 0 || result.Sent() == 100 {
		t.Errorf("Sent() = %d, want a partial run", result.Sent())
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		fam        AddressFamily
		wantFamily sockaddr.Family
		wantPort   uint16
		wantErr    bool
	}{
		{"IPv4 literal", "127.0.0.1:80", AddressFamilyAuto, sockaddr.FamilyIPv4, 80, false},
		{"IPv6 literal", "[::1]:443", AddressFamilyAuto, sockaddr.FamilyIPv6, 443, false},
		{"IPv4 forced on v6 literal", "[::1]:443", AddressFamilyIPv4, 0, 0, true},
		{"IPv6 forced on v4 literal", "127.0.0.1:80", AddressFamilyIPv6, 0, 0, true},
		{"missing port", "127.0.0.1", AddressFamilyAuto, 0, 0, true},
		{"bad port", "127.0.0.1:notaport", AddressFamilyAuto, 0, 0, true},
		{"port out of range", "127.0.0.1:70000", AddressFamilyAuto, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ResolveTarget(tt.target, tt.fam)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if addr.Family() != tt.wantFamily {
				t.Errorf("Family() = %v, want %v", addr.Family(), tt.wantFamily)
			}
			if addr.Port() != tt.wantPort {
				t.Errorf("Port() = %d, want %d", addr.Port(), tt.wantPort)
			}
		})
	}
}
