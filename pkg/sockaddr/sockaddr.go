// Package sockaddr converts between portable TCP endpoint addresses and the
// kernel's native socket address representation.
//
// The native layout is fixed by the Linux ABI and is reproduced here with
// explicit byte offsets rather than struct aliasing, so a decode of an
// unexpected buffer fails closed instead of misreading memory.
package sockaddr

import (
	"fmt"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// Family identifies the address family of an Addr.
type Family uint16

const (
	// FamilyIPv4 is the AF_INET address family.
	FamilyIPv4 Family = unix.AF_INET

	// FamilyIPv6 is the AF_INET6 address family.
	FamilyIPv6 Family = unix.AF_INET6
)

// String formats the family for display.
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", uint16(f))
	}
}

// Addr is a portable TCP endpoint address: an IPv4 or IPv6 address plus a
// port, and for IPv6 the flow info and scope id. An Addr is immutable and is
// only ever fully valid; the zero Addr has no family and is rejected by
// Encode.
type Addr struct {
	family   Family
	ip       [16]byte // IPv4 occupies the first four bytes
	port     uint16
	flowInfo uint32
	scopeID  uint32
}

// NewV4 builds an IPv4 address from its four octets and a port.
func NewV4(ip [4]byte, port uint16) Addr {
	a := Addr{family: FamilyIPv4, port: port}
	copy(a.ip[:4], ip[:])
	return a
}

// NewV6 builds an IPv6 address from its sixteen octets, a port, and the
// protocol-level flow info and scope id.
func NewV6(ip [16]byte, port uint16, flowInfo, scopeID uint32) Addr {
	return Addr{family: FamilyIPv6, ip: ip, port: port, flowInfo: flowInfo, scopeID: scopeID}
}

// FromAddrPort converts a netip.AddrPort into an Addr. IPv4-mapped IPv6
// addresses become IPv4. A numeric IPv6 zone is carried over as the scope
// id; non-numeric zones are dropped.
func FromAddrPort(ap netip.AddrPort) (Addr, error) {
	if !ap.IsValid() {
		return Addr{}, fmt.Errorf("sockaddr: invalid address %q", ap)
	}
	ip := ap.Addr().Unmap()
	if ip.Is4() {
		return NewV4(ip.As4(), ap.Port()), nil
	}
	var scope uint32
	if z := ip.Zone(); z != "" {
		if n, err := strconv.ParseUint(z, 10, 32); err == nil {
			scope = uint32(n)
		}
	}
	return NewV6(ip.As16(), ap.Port(), 0, scope), nil
}

// Family returns the address family.
func (a Addr) Family() Family { return a.family }

// IsV4 reports whether the address is IPv4.
func (a Addr) IsV4() bool { return a.family == FamilyIPv4 }

// Port returns the port in host byte order.
func (a Addr) Port() uint16 { return a.port }

// V4 returns the four IPv4 octets. Only meaningful when IsV4 is true.
func (a Addr) V4() [4]byte {
	var ip [4]byte
	copy(ip[:], a.ip[:4])
	return ip
}

// V6 returns the sixteen IPv6 octets. Only meaningful when IsV4 is false.
func (a Addr) V6() [16]byte { return a.ip }

// FlowInfo returns the IPv6 flow info; zero for IPv4 addresses.
func (a Addr) FlowInfo() uint32 { return a.flowInfo }

// ScopeID returns the IPv6 scope id; zero for IPv4 addresses.
func (a Addr) ScopeID() uint32 { return a.scopeID }

// AddrPort converts the address back to a netip.AddrPort. The IPv6 flow
// info has no netip representation and is dropped; the scope id becomes a
// numeric zone.
func (a Addr) AddrPort() netip.AddrPort {
	switch a.family {
	case FamilyIPv4:
		return netip.AddrPortFrom(netip.AddrFrom4(a.V4()), a.port)
	case FamilyIPv6:
		ip := netip.AddrFrom16(a.ip)
		if a.scopeID != 0 {
			ip = ip.WithZone(strconv.FormatUint(uint64(a.scopeID), 10))
		}
		return netip.AddrPortFrom(ip, a.port)
	default:
		return netip.AddrPort{}
	}
}

// String formats the address as host:port, with IPv6 hosts bracketed.
func (a Addr) String() string {
	if a.family != FamilyIPv4 && a.family != FamilyIPv6 {
		return "<invalid>"
	}
	return a.AddrPort().String()
}
