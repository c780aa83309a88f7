package prober

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/hervehildenbrand/gsock/pkg/sockaddr"
)

// AddressFamily selects which IP version to resolve to.
type AddressFamily int

const (
	AddressFamilyAuto AddressFamily = iota // Prefer IPv4, fall back to IPv6
	AddressFamilyIPv4
	AddressFamilyIPv6
)

// ResolveTarget resolves a "host:port" string to a probe address. The host
// may be an IP literal or a hostname; fam constrains which address family
// is acceptable.
func ResolveTarget(target string, fam AddressFamily) (sockaddr.Addr, error) {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		return sockaddr.Addr{}, fmt.Errorf("invalid target %q: %w", target, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return sockaddr.Addr{}, fmt.Errorf("invalid port %q: %w", portStr, err)
	}

	// IP literal first, lookup only for hostnames.
	if ip, err := netip.ParseAddr(host); err == nil {
		ip = ip.Unmap()
		if !familyMatches(ip, fam) {
			return sockaddr.Addr{}, fmt.Errorf("address %s does not match the requested family", ip)
		}
		return sockaddr.FromAddrPort(netip.AddrPortFrom(ip, uint16(port)))
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return sockaddr.Addr{}, fmt.Errorf("resolve %q: %w", host, err)
	}
	if ip, ok := pickIP(ips, fam); ok {
		return sockaddr.FromAddrPort(netip.AddrPortFrom(ip, uint16(port)))
	}
	return sockaddr.Addr{}, errors.New("no suitable IP address found for " + host)
}

// pickIP chooses an address of the requested family, preferring IPv4 in
// auto mode.
func pickIP(ips []net.IP, fam AddressFamily) (netip.Addr, bool) {
	var v6 netip.Addr
	var haveV6 bool
	for _, ip := range ips {
		a, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		a = a.Unmap()
		if a.Is4() {
			if fam != AddressFamilyIPv6 {
				return a, true
			}
			continue
		}
		if !haveV6 {
			v6, haveV6 = a, true
		}
	}
	if haveV6 && fam != AddressFamilyIPv4 {
		return v6, true
	}
	return netip.Addr{}, false
}

func familyMatches(ip netip.Addr, fam AddressFamily) bool {
	switch fam {
	case AddressFamilyIPv4:
		return ip.Is4()
	case AddressFamilyIPv6:
		return !ip.Is4()
	default:
		return true
	}
}
