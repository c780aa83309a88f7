package sockaddr

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Storage is a buffer large enough to hold any native socket address the
// kernel hands back. It is meant to live on the stack of the caller, be
// filled immediately before or by a kernel call, and be consumed right
// after.
type Storage [SizeofStorage]byte

// Native structure sizes. Encode returns the exact size for the family it
// wrote, never the full Storage size; the kernel rejects address arguments
// whose length does not match their family.
const (
	SizeofStorage = unix.SizeofSockaddrAny
	SizeofV4      = unix.SizeofSockaddrInet4
	SizeofV6      = unix.SizeofSockaddrInet6
)

// Byte offsets within the native structures, fixed by the Linux ABI.
// sockaddr_in:  family u16 | port u16be | addr [4]byte | zero [8]byte
// sockaddr_in6: family u16 | port u16be | flowinfo u32 | addr [16]byte | scope u32
const (
	offFamily  = 0
	offPort    = 2
	offV4Addr  = 4
	offV6Flow  = 4
	offV6Addr  = 8
	offV6Scope = 24
)

var (
	// ErrUnsupportedFamily reports a family tag that is neither AF_INET
	// nor AF_INET6. Decoding a kernel-filled buffer should never hit this;
	// if it does, the descriptor is not an inet stream socket.
	ErrUnsupportedFamily = errors.New("sockaddr: unsupported address family")

	// ErrShortBuffer reports a buffer too small for the layout named by
	// its family tag.
	ErrShortBuffer = errors.New("sockaddr: buffer too short for address family")
)

// Encode writes the native representation of a into a Storage and returns
// the exact byte length of the structure for a's family. The family tag and
// the flow/scope fields are in host byte order, the port in network byte
// order, per the sockaddr ABI.
func Encode(a Addr) (Storage, uint32, error) {
	var s Storage
	switch a.family {
	case FamilyIPv4:
		binary.NativeEndian.PutUint16(s[offFamily:], uint16(a.family))
		binary.BigEndian.PutUint16(s[offPort:], a.port)
		copy(s[offV4Addr:offV4Addr+4], a.ip[:4])
		return s, SizeofV4, nil
	case FamilyIPv6:
		binary.NativeEndian.PutUint16(s[offFamily:], uint16(a.family))
		binary.BigEndian.PutUint16(s[offPort:], a.port)
		binary.NativeEndian.PutUint32(s[offV6Flow:], a.flowInfo)
		copy(s[offV6Addr:offV6Addr+16], a.ip[:])
		binary.NativeEndian.PutUint32(s[offV6Scope:], a.scopeID)
		return s, SizeofV6, nil
	default:
		return s, 0, fmt.Errorf("%w: %d", ErrUnsupportedFamily, uint16(a.family))
	}
}

// Decode parses a native socket address. The family tag is read first and
// decides which layout the remaining bytes are interpreted under; buffers
// shorter than that layout are rejected before any other field is touched.
func Decode(b []byte) (Addr, error) {
	if len(b) < offPort {
		return Addr{}, fmt.Errorf("%w: %d bytes", ErrShortBuffer, len(b))
	}
	switch family := Family(binary.NativeEndian.Uint16(b[offFamily:])); family {
	case FamilyIPv4:
		if len(b) < SizeofV4 {
			return Addr{}, fmt.Errorf("%w: %d bytes for %s", ErrShortBuffer, len(b), family)
		}
		var ip [4]byte
		copy(ip[:], b[offV4Addr:offV4Addr+4])
		return NewV4(ip, binary.BigEndian.Uint16(b[offPort:])), nil
	case FamilyIPv6:
		if len(b) < SizeofV6 {
			return Addr{}, fmt.Errorf("%w: %d bytes for %s", ErrShortBuffer, len(b), family)
		}
		var ip [16]byte
		copy(ip[:], b[offV6Addr:offV6Addr+16])
		return NewV6(ip,
			binary.BigEndian.Uint16(b[offPort:]),
			binary.NativeEndian.Uint32(b[offV6Flow:]),
			binary.NativeEndian.Uint32(b[offV6Scope:])), nil
	default:
		return Addr{}, fmt.Errorf("%w: %d", ErrUnsupportedFamily, uint16(family))
	}
}
