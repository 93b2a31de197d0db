package common

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"net"
	"net/netip"
)

var (
	// ErrInvalidMask is returned when a subnet mask is all-zero or not a contiguous run of ones
	ErrInvalidMask = errors.New("invalid subnet mask")
	// ErrDegenerateSubnet is returned when a mask leaves no usable host addresses
	ErrDegenerateSubnet = errors.New("degenerate subnet")
)

// IPv4Address is an IPv4 address held as a uint32 in canonical (numeric) order,
// so 192.168.1.10 is 0xC0A8010A. Arithmetic and comparisons are only valid on
// this form; use ToWireOrder when a platform API wants the byte-swapped value.
type IPv4Address uint32

// MaxIPv4Address is the highest representable address (255.255.255.255)
const MaxIPv4Address IPv4Address = math.MaxUint32

// ToWireOrder converts a canonical address to the byte-swapped representation
// used by little-endian network stacks that keep network-order bytes in a native uint32.
func ToWireOrder(ip IPv4Address) uint32 {
	return bits.ReverseBytes32(uint32(ip))
}

// ToHostOrder converts a byte-swapped wire value back to canonical order.
func ToHostOrder(wire uint32) IPv4Address {
	return IPv4Address(bits.ReverseBytes32(wire))
}

// FromIP converts a net.IP to canonical form. It returns false for non-IPv4 input.
func FromIP(ip net.IP) (IPv4Address, bool) {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0, false
	}
	return IPv4Address(uint32(ip4[0])<<24 | uint32(ip4[1])<<16 | uint32(ip4[2])<<8 | uint32(ip4[3])), true
}

// FromMask converts a 4-byte (or IPv4-mapped 16-byte) mask to canonical form.
func FromMask(mask net.IPMask) (IPv4Address, bool) {
	switch len(mask) {
	case net.IPv4len:
		return FromIP(net.IP(mask))
	case net.IPv6len:
		return FromIP(net.IP(mask[12:]))
	}
	return 0, false
}

// ParseIPv4 parses a dotted-quad string.
func ParseIPv4(s string) (IPv4Address, error) {
	ip, ok := FromIP(net.ParseIP(s))
	if !ok {
		return 0, fmt.Errorf("not an IPv4 address: %q", s)
	}
	return ip, nil
}

// IP returns the address as a 4-byte net.IP
func (a IPv4Address) IP() net.IP {
	return net.IPv4(byte(a>>24), byte(a>>16), byte(a>>8), byte(a)).To4()
}

// Addr returns the address as a netip.Addr
func (a IPv4Address) Addr() netip.Addr {
	return netip.AddrFrom4([4]byte{byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)})
}

func (a IPv4Address) String() string {
	return a.Addr().String()
}

// Next returns the numerically following address. The maximum address is
// returned unchanged, so repeated calls at the top of the space are idempotent.
func Next(ip IPv4Address) IPv4Address {
	if ip == MaxIPv4Address {
		return ip
	}
	return ip + 1
}

// SubnetRange is an IPv4 subnet computed from an interface address and mask.
// Base always equals address & Mask.
type SubnetRange struct {
	Base IPv4Address
	Mask IPv4Address
}

// SubnetOf computes the subnet containing ip under mask.
func SubnetOf(ip, mask IPv4Address) (SubnetRange, error) {
	if mask == 0 {
		return SubnetRange{}, fmt.Errorf("%w: %s", ErrInvalidMask, mask)
	}
	// a contiguous mask has a host part of the form 0...01...1
	if host := ^mask; host&(host+1) != 0 {
		return SubnetRange{}, fmt.Errorf("%w: %s is not contiguous", ErrInvalidMask, mask)
	}
	// 0xFFFFFFFF - mask - 1 must neither underflow nor be zero
	if mask >= MaxIPv4Address-1 {
		return SubnetRange{}, fmt.Errorf("%w: mask %s leaves no usable hosts", ErrDegenerateSubnet, mask)
	}
	return SubnetRange{Base: ip & mask, Mask: mask}, nil
}

// SubnetFromIPNet builds a SubnetRange from a parsed CIDR or interface address.
func SubnetFromIPNet(ipNet *net.IPNet) (SubnetRange, error) {
	if ipNet == nil {
		return SubnetRange{}, fmt.Errorf("%w: nil network", ErrInvalidMask)
	}
	ip, ok := FromIP(ipNet.IP)
	if !ok {
		return SubnetRange{}, fmt.Errorf("network %s is not IPv4", ipNet)
	}
	mask, ok := FromMask(ipNet.Mask)
	if !ok {
		return SubnetRange{}, fmt.Errorf("%w: %s", ErrInvalidMask, ipNet.Mask)
	}
	return SubnetOf(ip, mask)
}

// First returns the first address after the network address.
func (s SubnetRange) First() IPv4Address {
	return s.Base + 1
}

// Last returns the broadcast address of the subnet.
func (s SubnetRange) Last() IPv4Address {
	return s.Base | ^s.Mask
}

// MaxDevices returns the number of scannable host addresses.
func (s SubnetRange) MaxDevices() uint32 {
	return uint32(MaxIPv4Address - s.Mask - 1)
}

// Contains reports whether ip belongs to the subnet.
func (s SubnetRange) Contains(ip IPv4Address) bool {
	return ip&s.Mask == s.Base
}

// Ones returns the prefix length of the mask.
func (s SubnetRange) Ones() int {
	return bits.OnesCount32(uint32(s.Mask))
}

// IPNet returns the subnet as a *net.IPNet
func (s SubnetRange) IPNet() *net.IPNet {
	return &net.IPNet{IP: s.Base.IP(), Mask: net.CIDRMask(s.Ones(), 32)}
}

func (s SubnetRange) String() string {
	return fmt.Sprintf("%s/%d", s.Base, s.Ones())
}
