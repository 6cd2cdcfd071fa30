// Package bthost holds the shared vocabulary of the host stack: device
// addresses, HCI status codes, roles, and the logging surface.
package bthost

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 6-byte Bluetooth device address, stored little-endian:
// index 0 is the least significant byte, index 5 the most significant.
// The string form prints most-significant byte first.
type Address [6]byte

// EmptyAddress is the all-zero address.
var EmptyAddress = Address{}

func (a Address) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		a[5], a[4], a[3], a[2], a[1], a[0])
}

func (a Address) Bytes() []byte {
	out := make([]byte, 6)
	copy(out, a[:])
	return out
}

// ParseAddress parses "aa:bb:cc:dd:ee:ff" into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	hexStr := strings.Replace(strings.ToLower(s), ":", "", -1)
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return a, fmt.Errorf("can't parse address %q: %v", s, err)
	}
	if len(b) != 6 {
		return a, fmt.Errorf("address %q must have 6 octets", s)
	}
	for i := 0; i < 6; i++ {
		a[i] = b[5-i]
	}
	return a, nil
}

// MustParseAddress is ParseAddress for trusted literals.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressType is the HCI advertising/connection address type.
type AddressType uint8

const (
	PublicDeviceAddress   AddressType = 0x00
	RandomDeviceAddress   AddressType = 0x01
	PublicIdentityAddress AddressType = 0x02
	RandomIdentityAddress AddressType = 0x03
)

func (t AddressType) String() string {
	switch t {
	case PublicDeviceAddress:
		return "public"
	case RandomDeviceAddress:
		return "random"
	case PublicIdentityAddress:
		return "public identity"
	case RandomIdentityAddress:
		return "random identity"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// FilterAcceptListAddressType is the narrower address type the controller's
// filter accept list keys on.
type FilterAcceptListAddressType uint8

const (
	FilterAcceptPublic FilterAcceptListAddressType = 0x00
	FilterAcceptRandom FilterAcceptListAddressType = 0x01
)

func (t FilterAcceptListAddressType) String() string {
	switch t {
	case FilterAcceptPublic:
		return "public"
	case FilterAcceptRandom:
		return "random"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t))
	}
}

// AddressWithType pairs a device address with its type.
type AddressWithType struct {
	Address Address
	Type    AddressType
}

func (a AddressWithType) String() string {
	return fmt.Sprintf("%s[%s]", a.Address, a.Type)
}

func (a AddressWithType) IsEmpty() bool {
	return a.Address == EmptyAddress && a.Type == PublicDeviceAddress
}

// ToFilterAcceptListAddressType collapses identity types onto the two
// values the filter accept list distinguishes.
func (a AddressWithType) ToFilterAcceptListAddressType() FilterAcceptListAddressType {
	switch a.Type {
	case RandomDeviceAddress, RandomIdentityAddress:
		return FilterAcceptRandom
	default:
		return FilterAcceptPublic
	}
}

// IsRPA reports whether the address is a resolvable private address: a
// random device address whose two most significant bits are 01. Index 5
// holds the most significant byte in this encoding.
func (a AddressWithType) IsRPA() bool {
	return a.Type == RandomDeviceAddress && (a.Address[5]&0xc0) == 0x40
}
