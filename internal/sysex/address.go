package sysex

import (
	"fmt"
	"strconv"
	"strings"
)

// AddAddresses adds two device addresses digit by digit. Each byte is a
// base-128 digit; carries move from byte 3 towards byte 0 and a carry out
// of the top digit is lost.
func AddAddresses(a, b uint32) uint32 {
	var out uint32
	var carry uint32
	for shift := 0; shift < 32; shift += 8 {
		d := (a>>shift)&0x7F + (b>>shift)&0x7F + carry
		carry = d >> 7
		out |= (d & 0x7F) << shift
	}
	return out
}

// SubAddresses is the digit-wise inverse of AddAddresses:
// AddAddresses(b, SubAddresses(a, b)) == a.
func SubAddresses(a, b uint32) uint32 {
	var out uint32
	var borrow uint32
	for shift := 0; shift < 32; shift += 8 {
		d := int((a>>shift)&0x7F) - int((b>>shift)&0x7F) - int(borrow)
		borrow = 0
		if d < 0 {
			d += 0x80
			borrow = 1
		}
		out |= uint32(d) << shift
	}
	return out
}

// ValidAddress reports whether every byte of a is a 7-bit digit.
func ValidAddress(a uint32) bool {
	return a&0x80808080 == 0
}

// FormatAddress renders a the way the device manual and the copy-buffer
// files do.
func FormatAddress(a uint32) string {
	return fmt.Sprintf("0x%08X", a)
}

// ParseAddress accepts "0x"-prefixed hex or plain decimal.
func ParseAddress(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty address")
	}
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = strconv.ParseUint(s[2:], 16, 32)
	} else {
		v, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	a := uint32(v)
	if !ValidAddress(a) {
		return 0, fmt.Errorf("invalid address %q: digit above 0x7F", s)
	}
	return a, nil
}

func putDigits(dst []byte, v uint32) {
	dst[0] = byte(v>>24) & 0x7F
	dst[1] = byte(v>>16) & 0x7F
	dst[2] = byte(v>>8) & 0x7F
	dst[3] = byte(v) & 0x7F
}

func digits(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
