// Package sysex implements the Roland SysEx wire format used by the Juno-Gi:
// the 7-bit checksum, the nibble-packed value codec, base-128 address
// arithmetic and DT1/RQ1 framing.
package sysex

// Checksum returns the Roland checksum of b. Appending it to b makes the sum
// of all bytes a multiple of 128.
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum = (sum + c) & 0x7F
	}
	if sum == 0 {
		return 0
	}
	return 0x80 - sum
}

// Valid reports whether b, which must end with its checksum byte, sums to
// zero modulo 128.
func Valid(b []byte) bool {
	return Checksum(b) == 0
}
