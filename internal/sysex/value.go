package sysex

// MaxValueSize is the widest parameter the device stores.
const MaxValueSize = 4

// EncodeValue returns v in its size-byte wire form.
func EncodeValue(v uint32, size int) []byte {
	b := make([]byte, size)
	PutValue(b, v)
	return b
}

// PutValue writes v into dst using len(dst) bytes. A single byte carries the
// low seven bits; wider values are stored one nibble per byte, most
// significant nibble first.
func PutValue(dst []byte, v uint32) {
	size := len(dst)
	if size == 1 {
		dst[0] = byte(v & 0x7F)
		return
	}
	for i := 0; i < size; i++ {
		dst[size-1-i] = byte((v >> (4 * i)) & 0x0F)
	}
}

// DecodeValue is the inverse of PutValue.
func DecodeValue(b []byte) uint32 {
	var v uint32
	size := len(b)
	for i := 0; i < size; i++ {
		v |= uint32(b[size-1-i]) << (4 * i)
	}
	return v
}
