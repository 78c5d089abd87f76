package sysex

import (
	"errors"
	"fmt"
)

// Frame bytes and command ids.
const (
	Start        = 0xF0
	End          = 0xF7
	Roland       = 0x41
	CmdRQ1       = 0x11
	CmdDT1       = 0x12
	MaxPayload   = 512
	addrOffset   = 7
	dataOffset   = 11
	frameNonData = 13
)

// Framing errors.
var (
	// ErrTooLarge indicates a payload above MaxPayload.
	ErrTooLarge = errors.New("sysex payload too large")

	// ErrNotSysEx indicates a buffer that is not framed by F0 ... F7.
	ErrNotSysEx = errors.New("not a sysex frame")

	// ErrForeign indicates a well-formed SysEx frame from another manufacturer.
	ErrForeign = errors.New("not a roland sysex frame")

	// ErrShort indicates a Roland frame too short to carry an address.
	ErrShort = errors.New("sysex frame too short")
)

// Message is a decoded Roland DT1 or RQ1 frame.
type Message struct {
	DeviceID byte
	ModelID  uint32
	Command  byte
	Address  uint32
	Data     []byte

	// ChecksumOK reports whether address, data and the received checksum
	// summed to zero.
	ChecksumOK bool
}

// IsSysEx reports whether b starts with F0 and ends with F7.
func IsSysEx(b []byte) bool {
	return len(b) >= 2 && b[0] == Start && b[len(b)-1] == End
}

// SizeDigits converts a byte count into the base-128 form used by RQ1.
func SizeDigits(n int) uint32 {
	var out uint32
	for shift := 0; shift < 32 && n > 0; shift += 8 {
		out |= uint32(n%0x80) << shift
		n /= 0x80
	}
	return out
}

// SizeFromDigits is the inverse of SizeDigits.
func SizeFromDigits(d uint32) int {
	n := 0
	for shift := 24; shift >= 0; shift -= 8 {
		n = n*0x80 + int((d>>shift)&0x7F)
	}
	return n
}

func header(dev byte, model uint32, cmd byte, n int) []byte {
	out := make([]byte, 0, n)
	out = append(out, Start, Roland, dev&0x7F,
		byte(model>>16)&0x7F, byte(model>>8)&0x7F, byte(model)&0x7F, cmd)
	return out
}

func seal(out []byte) []byte {
	out = append(out, Checksum(out[addrOffset:]))
	return append(out, End)
}

// DataSet frames a DT1 write of payload at addr.
func DataSet(dev byte, model uint32, addr uint32, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(payload))
	}
	out := header(dev, model, CmdDT1, frameNonData+len(payload))
	var a [4]byte
	putDigits(a[:], addr)
	out = append(out, a[:]...)
	out = append(out, payload...)
	return seal(out), nil
}

// DataRequest frames an RQ1 read of size bytes at addr.
func DataRequest(dev byte, model uint32, addr uint32, size int) ([]byte, error) {
	if size > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	out := header(dev, model, CmdRQ1, frameNonData+4)
	var a [8]byte
	putDigits(a[:4], addr)
	putDigits(a[4:], SizeDigits(size))
	out = append(out, a[:]...)
	return seal(out), nil
}

// Parse decodes a Roland frame. Data aliases msg.
func Parse(msg []byte) (Message, error) {
	if !IsSysEx(msg) {
		return Message{}, ErrNotSysEx
	}
	if msg[1] != Roland {
		return Message{}, fmt.Errorf("%w: manufacturer 0x%02X", ErrForeign, msg[1])
	}
	if len(msg) < frameNonData {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrShort, len(msg))
	}
	return Message{
		DeviceID:   msg[2],
		ModelID:    uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5]),
		Command:    msg[6],
		Address:    digits(msg[addrOffset : addrOffset+4]),
		Data:       msg[dataOffset : len(msg)-2],
		ChecksumOK: Valid(msg[addrOffset : len(msg)-1]),
	}, nil
}
