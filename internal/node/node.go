// Package node frames the small command set of the external control node.
package node

import (
	"fmt"

	"gieditor/internal/sysex"
)

// PacketSize is the length of every node packet.
const PacketSize = 11

const (
	manufacturer = 0x7D
	nodeAddrHi   = 0x01
	nodeAddrLo   = 0x01
	cmdOffset    = 4
)

// Command ids.
const (
	CmdToggleButton byte = 0
	CmdDeltaMeasure byte = 1
	CmdGetView      byte = 2
)

// Button identifies a front-panel button on the node.
type Button byte

// Buttons.
const (
	Inc Button = iota
	View
	Dec
	Stop
	Restart
	Record
	Play
)

var buttonNames = map[string]Button{
	"inc": Inc, "view": View, "dec": Dec, "stop": Stop,
	"restart": Restart, "record": Record, "play": Play,
}

// ParseButton maps a button name to its id.
func ParseButton(name string) (Button, error) {
	b, ok := buttonNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown button %q", name)
	}
	return b, nil
}

// Packet frames cmd with four argument bytes.
func Packet(cmd byte, args [4]byte) []byte {
	p := make([]byte, PacketSize)
	p[0] = sysex.Start
	p[1] = manufacturer
	p[2] = nodeAddrHi
	p[3] = nodeAddrLo
	p[cmdOffset] = cmd
	copy(p[cmdOffset+1:], args[:])
	p[PacketSize-2] = sysex.Checksum(p[1 : PacketSize-2])
	p[PacketSize-1] = sysex.End
	return p
}

// Sink accepts framed packets.
type Sink interface {
	SendRaw(msg []byte) error
}

// Controller sends node commands to a sink.
type Controller struct {
	Sink Sink
}

// Toggle presses b once.
func (c *Controller) Toggle(b Button) error {
	return c.Sink.SendRaw(Packet(CmdToggleButton, [4]byte{byte(b)}))
}

// RequestView asks the node to report its current view.
func (c *Controller) RequestView() error {
	return c.Sink.SendRaw(Packet(CmdGetView, [4]byte{}))
}

// DeltaMeasure moves the node's measure counter by delta. The 16-bit value
// travels as four nibbles, most significant first.
func (c *Controller) DeltaMeasure(delta int16) error {
	v := uint16(delta)
	args := [4]byte{byte(v>>12) & 0xF, byte(v>>8) & 0xF, byte(v>>4) & 0xF, byte(v) & 0xF}
	return c.Sink.SendRaw(Packet(CmdDeltaMeasure, args))
}
