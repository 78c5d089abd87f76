// Package devsim is an in-memory Roland device for tests and the -simulate
// mode. It answers RQ1 requests from its memory and applies DT1 writes.
package devsim

import (
	"sync"

	"gieditor/internal/sysex"
)

// Device is a transport wire backed by a sparse memory map. Replies to a
// request become visible on the next Inbound call.
type Device struct {
	DeviceID byte
	ModelID  uint32

	mu       sync.Mutex
	mem      map[uint32]byte
	pending  [][]byte
	received [][]byte
	muted    map[uint32]bool
	corrupt  map[uint32]bool
	drops    map[uint32]int
	requests int
	writes   int
}

// New returns a device with empty memory.
func New(dev byte, model uint32) *Device {
	return &Device{
		DeviceID: dev,
		ModelID:  model,
		mem:      make(map[uint32]byte),
		muted:    make(map[uint32]bool),
		corrupt:  make(map[uint32]bool),
		drops:    make(map[uint32]int),
	}
}

// Poke stores raw bytes starting at addr.
func (d *Device) Poke(addr uint32, data ...byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.store(addr, data)
}

// Peek returns n raw bytes starting at addr.
func (d *Device) Peek(addr uint32, n int) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load(addr, n)
}

// Mute stops the device replying to requests that start at addr.
func (d *Device) Mute(addr uint32) {
	d.mu.Lock()
	d.muted[addr] = true
	d.mu.Unlock()
}

// Corrupt makes replies to requests starting at addr carry a bad checksum.
func (d *Device) Corrupt(addr uint32) {
	d.mu.Lock()
	d.corrupt[addr] = true
	d.mu.Unlock()
}

// DropWrites ignores the next n writes that touch addr.
func (d *Device) DropWrites(addr uint32, n int) {
	d.mu.Lock()
	d.drops[addr] = n
	d.mu.Unlock()
}

// Heal clears every injected fault.
func (d *Device) Heal() {
	d.mu.Lock()
	d.muted = make(map[uint32]bool)
	d.corrupt = make(map[uint32]bool)
	d.drops = make(map[uint32]int)
	d.mu.Unlock()
}

// Inject queues a frame as if the device had sent it unprompted.
func (d *Device) Inject(msg []byte) {
	d.mu.Lock()
	d.pending = append(d.pending, msg)
	d.mu.Unlock()
}

// Counts returns the number of requests and writes the device has handled.
func (d *Device) Counts() (requests, writes int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests, d.writes
}

// Received returns every frame written to the device.
func (d *Device) Received() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]byte(nil), d.received...)
}

// Write handles one outbound frame.
func (d *Device) Write(msg []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.received = append(d.received, append([]byte(nil), msg...))

	m, err := sysex.Parse(msg)
	if err != nil || !m.ChecksumOK || m.DeviceID != d.DeviceID || m.ModelID != d.ModelID {
		return
	}
	switch m.Command {
	case sysex.CmdDT1:
		d.writes++
		if d.dropped(m.Address, len(m.Data)) {
			return
		}
		d.store(m.Address, m.Data)
	case sysex.CmdRQ1:
		d.requests++
		if len(m.Data) != 4 || d.muted[m.Address] {
			return
		}
		size := sysex.SizeFromDigits(uint32(m.Data[0])<<24 | uint32(m.Data[1])<<16 |
			uint32(m.Data[2])<<8 | uint32(m.Data[3]))
		reply, err := sysex.DataSet(d.DeviceID, d.ModelID, m.Address, d.load(m.Address, size))
		if err != nil {
			return
		}
		if d.corrupt[m.Address] {
			reply[len(reply)-2] ^= 0x01
		}
		d.pending = append(d.pending, reply)
	}
}

// Inbound returns the replies produced since the last call.
func (d *Device) Inbound() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return nil
	}
	out := d.pending
	d.pending = nil
	return out
}

func (d *Device) dropped(addr uint32, n int) bool {
	a := addr
	for i := 0; i < n; i++ {
		if left := d.drops[a]; left > 0 {
			d.drops[a] = left - 1
			return true
		}
		a = sysex.AddAddresses(a, 1)
	}
	return false
}

func (d *Device) store(addr uint32, data []byte) {
	for _, b := range data {
		d.mem[addr] = b
		addr = sysex.AddAddresses(addr, 1)
	}
}

func (d *Device) load(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = d.mem[addr]
		addr = sysex.AddAddresses(addr, 1)
	}
	return out
}
