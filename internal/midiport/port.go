// Package midiport connects the transport tick to real MIDI ports.
package midiport

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// namedPort is what port lookup needs from drivers.In and drivers.Out.
type namedPort interface {
	Number() int
	String() string
}

// FindOut returns the number of the first output whose name contains hint.
func FindOut(hint string) (int, error) {
	return find("output", hint, midi.GetOutPorts())
}

// FindIn returns the number of the first input whose name contains hint.
func FindIn(hint string) (int, error) {
	return find("input", hint, midi.GetInPorts())
}

// find matches hint case-insensitively against the port names.
func find[P namedPort](kind, hint string, ports []P) (int, error) {
	if len(ports) == 0 {
		return -1, fmt.Errorf("no MIDI %ss available", kind)
	}
	lower := strings.ToLower(hint)
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), lower) {
			return p.Number(), nil
		}
	}
	return -1, fmt.Errorf("no MIDI %s contains %q", kind, hint)
}

// Port is an opened in/out pair. Received SysEx frames are buffered until
// the next Inbound call.
type Port struct {
	out  drivers.Out
	stop func()

	mu         sync.Mutex
	pending    [][]byte
	sendErrors int
}

// Open finds the ports matching hint, opens them and starts listening.
// The returned closer stops the listener and closes the driver.
func Open(hint string) (*Port, func(), error) {
	outIdx, err := FindOut(hint)
	if err != nil {
		return nil, nil, err
	}
	inIdx, err := FindIn(hint)
	if err != nil {
		return nil, nil, err
	}

	outs, err := drivers.Outs()
	if err != nil {
		return nil, nil, err
	}
	if outIdx < 0 || outIdx >= len(outs) {
		return nil, nil, fmt.Errorf("output port index %d out of range", outIdx)
	}
	out := outs[outIdx]
	if err := out.Open(); err != nil {
		return nil, nil, err
	}

	p := &Port{out: out}
	stop, err := midi.ListenTo(midi.GetInPorts()[inIdx], p.receive, midi.UseSysEx(), midi.SysExBufferSize(2048))
	if err != nil {
		_ = out.Close()
		return nil, nil, fmt.Errorf("failed to listen on MIDI input: %w", err)
	}
	p.stop = stop

	closer := func() {
		p.stop()
		_ = out.Close()
		drivers.Close()
	}
	log.Println("[midi] opened", out.String())
	return p, closer, nil
}

func (p *Port) receive(msg midi.Message, _ int32) {
	if len(msg) == 0 || msg[0] != 0xF0 {
		return
	}
	buf := append([]byte(nil), msg.Bytes()...)
	p.mu.Lock()
	p.pending = append(p.pending, buf)
	p.mu.Unlock()
}

// Write sends one frame. Failures are counted, not logged, since Write runs
// inside the tick.
func (p *Port) Write(msg []byte) {
	if err := p.out.Send(msg); err != nil {
		p.mu.Lock()
		p.sendErrors++
		p.mu.Unlock()
	}
}

// Inbound returns the frames received since the previous call.
func (p *Port) Inbound() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending
	p.pending = nil
	return out
}

// SendErrors returns the number of failed writes.
func (p *Port) SendErrors() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sendErrors
}
