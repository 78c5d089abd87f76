// Package transport turns the blocking SysEx request/response protocol into
// queues serviced by a periodic tick. Callers block in Send, Request,
// Listen and WaitForDrain; the owner of the MIDI wire calls Tick from its
// real-time callback, which never blocks.
package transport

import (
	"errors"
	"fmt"
	"sync"

	"gieditor/internal/sysex"
)

// Transport errors.
var (
	// ErrTimeout indicates no reply within the configured number of ticks.
	ErrTimeout = errors.New("timeout waiting for reply")

	// ErrChecksum indicates a reply whose checksum did not validate.
	ErrChecksum = errors.New("reply checksum mismatch")

	// ErrMalformed indicates a reply that is not a usable DT1 frame.
	ErrMalformed = errors.New("malformed reply")

	// ErrClosed indicates the transport was closed while waiting.
	ErrClosed = errors.New("transport closed")

	// ErrTooLarge indicates a payload above the SysEx limit.
	ErrTooLarge = sysex.ErrTooLarge
)

// maxInbound bounds the inbound queue between requests; the oldest frame is
// dropped first.
const maxInbound = 256

// Wire is the MIDI side of the tick. Inbound returns the raw buffers
// received since the previous call and hands over their ownership.
type Wire interface {
	Write(msg []byte)
	Inbound() [][]byte
}

// Options configure a Transport.
type Options struct {
	DeviceID byte
	ModelID  uint32

	// TimeoutTicks bounds every blocking receive, counted in Tick calls.
	// A negative value waits forever.
	TimeoutTicks int
}

// Stats are running counters.
type Stats struct {
	FramesOut      int
	FramesIn       int
	Ignored        int
	Dropped        int
	Timeouts       int
	ChecksumErrors int
}

// Transport is safe for concurrent use.
type Transport struct {
	dev   byte
	model uint32

	mu        sync.Mutex
	drained   *sync.Cond
	inReady   *sync.Cond
	out       [][]byte
	in        [][]byte
	timeout   int
	countdown int
	closed    bool
	stats     Stats

	// reqMu serializes request/response pairs; the wire format carries no
	// request id.
	reqMu sync.Mutex
}

// New returns an open transport.
func New(opts Options) *Transport {
	t := &Transport{
		dev:     opts.DeviceID,
		model:   opts.ModelID,
		timeout: opts.TimeoutTicks,
	}
	t.drained = sync.NewCond(&t.mu)
	t.inReady = sync.NewCond(&t.mu)
	return t
}

// SetTimeout changes the receive timeout for subsequent waits.
func (t *Transport) SetTimeout(ticks int) {
	t.mu.Lock()
	t.timeout = ticks
	t.mu.Unlock()
}

// Stats returns a copy of the counters.
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Send frames payload as a DT1 write to addr and queues it. It returns once
// the frame is queued.
func (t *Transport) Send(addr uint32, payload []byte) error {
	msg, err := sysex.DataSet(t.dev, t.model, addr, payload)
	if err != nil {
		return err
	}
	return t.SendRaw(msg)
}

// SendRaw queues an already framed message.
func (t *Transport) SendRaw(msg []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.out = append(t.out, msg)
	return nil
}

// WaitForDrain blocks until the tick has written every queued frame.
func (t *Transport) WaitForDrain() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for {
		if t.closed {
			return ErrClosed
		}
		if len(t.out) == 0 {
			return nil
		}
		t.drained.Wait()
	}
}

// Request sends an RQ1 for size bytes at addr and returns the payload of
// the first SysEx frame received after it. Frames that arrived before the
// call are discarded.
func (t *Transport) Request(addr uint32, size int) ([]byte, error) {
	msg, err := sysex.DataRequest(t.dev, t.model, addr, size)
	if err != nil {
		return nil, err
	}

	t.reqMu.Lock()
	defer t.reqMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	t.in = t.in[:0]
	t.out = append(t.out, msg)
	reply, err := t.receiveLocked()
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", sysex.FormatAddress(addr), err)
	}

	m, err := sysex.Parse(reply)
	switch {
	case err != nil:
		return nil, fmt.Errorf("request %s: %w: %v", sysex.FormatAddress(addr), ErrMalformed, err)
	case !m.ChecksumOK:
		t.stats.ChecksumErrors++
		return nil, fmt.Errorf("request %s: %w", sysex.FormatAddress(addr), ErrChecksum)
	case m.Command != sysex.CmdDT1 || len(m.Data) == 0:
		return nil, fmt.Errorf("request %s: %w: command 0x%02X, %d bytes",
			sysex.FormatAddress(addr), ErrMalformed, m.Command, len(m.Data))
	}
	return append([]byte(nil), m.Data...), nil
}

// Listen returns the next inbound SysEx frame, bounded by the timeout.
func (t *Transport) Listen() ([]byte, error) {
	t.reqMu.Lock()
	defer t.reqMu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	return t.receiveLocked()
}

// receiveLocked waits for one inbound frame. t.mu must be held.
func (t *Transport) receiveLocked() ([]byte, error) {
	t.countdown = t.timeout
	for len(t.in) == 0 {
		if t.closed {
			return nil, ErrClosed
		}
		if t.timeout >= 0 && t.countdown == 0 {
			t.stats.Timeouts++
			return nil, ErrTimeout
		}
		t.inReady.Wait()
	}
	msg := t.in[0]
	t.in = t.in[1:]
	return msg, nil
}

// Close wakes every waiter with ErrClosed. Queued frames are discarded.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.out = nil
	t.drained.Broadcast()
	t.inReady.Broadcast()
	t.mu.Unlock()
	return nil
}

// Tick services the queues once: it writes every queued frame to w,
// collects inbound SysEx frames from w and advances the receive timeout.
// It takes the transport lock but never waits on a condition.
func (t *Transport) Tick(w Wire) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.out) > 0 {
		for _, msg := range t.out {
			w.Write(msg)
		}
		t.stats.FramesOut += len(t.out)
		t.out = t.out[:0]
		t.drained.Broadcast()
	}

	got := false
	for _, msg := range w.Inbound() {
		if !sysex.IsSysEx(msg) {
			t.stats.Ignored++
			continue
		}
		if len(t.in) == maxInbound {
			t.in = t.in[1:]
			t.stats.Dropped++
		}
		t.in = append(t.in, msg)
		t.stats.FramesIn++
		got = true
	}
	if got {
		t.inReady.Broadcast()
	}

	if t.countdown > 0 {
		t.countdown--
		if t.countdown == 0 {
			t.inReady.Broadcast()
		}
	}
}
