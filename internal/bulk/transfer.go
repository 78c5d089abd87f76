package bulk

import (
	"errors"
	"fmt"
	"log"

	"gieditor/internal/params"
	"gieditor/internal/sysex"
	"gieditor/internal/transport"
)

// Debug enables per-block log lines.
var Debug = false

// ErrMalformed indicates a reply shorter than the block it answers.
var ErrMalformed = errors.New("short block reply")

// Link is the request/response channel a Transfer drives.
type Link interface {
	Send(addr uint32, payload []byte) error
	Request(addr uint32, size int) ([]byte, error)
	WaitForDrain() error
}

// Transfer reads and writes batches of table addresses.
type Transfer struct {
	Link Link

	// BlacklistOnTimeout marks the first address of a failed read block
	// unreachable so later reads fail fast.
	BlacklistOnTimeout bool
}

func spans(addrs []*params.Address) []Span {
	out := make([]Span, len(addrs))
	for i, a := range addrs {
		out[i] = Span{Addr: a.Addr, Size: a.Size}
	}
	return out
}

// Read fetches every block before touching any cached value, so a failed
// read leaves all of addrs as they were.
func (t *Transfer) Read(addrs []*params.Address) error {
	blocks := Plan(spans(addrs))
	replies := make([][]byte, len(blocks))

	for bi, b := range blocks {
		for _, m := range b.Members {
			if addrs[m].Blacklisted() {
				return fmt.Errorf("%w: %s", params.ErrBlacklisted, sysex.FormatAddress(addrs[m].Addr))
			}
		}
		if Debug {
			log.Printf("[bulk] read %s size %d", sysex.FormatAddress(b.Start), b.Size)
		}
		data, err := t.Link.Request(b.Start, b.Size)
		if err != nil {
			if unreachable(err) {
				log.Printf("[bulk] No valid reply while attempting to read from address %s: %v", sysex.FormatAddress(b.Start), err)
				if t.BlacklistOnTimeout {
					addrs[b.Members[0]].SetBlacklisted(true)
				}
			}
			return err
		}
		if len(data) < b.Size {
			return fmt.Errorf("%w: %s wanted %d bytes, got %d",
				ErrMalformed, sysex.FormatAddress(b.Start), b.Size, len(data))
		}
		replies[bi] = data
	}

	for bi, b := range blocks {
		for k, m := range b.Members {
			off := b.Offsets[k]
			addrs[m].SetValue(sysex.DecodeValue(replies[bi][off : off+addrs[m].Size]))
		}
	}
	return nil
}

// Write sends the cached value of every address, one DT1 per block.
// Addresses with no known value are sent as zero.
func (t *Transfer) Write(addrs []*params.Address) error {
	for _, b := range Plan(spans(addrs)) {
		buf := make([]byte, b.Size)
		for k, m := range b.Members {
			v, _ := addrs[m].Value()
			off := b.Offsets[k]
			sysex.PutValue(buf[off:off+addrs[m].Size], v)
		}
		if Debug {
			log.Printf("[bulk] write %s size %d", sysex.FormatAddress(b.Start), b.Size)
		}
		if err := t.Link.Send(b.Start, buf); err != nil {
			return err
		}
	}
	return nil
}

// ReadOne refreshes a single address.
func (t *Transfer) ReadOne(a *params.Address) error {
	return t.Read([]*params.Address{a})
}

// WriteOne sends a single address.
func (t *Transfer) WriteOne(a *params.Address) error {
	return t.Write([]*params.Address{a})
}

// Drain waits until every write has reached the wire.
func (t *Transfer) Drain() error {
	return t.Link.WaitForDrain()
}

// unreachable reports whether err means the device failed to answer, as
// opposed to the transport going away.
func unreachable(err error) bool {
	return errors.Is(err, transport.ErrTimeout) || errors.Is(err, transport.ErrChecksum)
}
