// Package clipboard snapshots parameter subtrees from the device, pastes
// them elsewhere and verifies the result. Snapshots form a stack; the most
// recent copy is pasted first.
package clipboard

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gieditor/internal/bulk"
	"gieditor/internal/params"
	"gieditor/internal/sysex"
)

// Clipboard errors.
var (
	// ErrNoAddress indicates a copy or paste address that does not resolve.
	ErrNoAddress = params.ErrNotFound

	// ErrNothingToPaste indicates an operation on an empty stack.
	ErrNothingToPaste = errors.New("nothing to paste")

	// ErrIncompatibleClass indicates a snapshot that cannot be written to
	// the destination.
	ErrIncompatibleClass = errors.New("class is incompatible")

	// ErrVerificationFailed indicates values that still differed after one
	// retry each.
	ErrVerificationFailed = errors.New("paste verification failed")
)

// Entry is one captured leaf, addressed relative to the snapshot base.
type Entry struct {
	Rel   uint32
	Size  int
	Value uint32
}

// Snapshot is one captured subtree. A single captured value has a nil Class
// and pastes only onto another single value; Owner names the class holding
// it.
type Snapshot struct {
	Class   *params.Class
	Owner   *params.Class
	Base    uint32
	Entries []Entry
}

// Label names the snapshot for messages.
func (s *Snapshot) Label() string {
	if s.Class != nil {
		return s.Class.Name
	}
	if s.Owner != nil {
		return s.Owner.Name + " value"
	}
	return "single value"
}

func className(c *params.Class) string {
	if c == nil {
		return "single value"
	}
	return c.Name
}

// Board owns the snapshot stack. It is not safe for concurrent use.
type Board struct {
	tree  *params.Tree
	xfer  *bulk.Transfer
	stack []*Snapshot
}

// New returns an empty board reading and writing through xfer.
func New(tree *params.Tree, xfer *bulk.Transfer) *Board {
	return &Board{tree: tree, xfer: xfer}
}

// Depth returns the number of snapshots on the stack.
func (b *Board) Depth() int {
	return len(b.stack)
}

func (b *Board) top() *Snapshot {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

func (b *Board) push(s *Snapshot) {
	b.stack = append(b.stack, s)
}

func (b *Board) pop() {
	b.stack[len(b.stack)-1] = nil
	b.stack = b.stack[:len(b.stack)-1]
}

// Top describes the most recent snapshot.
func (b *Board) Top() (class string, base uint32, size int, ok bool) {
	s := b.top()
	if s == nil {
		return "", 0, 0, false
	}
	return s.Label(), s.Base, len(s.Entries), true
}

// TopName returns the set name held by a Live Set or Studio Set snapshot.
func (b *Board) TopName() string {
	s := b.top()
	if s == nil || s.Class == nil || (s.Class.Name != params.ClassLiveSet && s.Class.Name != params.ClassStudioSet) {
		return ""
	}
	return entriesName(s.Entries)
}

func entriesName(entries []Entry) string {
	var sb strings.Builder
	for i := 0; i < params.NameLength && i < len(entries); i++ {
		c := byte(entries[i].Value)
		if c < 0x20 || c > 0x7E {
			c = ' '
		}
		sb.WriteByte(c)
	}
	return strings.TrimRight(sb.String(), " ")
}

// target resolves the member of class that owns addr and its base. The
// member's class is nil for a single value.
func (b *Board) target(class *params.Class, addr uint32) (*params.Member, uint32, error) {
	if _, ok := b.tree.Lookup(addr); !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoAddress, sysex.FormatAddress(addr))
	}
	idx, base, err := b.tree.ResolveBase(addr, class, 0)
	if err != nil {
		return nil, 0, err
	}
	return &class.Members[idx], base, nil
}

// capture reads the member of class at addr into a new snapshot without
// touching the stack.
func (b *Board) capture(class *params.Class, addr uint32) (*Snapshot, error) {
	m, base, err := b.target(class, addr)
	if err != nil {
		return nil, err
	}
	leaves, err := b.tree.Leaves(m, base)
	if err != nil {
		return nil, err
	}
	if err := b.xfer.Read(leaves); err != nil {
		return nil, err
	}

	s := &Snapshot{Class: m.Class, Owner: class, Base: base, Entries: make([]Entry, len(leaves))}
	for i, a := range leaves {
		v, _ := a.Value()
		s.Entries[i] = Entry{Rel: sysex.SubAddresses(a.Addr, base), Size: a.Size, Value: v}
	}
	return s, nil
}

// Copy captures the member of class that owns addr and pushes it. A
// composite member is captured with every leaf beneath it.
func (b *Board) Copy(class *params.Class, addr uint32) error {
	s, err := b.capture(class, addr)
	if err != nil {
		return err
	}
	b.push(s)
	log.Printf("[clipboard] copied %s at %s (%d values), depth %d",
		s.Label(), sysex.FormatAddress(s.Base), len(s.Entries), b.Depth())
	return nil
}

// Flush discards every snapshot.
func (b *Board) Flush() {
	for i := range b.stack {
		b.stack[i] = nil
	}
	b.stack = b.stack[:0]
}
