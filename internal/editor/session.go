// Package editor ties the parameter tree, transport and clipboard into one
// session that front ends drive.
package editor

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"gieditor/internal/bulk"
	"gieditor/internal/clipboard"
	"gieditor/internal/node"
	"gieditor/internal/params"
	"gieditor/internal/sysex"
	"gieditor/internal/transport"
)

// User patch name area.
const (
	PatchNameBase   uint32 = 0x20000000
	PatchNameStride uint32 = 0x00010000
	PatchCount             = 256
)

// Param is one parameter as front ends see it.
type Param struct {
	Addr      uint32
	Name      string
	Path      []string
	Size      int
	Value     uint32
	Known     bool
	Blacklist bool
}

// Session is safe for concurrent use; operations run one at a time.
type Session struct {
	Tree      *params.Tree
	Transport *transport.Transport
	Board     *clipboard.Board
	Node      *node.Controller

	xfer *bulk.Transfer
	mu   sync.Mutex
}

// New builds a session over an open transport.
func New(tree *params.Tree, tr *transport.Transport, blacklistOnTimeout bool) *Session {
	xfer := &bulk.Transfer{Link: tr, BlacklistOnTimeout: blacklistOnTimeout}
	s := &Session{
		Tree:      tree,
		Transport: tr,
		Board:     clipboard.New(tree, xfer),
		Node:      &node.Controller{Sink: tr},
		xfer:      xfer,
	}
	return s
}

func (s *Session) param(a *params.Address) Param {
	v, known := a.Value()
	return Param{
		Addr:      a.Addr,
		Name:      a.Name(),
		Path:      s.Tree.AncestorNames(a.Addr),
		Size:      a.Size,
		Value:     v,
		Known:     known,
		Blacklist: a.Blacklisted(),
	}
}

func (s *Session) lookup(addr uint32) (*params.Address, error) {
	a, ok := s.Tree.Lookup(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", params.ErrNotFound, sysex.FormatAddress(addr))
	}
	return a, nil
}

// Describe resolves addr without touching the device.
func (s *Session) Describe(addr uint32) (Param, error) {
	a, err := s.lookup(addr)
	if err != nil {
		return Param{}, err
	}
	return s.param(a), nil
}

// Get reads one parameter from the device.
func (s *Session) Get(addr uint32) (Param, error) {
	a, err := s.lookup(addr)
	if err != nil {
		return Param{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.xfer.ReadOne(a); err != nil {
		return s.param(a), err
	}
	return s.param(a), nil
}

// Set writes one parameter and waits until it is on the wire.
func (s *Session) Set(addr uint32, v uint32) (Param, error) {
	a, err := s.lookup(addr)
	if err != nil {
		return Param{}, err
	}
	if limit := maxValue(a.Size); v > limit {
		return s.param(a), fmt.Errorf("value %d out of range for %d-byte parameter (max %d)", v, a.Size, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a.SetValue(v)
	if err := s.xfer.WriteOne(a); err != nil {
		return s.param(a), err
	}
	if err := s.xfer.Drain(); err != nil {
		return s.param(a), err
	}
	return s.param(a), nil
}

// Adjust adds delta to the device value, clamped to the parameter range,
// and returns the value read back.
func (s *Session) Adjust(addr uint32, delta int) (Param, error) {
	a, err := s.lookup(addr)
	if err != nil {
		return Param{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.xfer.ReadOne(a); err != nil {
		return s.param(a), err
	}
	cur, _ := a.Value()
	next := int64(cur) + int64(delta)
	if next < 0 {
		next = 0
	}
	if limit := int64(maxValue(a.Size)); next > limit {
		next = limit
	}
	a.SetValue(uint32(next))
	if err := s.xfer.WriteOne(a); err != nil {
		return s.param(a), err
	}
	if err := s.xfer.Drain(); err != nil {
		return s.param(a), err
	}
	if err := s.xfer.ReadOne(a); err != nil {
		return s.param(a), err
	}
	return s.param(a), nil
}

func maxValue(size int) uint32 {
	if size == 1 {
		return 0x7F
	}
	return 1<<(4*size) - 1
}

// Fetch bulk-reads every leaf of the member of class owning addr. A nil
// class means the tree root.
func (s *Session) Fetch(class *params.Class, addr uint32) ([]Param, error) {
	if class == nil {
		class = s.Tree.Root()
	}
	if _, err := s.lookup(addr); err != nil {
		return nil, err
	}
	idx, base, err := s.Tree.ResolveBase(addr, class, 0)
	if err != nil {
		return nil, err
	}
	leaves, err := s.Tree.Leaves(&class.Members[idx], base)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.xfer.Read(leaves); err != nil {
		return nil, err
	}
	out := make([]Param, len(leaves))
	for i, a := range leaves {
		out[i] = s.param(a)
	}
	return out, nil
}

// PatchNames reads the name of every user patch. Patches that fail to read
// are returned empty; the first error is returned alongside.
func (s *Session) PatchNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, PatchCount)
	var first error
	addr := PatchNameBase
	for i := range names {
		data, err := s.Transport.Request(addr, params.NameLength)
		if err != nil {
			if first == nil {
				first = err
			}
			if errors.Is(err, transport.ErrClosed) {
				return names, err
			}
		} else {
			names[i] = cleanName(data)
		}
		addr = sysex.AddAddresses(addr, PatchNameStride)
	}
	return names, first
}

func cleanName(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			c = ' '
		}
		sb.WriteByte(c)
	}
	return strings.TrimRight(sb.String(), " ")
}

// Monitor returns the next n inbound SysEx frames, stopping at the first
// error.
func (s *Session) Monitor(n int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for i := 0; i < n; i++ {
		msg, err := s.Transport.Listen()
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// ApplyBlacklist flags each address unreachable.
func (s *Session) ApplyBlacklist(addrs []uint32) error {
	for _, a := range addrs {
		if err := s.Tree.Blacklist(a); err != nil {
			return err
		}
	}
	if len(addrs) > 0 {
		log.Printf("[editor] %d addresses blacklisted by configuration", len(addrs))
	}
	return nil
}

// ClearBlacklist makes every address reachable again.
func (s *Session) ClearBlacklist() {
	s.Tree.ClearBlacklist()
}

// Blacklisted returns every blacklisted address.
func (s *Session) Blacklisted() []uint32 {
	var out []uint32
	for _, a := range s.Tree.Addresses() {
		if a.Blacklisted() {
			out = append(out, a.Addr)
		}
	}
	return out
}

// Copy pushes a snapshot of the member of the root class owning addr, or of
// the member of the named class when class is not empty.
func (s *Session) Copy(class string, addr uint32) error {
	c, err := s.ClassByName(class)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Board.Copy(c, addr)
}

// Paste pastes the top snapshot onto addr.
func (s *Session) Paste(class string, addr uint32) error {
	c, err := s.ClassByName(class)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Board.Paste(c, addr)
}

// PasteLayerToPart pastes one layer of the top Live Set snapshot into one
// part of the Studio Set at addr.
func (s *Session) PasteLayerToPart(addr uint32, layer, part int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Board.PasteLayerToPart(s.Tree.Root(), addr, layer, part)
}

// Flush empties the snapshot stack.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Board.Flush()
}

// Save writes the top snapshot to path and pops it.
func (s *Session) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Board.Save(path)
}

// Load pushes a snapshot read from path.
func (s *Session) Load(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Board.Load(path)
}

// Depth returns the snapshot stack depth.
func (s *Session) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Board.Depth()
}

// ClassByName looks a class up by name; an empty name is the tree root.
func (s *Session) ClassByName(name string) (*params.Class, error) {
	if name == "" {
		return s.Tree.Root(), nil
	}
	c, ok := s.Tree.Class(name)
	if !ok {
		return nil, fmt.Errorf("unknown class %q", name)
	}
	return c, nil
}

// Snapshot describes the top of the snapshot stack.
type Snapshot struct {
	Depth int
	Class string
	Base  uint32
	Size  int
	Name  string
}

// Top describes the snapshot stack; Class is empty when it is empty.
func (s *Session) Top() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Depth: s.Board.Depth()}
	if class, base, size, ok := s.Board.Top(); ok {
		snap.Class, snap.Base, snap.Size = class, base, size
		snap.Name = s.Board.TopName()
	}
	return snap
}
