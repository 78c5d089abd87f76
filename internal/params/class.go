// Package params models the device's parameter namespace: a static tree of
// classes whose leaves are individually addressable wire values, and the
// table of resolved leaf addresses built from it.
package params

import (
	"errors"
	"fmt"

	"gieditor/internal/sysex"
)

// Resolution errors.
var (
	// ErrNotFound indicates an address that does not resolve in the tree.
	ErrNotFound = errors.New("address not found")

	// ErrBlacklisted indicates an address previously proven unreachable.
	ErrBlacklisted = errors.New("address blacklisted")
)

// Member is one entry of a Class. Offset is relative to the owning class's
// base address. A member with a nil Class is a leaf carrying Size bytes.
type Member struct {
	Name   string
	Offset uint32
	Size   int
	Class  *Class
}

// IsLeaf reports whether m is a single wire value.
func (m *Member) IsLeaf() bool {
	return m.Class == nil
}

// Class is a named group of members ordered by offset.
type Class struct {
	Name    string
	Members []Member

	// Ancestors lists the enclosing classes, nearest first and root last.
	// It is filled by NewTree and empty for the root.
	Ancestors []*Class
}

// lastAtOrBelow returns the index of the last member whose offset does not
// exceed rel, or -1.
func (c *Class) lastAtOrBelow(rel uint32) int {
	for i := range c.Members {
		if c.Members[i].Offset > rel {
			return i - 1
		}
	}
	return len(c.Members) - 1
}

// LeafCount returns the number of leaves under c.
func (c *Class) LeafCount() int {
	n := 0
	for i := range c.Members {
		if c.Members[i].IsLeaf() {
			n++
			continue
		}
		n += c.Members[i].Class.LeafCount()
	}
	return n
}

func (c *Class) validate() error {
	if len(c.Members) == 0 {
		return fmt.Errorf("class %q has no members", c.Name)
	}
	for i := range c.Members {
		m := &c.Members[i]
		if !sysex.ValidAddress(m.Offset) {
			return fmt.Errorf("class %q member %q: offset %s is not base-128",
				c.Name, m.Name, sysex.FormatAddress(m.Offset))
		}
		if i > 0 && m.Offset <= c.Members[i-1].Offset {
			return fmt.Errorf("class %q member %q: offsets not ascending", c.Name, m.Name)
		}
		if m.IsLeaf() && (m.Size < 1 || m.Size > sysex.MaxValueSize) {
			return fmt.Errorf("class %q member %q: size %d out of range", c.Name, m.Name, m.Size)
		}
	}
	return nil
}
