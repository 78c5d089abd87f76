package params

import (
	"fmt"
	"sort"

	"gieditor/internal/sysex"
)

// Tree is a validated class hierarchy plus the table of every leaf address
// under it. The classes are read-only once the tree is built.
type Tree struct {
	root    *Class
	classes map[string]*Class
	addrs   []*Address
	byAddr  map[uint32]*Address
}

// NewTree validates the hierarchy under root, fills in every class's
// ancestor chain and builds the address table.
func NewTree(root *Class) (*Tree, error) {
	t := &Tree{
		root:    root,
		classes: make(map[string]*Class),
		byAddr:  make(map[uint32]*Address),
	}
	parents := map[*Class]*Class{root: nil}
	if err := t.link(root, parents, map[*Class]bool{}); err != nil {
		return nil, err
	}
	if err := t.index(root, 0); err != nil {
		return nil, err
	}
	sort.Slice(t.addrs, func(i, j int) bool { return t.addrs[i].Addr < t.addrs[j].Addr })
	return t, nil
}

func (t *Tree) link(c *Class, parents map[*Class]*Class, onPath map[*Class]bool) error {
	if onPath[c] {
		return fmt.Errorf("class %q contains itself", c.Name)
	}
	if err := c.validate(); err != nil {
		return err
	}
	if other, ok := t.classes[c.Name]; ok && other != c {
		return fmt.Errorf("two classes named %q", c.Name)
	}
	t.classes[c.Name] = c
	if p := parents[c]; p != nil {
		c.Ancestors = append([]*Class{p}, p.Ancestors...)
	}

	onPath[c] = true
	defer delete(onPath, c)
	seen := map[*Class]bool{}
	for i := range c.Members {
		child := c.Members[i].Class
		if child == nil || seen[child] {
			continue
		}
		seen[child] = true
		if p, ok := parents[child]; ok && p != c {
			return fmt.Errorf("class %q has two parents", child.Name)
		}
		parents[child] = c
		if err := t.link(child, parents, onPath); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) index(c *Class, base uint32) error {
	for i := range c.Members {
		m := &c.Members[i]
		abs := sysex.AddAddresses(base, m.Offset)
		if !m.IsLeaf() {
			if err := t.index(m.Class, abs); err != nil {
				return err
			}
			continue
		}
		if _, dup := t.byAddr[abs]; dup {
			return fmt.Errorf("leaf %q at %s overlaps another leaf", m.Name, sysex.FormatAddress(abs))
		}
		a := &Address{Addr: abs, Size: m.Size, Class: c, Member: i}
		t.byAddr[abs] = a
		t.addrs = append(t.addrs, a)
	}
	return nil
}

// Root returns the top-level class.
func (t *Tree) Root() *Class {
	return t.root
}

// Class looks a class up by name.
func (t *Tree) Class(name string) (*Class, bool) {
	c, ok := t.classes[name]
	return c, ok
}

// Lookup returns the leaf at addr.
func (t *Tree) Lookup(addr uint32) (*Address, bool) {
	a, ok := t.byAddr[addr]
	return a, ok
}

// Addresses returns every leaf in ascending address order.
func (t *Tree) Addresses() []*Address {
	return t.addrs
}

// Blacklist flags addr as unreachable.
func (t *Tree) Blacklist(addr uint32) error {
	a, ok := t.byAddr[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sysex.FormatAddress(addr))
	}
	a.SetBlacklisted(true)
	return nil
}

// ClearBlacklist clears the unreachable flag on every leaf.
func (t *Tree) ClearBlacklist() {
	for _, a := range t.addrs {
		a.SetBlacklisted(false)
	}
}
