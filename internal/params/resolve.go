package params

import (
	"fmt"

	"gieditor/internal/sysex"
)

// ResolveMember finds the member of class that owns addr. With depth > 0
// the search runs in the depth'th ancestor of class instead. Each enclosing
// class, from the root inwards, first strips its member's offset from the
// address; the remainder then selects the last member of the target class
// at or below it. Every enclosing member must be the next class of the
// chain, so a class that does not contain addr fails with ErrNotFound. A nil
// class means the class owning the leaf at addr.
func (t *Tree) ResolveMember(addr uint32, class *Class, depth int) (int, error) {
	idx, _, err := t.resolve(addr, class, depth)
	return idx, err
}

// ResolveBase is ResolveMember that also returns the member's absolute base
// address.
func (t *Tree) ResolveBase(addr uint32, class *Class, depth int) (int, uint32, error) {
	return t.resolve(addr, class, depth)
}

func (t *Tree) resolve(addr uint32, class *Class, depth int) (int, uint32, error) {
	if class == nil {
		a, ok := t.byAddr[addr]
		if !ok {
			return -1, 0, notFound(addr)
		}
		class = a.Class
	}
	if depth > 0 {
		if depth > len(class.Ancestors) {
			return -1, 0, notFound(addr)
		}
		class = class.Ancestors[depth-1]
	}

	rem := addr
	for i := len(class.Ancestors) - 1; i >= 0; i-- {
		anc := class.Ancestors[i]
		next := class
		if i > 0 {
			next = class.Ancestors[i-1]
		}
		j := anc.lastAtOrBelow(rem)
		if j < 0 || anc.Members[j].Class != next {
			return -1, 0, notFound(addr)
		}
		rem = sysex.SubAddresses(rem, anc.Members[j].Offset)
	}
	j := class.lastAtOrBelow(rem)
	if j < 0 {
		return -1, 0, notFound(addr)
	}
	within := sysex.SubAddresses(rem, class.Members[j].Offset)
	return j, sysex.SubAddresses(addr, within), nil
}

func notFound(addr uint32) error {
	return fmt.Errorf("%w: %s", ErrNotFound, sysex.FormatAddress(addr))
}

// Describe returns the name of the leaf at addr.
func (t *Tree) Describe(addr uint32) (string, error) {
	a, ok := t.byAddr[addr]
	if !ok {
		return "", notFound(addr)
	}
	i, err := t.ResolveMember(addr, a.Class, 0)
	if err != nil {
		return "", err
	}
	return a.Class.Members[i].Name, nil
}

// AncestorNames returns the names of the composite members containing the
// leaf at addr, nearest first. It is empty for unknown addresses and for
// leaves of the root class.
func (t *Tree) AncestorNames(addr uint32) []string {
	a, ok := t.byAddr[addr]
	if !ok {
		return nil
	}
	var names []string
	for depth := 1; depth <= len(a.Class.Ancestors); depth++ {
		i, err := t.ResolveMember(addr, a.Class, depth)
		if err != nil {
			break
		}
		names = append(names, a.Class.Ancestors[depth-1].Members[i].Name)
	}
	return names
}

// MemberSize returns the declared wire size of the leaf at addr.
func (t *Tree) MemberSize(addr uint32) (int, error) {
	a, ok := t.byAddr[addr]
	if !ok {
		return 0, notFound(addr)
	}
	return a.Size, nil
}

// MemberAddresses returns the absolute address of each direct member of
// class when the class itself sits at base.
func (t *Tree) MemberAddresses(class *Class, base uint32) []uint32 {
	out := make([]uint32, len(class.Members))
	for i := range class.Members {
		out[i] = sysex.AddAddresses(base, class.Members[i].Offset)
	}
	return out
}

// Leaves returns every leaf under m, depth first, when m sits at base.
func (t *Tree) Leaves(m *Member, base uint32) ([]*Address, error) {
	var out []*Address
	if err := t.collect(m, base, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Tree) collect(m *Member, base uint32, out *[]*Address) error {
	if m.IsLeaf() {
		a, ok := t.byAddr[base]
		if !ok || a.Size != m.Size {
			return notFound(base)
		}
		*out = append(*out, a)
		return nil
	}
	for i := range m.Class.Members {
		child := &m.Class.Members[i]
		if err := t.collect(child, sysex.AddAddresses(base, child.Offset), out); err != nil {
			return err
		}
	}
	return nil
}
