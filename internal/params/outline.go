package params

import (
	"fmt"
	"io"
	"strings"

	"gieditor/internal/sysex"
)

// Outline writes the member layout of the tree, one member per line with
// its absolute address. Members nested deeper than depth are summarized by
// their class; a negative depth prints every leaf.
func (t *Tree) Outline(w io.Writer, depth int) error {
	return outline(w, t.root, 0, 0, depth)
}

func outline(w io.Writer, c *Class, base uint32, level, depth int) error {
	indent := strings.Repeat("  ", level)
	for i := range c.Members {
		m := &c.Members[i]
		addr := sysex.AddAddresses(base, m.Offset)
		if m.IsLeaf() {
			if _, err := fmt.Fprintf(w, "%s%s %s [%d]\n", indent, sysex.FormatAddress(addr), m.Name, m.Size); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s%s %s (%s, %d values)\n", indent,
			sysex.FormatAddress(addr), m.Name, m.Class.Name, m.Class.LeafCount()); err != nil {
			return err
		}
		if depth < 0 || level < depth {
			if err := outline(w, m.Class, addr, level+1, depth); err != nil {
				return err
			}
		}
	}
	return nil
}
