package main

import (
	"fmt"
	"strconv"
	"strings"

	"gieditor/internal/editor"
	"gieditor/internal/sysex"
)

func formatParam(p editor.Param) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", sysex.FormatAddress(p.Addr), p.Name)
	if len(p.Path) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(p.Path, " < "))
	}
	switch {
	case p.Blacklist:
		sb.WriteString(" = blacklisted")
	case p.Known:
		fmt.Fprintf(&sb, " = %d", p.Value)
	}
	return sb.String()
}

func parseAddr(args []string, i int) (uint32, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing address")
	}
	return sysex.ParseAddress(args[i])
}

func parseInt(args []string, i int, what string) (int, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", what)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[i])
	}
	return n, nil
}

func (c *commander) describe(args []string) error {
	addr, err := parseAddr(args, 1)
	if err != nil {
		return err
	}
	p, err := c.sess.Describe(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s, %d byte(s)\n", formatParam(p), p.Size)
	return nil
}

func (c *commander) get(args []string) error {
	addr, err := parseAddr(args, 1)
	if err != nil {
		return err
	}
	p, err := c.sess.Get(addr)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatParam(p))
	return nil
}

func (c *commander) set(args []string) error {
	addr, err := parseAddr(args, 1)
	if err != nil {
		return err
	}
	v, err := parseInt(args, 2, "value")
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("value must not be negative")
	}
	p, err := c.sess.Set(addr, uint32(v))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatParam(p))
	return nil
}

func (c *commander) adjust(args []string) error {
	addr, err := parseAddr(args, 1)
	if err != nil {
		return err
	}
	delta, err := parseInt(args, 2, "delta")
	if err != nil {
		return err
	}
	p, err := c.sess.Adjust(addr, delta)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, formatParam(p))
	return nil
}

func (c *commander) fetch(args []string) error {
	addr, err := parseAddr(args, 1)
	if err != nil {
		return err
	}
	class, err := c.sess.ClassByName(rest(args, 2))
	if err != nil {
		return err
	}
	ps, err := c.sess.Fetch(class, addr)
	if err != nil {
		return err
	}
	for _, p := range ps {
		fmt.Fprintln(c.out, formatParam(p))
	}
	return nil
}

func optional(args []string, i int) string {
	if len(args) <= i {
		return ""
	}
	return args[i]
}

// rest joins the arguments from i on, so class names need no quoting in the
// shell.
func rest(args []string, i int) string {
	if len(args) <= i {
		return ""
	}
	return strings.Join(args[i:], " ")
}
