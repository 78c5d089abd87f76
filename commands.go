package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gieditor/internal/config"
	"gieditor/internal/editor"
	"gieditor/internal/node"
	"gieditor/internal/sysex"
)

// commander runs one command line against a session. In shell mode copy,
// paste and layer work on the snapshot stack; otherwise they go through a
// copy file so the stack survives between invocations.
type commander struct {
	sess  *editor.Session
	cfg   config.Config
	out   io.Writer
	shell bool
}

func (c *commander) run(args []string) error {
	if len(args) == 0 {
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "describe", "d":
		return c.describe(args)
	case "get", "g":
		return c.get(args)
	case "set", "s":
		return c.set(args)
	case "adjust", "a":
		return c.adjust(args)
	case "fetch", "f":
		return c.fetch(args)
	case "names":
		return c.names()
	case "copy", "c":
		return c.copy(args)
	case "paste", "p":
		return c.paste(args)
	case "layer":
		return c.layer(args)
	case "save":
		return c.save(args)
	case "load":
		return c.load(args)
	case "flush":
		c.sess.Flush()
		return c.depth()
	case "depth":
		return c.depth()
	case "blacklist":
		return c.blacklist(args)
	case "monitor":
		return c.monitor(args)
	case "node":
		return c.node(args)
	case "status":
		return c.status()
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// localPath resolves name inside the snapshot directory, rejecting absolute
// names and names that climb out of it.
func (c *commander) localPath(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("file %q must be a relative name inside the snapshot directory", name)
	}
	return filepath.Join(c.cfg.SnapshotDir, name), nil
}

func (c *commander) path(name string) string {
	if filepath.IsAbs(name) || c.cfg.SnapshotDir == "" {
		return name
	}
	return filepath.Join(c.cfg.SnapshotDir, name)
}

func (c *commander) depth() error {
	top := c.sess.Top()
	fmt.Fprintf(c.out, "copy depth %d", top.Depth)
	if top.Class != "" {
		fmt.Fprintf(c.out, ", top %s at %s (%d values)", top.Class, sysex.FormatAddress(top.Base), top.Size)
		if top.Name != "" {
			fmt.Fprintf(c.out, " %q", top.Name)
		}
	}
	fmt.Fprintln(c.out)
	return nil
}

// copy: shell "copy <addr> [class]", command line "copy <addr> <file> [class]".
func (c *commander) copy(args []string) error {
	addr, err := parseAddr(args, 1)
	if err != nil {
		return err
	}
	if c.shell {
		if err := c.sess.Copy(rest(args, 2), addr); err != nil {
			return err
		}
		return c.depth()
	}
	if len(args) < 3 {
		return fmt.Errorf("missing file")
	}
	if err := c.sess.Copy(rest(args, 3), addr); err != nil {
		return err
	}
	if err := c.sess.Save(c.path(args[2])); err != nil {
		c.sess.Flush()
		return err
	}
	fmt.Fprintf(c.out, "saved %s\n", c.path(args[2]))
	return nil
}

// paste: shell "paste <addr> [class]", command line "paste <file> <addr> [class]".
func (c *commander) paste(args []string) error {
	if c.shell {
		addr, err := parseAddr(args, 1)
		if err != nil {
			return err
		}
		if err := c.sess.Paste(rest(args, 2), addr); err != nil {
			return err
		}
		return c.depth()
	}
	if len(args) < 2 {
		return fmt.Errorf("missing file")
	}
	addr, err := parseAddr(args, 2)
	if err != nil {
		return err
	}
	if err := c.sess.Load(c.path(args[1])); err != nil {
		return err
	}
	if err := c.sess.Paste(rest(args, 3), addr); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "pasted")
	return nil
}

// layer: shell "layer <addr> <layer> <part>", command line
// "layer <file> <addr> <layer> <part>".
func (c *commander) layer(args []string) error {
	first := 1
	if !c.shell {
		if len(args) < 2 {
			return fmt.Errorf("missing file")
		}
		if err := c.sess.Load(c.path(args[1])); err != nil {
			return err
		}
		first = 2
	}
	addr, err := parseAddr(args, first)
	if err != nil {
		return err
	}
	layer, err := parseInt(args, first+1, "layer")
	if err != nil {
		return err
	}
	part, err := parseInt(args, first+2, "part")
	if err != nil {
		return err
	}
	if err := c.sess.PasteLayerToPart(addr, layer, part); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "layer %d pasted to part %d\n", layer, part)
	return nil
}

func (c *commander) save(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing file")
	}
	if err := c.sess.Save(c.path(args[1])); err != nil {
		return err
	}
	return c.depth()
}

func (c *commander) load(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("missing file")
	}
	if err := c.sess.Load(c.path(args[1])); err != nil {
		return err
	}
	return c.depth()
}

func (c *commander) names() error {
	names, err := c.sess.PatchNames()
	for i, n := range names {
		if n != "" {
			fmt.Fprintf(c.out, "%3d %s\n", i+1, n)
		}
	}
	return err
}

func (c *commander) blacklist(args []string) error {
	if optional(args, 1) == "clear" {
		c.sess.ClearBlacklist()
	}
	for _, a := range c.sess.Blacklisted() {
		fmt.Fprintln(c.out, sysex.FormatAddress(a))
	}
	return nil
}

func (c *commander) monitor(args []string) error {
	n := 1
	if len(args) > 1 {
		var err error
		if n, err = parseInt(args, 1, "count"); err != nil {
			return err
		}
	}
	msgs, err := c.sess.Monitor(n)
	for _, m := range msgs {
		fmt.Fprintf(c.out, "% X\n", m)
	}
	return err
}

func (c *commander) node(args []string) error {
	switch what := optional(args, 1); what {
	case "":
		return fmt.Errorf("missing node command")
	case "view":
		return c.sess.Node.RequestView()
	case "delta":
		n, err := parseInt(args, 2, "delta")
		if err != nil {
			return err
		}
		if n < -32768 || n > 32767 {
			return fmt.Errorf("delta %d out of range", n)
		}
		return c.sess.Node.DeltaMeasure(int16(n))
	default:
		b, err := node.ParseButton(what)
		if err != nil {
			return err
		}
		return c.sess.Node.Toggle(b)
	}
}

func (c *commander) status() error {
	st := c.sess.Transport.Stats()
	fmt.Fprintf(c.out, "frames out %d, in %d, ignored %d, dropped %d\n",
		st.FramesOut, st.FramesIn, st.Ignored, st.Dropped)
	fmt.Fprintf(c.out, "timeouts %d, checksum errors %d, blacklisted %d\n",
		st.Timeouts, st.ChecksumErrors, len(c.sess.Blacklisted()))
	return c.depth()
}
