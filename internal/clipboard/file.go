package clipboard

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"gieditor/internal/params"
	"gieditor/internal/sysex"
)

// fileAddr is an address written as hex and read back from hex, decimal
// or a bare integer.
type fileAddr uint32

func (a fileAddr) MarshalText() ([]byte, error) {
	return []byte(sysex.FormatAddress(uint32(a))), nil
}

func (a *fileAddr) UnmarshalTOML(v interface{}) error {
	switch x := v.(type) {
	case string:
		n, err := sysex.ParseAddress(x)
		if err != nil {
			return err
		}
		*a = fileAddr(n)
	case int64:
		if x < 0 || !sysex.ValidAddress(uint32(x)) || x > 0x7F7F7F7F {
			return fmt.Errorf("address %d out of range", x)
		}
		*a = fileAddr(x)
	default:
		return fmt.Errorf("address must be a string or integer, got %T", v)
	}
	return nil
}

type fileGeneral struct {
	Class       string   `toml:"Class"`
	BaseAddress fileAddr `toml:"BaseAddress"`
	Size        int      `toml:"Size"`
}

type copyFile struct {
	General   fileGeneral       `toml:"General"`
	Addresses map[string]uint32 `toml:"Addresses"`
}

// WriteTop encodes the top snapshot to w without consuming it.
func (b *Board) WriteTop(w io.Writer) error {
	s := b.top()
	if s == nil {
		return ErrNothingToPaste
	}
	var class string
	if s.Class != nil {
		class = s.Class.Name
	}
	f := copyFile{
		General: fileGeneral{
			Class:       class,
			BaseAddress: fileAddr(s.Base),
			Size:        len(s.Entries),
		},
		Addresses: make(map[string]uint32, len(s.Entries)),
	}
	for _, e := range s.Entries {
		f.Addresses[sysex.FormatAddress(e.Rel)] = e.Value
	}
	return toml.NewEncoder(w).Encode(f)
}

// Read decodes a snapshot from r and pushes it. An empty Class holds a
// single value.
func (b *Board) Read(r io.Reader) error {
	var f copyFile
	if _, err := toml.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("decode copy buffer: %w", err)
	}
	var class *params.Class
	if f.General.Class != "" {
		var ok bool
		if class, ok = b.tree.Class(f.General.Class); !ok {
			return fmt.Errorf("copy buffer: unknown class %q", f.General.Class)
		}
	} else if f.General.Size != 1 {
		return fmt.Errorf("copy buffer: single value with size %d", f.General.Size)
	}
	if f.General.Size != len(f.Addresses) {
		return fmt.Errorf("copy buffer: size %d but %d addresses", f.General.Size, len(f.Addresses))
	}

	base := uint32(f.General.BaseAddress)
	s := &Snapshot{Class: class, Base: base, Entries: make([]Entry, 0, len(f.Addresses))}
	for key, v := range f.Addresses {
		rel, err := sysex.ParseAddress(key)
		if err != nil {
			return fmt.Errorf("copy buffer: %w", err)
		}
		a, ok := b.tree.Lookup(sysex.AddAddresses(base, rel))
		if !ok {
			return fmt.Errorf("copy buffer: %w: %s + %s", ErrNoAddress, sysex.FormatAddress(base), key)
		}
		if class == nil {
			if rel != 0 {
				return fmt.Errorf("copy buffer: single value at +%s", key)
			}
			s.Owner = a.Class
		}
		s.Entries = append(s.Entries, Entry{Rel: rel, Size: a.Size, Value: v})
	}
	sort.Slice(s.Entries, func(i, j int) bool { return s.Entries[i].Rel < s.Entries[j].Rel })
	b.push(s)
	return nil
}

// Save writes the top snapshot to path and pops it.
func (b *Board) Save(path string) error {
	if b.top() == nil {
		return ErrNothingToPaste
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := b.WriteTop(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	b.pop()
	return nil
}

// Load reads a snapshot from path and pushes it.
func (b *Board) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return b.Read(f)
}
