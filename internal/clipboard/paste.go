package clipboard

import (
	"fmt"
	"log"

	"gieditor/internal/params"
	"gieditor/internal/sysex"
)

// equivalent lists class pairs with identical layouts that paste into each
// other.
var equivalent = map[string]string{
	params.ClassLiveChorus:   params.ClassStudioChorus,
	params.ClassStudioChorus: params.ClassLiveChorus,
	params.ClassLiveReverb:   params.ClassStudioReverb,
	params.ClassStudioReverb: params.ClassLiveReverb,
}

// Compatible reports whether a snapshot of class src may be pasted onto a
// member of class dst. A nil class is a single value and matches only
// another single value.
func Compatible(src, dst *params.Class) bool {
	if src == nil || dst == nil {
		return src == dst
	}
	return src == dst || equivalent[src.Name] == dst.Name
}

// Paste writes the top snapshot onto the member of class that owns addr,
// then reads the destination back and retries each differing value once.
// The snapshot is consumed once the read-back completes, even if values
// still differ. An incompatible destination leaves the stack untouched.
func (b *Board) Paste(class *params.Class, addr uint32) error {
	s := b.top()
	if s == nil {
		return ErrNothingToPaste
	}
	m, base, err := b.target(class, addr)
	if err != nil {
		return err
	}
	dst := m.Class
	if !Compatible(s.Class, dst) {
		return fmt.Errorf("%w: %s onto %s", ErrIncompatibleClass, s.Label(), className(dst))
	}

	targets := make([]*params.Address, len(s.Entries))
	for i, e := range s.Entries {
		a, ok := b.tree.Lookup(sysex.AddAddresses(base, e.Rel))
		if !ok || a.Size != e.Size {
			return fmt.Errorf("%w: %s has no %d-byte value at +%s",
				ErrIncompatibleClass, className(dst), e.Size, sysex.FormatAddress(e.Rel))
		}
		targets[i] = a
	}

	for i, a := range targets {
		a.SetValue(s.Entries[i].Value)
	}
	if err := b.xfer.Write(targets); err != nil {
		return err
	}
	if err := b.xfer.Drain(); err != nil {
		return err
	}
	if err := b.xfer.Read(targets); err != nil {
		return err
	}

	failed := 0
	for i, a := range targets {
		want := s.Entries[i].Value
		if got, _ := a.Value(); got == want {
			continue
		}
		if !b.retry(a, want) {
			failed++
		}
	}
	b.pop()

	if failed > 0 {
		log.Printf("[clipboard] paste onto %s: %d values differ after retry", sysex.FormatAddress(base), failed)
		return fmt.Errorf("%w: %d of %d values", ErrVerificationFailed, failed, len(targets))
	}
	log.Printf("[clipboard] pasted %s onto %s, depth %d", s.Label(), sysex.FormatAddress(base), b.Depth())
	return nil
}

// retry writes want to a once more and reports whether the read-back
// matches.
func (b *Board) retry(a *params.Address, want uint32) bool {
	a.SetValue(want)
	if err := b.xfer.WriteOne(a); err != nil {
		return false
	}
	if err := b.xfer.Drain(); err != nil {
		return false
	}
	if err := b.xfer.ReadOne(a); err != nil {
		log.Printf("[clipboard] retry read %s: %v", sysex.FormatAddress(a.Addr), err)
		return false
	}
	got, _ := a.Value()
	return got == want
}

// Layer-to-part layout: where a live set layer and its tone offset sit in a
// Live Set snapshot, and where a studio set part and its offset block sit
// relative to the Studio Set base.
const (
	liveLayerFirst  = 206
	liveLayerStride = 65
	liveToneFirst   = 466
	liveToneStride  = 71

	studioPartBase   uint32 = 0x2000
	studioOffsetBase uint32 = 0x3000
	studioStride     uint32 = 0x100
)

var layerBlocks = []struct{ skip, size, dest int }{
	{1, 41, 0},
	{42, 4, 15},
	{48, 3, 15},
}

func studioOffset(base, block uint32, part int) uint32 {
	return sysex.AddAddresses(sysex.AddAddresses(base, block), studioStride*uint32(part-1))
}

// PasteLayerToPart writes one layer of the Live Set snapshot on top of the
// stack into one part of the Studio Set owned by addr. The part's current
// parameters and offsets are captured first so values the layer does not
// carry are preserved. On success the Live Set snapshot is consumed.
func (b *Board) PasteLayerToPart(class *params.Class, addr uint32, layer, part int) error {
	src := b.top()
	if src == nil {
		return ErrNothingToPaste
	}
	m, base, err := b.target(class, addr)
	if err != nil {
		return err
	}
	dst := m.Class
	if className(src.Class) != params.ClassLiveSet || className(dst) != params.ClassStudioSet ||
		layer < 1 || layer > 4 || part < 1 || part > 16 {
		return fmt.Errorf("%w: layer %d of %s onto part %d of %s",
			ErrIncompatibleClass, layer, src.Label(), part, className(dst))
	}

	partAddr := studioOffset(base, studioPartBase, part)
	offAddr := studioOffset(base, studioOffsetBase, part)
	partSnap, err := b.capture(dst, partAddr)
	if err != nil {
		return err
	}
	offSnap, err := b.capture(dst, offAddr)
	if err != nil {
		return err
	}

	layerFirst := liveLayerFirst + liveLayerStride*(layer-1)
	toneFirst := liveToneFirst + liveToneStride*(layer-1)
	if toneFirst+len(offSnap.Entries) > len(src.Entries) {
		return fmt.Errorf("%w: live set snapshot holds %d values", ErrIncompatibleClass, len(src.Entries))
	}
	for _, r := range layerBlocks {
		for i := r.skip; i < r.skip+r.size; i++ {
			partSnap.Entries[i+r.dest].Value = src.Entries[i+layerFirst].Value
		}
	}
	for i := range offSnap.Entries {
		offSnap.Entries[i].Value = src.Entries[i+toneFirst].Value
	}

	depth := b.Depth()
	for _, step := range []struct {
		snap *Snapshot
		addr uint32
	}{{partSnap, partAddr}, {offSnap, offAddr}} {
		b.push(step.snap)
		if err := b.Paste(dst, step.addr); err != nil {
			b.truncate(depth)
			return err
		}
	}
	b.pop()
	log.Printf("[clipboard] pasted layer %d onto part %d, depth %d", layer, part, b.Depth())
	return nil
}

// truncate drops snapshots above depth.
func (b *Board) truncate(depth int) {
	for len(b.stack) > depth {
		b.pop()
	}
}
