// Package bulk coalesces parameter addresses into size-bounded contiguous
// blocks and moves their values through a request/response link.
package bulk

import (
	"sort"

	"gieditor/internal/sysex"
)

// MaxBlockSize is the largest payload of one block transaction.
const MaxBlockSize = 120

// Span is one address and its wire size.
type Span struct {
	Addr uint32
	Size int
}

// Block is one contiguous run of spans. Members holds indexes into the
// planned slice and Offsets the byte position of each within the block.
type Block struct {
	Start   uint32
	Size    int
	Members []int
	Offsets []int
}

// Plan sorts spans by address and greedily merges perfectly adjacent spans
// into blocks of at most MaxBlockSize bytes. A span never straddles two
// blocks.
func Plan(spans []Span) []Block {
	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return spans[order[i]].Addr < spans[order[j]].Addr })

	var blocks []Block
	var cur *Block
	var next uint32
	for _, idx := range order {
		s := spans[idx]
		if cur == nil || s.Addr != next || cur.Size+s.Size > MaxBlockSize {
			blocks = append(blocks, Block{Start: s.Addr})
			cur = &blocks[len(blocks)-1]
		}
		cur.Members = append(cur.Members, idx)
		cur.Offsets = append(cur.Offsets, cur.Size)
		cur.Size += s.Size
		next = sysex.AddAddresses(s.Addr, uint32(s.Size))
	}
	return blocks
}
