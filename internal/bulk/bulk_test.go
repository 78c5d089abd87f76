package bulk

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gieditor/internal/params"
	"gieditor/internal/sysex"
	"gieditor/internal/transport"
)

func TestPlanSingleBlockForAdjacentRun(t *testing.T) {
	var in []Span
	addr := uint32(0x10000000)
	for i := 0; i < 30; i++ {
		in = append(in, Span{Addr: addr, Size: 4})
		addr = sysex.AddAddresses(addr, 4)
	}
	blocks := Plan(in)
	require.Len(t, blocks, 1)
	assert.Equal(t, 120, blocks[0].Size)
	assert.Equal(t, uint32(0x10000000), blocks[0].Start)
}

func TestPlanAdjacencyAcrossDigitCarry(t *testing.T) {
	blocks := Plan([]Span{
		{Addr: 0x1000007F, Size: 1},
		{Addr: 0x10000100, Size: 1},
	})
	require.Len(t, blocks, 1)
	assert.Equal(t, 2, blocks[0].Size)

	blocks = Plan([]Span{
		{Addr: 0x1000007F, Size: 1},
		{Addr: 0x10000080, Size: 1},
	})
	assert.Len(t, blocks, 2)
}

func TestPlanOverflowStartsNextBlock(t *testing.T) {
	in := []Span{{Addr: 0, Size: 4}}
	for i := 0; i < 30; i++ {
		prev := in[len(in)-1]
		in = append(in, Span{Addr: sysex.AddAddresses(prev.Addr, uint32(prev.Size)), Size: 4})
	}
	blocks := Plan(in)
	require.Len(t, blocks, 2)
	assert.Equal(t, 120, blocks[0].Size)
	assert.Equal(t, 4, blocks[1].Size)
	assert.Equal(t, in[30].Addr, blocks[1].Start)
}

func TestPlanSortsAndKeepsIdentity(t *testing.T) {
	in := []Span{
		{Addr: 0x0003, Size: 1},
		{Addr: 0x0001, Size: 2},
		{Addr: 0x0010, Size: 1},
	}
	blocks := Plan(in)
	require.Len(t, blocks, 2)
	assert.Equal(t, []int{1, 0}, blocks[0].Members)
	assert.Equal(t, []int{0, 2}, blocks[0].Offsets)
	assert.Equal(t, []int{2}, blocks[1].Members)
}

// Random layouts checked against the planner's contract.
func TestPlanProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		var in []Span
		addr := uint32(0x10000000)
		for i := rng.Intn(120); i >= 0; i-- {
			size := 1 + rng.Intn(4)
			in = append(in, Span{Addr: addr, Size: size})
			gap := uint32(0)
			if rng.Intn(5) == 0 {
				gap = uint32(1 + rng.Intn(3))
			}
			addr = sysex.AddAddresses(addr, uint32(size)+gap)
		}
		rng.Shuffle(len(in), func(i, j int) { in[i], in[j] = in[j], in[i] })

		blocks := Plan(in)
		seen := make(map[int]bool)
		for bi, b := range blocks {
			assert.LessOrEqual(t, b.Size, MaxBlockSize)
			end := b.Start
			total := 0
			for k, m := range b.Members {
				assert.False(t, seen[m])
				seen[m] = true
				assert.Equal(t, end, in[m].Addr)
				assert.Equal(t, total, b.Offsets[k])
				end = sysex.AddAddresses(end, uint32(in[m].Size))
				total += in[m].Size
			}
			assert.Equal(t, b.Size, total)

			if bi+1 < len(blocks) && end == blocks[bi+1].Start {
				first := in[blocks[bi+1].Members[0]].Size
				assert.Greater(t, b.Size+first, MaxBlockSize, "blocks %d and %d could merge", bi, bi+1)
			}
		}
		assert.Len(t, seen, len(in))
	}
}

type fakeLink struct {
	mem      map[uint32]byte
	fail     map[uint32]error
	requests int
	sends    int
}

func newFakeLink() *fakeLink {
	return &fakeLink{mem: map[uint32]byte{}, fail: map[uint32]error{}}
}

func (f *fakeLink) Send(addr uint32, payload []byte) error {
	f.sends++
	for _, b := range payload {
		f.mem[addr] = b
		addr = sysex.AddAddresses(addr, 1)
	}
	return nil
}

func (f *fakeLink) Request(addr uint32, size int) ([]byte, error) {
	f.requests++
	if err := f.fail[addr]; err != nil {
		return nil, err
	}
	out := make([]byte, size)
	for i := range out {
		out[i] = f.mem[addr]
		addr = sysex.AddAddresses(addr, 1)
	}
	return out, nil
}

func (f *fakeLink) WaitForDrain() error { return nil }

var errNoReply = fmt.Errorf("request: %w", transport.ErrTimeout)

func layerLeaves(t *testing.T, tree *params.Tree) []*params.Address {
	t.Helper()
	live, ok := tree.Class(params.ClassLiveSet)
	require.True(t, ok)
	leaves, err := tree.Leaves(&live.Members[6], 0x10001000)
	require.NoError(t, err)
	return leaves
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	tree := params.NewJunoGi()
	link := newFakeLink()
	tr := &Transfer{Link: link}

	leaves := layerLeaves(t, tree)
	for i, a := range leaves {
		a.SetValue(uint32(i % 0x80))
	}
	require.NoError(t, tr.Write(leaves))
	assert.Equal(t, 1, link.sends)

	for _, a := range leaves {
		a.Forget()
	}
	require.NoError(t, tr.Read(leaves))
	assert.Equal(t, 1, link.requests)
	for i, a := range leaves {
		v, known := a.Value()
		require.True(t, known)
		assert.Equal(t, uint32(i%0x80), v)
	}
}

func TestReadWideValues(t *testing.T) {
	tree := params.NewJunoGi()
	link := newFakeLink()
	tr := &Transfer{Link: link}

	tempo, ok := tree.Lookup(0x10000011)
	require.True(t, ok)
	require.Equal(t, 4, tempo.Size)

	tempo.SetValue(0x04B0)
	require.NoError(t, tr.WriteOne(tempo))
	assert.Equal(t, byte(0x00), link.mem[0x10000011])
	assert.Equal(t, byte(0x04), link.mem[0x10000012])
	assert.Equal(t, byte(0x0B), link.mem[0x10000013])
	assert.Equal(t, byte(0x00), link.mem[0x10000014])

	tempo.Forget()
	require.NoError(t, tr.ReadOne(tempo))
	v, _ := tempo.Value()
	assert.Equal(t, uint32(0x04B0), v)
}

func TestReadFailureLeavesValuesAndBlacklists(t *testing.T) {
	tree := params.NewJunoGi()
	link := newFakeLink()
	tr := &Transfer{Link: link, BlacklistOnTimeout: true}

	a, _ := tree.Lookup(0x01000000)
	b, _ := tree.Lookup(0x02000000)
	a.SetValue(9)
	link.mem[0x01000000] = 3
	link.fail[0x02000000] = errNoReply

	err := tr.Read([]*params.Address{a, b})
	assert.ErrorIs(t, err, errNoReply)
	v, _ := a.Value()
	assert.Equal(t, uint32(9), v)
	assert.True(t, b.Blacklisted())

	before := link.requests
	err = tr.Read([]*params.Address{b})
	assert.ErrorIs(t, err, params.ErrBlacklisted)
	assert.Equal(t, before, link.requests)
}

func TestReadFailureWithoutBlacklistPolicy(t *testing.T) {
	tree := params.NewJunoGi()
	link := newFakeLink()
	tr := &Transfer{Link: link}

	a, _ := tree.Lookup(0x01000000)
	link.fail[0x01000000] = errNoReply
	assert.ErrorIs(t, tr.ReadOne(a), errNoReply)
	assert.False(t, a.Blacklisted())
}

type shortLink struct{ fakeLink }

func (s *shortLink) Request(addr uint32, size int) ([]byte, error) {
	return make([]byte, size-1), nil
}

func TestReadShortReply(t *testing.T) {
	tree := params.NewJunoGi()
	tr := &Transfer{Link: &shortLink{*newFakeLink()}}
	a, _ := tree.Lookup(0x01000000)
	assert.ErrorIs(t, tr.ReadOne(a), ErrMalformed)
}

func TestReadClosedTransportDoesNotBlacklist(t *testing.T) {
	tree := params.NewJunoGi()
	link := newFakeLink()
	tr := &Transfer{Link: link, BlacklistOnTimeout: true}

	a, _ := tree.Lookup(0x01000000)
	link.fail[0x01000000] = transport.ErrClosed
	assert.ErrorIs(t, tr.ReadOne(a), transport.ErrClosed)
	assert.False(t, a.Blacklisted())

	link.fail[0x01000000] = fmt.Errorf("request: %w", transport.ErrChecksum)
	assert.ErrorIs(t, tr.ReadOne(a), transport.ErrChecksum)
	assert.True(t, a.Blacklisted())
}
