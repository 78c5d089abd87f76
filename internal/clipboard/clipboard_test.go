package clipboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gieditor/internal/bulk"
	"gieditor/internal/clock"
	"gieditor/internal/devsim"
	"gieditor/internal/params"
	"gieditor/internal/sysex"
	"gieditor/internal/transport"
)

const (
	liveChorus   uint32 = 0x10000800
	studioChorus uint32 = 0x18000400
	studioReverb uint32 = 0x18000600
)

type rig struct {
	tree   *params.Tree
	dev    *devsim.Device
	board  *Board
	root   *params.Class
	live   *params.Class
	studio *params.Class
}

func newRig(t *testing.T) *rig {
	t.Helper()
	tree := params.NewJunoGi()
	dev := devsim.New(0x10, 0x4C)
	tr := transport.New(transport.Options{DeviceID: 0x10, ModelID: 0x4C, TimeoutTicks: 100})
	stop := clock.Start(time.Millisecond, func() { tr.Tick(dev) })
	t.Cleanup(func() {
		stop()
		tr.Close()
	})

	live, _ := tree.Class(params.ClassLiveSet)
	studio, _ := tree.Class(params.ClassStudioSet)
	return &rig{
		tree:   tree,
		dev:    dev,
		board:  New(tree, &bulk.Transfer{Link: tr, BlacklistOnTimeout: true}),
		root:   tree.Root(),
		live:   live,
		studio: studio,
	}
}

// leaves returns every leaf of the member of class at addr.
func (r *rig) leaves(t *testing.T, class *params.Class, addr uint32) []*params.Address {
	t.Helper()
	idx, base, err := r.tree.ResolveBase(addr, class, 0)
	require.NoError(t, err)
	out, err := r.tree.Leaves(&class.Members[idx], base)
	require.NoError(t, err)
	return out
}

// seed stores value(i) for the i'th leaf directly in device memory.
func (r *rig) seed(leaves []*params.Address, value func(i int) uint32) {
	for i, a := range leaves {
		r.dev.Poke(a.Addr, sysex.EncodeValue(value(i), a.Size)...)
	}
}

func (r *rig) deviceValue(a *params.Address) uint32 {
	return sysex.DecodeValue(r.dev.Peek(a.Addr, a.Size))
}

func pattern(i int) uint32 { return uint32(i%100 + 1) }

func TestCopyPasteSameAddress(t *testing.T) {
	r := newRig(t)
	r.seed(r.leaves(t, r.live, liveChorus), pattern)

	require.NoError(t, r.board.Copy(r.live, liveChorus))
	assert.Equal(t, 1, r.board.Depth())
	class, base, size, ok := r.board.Top()
	require.True(t, ok)
	assert.Equal(t, params.ClassLiveChorus, class)
	assert.Equal(t, liveChorus, base)
	assert.Equal(t, 24, size)

	require.NoError(t, r.board.Paste(r.live, liveChorus))
	assert.Equal(t, 0, r.board.Depth())
}

func TestCopyLeafHoldsOneValue(t *testing.T) {
	r := newRig(t)
	r.dev.Poke(0x01000000, 2)
	setup, _ := r.tree.Class("Setup")

	require.NoError(t, r.board.Copy(setup, 0x01000000))
	_, base, size, _ := r.board.Top()
	assert.Equal(t, uint32(0x01000000), base)
	assert.Equal(t, 1, size)
}

func TestCopyUnknownAddress(t *testing.T) {
	r := newRig(t)

	err := r.board.Copy(r.root, 0x10001250)
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Equal(t, 0, r.board.Depth())
	requests, _ := r.dev.Counts()
	assert.Zero(t, requests)
}

func TestCopyReadFailureLeavesStack(t *testing.T) {
	r := newRig(t)
	r.dev.Mute(liveChorus)

	err := r.board.Copy(r.live, liveChorus)
	assert.ErrorIs(t, err, transport.ErrTimeout)
	assert.Equal(t, 0, r.board.Depth())

	err = r.board.Copy(r.live, liveChorus)
	assert.ErrorIs(t, err, params.ErrBlacklisted)
}

func TestPasteIncompatibleClass(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.board.Copy(r.studio, studioReverb))

	_, writesBefore := r.dev.Counts()
	err := r.board.Paste(r.live, liveChorus)
	assert.ErrorIs(t, err, ErrIncompatibleClass)
	assert.Equal(t, 1, r.board.Depth())
	_, writes := r.dev.Counts()
	assert.Equal(t, writesBefore, writes)
}

func TestPasteEquivalentClass(t *testing.T) {
	r := newRig(t)
	src := r.leaves(t, r.studio, studioChorus)
	r.seed(src, pattern)

	require.NoError(t, r.board.Copy(r.studio, studioChorus))
	require.NoError(t, r.board.Paste(r.live, liveChorus))
	assert.Equal(t, 0, r.board.Depth())

	dst := r.leaves(t, r.live, liveChorus)
	require.Len(t, dst, len(src))
	for i := range dst {
		assert.Equal(t, pattern(i), r.deviceValue(dst[i]), dst[i].Name())
	}
}

func TestPasteRetriesDroppedWrite(t *testing.T) {
	r := newRig(t)
	r.seed(r.leaves(t, r.studio, studioChorus), pattern)
	require.NoError(t, r.board.Copy(r.studio, studioChorus))

	r.dev.DropWrites(liveChorus, 1)
	require.NoError(t, r.board.Paste(r.live, liveChorus))
	assert.Equal(t, pattern(0), r.deviceValue(r.leaves(t, r.live, liveChorus)[0]))
}

func TestPasteVerificationFailed(t *testing.T) {
	r := newRig(t)
	r.seed(r.leaves(t, r.studio, studioChorus), pattern)
	require.NoError(t, r.board.Copy(r.studio, studioChorus))

	r.dev.DropWrites(liveChorus, 2)
	err := r.board.Paste(r.live, liveChorus)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Contains(t, err.Error(), "1 of 24")
	assert.Equal(t, 0, r.board.Depth())
}

func TestPasteVerificationReadFailureKeepsSnapshot(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.board.Copy(r.studio, studioChorus))

	r.dev.Mute(liveChorus)
	err := r.board.Paste(r.live, liveChorus)
	assert.ErrorIs(t, err, transport.ErrTimeout)
	assert.Equal(t, 1, r.board.Depth())
}

func TestPasteEmptyStack(t *testing.T) {
	r := newRig(t)
	assert.ErrorIs(t, r.board.Paste(r.live, liveChorus), ErrNothingToPaste)
	assert.ErrorIs(t, r.board.PasteLayerToPart(r.root, params.TemporaryStudioSet, 1, 1), ErrNothingToPaste)
	assert.ErrorIs(t, r.board.Save(filepath.Join(t.TempDir(), "x.toml")), ErrNothingToPaste)
}

func TestNestedCopiesPasteInReverse(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.board.Copy(r.studio, studioChorus))
	require.NoError(t, r.board.Copy(r.studio, studioReverb))
	assert.Equal(t, 2, r.board.Depth())

	class, _, _, _ := r.board.Top()
	assert.Equal(t, params.ClassStudioReverb, class)
	require.NoError(t, r.board.Paste(r.studio, studioReverb))
	class, _, _, _ = r.board.Top()
	assert.Equal(t, params.ClassStudioChorus, class)

	r.board.Flush()
	assert.Equal(t, 0, r.board.Depth())
	r.board.Flush()
	assert.Equal(t, 0, r.board.Depth())
}

func TestPasteLayerToPart(t *testing.T) {
	r := newRig(t)
	const layer, part = 2, 3

	liveLeaves := r.leaves(t, r.root, params.TemporaryLiveSet)
	r.seed(liveLeaves, pattern)
	partLeaves := r.leaves(t, r.studio, 0x18002200)
	offLeaves := r.leaves(t, r.studio, 0x18003200)
	require.Len(t, partLeaves, 70)
	require.Len(t, offLeaves, 71)
	r.seed(partLeaves, func(int) uint32 { return 0x7E })
	r.seed(offLeaves, func(int) uint32 { return 0x7E })

	require.NoError(t, r.board.Copy(r.root, params.TemporaryLiveSet))
	require.NoError(t, r.board.PasteLayerToPart(r.root, params.TemporaryStudioSet, layer, part))
	assert.Equal(t, 0, r.board.Depth())

	layerFirst := 206 + 65*(layer-1)
	want := make([]uint32, len(partLeaves))
	for i := range want {
		want[i] = 0x7E
	}
	for _, b := range layerBlocks {
		for i := b.skip; i < b.skip+b.size; i++ {
			want[i+b.dest] = pattern(i + layerFirst)
		}
	}
	for i, a := range partLeaves {
		assert.Equal(t, want[i], r.deviceValue(a), "%d %s", i, a.Name())
	}
	assert.Equal(t, uint32(0x7E), r.deviceValue(partLeaves[0]))
	assert.Equal(t, "Tone Bank Select MSB", partLeaves[1].Name())

	toneFirst := 466 + 71*(layer-1)
	for i, a := range offLeaves {
		assert.Equal(t, pattern(i+toneFirst), r.deviceValue(a), a.Name())
	}
}

func TestPasteLayerToPartRejects(t *testing.T) {
	r := newRig(t)
	require.NoError(t, r.board.Copy(r.studio, studioChorus))
	err := r.board.PasteLayerToPart(r.root, params.TemporaryStudioSet, 1, 1)
	assert.ErrorIs(t, err, ErrIncompatibleClass)
	assert.Equal(t, 1, r.board.Depth())
	r.board.Flush()

	require.NoError(t, r.board.Copy(r.root, params.TemporaryLiveSet))
	for _, bad := range [][2]int{{0, 1}, {5, 1}, {1, 0}, {1, 17}} {
		err := r.board.PasteLayerToPart(r.root, params.TemporaryStudioSet, bad[0], bad[1])
		assert.ErrorIs(t, err, ErrIncompatibleClass)
	}
	err = r.board.PasteLayerToPart(r.root, params.TemporaryLiveSet, 1, 1)
	assert.ErrorIs(t, err, ErrIncompatibleClass)
	assert.Equal(t, 1, r.board.Depth())
}

func TestPasteLayerToPartFailureDropsTemporaries(t *testing.T) {
	r := newRig(t)
	r.seed(r.leaves(t, r.root, params.TemporaryLiveSet), pattern)
	require.NoError(t, r.board.Copy(r.root, params.TemporaryLiveSet))

	r.dev.DropWrites(0x18003000, 2)
	err := r.board.PasteLayerToPart(r.root, params.TemporaryStudioSet, 1, 1)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Equal(t, 1, r.board.Depth())
	class, _, _, _ := r.board.Top()
	assert.Equal(t, params.ClassLiveSet, class)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	r := newRig(t)
	r.seed(r.leaves(t, r.studio, studioChorus), pattern)
	require.NoError(t, r.board.Copy(r.studio, studioChorus))

	path := filepath.Join(t.TempDir(), "chorus.toml")
	require.NoError(t, r.board.Save(path))
	assert.Equal(t, 0, r.board.Depth())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)
	assert.Contains(t, text, "[General]")
	assert.Contains(t, text, `Class = "Studio Chorus"`)
	assert.Contains(t, text, `BaseAddress = "0x18000400"`)
	assert.Contains(t, text, "Size = 24")
	assert.Contains(t, text, "[Addresses]")

	require.NoError(t, r.board.Load(path))
	class, base, size, ok := r.board.Top()
	require.True(t, ok)
	assert.Equal(t, params.ClassStudioChorus, class)
	assert.Equal(t, studioChorus, base)
	assert.Equal(t, 24, size)

	require.NoError(t, r.board.Paste(r.live, liveChorus))
	for i, a := range r.leaves(t, r.live, liveChorus) {
		assert.Equal(t, pattern(i), r.deviceValue(a))
	}
}

func TestReadDecimalBase(t *testing.T) {
	r := newRig(t)
	in := `
[General]
Class = "Setup"
BaseAddress = 16777216
Size = 2

[Addresses]
"0x00000001" = 5
"0x00000000" = 3
`
	require.NoError(t, r.board.Read(strings.NewReader(in)))
	class, base, size, _ := r.board.Top()
	assert.Equal(t, "Setup", class)
	assert.Equal(t, uint32(0x01000000), base)
	assert.Equal(t, 2, size)

	require.NoError(t, r.board.Paste(r.root, 0x01000000))
	assert.Equal(t, []byte{3, 5}, r.dev.Peek(0x01000000, 2))
}

func TestReadRejectsBadFiles(t *testing.T) {
	r := newRig(t)
	for name, in := range map[string]string{
		"unknown class": "[General]\nClass = \"Nope\"\nBaseAddress = \"0x01000000\"\nSize = 0\n",
		"size mismatch": "[General]\nClass = \"Setup\"\nBaseAddress = \"0x01000000\"\nSize = 3\n[Addresses]\n\"0x00000000\" = 1\n",
		"bad address":   "[General]\nClass = \"Setup\"\nBaseAddress = \"0x01000000\"\nSize = 1\n[Addresses]\n\"0x00000080\" = 1\n",
		"not toml":      "[General\n",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, r.board.Read(strings.NewReader(in)))
			assert.Equal(t, 0, r.board.Depth())
		})
	}
}

func TestTopName(t *testing.T) {
	r := newRig(t)
	name := "Sky Lead"
	for i := 0; i < params.NameLength; i++ {
		c := byte(' ')
		if i < len(name) {
			c = name[i]
		}
		r.dev.Poke(sysex.AddAddresses(params.TemporaryLiveSet, uint32(i)), c)
	}
	assert.Equal(t, "", r.board.TopName())
	require.NoError(t, r.board.Copy(r.root, params.TemporaryLiveSet))
	assert.Equal(t, "Sky Lead", r.board.TopName())
}

func TestSingleValuePastesOnlyOntoSingleValue(t *testing.T) {
	r := newRig(t)
	chorus, _ := r.tree.Class(params.ClassLiveChorus)
	r.dev.Poke(0x10000800, 5)
	r.dev.Poke(0x10000801, 99)

	require.NoError(t, r.board.Copy(chorus, 0x10000801))
	class, base, size, _ := r.board.Top()
	assert.Equal(t, "Live Set Chorus value", class)
	assert.Equal(t, uint32(0x10000801), base)
	assert.Equal(t, 1, size)

	err := r.board.Paste(r.live, 0x10000800)
	assert.ErrorIs(t, err, ErrIncompatibleClass)
	err = r.board.Paste(chorus, 0x10000804)
	assert.ErrorIs(t, err, ErrIncompatibleClass)
	assert.Equal(t, 1, r.board.Depth())
	assert.Equal(t, []byte{5}, r.dev.Peek(0x10000800, 1))

	require.NoError(t, r.board.Paste(chorus, 0x10000800))
	assert.Equal(t, 0, r.board.Depth())
	assert.Equal(t, []byte{99}, r.dev.Peek(0x10000800, 1))
	assert.Equal(t, []byte{99}, r.dev.Peek(0x10000801, 1))
}

func TestGroupSnapshotRejectsSingleValue(t *testing.T) {
	r := newRig(t)
	chorus, _ := r.tree.Class(params.ClassLiveChorus)
	require.NoError(t, r.board.Copy(r.live, liveChorus))

	_, writesBefore := r.dev.Counts()
	err := r.board.Paste(chorus, 0x10000800)
	assert.ErrorIs(t, err, ErrIncompatibleClass)
	assert.Equal(t, 1, r.board.Depth())
	_, writesAfter := r.dev.Counts()
	assert.Equal(t, writesBefore, writesAfter)
}

func TestSingleValueFileRoundTrip(t *testing.T) {
	r := newRig(t)
	chorus, _ := r.tree.Class(params.ClassLiveChorus)
	r.dev.Poke(0x10000801, 64)
	require.NoError(t, r.board.Copy(chorus, 0x10000801))

	var sb strings.Builder
	require.NoError(t, r.board.WriteTop(&sb))
	assert.Contains(t, sb.String(), `Class = ""`)
	r.board.Flush()

	require.NoError(t, r.board.Read(strings.NewReader(sb.String())))
	class, _, size, _ := r.board.Top()
	assert.Equal(t, "Live Set Chorus value", class)
	assert.Equal(t, 1, size)
	assert.ErrorIs(t, r.board.Paste(r.live, 0x10000800), ErrIncompatibleClass)

	studioClass, _ := r.tree.Class(params.ClassStudioChorus)
	require.NoError(t, r.board.Paste(studioClass, 0x18000401))
	assert.Equal(t, []byte{64}, r.dev.Peek(0x18000401, 1))

	for name, in := range map[string]string{
		"single value size":   "[General]\nClass = \"\"\nBaseAddress = \"0x10000800\"\nSize = 2\n[Addresses]\n\"0x00000000\" = 1\n\"0x00000001\" = 1\n",
		"single value offset": "[General]\nClass = \"\"\nBaseAddress = \"0x10000800\"\nSize = 1\n[Addresses]\n\"0x00000001\" = 1\n",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, r.board.Read(strings.NewReader(in)))
			assert.Equal(t, 0, r.board.Depth())
		})
	}
}
