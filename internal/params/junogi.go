package params

import (
	"fmt"

	"gieditor/internal/sysex"
)

// Well-known class names of the Juno-Gi map.
const (
	ClassLiveSet       = "Live Set"
	ClassStudioSet     = "Studio Set"
	ClassLiveChorus    = "Live Set Chorus"
	ClassLiveReverb    = "Live Set Reverb"
	ClassStudioChorus  = "Studio Chorus"
	ClassStudioReverb  = "Studio Reverb"
	ClassLiveLayer     = "Live Set Layer"
	ClassStudioPart    = "Studio Set Part"
	ClassToneOffset    = "Live Set Tone Offset"
	ClassPartOffset    = "Studio Set Part Offset"
	ClassLiveSetCommon = "Live Set Common"
)

// Absolute bases of the editable temporary areas.
const (
	TemporaryLiveSet   uint32 = 0x10000000
	TemporaryStudioSet uint32 = 0x18000000
)

// NameLength is the number of single-byte characters in a set name.
const NameLength = 16

// row describes one leaf before offsets are assigned.
type row struct {
	name string
	size int
}

func one(names ...string) []row {
	out := make([]row, len(names))
	for i, n := range names {
		out[i] = row{n, 1}
	}
	return out
}

func wide(name string, size int) []row {
	return []row{{name, size}}
}

func series(prefix string, n, size int) []row {
	out := make([]row, n)
	for i := range out {
		out[i] = row{fmt.Sprintf("%s %d", prefix, i+1), size}
	}
	return out
}

func join(parts ...[]row) []row {
	var out []row
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// leafClass lays leaves out back to back from offset zero.
func leafClass(name string, leaves []row) *Class {
	c := &Class{Name: name, Members: make([]Member, len(leaves))}
	var off uint32
	for i, l := range leaves {
		c.Members[i] = Member{Name: l.name, Offset: off, Size: l.size}
		off = sysex.AddAddresses(off, uint32(l.size))
	}
	return c
}

// repeat places n members of class c starting at start, stride apart.
func repeat(c *Class, label string, n int, start, stride uint32) []Member {
	out := make([]Member, n)
	off := start
	for i := range out {
		out[i] = Member{Name: fmt.Sprintf("%s (%s %d)", c.Name, label, i+1), Offset: off, Class: c}
		off = sysex.AddAddresses(off, stride)
	}
	return out
}

// Shared between live set layers and studio set parts, in device order.
var (
	toneSelect = one(
		"Tone Bank Select MSB", "Tone Bank Select LSB", "Tone Program Number",
		"Level", "Pan", "Coarse Tune", "Fine Tune", "Octave Shift",
		"Pitch Bend Range Up", "Pitch Bend Range Down", "Portamento Switch",
		"Portamento Time", "Cutoff Offset", "Resonance Offset",
		"Attack Time Offset", "Decay Time Offset", "Release Time Offset",
		"Vibrato Rate", "Vibrato Depth", "Vibrato Delay",
		"Velocity Sens Offset", "Keyboard Range Lower", "Keyboard Range Upper",
		"Keyboard Fade Width Lower", "Keyboard Fade Width Upper",
		"Velocity Range Lower", "Velocity Range Upper",
		"Velocity Fade Width Lower", "Velocity Fade Width Upper",
		"Mute Switch", "Chorus Send Level", "Reverb Send Level",
		"Output Assign", "Scale Tune Type", "Scale Tune Key",
		"Velocity Curve Type", "Voice Reserve", "Tone Delay Mode",
		"Tone Delay Time", "Mono Priority", "Stretch Tune Depth",
	)
	toneVoicing = one("Mono/Poly Mode", "Legato Mode", "Portamento Mode", "Portamento Time Offset")
	toneExtras  = one("Arpeggio Switch", "Rhythm Pattern Switch", "Zone Octave Shift")

	partial = one(
		"Level Offset", "Pan Offset", "Coarse Tune Offset", "Fine Tune Offset",
		"Cutoff Offset", "Resonance Offset", "Attack Time Offset",
		"Decay Time Offset", "Sustain Level Offset", "Release Time Offset",
		"LFO Rate Offset", "LFO Depth Offset", "Pitch Env Depth Offset",
		"Velocity Sens Offset", "Switch",
	)
)

func toneOffsetLeaves() []row {
	out := one(
		"Tone Level Offset", "Tone Pan Offset", "Tone Coarse Tune Offset",
		"Tone Fine Tune Offset", "Tone Cutoff Offset", "Tone Resonance Offset",
		"Tone Attack Time Offset", "Tone Decay Time Offset",
		"Tone Release Time Offset", "Tone Vibrato Rate Offset",
		"Tone Vibrato Depth Offset",
	)
	for p := 1; p <= 4; p++ {
		for _, s := range partial {
			out = append(out, row{fmt.Sprintf("Partial %d %s", p, s.name), s.size})
		}
	}
	return out
}

func liveLayerLeaves() []row {
	return join(
		one("Layer Switch"),
		toneSelect,
		toneVoicing,
		one("Layer Control Switch", "Layer Assign"),
		toneExtras,
		one(
			"Ext Part Switch", "Ext Part Channel", "Ext Part Bank MSB",
			"Ext Part Bank LSB", "Ext Part Program", "Ext Part Level",
			"Ext Part Pan", "V-Link Switch", "Split Point", "Split Direction",
			"Hold Switch", "Transpose", "Pad Assign", "Layer Tempo Sync",
		),
	)
}

func studioPartLeaves() []row {
	return join(
		one("Receive Channel"),
		toneSelect,
		one(
			"Receive Switch", "Receive Program Change", "Receive Bank Select",
			"Receive Pitch Bend", "Receive Poly Key Pressure",
			"Receive Channel Pressure", "Receive Modulation", "Receive Volume",
			"Receive Pan", "Receive Expression", "Receive Hold-1",
			"Part Mute", "Part Solo", "Part Level Offset", "Part Pan Offset",
		),
		toneVoicing,
		one("Part Key Shift", "Part Fine Tune"),
		toneExtras,
		one("Part EQ Switch", "Part EQ Low Gain", "Part EQ Mid Gain", "Part EQ High Gain"),
	)
}

func chorusLeaves(prefix string) []row {
	return join(
		one(prefix+" Type", prefix+" Level", prefix+" Output Assign", prefix+" Output Select"),
		series(prefix+" Parameter", 20, 4),
	)
}

func reverbLeaves(prefix string) []row {
	return join(
		one(prefix+" Type", prefix+" Level", prefix+" Output Assign"),
		series(prefix+" Parameter", 20, 4),
	)
}

func liveSet() *Class {
	common := leafClass(ClassLiveSetCommon, join(
		series("Live Set Name", NameLength, 1),
		one("Live Set Level"),
		wide("Live Set Tempo", 4),
		one(
			"Tempo Sync Switch", "Arpeggio Switch", "Arpeggio Style",
			"Arpeggio Variation", "Arpeggio Motif", "Arpeggio Octave Range",
			"Arpeggio Accent Rate", "Arpeggio Velocity", "Arpeggio Shuffle Rate",
			"Arpeggio Key Hold", "MFX1 Switch", "MFX2 Switch", "MFX3 Switch",
			"Chorus Switch", "Reverb Switch", "MFX1 Chorus Send", "MFX1 Reverb Send",
			"MFX2 Chorus Send", "MFX2 Reverb Send", "MFX3 Chorus Send",
			"MFX3 Reverb Send", "Chorus Output Select", "Control Source 1",
			"Control Source 2", "Control Source 3", "Control Source 4",
			"Phrase Number", "Category", "Keyboard Mode",
		),
		one("Layer Select"),
	))
	mfx := leafClass("Live Set MFX", join(
		one("MFX Type", "MFX Chorus Send Level", "MFX Reverb Send Level",
			"MFX Output Assign", "MFX Control Channel"),
		series("MFX Parameter", 32, 4),
	))
	chorus := leafClass(ClassLiveChorus, chorusLeaves("Chorus"))
	reverb := leafClass(ClassLiveReverb, reverbLeaves("Reverb"))
	layer := leafClass(ClassLiveLayer, liveLayerLeaves())
	offset := leafClass(ClassToneOffset, toneOffsetLeaves())
	modify := leafClass("Live Set Tone Modify", one(
		"Modify Switch", "Modulation Assign", "Bender Assign", "Aftertouch Assign",
		"Knob 1 Assign", "Knob 2 Assign", "Knob 3 Assign", "Knob 4 Assign",
		"D Beam Assign", "Pedal Assign", "S1 Assign", "S2 Assign",
	))

	members := []Member{
		{Name: ClassLiveSetCommon, Offset: 0x0000, Class: common},
		{Name: "Live Set MFX1", Offset: 0x0200, Class: mfx},
		{Name: "Live Set MFX2", Offset: 0x0400, Class: mfx},
		{Name: "Live Set MFX3", Offset: 0x0600, Class: mfx},
		{Name: "Live Set Chorus", Offset: 0x0800, Class: chorus},
		{Name: "Live Set Reverb", Offset: 0x0A00, Class: reverb},
	}
	members = append(members, repeat(layer, "Layer", 4, 0x1000, 0x100)...)
	members = append(members, repeat(offset, "Layer", 4, 0x1400, 0x100)...)
	members = append(members, repeat(modify, "Layer", 4, 0x1800, 0x100)...)
	return &Class{Name: ClassLiveSet, Members: members}
}

func studioSet() *Class {
	common := leafClass("Studio Set Common", join(
		series("Studio Set Name", NameLength, 1),
		one("Studio Set Level"),
		wide("Studio Set Tempo", 4),
		one("Chorus Switch", "Reverb Switch", "Part Control Channel", "Solo Part"),
		series("Voice Reserve", 16, 1),
	))
	chorus := leafClass(ClassStudioChorus, chorusLeaves("Chorus"))
	reverb := leafClass(ClassStudioReverb, reverbLeaves("Reverb"))
	part := leafClass(ClassStudioPart, studioPartLeaves())
	offset := leafClass(ClassPartOffset, toneOffsetLeaves())

	members := []Member{
		{Name: "Studio Set Common", Offset: 0x0000, Class: common},
		{Name: "Studio Set Chorus", Offset: 0x0400, Class: chorus},
		{Name: "Studio Set Reverb", Offset: 0x0600, Class: reverb},
	}
	members = append(members, repeat(part, "Part", 16, 0x2000, 0x100)...)
	members = append(members, repeat(offset, "Part", 16, 0x3000, 0x100)...)
	return &Class{Name: ClassStudioSet, Members: members}
}

// NewJunoGi builds the parameter tree of a Juno-Gi. Each call returns an
// independent tree with its own address table.
func NewJunoGi() *Tree {
	setup := leafClass("Setup", one(
		"Sound Mode", "Live Set Bank Select MSB", "Live Set Bank Select LSB",
		"Live Set Program Number", "Studio Set Bank Select MSB",
		"Studio Set Bank Select LSB", "Studio Set Program Number",
	))
	common := leafClass("System Common", join(
		wide("Master Tune", 4),
		one("Master Key Shift", "Master Level", "Scale Tune Switch",
			"Patch Remain", "Mix/Parallel", "Control Channel"),
		wide("System Tempo", 4),
	))
	controller := leafClass("System Controller", one(
		"Transmit Program Change", "Transmit Bank Select", "Knob Select",
		"Pedal Assign", "Pedal Polarity", "Hold Pedal Polarity",
		"Velocity Curve", "Fixed Velocity",
	))
	system := &Class{Name: "System", Members: []Member{
		{Name: "System Common", Offset: 0x000000, Class: common},
		{Name: "System Controller", Offset: 0x000400, Class: controller},
	}}

	root := &Class{Name: "Juno-Gi", Members: []Member{
		{Name: "Setup", Offset: 0x01000000, Class: setup},
		{Name: "System", Offset: 0x02000000, Class: system},
		{Name: "Temporary Live Set", Offset: TemporaryLiveSet, Class: liveSet()},
		{Name: "Temporary Studio Set", Offset: TemporaryStudioSet, Class: studioSet()},
	}}

	t, err := NewTree(root)
	if err != nil {
		panic(fmt.Sprintf("juno-gi map: %v", err))
	}
	return t
}
