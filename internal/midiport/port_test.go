package midiport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	n    int
	name string
}

func (p fakePort) Number() int    { return p.n }
func (p fakePort) String() string { return p.name }

func TestFindMatchesNameCaseInsensitively(t *testing.T) {
	ports := []fakePort{{0, "Midi Through Port-0"}, {3, "JUNO-Gi MIDI 1"}, {4, "JUNO-Gi MIDI 2"}}

	n, err := find("output", "juno", ports)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = find("input", "midi 2", ports)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = find("input", "blofeld", ports)
	assert.EqualError(t, err, `no MIDI input contains "blofeld"`)

	_, err = find("output", "juno", []fakePort(nil))
	assert.EqualError(t, err, "no MIDI outputs available")
}

func TestPortBuffersInbound(t *testing.T) {
	p := &Port{}
	p.receive([]byte{0xF0, 0x41, 0xF7}, 0)
	p.receive([]byte{0x90, 0x3C, 0x64}, 0)
	p.receive([]byte{0xF0, 0x7D, 0xF7}, 0)

	got := p.Inbound()
	require.Len(t, got, 2)
	assert.Equal(t, []byte{0xF0, 0x41, 0xF7}, got[0])
	assert.Empty(t, p.Inbound())
}
