package cpm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/z80run/z80run/pkg/cpu"
	"github.com/z80run/z80run/pkg/flags"
)

func TestLoadCOMInstallsAtTPAStart(t *testing.T) {
	c := cpu.New(flags.M8080)
	program := []byte{0x3E, 0x41, 0xC9} // LD A,'A' ; RET
	require.NoError(t, LoadCOM(c, bytes.NewReader(program)))

	assert.Equal(t, uint16(TPAStart), c.PC)
	assert.Equal(t, uint16(0xFFF0), c.SP)
	assert.Equal(t, program, c.Mem[TPAStart:TPAStart+len(program)])
	assert.Equal(t, uint8(0xC9), c.Mem[BDOSEntry])
}

func TestRunPrintsConsoleOutCharacter(t *testing.T) {
	c := cpu.New(flags.M8080)
	// MVI E,'H'; MVI C,2; CALL 5; JMP 0
	program := []byte{
		0x1E, 'H',
		0x0E, 0x02,
		0xCD, 0x05, 0x00,
		0xC3, 0x00, 0x00,
	}
	require.NoError(t, LoadCOM(c, bytes.NewReader(program)))

	var out bytes.Buffer
	require.NoError(t, Run(c, &out, zerolog.Nop(), BDOSEntry, 0, 0, nil, nil))
	assert.Equal(t, "H", out.String())
}

func TestRunPrintsDollarTerminatedString(t *testing.T) {
	c := cpu.New(flags.M8080)
	msgAddr := uint16(0x0200)
	// LXI D,msgAddr; MVI C,9; CALL 5; JMP 0
	program := []byte{
		0x11, byte(msgAddr), byte(msgAddr >> 8),
		0x0E, 0x09,
		0xCD, 0x05, 0x00,
		0xC3, 0x00, 0x00,
	}
	require.NoError(t, LoadCOM(c, bytes.NewReader(program)))
	copy(c.Mem[msgAddr:], []byte("hi$"))

	var out bytes.Buffer
	require.NoError(t, Run(c, &out, zerolog.Nop(), BDOSEntry, 0, 0, nil, nil))
	assert.Equal(t, "hi", out.String())
}

func TestRunStopsAtInstructionLimit(t *testing.T) {
	c := cpu.New(flags.M8080)
	program := []byte{0xC3, 0x00, 0x01} // JMP 0x0100 (spin forever on itself)
	require.NoError(t, LoadCOM(c, bytes.NewReader(program)))

	err := Run(c, &bytes.Buffer{}, zerolog.Nop(), BDOSEntry, 5, 0, nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "instruction limit"))
}

func TestRunReportsProgress(t *testing.T) {
	c := cpu.New(flags.M8080)
	program := []byte{0xC3, 0x00, 0x01}
	require.NoError(t, LoadCOM(c, bytes.NewReader(program)))

	var seen int
	progress := func(count int, pc uint16) { seen = count }
	_ = Run(c, &bytes.Buffer{}, zerolog.Nop(), BDOSEntry, 7, 2, progress, nil)
	assert.Equal(t, 6, seen)
}
