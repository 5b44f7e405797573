package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/z80run/z80run/pkg/cpu"
	"github.com/z80run/z80run/pkg/flags"
)

func TestStepLogsMnemonicAndExecutes(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.Mem[0] = 0x3E // LD A,7
	c.Mem[1] = 0x07

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	in := func(uint16) uint8 { return 0 }
	out := func(uint16, uint8) {}

	Step(c, log, in, out)

	if c.A != 7 {
		t.Fatalf("A = %d, want 7 (Step must still execute)", c.A)
	}
	if !strings.Contains(buf.String(), "LD A,0x07") {
		t.Errorf("trace output = %q, want it to mention the disassembled mnemonic", buf.String())
	}
}

func TestStepSilentWhenLoggerIsNop(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.Mem[0] = 0x00 // NOP
	Step(c, zerolog.Nop(), func(uint16) uint8 { return 0 }, func(uint16, uint8) {})
	if c.PC != 1 {
		t.Fatalf("PC = %d, want 1", c.PC)
	}
}
