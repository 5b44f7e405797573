package exec

import (
	"testing"

	"github.com/z80run/z80run/pkg/cpu"
	"github.com/z80run/z80run/pkg/flags"
)

func noPorts() (PortIn, PortOut) {
	return func(uint16) uint8 { return 0xFF }, func(uint16, uint8) {}
}

func TestStepLoadImmediateAndAdd(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.Mem[0] = 0x3E // LD A,5
	c.Mem[1] = 0x05
	c.Mem[2] = 0x06 // LD B,3
	c.Mem[3] = 0x03
	c.Mem[4] = 0x80 // ADD A,B
	in, out := noPorts()
	for i := 0; i < 3; i++ {
		Step(c, in, out)
	}
	if c.A != 8 {
		t.Fatalf("A = %d, want 8", c.A)
	}
	if c.PC != 5 {
		t.Errorf("PC = %d, want 5", c.PC)
	}
}

func TestStepAdd8080ParityOverridesOverflow(t *testing.T) {
	c := cpu.New(flags.M8080)
	c.A = 0x7F // would signal Z80 signed overflow on +1
	c.Mem[0] = 0xC6 // ADI 1 (ADD A,n)
	c.Mem[1] = 0x01
	in, out := noPorts()
	Step(c, in, out)
	if c.A != 0x80 {
		t.Fatalf("A = %#02x, want 0x80", c.A)
	}
	// result 0x80 has odd parity (one set bit) -> P/V clear in 8080 mode,
	// even though the same result would set Z80's V (signed overflow).
	if c.F&flags.P != 0 {
		t.Errorf("F&P = %#02x, want 0 (8080 parity of 0x80 is odd)", c.F&flags.P)
	}
	if c.F&flags.N == 0 || c.F&(flags.X|flags.Y) != 0 {
		t.Errorf("F = %#02x, want N forced and X/Y forced clear in 8080 mode", c.F)
	}
}

func TestStepIndexedLoadAndStore(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.IX = 0x2000
	c.Mem[0x2005] = 0x42
	c.Mem[0] = 0xDD // LD A,(IX+5)
	c.Mem[1] = 0x7E
	c.Mem[2] = 0x05
	in, out := noPorts()
	Step(c, in, out)
	if c.A != 0x42 {
		t.Fatalf("A = %#02x, want 0x42", c.A)
	}
	if c.PC != 3 {
		t.Errorf("PC = %d, want 3", c.PC)
	}
}

func TestStepCallAndRetRoundTrip(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.SP = 0xFFF0
	c.Mem[0] = 0xCD // CALL 0x0010
	c.Mem[1] = 0x10
	c.Mem[2] = 0x00
	c.Mem[0x10] = 0xC9 // RET
	in, out := noPorts()
	Step(c, in, out) // CALL
	if c.PC != 0x10 {
		t.Fatalf("PC after CALL = %#04x, want 0x0010", c.PC)
	}
	if c.SP != 0xFFEE {
		t.Errorf("SP after CALL = %#04x, want 0xFFEE", c.SP)
	}
	Step(c, in, out) // RET
	if c.PC != 3 {
		t.Fatalf("PC after RET = %#04x, want 3", c.PC)
	}
	if c.SP != 0xFFF0 {
		t.Errorf("SP after RET = %#04x, want 0xFFF0", c.SP)
	}
}

func TestStepLDIRRepeatsUntilBCZero(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.SetHL(0x1000)
	c.SetDE(0x2000)
	c.SetBC(3)
	c.Mem[0x1000], c.Mem[0x1001], c.Mem[0x1002] = 0xAA, 0xBB, 0xCC
	c.Mem[0] = 0xED // LDIR
	c.Mem[1] = 0xB0
	in, out := noPorts()
	for steps := 0; c.BC() != 0; steps++ {
		if steps > 10 {
			t.Fatalf("LDIR did not converge")
		}
		Step(c, in, out)
	}
	if c.Mem[0x2000] != 0xAA || c.Mem[0x2001] != 0xBB || c.Mem[0x2002] != 0xCC {
		t.Fatalf("DE block = %02x %02x %02x, want AA BB CC", c.Mem[0x2000], c.Mem[0x2001], c.Mem[0x2002])
	}
	if c.PC != 2 {
		t.Errorf("PC after LDIR completes = %d, want 2 (no more rewind once BC==0)", c.PC)
	}
}

func TestStepHaltSpinsWithoutAdvancingPC(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.Mem[0] = 0x76 // HALT
	in, out := noPorts()
	Step(c, in, out)
	if !c.Halt {
		t.Fatalf("expected Halt=true after executing HALT")
	}
	pcBefore := c.PC
	Step(c, in, out)
	if c.PC != pcBefore {
		t.Errorf("PC moved from %d to %d while halted", pcBefore, c.PC)
	}
}

func TestStepEIDelaysOneInstruction(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.Mem[0] = 0xFB // EI
	c.Mem[1] = 0x00 // NOP
	in, out := noPorts()
	Step(c, in, out) // EI itself: IFF not yet set
	if c.IFF1 {
		t.Fatalf("IFF1 set immediately after EI, want delayed by one instruction")
	}
	Step(c, in, out) // NOP: EI's effect now lands
	if !c.IFF1 || !c.IFF2 {
		t.Errorf("IFF1/IFF2 = %v/%v after the instruction following EI, want both true", c.IFF1, c.IFF2)
	}
}

func TestStepDAAAfterBCDAdd(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.A = 0x09
	c.Mem[0] = 0xC6 // ADD A,1 -> 0x0A, needs adjust
	c.Mem[1] = 0x01
	c.Mem[2] = 0x27 // DAA
	in, out := noPorts()
	Step(c, in, out)
	Step(c, in, out)
	if c.A != 0x10 {
		t.Fatalf("A after DAA = %#02x, want 0x10", c.A)
	}
}

func TestStepPushPop(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.SP = 0xFFF0
	c.SetBC(0xBEEF)
	c.Mem[0] = 0xC5 // PUSH BC
	c.Mem[1] = 0xE1 // POP HL
	in, out := noPorts()
	Step(c, in, out)
	Step(c, in, out)
	if c.HL() != 0xBEEF {
		t.Fatalf("HL = %#04x, want 0xBEEF", c.HL())
	}
}

func TestStepPopAFAppliesWriteBackMask(t *testing.T) {
	c := cpu.New(flags.M8080)
	c.SP = 0xFFF0
	c.Mem[0xFFF0] = 0x28 // raw F: Y set, N clear - both forbidden in 8080 mode
	c.Mem[0xFFF1] = 0x99 // A
	c.Mem[0] = 0xF1      // POP AF
	in, out := noPorts()
	Step(c, in, out)
	if c.A != 0x99 {
		t.Fatalf("A = %#02x, want 0x99", c.A)
	}
	if c.F != 0x02 {
		t.Fatalf("F = %#02x, want 0x02 (Y/X cleared, N forced by WriteBack)", c.F)
	}
}

func TestStepNMIServicedRegardlessOfIFF1(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.SP = 0xFFF0
	c.PC = 0x1234
	c.IFF1, c.IFF2 = false, false
	c.RaiseNMI()
	in, out := noPorts()
	Step(c, in, out)
	if c.PC != 0x0066 {
		t.Fatalf("PC = %#04x, want 0x0066", c.PC)
	}
	if c.IFF1 {
		t.Errorf("IFF1 = true after NMI entry, want false")
	}
	if c.ReadWord(c.SP) != 0x1234 {
		t.Errorf("pushed return address = %#04x, want 0x1234", c.ReadWord(c.SP))
	}
}

func TestStepMaskableInterruptIgnoredWhenIFF1Clear(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.PC = 0x1234
	c.IFF1 = false
	c.Mem[0x1234] = 0x00 // NOP
	c.RaiseInt(0xFF)
	in, out := noPorts()
	Step(c, in, out)
	if c.PC != 0x1235 {
		t.Fatalf("PC = %#04x, want 0x1235 (NOP executed, interrupt not serviced)", c.PC)
	}
}

func TestStepMaskableInterruptIM1(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.SP = 0xFFF0
	c.PC = 0x1234
	c.IFF1, c.IFF2, c.IM = true, true, 1
	c.RaiseInt(0xFF)
	in, out := noPorts()
	Step(c, in, out)
	if c.PC != 0x0038 {
		t.Fatalf("PC = %#04x, want 0x0038", c.PC)
	}
	if c.IFF1 || c.IFF2 {
		t.Errorf("IFF1/IFF2 = %v/%v after interrupt entry, want both false", c.IFF1, c.IFF2)
	}
}

func TestStepMaskableInterruptIM2VectorsThroughTable(t *testing.T) {
	c := cpu.New(flags.MZ80)
	c.SP = 0xFFF0
	c.PC = 0x1234
	c.IFF1, c.IFF2, c.IM = true, true, 2
	c.I = 0x20
	c.Mem[0x2050] = 0x00 // handler address low byte
	c.Mem[0x2051] = 0x80 // handler address high byte -> 0x8000
	c.RaiseInt(0x50)
	in, out := noPorts()
	Step(c, in, out)
	if c.PC != 0x8000 {
		t.Fatalf("PC = %#04x, want 0x8000", c.PC)
	}
}

func TestStepOutWritesPort(t *testing.T) {
	c := cpu.New(flags.M8080)
	c.A = 0x77
	c.Mem[0] = 0xD3 // OUT 0x10,A (8080 OUT n)
	c.Mem[1] = 0x10
	var gotPort uint16
	var gotVal uint8
	portIn := func(uint16) uint8 { return 0 }
	portOut := func(port uint16, v uint8) { gotPort, gotVal = port, v }
	Step(c, portIn, portOut)
	if gotPort != 0x10 || gotVal != 0x77 {
		t.Fatalf("OUT called with (%#02x,%#02x), want (0x10,0x77)", gotPort, gotVal)
	}
}
