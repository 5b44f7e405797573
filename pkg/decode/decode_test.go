package decode

import (
	"testing"

	"github.com/z80run/z80run/pkg/flags"
	"github.com/z80run/z80run/pkg/inst"
)

func newMem(bytes ...uint8) *[65536]byte {
	var m [65536]byte
	copy(m[:], bytes)
	return &m
}

func TestDecodeRegisterToRegisterLoad(t *testing.T) {
	mem := newMem(0x41) // LD B,C
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamLD8 || in.Reg != inst.RegB || in.Reg2 != inst.RegC {
		t.Fatalf("got %+v", in)
	}
	if n != 1 {
		t.Errorf("length = %d, want 1", n)
	}
}

func TestDecodeImmediateLoad(t *testing.T) {
	mem := newMem(0x3E, 0x42) // LD A,n
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamLD8 || in.Reg != inst.RegA || in.Imm8 != 0x42 {
		t.Fatalf("got %+v", in)
	}
	if n != 2 {
		t.Errorf("length = %d, want 2", n)
	}
}

func TestDecodeAddAB(t *testing.T) {
	mem := newMem(0x80) // ADD A,B
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamADD || in.Reg != inst.RegB {
		t.Fatalf("got %+v", in)
	}
	if n != 1 {
		t.Errorf("length = %d, want 1", n)
	}
}

func TestDecodeCBBit(t *testing.T) {
	mem := newMem(0xCB, 0x7C) // BIT 7,H
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamBIT || in.BitN != 7 || in.Reg != inst.RegH {
		t.Fatalf("got %+v", in)
	}
	if n != 2 {
		t.Errorf("length = %d, want 2", n)
	}
}

func TestDecodeEDBlockLDIR(t *testing.T) {
	mem := newMem(0xED, 0xB0)
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamLDIR {
		t.Fatalf("got %+v", in)
	}
	if n != 2 {
		t.Errorf("length = %d, want 2", n)
	}
}

func TestDecodeIndexedLoad(t *testing.T) {
	mem := newMem(0xDD, 0x7E, 0x05) // LD A,(IX+5)
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamLD8 || in.Reg != inst.RegA || in.Mem != inst.MemIX || in.Disp != 5 {
		t.Fatalf("got %+v", in)
	}
	if n != 3 {
		t.Errorf("length = %d, want 3", n)
	}
}

func TestDecodeIndexedLoadDoesNotRetargetTheOtherOperand(t *testing.T) {
	mem := newMem(0xDD, 0x66, 0x03) // LD H,(IX+3) -- H stays plain H, not IXH
	in, _ := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamLD8 || in.Reg != inst.RegH || in.Mem != inst.MemIX || in.Disp != 3 {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeDDCBNoWriteback(t *testing.T) {
	mem := newMem(0xDD, 0xCB, 0x03, 0x06) // RLC (IX+3)
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamRLC || in.Mem != inst.MemIX || in.Disp != 3 || in.Reg != inst.RegNone {
		t.Fatalf("got %+v", in)
	}
	if n != 4 {
		t.Errorf("length = %d, want 4", n)
	}
}

func TestDecodeDDCBUndocumentedWriteback(t *testing.T) {
	mem := newMem(0xDD, 0xCB, 0x03, 0x00) // RLC (IX+3),B
	in, _ := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamRLC || in.Reg != inst.RegB || in.Mem != inst.MemIX || in.Disp != 3 {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeJRTarget(t *testing.T) {
	mem := newMem()
	mem[0x8000] = 0x18 // JR d
	mem[0x8001] = 0x05
	in, n := Decode(mem, 0x8000, flags.MZ80)
	if in.Family != inst.FamJR || in.Cond != inst.CondAlways {
		t.Fatalf("got %+v", in)
	}
	if want := uint16(0x8007); in.Imm16 != want {
		t.Errorf("target = %#04x, want %#04x", in.Imm16, want)
	}
	if n != 2 {
		t.Errorf("length = %d, want 2", n)
	}
}

func TestDecodeDJNZTarget(t *testing.T) {
	mem := newMem()
	mem[0x8000] = 0x10 // DJNZ d
	mem[0x8001] = 0xFB // -5
	in, _ := Decode(mem, 0x8000, flags.MZ80)
	if in.Family != inst.FamDJNZ {
		t.Fatalf("got %+v", in)
	}
	if want := uint16(0x7FFD); in.Imm16 != want {
		t.Errorf("target = %#04x, want %#04x", in.Imm16, want)
	}
}

func Test8080CallAliasForDD(t *testing.T) {
	mem := newMem(0xDD, 0x34, 0x12) // alias for CALL 0x1234
	in, n := Decode(mem, 0, flags.M8080)
	if in.Family != inst.FamCALL || in.Imm16 != 0x1234 {
		t.Fatalf("got %+v", in)
	}
	if n != 3 {
		t.Errorf("length = %d, want 3", n)
	}
}

func Test8080UndefinedOpcodeIsNOP(t *testing.T) {
	mem := newMem(0x20) // JR NZ,d in Z80, undefined (NOP) in 8080
	in, n := Decode(mem, 0, flags.M8080)
	if in.Family != inst.FamNOP {
		t.Fatalf("got %+v", in)
	}
	if n != 1 {
		t.Errorf("length = %d, want 1 (no displacement byte consumed)", n)
	}
}

func Test8080SharesBasePlaneWithZ80(t *testing.T) {
	mem := newMem(0x09) // ADD HL,BC (Z80) == DAD B (8080); same encoding
	in, _ := Decode(mem, 0, flags.M8080)
	if in.Family != inst.FamADD16 || in.Pair != inst.PairBC {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeJPIndirectHL(t *testing.T) {
	mem := newMem(0xE9) // JP (HL)
	in, _ := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamJP || in.Pair != inst.PairHL {
		t.Fatalf("got %+v", in)
	}
}

func TestDecodeExDEHLNotRetargetedByDD(t *testing.T) {
	mem := newMem(0xDD, 0xEB) // DD-prefixed EX DE,HL: prefix has no effect
	in, n := Decode(mem, 0, flags.MZ80)
	if in.Family != inst.FamEX || in.Pair != inst.PairHL || in.Pair2 != inst.PairDE {
		t.Fatalf("got %+v", in)
	}
	if n != 2 {
		t.Errorf("length = %d, want 2 (wasted prefix byte + EX DE,HL)", n)
	}
}
