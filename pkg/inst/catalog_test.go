package inst

import "testing"

func TestDisassembleRegisterLD(t *testing.T) {
	in := Instruction{Family: FamLD8, Reg: RegB, Reg2: RegC}
	if got := Disassemble(in); got != "LD B,C" {
		t.Errorf("Disassemble = %q, want %q", got, "LD B,C")
	}
}

func TestDisassembleIndexedMemory(t *testing.T) {
	in := Instruction{Family: FamINC, Mem: MemIX, Disp: -2}
	if got := Disassemble(in); got != "INC (IX-2)" {
		t.Errorf("Disassemble = %q, want %q", got, "INC (IX-2)")
	}
}

func TestDisassembleBit(t *testing.T) {
	in := Instruction{Family: FamBIT, BitN: 7, Mem: MemHL}
	if got := Disassemble(in); got != "BIT 7,(HL)" {
		t.Errorf("Disassemble = %q, want %q", got, "BIT 7,(HL)")
	}
}

func TestDisassembleConditionalJump(t *testing.T) {
	in := Instruction{Family: FamJP, Cond: CondZ, Imm16: 0x1234}
	if got := Disassemble(in); got != "JP Z,0x1234" {
		t.Errorf("Disassemble = %q, want %q", got, "JP Z,0x1234")
	}
}

func TestDisassembleUnconditionalRet(t *testing.T) {
	in := Instruction{Family: FamRET, Cond: CondAlways}
	if got := Disassemble(in); got != "RET" {
		t.Errorf("Disassemble = %q, want %q", got, "RET")
	}
}

func TestTStatesIndexedMemorySlower(t *testing.T) {
	plain := TStates(Instruction{Family: FamADD, Reg: RegB})
	indexed := TStates(Instruction{Family: FamADD, Mem: MemIX, Disp: 3})
	if indexed <= plain {
		t.Errorf("indexed (IX+d) operand should cost more T-states than a register operand: %d vs %d", indexed, plain)
	}
}

func TestUsesIndexed(t *testing.T) {
	if !(Instruction{Mem: MemIX}).UsesIndexed() {
		t.Error("MemIX should report UsesIndexed")
	}
	if (Instruction{Mem: MemHL}).UsesIndexed() {
		t.Error("MemHL should not report UsesIndexed")
	}
}
