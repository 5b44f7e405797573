// Package exec dispatches a decoded inst.Instruction against a *cpu.CPU:
// the per-family handlers that were the teacher's single pkg/cpu/exec.go
// switch (itself ported from remogatto/z80's flag tables), generalized
// here across both CPU modes and the full addressing surface — register,
// (HL), (IX+d)/(IY+d) — rather than the teacher's HL-only subset.
package exec

import (
	"github.com/z80run/z80run/pkg/cpu"
	"github.com/z80run/z80run/pkg/decode"
	"github.com/z80run/z80run/pkg/flags"
	"github.com/z80run/z80run/pkg/inst"
)

// PortIn reads a byte from an I/O port; PortOut writes one. Both are host
// callbacks injected by the caller (spec's port hook) — the core never
// talks to real devices directly.
type PortIn func(port uint16) uint8
type PortOut func(port uint16, value uint8)

// Step decodes and executes one instruction at cpu.PC, advancing all
// relevant state (PC, SP, flags, the pending-EI counter) and returning
// the approximate T-state cost consumed. Before fetching, it services any
// interrupt raised on c via cpu.RaiseInt/RaiseNMI (spec's external
// interrupt interface): a pending NMI always takes priority, a pending
// maskable interrupt only when IFF1 permits.
func Step(c *cpu.CPU, in PortIn, out PortOut) int {
	if t := serviceInterrupts(c); t > 0 {
		return t
	}
	if c.Halt {
		c.SettleEI()
		return 4
	}
	ins, n := decode.Decode(&c.Mem, c.PC, c.Mode)
	c.PC += uint16(n)
	dispatch(c, ins, in, out)
	c.SettleEI()
	return inst.TStates(ins)
}

// serviceInterrupts consumes a pending NMI or maskable interrupt, pushing
// the return address and redirecting PC per the active interrupt mode. It
// returns 0 (and does nothing else) when nothing is pending.
func serviceInterrupts(c *cpu.CPU) int {
	if c.TakeNMI() {
		c.Halt = false
		push(c, c.PC)
		c.IFF1 = false
		c.PC = 0x0066
		return 11
	}
	if vector, ok := c.TakeInt(); ok {
		c.Halt = false
		c.IFF1, c.IFF2 = false, false
		push(c, c.PC)
		if c.Mode == flags.MZ80 && c.IM == 2 {
			addr := uint16(c.I)<<8 | uint16(vector)
			c.PC = c.ReadWord(addr)
			return 19
		}
		if c.Mode == flags.MZ80 && c.IM == 1 {
			c.PC = 0x0038
			return 13
		}
		// IM0, and 8080 mode's equivalent interrupt-acknowledge cycle: the
		// interrupting device supplies an opcode on the bus. Only the
		// overwhelmingly common case — an RST instruction — is supported,
		// matching the vector_byte-as-opcode-byte model spec's interrupt
		// interface describes.
		c.PC = uint16(vector & 0x38)
		return 13
	}
	return 0
}

func dispatch(c *cpu.CPU, in inst.Instruction, portIn PortIn, portOut PortOut) {
	switch in.Family {
	case inst.FamLD8:
		execLD8(c, in)
	case inst.FamLD16:
		execLD16(c, in)
	case inst.FamADD, inst.FamADC, inst.FamSUB, inst.FamSBC, inst.FamAND, inst.FamOR, inst.FamXOR, inst.FamCP:
		execALU(c, in)
	case inst.FamINC:
		execIncDec(c, in, 1)
	case inst.FamDEC:
		execIncDec(c, in, -1)
	case inst.FamRLCA:
		execRLCA(c)
	case inst.FamRRCA:
		execRRCA(c)
	case inst.FamRLA:
		execRLA(c)
	case inst.FamRRA:
		execRRA(c)
	case inst.FamRLC, inst.FamRRC, inst.FamRL, inst.FamRR, inst.FamSLA, inst.FamSRA, inst.FamSLL, inst.FamSRL:
		execShift(c, in)
	case inst.FamBIT:
		execBit(c, in)
	case inst.FamSET:
		execSetRes(c, in, true)
	case inst.FamRES:
		execSetRes(c, in, false)
	case inst.FamADD16:
		execAdd16(c, in)
	case inst.FamADC16:
		execAdc16(c, in)
	case inst.FamSBC16:
		execSbc16(c, in)
	case inst.FamINC16:
		c.SetPair(in.Pair, c.Pair(in.Pair)+1)
	case inst.FamDEC16:
		c.SetPair(in.Pair, c.Pair(in.Pair)-1)
	case inst.FamJP:
		execJP(c, in)
	case inst.FamJR:
		if condTrue(c, in.Cond) {
			c.PC = in.Imm16
		}
	case inst.FamDJNZ:
		c.B--
		if c.B != 0 {
			c.PC = in.Imm16
		}
	case inst.FamCALL:
		if condTrue(c, in.Cond) {
			push(c, c.PC)
			c.PC = in.Imm16
		}
	case inst.FamRET:
		if condTrue(c, in.Cond) {
			c.PC = pop(c)
		}
	case inst.FamRETI:
		c.PC = pop(c)
	case inst.FamRETN:
		c.PC = pop(c)
		c.IFF1 = c.IFF2
	case inst.FamRST:
		push(c, c.PC)
		c.PC = uint16(in.Imm8)
	case inst.FamPUSH:
		push(c, c.Pair(in.Pair))
	case inst.FamPOP:
		execPop(c, in)
	case inst.FamEX:
		execEX(c, in)
	case inst.FamEXX:
		c.Exx()
	case inst.FamIN:
		execIN(c, in, portIn)
	case inst.FamOUT:
		execOUT(c, in, portOut)
	case inst.FamLDI:
		execLDBlock(c, +1, false)
	case inst.FamLDD:
		execLDBlock(c, -1, false)
	case inst.FamLDIR:
		execLDBlock(c, +1, true)
	case inst.FamLDDR:
		execLDBlock(c, -1, true)
	case inst.FamCPI:
		execCPBlock(c, +1, false)
	case inst.FamCPD:
		execCPBlock(c, -1, false)
	case inst.FamCPIR:
		execCPBlock(c, +1, true)
	case inst.FamCPDR:
		execCPBlock(c, -1, true)
	case inst.FamINI:
		execINBlock(c, +1, false, portIn)
	case inst.FamIND:
		execINBlock(c, -1, false, portIn)
	case inst.FamINIR:
		execINBlock(c, +1, true, portIn)
	case inst.FamINDR:
		execINBlock(c, -1, true, portIn)
	case inst.FamOUTI:
		execOUTBlock(c, +1, false, portOut)
	case inst.FamOUTD:
		execOUTBlock(c, -1, false, portOut)
	case inst.FamOTIR:
		execOUTBlock(c, +1, true, portOut)
	case inst.FamOTDR:
		execOUTBlock(c, -1, true, portOut)
	case inst.FamDAA:
		a, f := flags.Daa(c.Mode, c.A, c.F)
		c.F = flags.WriteBack(c.Mode, f)
		c.A = a
	case inst.FamCPL:
		execCPL(c)
	case inst.FamSCF:
		execSCF(c)
	case inst.FamCCF:
		execCCF(c)
	case inst.FamNEG:
		execNEG(c)
	case inst.FamNOP:
	case inst.FamHALT:
		c.Halt = true
	case inst.FamDI:
		c.IFF1, c.IFF2 = false, false
	case inst.FamEI:
		c.RequestEI()
	case inst.FamIM:
		c.IM = in.Imm8
	case inst.FamLDAI:
		execLDAI(c)
	case inst.FamLDAR:
		execLDAR(c)
	case inst.FamLDIA:
		c.I = c.A
	case inst.FamLDRA:
		c.R = c.A
	case inst.FamRRD:
		execRRD(c)
	case inst.FamRLD:
		execRLD(c)
	default:
		panic("exec: unhandled instruction family")
	}
}

func displacedAddr(base uint16, disp int8) uint16 { return base + uint16(int16(disp)) }

func readOperand8(c *cpu.CPU, in inst.Instruction) uint8 {
	switch in.Mem {
	case inst.MemHL:
		return c.ReadByte(c.HL())
	case inst.MemIX:
		return c.ReadByte(displacedAddr(c.IX, in.Disp))
	case inst.MemIY:
		return c.ReadByte(displacedAddr(c.IY, in.Disp))
	case inst.MemBC:
		return c.ReadByte(c.BC())
	case inst.MemDE:
		return c.ReadByte(c.DE())
	case inst.MemNN:
		return c.ReadByte(in.Imm16)
	default:
		return c.Reg8(in.Reg)
	}
}

func writeOperand8(c *cpu.CPU, in inst.Instruction, v uint8) {
	switch in.Mem {
	case inst.MemHL:
		c.WriteByte(c.HL(), v)
	case inst.MemIX:
		c.WriteByte(displacedAddr(c.IX, in.Disp), v)
	case inst.MemIY:
		c.WriteByte(displacedAddr(c.IY, in.Disp), v)
	case inst.MemBC:
		c.WriteByte(c.BC(), v)
	case inst.MemDE:
		c.WriteByte(c.DE(), v)
	case inst.MemNN:
		c.WriteByte(in.Imm16, v)
	default:
		c.SetReg8(in.Reg, v)
	}
}

// operandXY is the source of the undocumented X/Y flag bits for BIT: the
// tested byte itself for register/(HL) forms, or the high byte of the
// displaced address for (IX+d)/(IY+d) (spec §4.4).
func operandXY(c *cpu.CPU, in inst.Instruction, value uint8) uint8 {
	switch in.Mem {
	case inst.MemIX:
		return uint8(displacedAddr(c.IX, in.Disp) >> 8)
	case inst.MemIY:
		return uint8(displacedAddr(c.IY, in.Disp) >> 8)
	default:
		return value
	}
}

func condTrue(c *cpu.CPU, cond inst.Cond) bool {
	switch cond {
	case inst.CondAlways:
		return true
	case inst.CondNZ:
		return c.F&flags.Z == 0
	case inst.CondZ:
		return c.F&flags.Z != 0
	case inst.CondNC:
		return c.F&flags.C == 0
	case inst.CondC:
		return c.F&flags.C != 0
	case inst.CondPO:
		return c.F&flags.P == 0
	case inst.CondPE:
		return c.F&flags.P != 0
	case inst.CondP:
		return c.F&flags.S == 0
	case inst.CondM:
		return c.F&flags.S != 0
	default:
		return false
	}
}

func push(c *cpu.CPU, v uint16) {
	c.SP -= 2
	c.WriteWord(c.SP, v)
}

func pop(c *cpu.CPU) uint16 {
	v := c.ReadWord(c.SP)
	c.SP += 2
	return v
}

// execPop is FamPOP's handler. POP AF is the one POP that writes F, so it
// is the one PUSH/POP path that must still funnel through flags.WriteBack,
// like every other F write in this package (the flags.* helpers return raw
// flag bytes; each handler applies flags.WriteBack itself).
func execPop(c *cpu.CPU, in inst.Instruction) {
	v := pop(c)
	if in.Pair == inst.PairAF {
		v = v&0xFF00 | uint16(flags.WriteBack(c.Mode, uint8(v)))
	}
	c.SetPair(in.Pair, v)
}

func execLD8(c *cpu.CPU, in inst.Instruction) {
	if in.Mem != inst.MemNone {
		if in.MemIsDst {
			if in.Reg != inst.RegNone {
				writeOperand8(c, in, c.Reg8(in.Reg))
			} else {
				writeOperand8(c, in, in.Imm8)
			}
		} else {
			c.SetReg8(in.Reg, readOperand8(c, in))
		}
		return
	}
	if in.Reg2 != inst.RegNone {
		c.SetReg8(in.Reg, c.Reg8(in.Reg2))
		return
	}
	c.SetReg8(in.Reg, in.Imm8)
}

func execLD16(c *cpu.CPU, in inst.Instruction) {
	if in.Mem == inst.MemNN {
		if in.MemIsDst {
			c.WriteWord(in.Imm16, c.Pair(in.Pair))
		} else {
			c.SetPair(in.Pair, c.ReadWord(in.Imm16))
		}
		return
	}
	if in.Pair2 != inst.PairNone {
		c.SetPair(in.Pair, c.Pair(in.Pair2))
		return
	}
	c.SetPair(in.Pair, in.Imm16)
}

func aluOperand(c *cpu.CPU, in inst.Instruction) uint8 {
	if in.Mem == inst.MemNone && in.Reg == inst.RegNone {
		return in.Imm8
	}
	return readOperand8(c, in)
}

func execALU(c *cpu.CPU, in inst.Instruction) {
	val := aluOperand(c, in)
	switch in.Family {
	case inst.FamADD:
		result, f := flags.Add8(c.A, val, 0)
		f = flags.FixupPV(c.Mode, result, f)
		c.F = flags.WriteBack(c.Mode, f)
		c.A = result
	case inst.FamADC:
		result, f := flags.Add8(c.A, val, c.F&flags.C)
		f = flags.FixupPV(c.Mode, result, f)
		c.F = flags.WriteBack(c.Mode, f)
		c.A = result
	case inst.FamSUB:
		result, f := flags.Sub8(c.A, val, 0)
		f = flags.FixupPV(c.Mode, result, f)
		c.F = flags.WriteBack(c.Mode, f)
		c.A = result
	case inst.FamSBC:
		result, f := flags.Sub8(c.A, val, c.F&flags.C)
		f = flags.FixupPV(c.Mode, result, f)
		c.F = flags.WriteBack(c.Mode, f)
		c.A = result
	case inst.FamAND:
		result := c.A & val
		c.F = flags.WriteBack(c.Mode, flags.Logical('A', result))
		c.A = result
	case inst.FamOR:
		result := c.A | val
		c.F = flags.WriteBack(c.Mode, flags.Logical('O', result))
		c.A = result
	case inst.FamXOR:
		result := c.A ^ val
		c.F = flags.WriteBack(c.Mode, flags.Logical('X', result))
		c.A = result
	case inst.FamCP:
		result := c.A - val
		f := flags.Cp8(c.A, val)
		f = flags.FixupPV(c.Mode, result, f)
		c.F = flags.WriteBack(c.Mode, f)
	}
}

func execIncDec(c *cpu.CPU, in inst.Instruction, delta int) {
	before := readOperand8(c, in)
	result := before + uint8(delta)
	var f uint8
	if delta > 0 {
		f = flags.Inc8(c.F&flags.C, result)
	} else {
		f = flags.Dec8(c.F&flags.C, before, result)
	}
	f = flags.FixupPV(c.Mode, result, f)
	c.F = flags.WriteBack(c.Mode, f)
	writeOperand8(c, in, result)
}

func execRLCA(c *cpu.CPU) {
	carry := c.A >> 7
	result := (c.A << 1) | carry
	c.F = flags.WriteBack(c.Mode, flags.RotateA(c.F, result, carry))
	c.A = result
}

func execRRCA(c *cpu.CPU) {
	carry := c.A & 1
	result := (c.A >> 1) | (carry << 7)
	c.F = flags.WriteBack(c.Mode, flags.RotateA(c.F, result, carry))
	c.A = result
}

func execRLA(c *cpu.CPU) {
	carryIn := c.F & flags.C
	carryOut := c.A >> 7
	result := (c.A << 1) | carryIn
	c.F = flags.WriteBack(c.Mode, flags.RotateA(c.F, result, carryOut))
	c.A = result
}

func execRRA(c *cpu.CPU) {
	carryIn := c.F & flags.C
	carryOut := c.A & 1
	result := (c.A >> 1) | (carryIn << 7)
	c.F = flags.WriteBack(c.Mode, flags.RotateA(c.F, result, carryOut))
	c.A = result
}

func execShift(c *cpu.CPU, in inst.Instruction) {
	val := readOperand8(c, in)
	var result, f uint8
	switch in.Family {
	case inst.FamRLC:
		result, f = flags.Rlc(val)
	case inst.FamRRC:
		result, f = flags.Rrc(val)
	case inst.FamRL:
		result, f = flags.Rl(val, c.F&flags.C)
	case inst.FamRR:
		result, f = flags.Rr(val, c.F&flags.C)
	case inst.FamSLA:
		result, f = flags.Sla(val)
	case inst.FamSRA:
		result, f = flags.Sra(val)
	case inst.FamSLL:
		result, f = flags.Sll(val)
	case inst.FamSRL:
		result, f = flags.Srl(val)
	}
	c.F = flags.WriteBack(c.Mode, f)
	writeOperand8(c, in, result)
	if in.UsesIndexed() && in.Reg != inst.RegNone {
		c.SetReg8(in.Reg, result)
	}
}

func execBit(c *cpu.CPU, in inst.Instruction) {
	val := readOperand8(c, in)
	xy := operandXY(c, in, val)
	f := flags.Bit(c.F&flags.C, val, xy, uint(in.BitN))
	c.F = flags.WriteBack(c.Mode, f)
}

func execSetRes(c *cpu.CPU, in inst.Instruction, set bool) {
	val := readOperand8(c, in)
	var result uint8
	if set {
		result = val | (1 << in.BitN)
	} else {
		result = val &^ (1 << in.BitN)
	}
	writeOperand8(c, in, result)
	if in.UsesIndexed() && in.Reg != inst.RegNone {
		c.SetReg8(in.Reg, result)
	}
}

func execAdd16(c *cpu.CPU, in inst.Instruction) {
	hl := c.Pair(in.Pair2)
	val := c.Pair(in.Pair)
	result, f := flags.Add16(c.F, hl, val)
	c.F = flags.WriteBack(c.Mode, f)
	c.SetPair(in.Pair2, result)
}

func execAdc16(c *cpu.CPU, in inst.Instruction) {
	result, f := flags.Adc16(c.HL(), c.Pair(in.Pair), c.F&flags.C)
	c.F = flags.WriteBack(c.Mode, f)
	c.SetHL(result)
}

func execSbc16(c *cpu.CPU, in inst.Instruction) {
	result, f := flags.Sbc16(c.HL(), c.Pair(in.Pair), c.F&flags.C)
	c.F = flags.WriteBack(c.Mode, f)
	c.SetHL(result)
}

func execJP(c *cpu.CPU, in inst.Instruction) {
	if in.Pair != inst.PairNone {
		c.PC = c.Pair(in.Pair)
		return
	}
	if condTrue(c, in.Cond) {
		c.PC = in.Imm16
	}
}

func execEX(c *cpu.CPU, in inst.Instruction) {
	switch {
	case in.Pair == inst.PairAF && in.Pair2 == inst.PairNone && in.Mem == inst.MemNone:
		c.ExAFAF()
	case in.Mem != inst.MemNone:
		old := c.ExSPIndirect(c.Pair(in.Pair))
		c.SetPair(in.Pair, old)
	default:
		c.ExDEHL()
	}
}

func execIN(c *cpu.CPU, in inst.Instruction, portIn PortIn) {
	if in.Mem == inst.MemNN {
		c.SetReg8(in.Reg, portIn(uint16(in.Imm8)))
		return
	}
	v := portIn(c.BC())
	if in.Reg != inst.RegNone {
		c.SetReg8(in.Reg, v)
	}
	f := (c.F & flags.C) | flags.SZXYPTable[v]
	c.F = flags.WriteBack(c.Mode, f)
}

func execOUT(c *cpu.CPU, in inst.Instruction, portOut PortOut) {
	if in.Mem == inst.MemNN {
		portOut(uint16(in.Imm8), c.A)
		return
	}
	v := uint8(0)
	if in.Reg != inst.RegNone {
		v = c.Reg8(in.Reg)
	}
	portOut(c.BC(), v)
}

// execLDBlock implements LDI/LDD/LDIR/LDDR: copy (HL) to (DE), step both
// pointers by dir, decrement BC, and — for the repeating forms — rewind
// PC by 2 while BC is still nonzero so Step re-fetches the same
// instruction (spec's block-repeat mechanism).
func execLDBlock(c *cpu.CPU, dir int16, repeat bool) {
	v := c.ReadByte(c.HL())
	c.WriteByte(c.DE(), v)
	c.SetHL(c.HL() + uint16(dir))
	c.SetDE(c.DE() + uint16(dir))
	c.SetBC(c.BC() - 1)
	f := c.F & (flags.S | flags.Z | flags.C)
	if c.BC() != 0 {
		f |= flags.P
		if repeat {
			c.PC -= 2
		}
	}
	c.F = flags.WriteBack(c.Mode, f)
}

func execCPBlock(c *cpu.CPU, dir int16, repeat bool) {
	val := c.ReadByte(c.HL())
	result := c.A - val
	c.SetHL(c.HL() + uint16(dir))
	c.SetBC(c.BC() - 1)
	f := flags.Cp8(c.A, val)
	f = (f &^ (flags.C | flags.P)) | (c.F & flags.C)
	if c.BC() != 0 {
		f |= flags.P
	}
	c.F = flags.WriteBack(c.Mode, f)
	if repeat && c.BC() != 0 && result != 0 {
		c.PC -= 2
	}
}

func execINBlock(c *cpu.CPU, dir int16, repeat bool, portIn PortIn) {
	v := portIn(c.BC())
	c.WriteByte(c.HL(), v)
	c.SetHL(c.HL() + uint16(dir))
	c.B--
	f := flags.N
	if c.B == 0 {
		f |= flags.Z
	}
	c.F = flags.WriteBack(c.Mode, f)
	if repeat && c.B != 0 {
		c.PC -= 2
	}
}

func execOUTBlock(c *cpu.CPU, dir int16, repeat bool, portOut PortOut) {
	v := c.ReadByte(c.HL())
	portOut(c.BC(), v)
	c.SetHL(c.HL() + uint16(dir))
	c.B--
	f := flags.N
	if c.B == 0 {
		f |= flags.Z
	}
	c.F = flags.WriteBack(c.Mode, f)
	if repeat && c.B != 0 {
		c.PC -= 2
	}
}

func execCPL(c *cpu.CPU) {
	c.A = ^c.A
	f := (c.F & (flags.S | flags.Z | flags.P | flags.C)) | flags.H | flags.N | (c.A & (flags.X | flags.Y))
	c.F = flags.WriteBack(c.Mode, f)
}

func execSCF(c *cpu.CPU) {
	f := (c.F & (flags.S | flags.Z | flags.P)) | flags.C | (c.A & (flags.X | flags.Y))
	c.F = flags.WriteBack(c.Mode, f)
}

func execCCF(c *cpu.CPU) {
	oldCarry := c.F & flags.C
	f := c.F & (flags.S | flags.Z | flags.P)
	if oldCarry != 0 {
		f |= flags.H
	} else {
		f |= 0
	}
	newCarry := oldCarry ^ flags.C
	f |= newCarry | (c.A & (flags.X | flags.Y))
	c.F = flags.WriteBack(c.Mode, f)
}

func execNEG(c *cpu.CPU) {
	result, f := flags.Sub8(0, c.A, 0)
	f = flags.FixupPV(c.Mode, result, f)
	c.F = flags.WriteBack(c.Mode, f)
	c.A = result
}

func execLDAI(c *cpu.CPU) {
	f := flags.SZXYTable[c.I] | (c.F & flags.C)
	if c.IFF2 {
		f |= flags.P
	}
	c.F = flags.WriteBack(c.Mode, f)
	c.A = c.I
}

func execLDAR(c *cpu.CPU) {
	f := flags.SZXYTable[c.R] | (c.F & flags.C)
	if c.IFF2 {
		f |= flags.P
	}
	c.F = flags.WriteBack(c.Mode, f)
	c.A = c.R
}

func execRRD(c *cpu.CPU) {
	mem := c.ReadByte(c.HL())
	result := (c.A & 0xF0) | (mem & 0x0F)
	newMem := (mem >> 4) | ((c.A & 0x0F) << 4)
	c.WriteByte(c.HL(), newMem)
	c.A = result
	c.F = flags.WriteBack(c.Mode, flags.SZXYPTable[c.A]|(c.F&flags.C))
}

func execRLD(c *cpu.CPU) {
	mem := c.ReadByte(c.HL())
	result := (c.A & 0xF0) | ((mem >> 4) & 0x0F)
	newMem := ((mem << 4) & 0xF0) | (c.A & 0x0F)
	c.WriteByte(c.HL(), newMem)
	c.A = result
	c.F = flags.WriteBack(c.Mode, flags.SZXYPTable[c.A]|(c.F&flags.C))
}
