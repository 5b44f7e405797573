// Package cpu holds the dual-mode 8080/Z80 register file, flat 64 KiB
// memory, and mode gate. It owns no decode or execute logic; pkg/decode
// and pkg/exec operate on a *CPU from the outside, the way the teacher's
// pkg/cpu/state.go kept State a bare, trivially-copyable value and pushed
// all behavior into a separate Exec function.
package cpu

import (
	"github.com/z80run/z80run/pkg/flags"
	"github.com/z80run/z80run/pkg/inst"
)

// CPU is the complete dual-mode register file plus memory. Expanded from
// the teacher's single-cache-line State{A,F,B,C,D,E,H,L,SP,M} to the full
// Z80 superset: shadow register bank, IX/IY, I/R, interrupt state, and a
// 64 KiB flat address space the core executes directly against.
type CPU struct {
	A, F, B, C, D, E, H, L uint8
	A2, F2, B2, C2, D2, E2, H2, L2 uint8 // shadow AF'/BC'/DE'/HL', Z80-only

	SP, PC, IX, IY uint16

	I, R uint8
	IFF1, IFF2 bool
	IM         uint8 // 0, 1, or 2; meaningless in 8080 mode
	Halt       bool

	Mode flags.Mode

	Mem [65536]byte

	pendingEI  uint8 // EI delay counter; see RequestEI/SettleEI
	pendingNMI bool
	pendingInt bool
	intVector  uint8
}

// New returns a CPU reset to power-on state in the given mode.
func New(mode flags.Mode) *CPU {
	return &CPU{Mode: mode, SP: 0xFFFF}
}

// GetMode returns the active CPU mode.
func (c *CPU) GetMode() flags.Mode { return c.Mode }

// SetMode switches the active CPU mode. Register contents are left
// untouched; only decode/execute/flag semantics change (spec's mode gate).
func (c *CPU) SetMode(mode flags.Mode) { c.Mode = mode }

// AF/BC/DE/HL read the conventional 16-bit register-pair views onto the
// 8-bit halves.
func (c *CPU) AF() uint16 { return uint16(c.A)<<8 | uint16(c.F) }
func (c *CPU) BC() uint16 { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) DE() uint16 { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) HL() uint16 { return uint16(c.H)<<8 | uint16(c.L) }

func (c *CPU) SetAF(v uint16) { c.A, c.F = uint8(v>>8), uint8(v) }
func (c *CPU) SetBC(v uint16) { c.B, c.C = uint8(v>>8), uint8(v) }
func (c *CPU) SetDE(v uint16) { c.D, c.E = uint8(v>>8), uint8(v) }
func (c *CPU) SetHL(v uint16) { c.H, c.L = uint8(v>>8), uint8(v) }

// Reg8 reads an 8-bit register by id. IXH/IXL/IYH/IYL are only meaningful
// in Z80 mode; pkg/decode never produces them in 8080 mode.
func (c *CPU) Reg8(id inst.Reg8) uint8 {
	switch id {
	case inst.RegA:
		return c.A
	case inst.RegB:
		return c.B
	case inst.RegC:
		return c.C
	case inst.RegD:
		return c.D
	case inst.RegE:
		return c.E
	case inst.RegH:
		return c.H
	case inst.RegL:
		return c.L
	case inst.RegF:
		return c.F
	case inst.RegIXH:
		return uint8(c.IX >> 8)
	case inst.RegIXL:
		return uint8(c.IX)
	case inst.RegIYH:
		return uint8(c.IY >> 8)
	case inst.RegIYL:
		return uint8(c.IY)
	case inst.RegI:
		return c.I
	case inst.RegR:
		return c.R
	default:
		return 0
	}
}

// SetReg8 writes an 8-bit register by id.
func (c *CPU) SetReg8(id inst.Reg8, v uint8) {
	switch id {
	case inst.RegA:
		c.A = v
	case inst.RegB:
		c.B = v
	case inst.RegC:
		c.C = v
	case inst.RegD:
		c.D = v
	case inst.RegE:
		c.E = v
	case inst.RegH:
		c.H = v
	case inst.RegL:
		c.L = v
	case inst.RegF:
		c.F = v
	case inst.RegIXH:
		c.IX = uint16(v)<<8 | (c.IX & 0x00FF)
	case inst.RegIXL:
		c.IX = (c.IX & 0xFF00) | uint16(v)
	case inst.RegIYH:
		c.IY = uint16(v)<<8 | (c.IY & 0x00FF)
	case inst.RegIYL:
		c.IY = (c.IY & 0xFF00) | uint16(v)
	case inst.RegI:
		c.I = v
	case inst.RegR:
		c.R = v
	}
}

// Pair reads a 16-bit register-pair by id.
func (c *CPU) Pair(id inst.Pair) uint16 {
	switch id {
	case inst.PairBC:
		return c.BC()
	case inst.PairDE:
		return c.DE()
	case inst.PairHL:
		return c.HL()
	case inst.PairSP:
		return c.SP
	case inst.PairAF:
		return c.AF()
	case inst.PairIX:
		return c.IX
	case inst.PairIY:
		return c.IY
	default:
		return 0
	}
}

// SetPair writes a 16-bit register-pair by id.
func (c *CPU) SetPair(id inst.Pair, v uint16) {
	switch id {
	case inst.PairBC:
		c.SetBC(v)
	case inst.PairDE:
		c.SetDE(v)
	case inst.PairHL:
		c.SetHL(v)
	case inst.PairSP:
		c.SP = v
	case inst.PairAF:
		c.SetAF(v)
	case inst.PairIX:
		c.IX = v
	case inst.PairIY:
		c.IY = v
	}
}

// ReadByte/WriteByte/ReadWord/WriteWord are the core's only memory access
// surface; pkg/exec never indexes c.Mem directly beyond these, so every
// access goes through the same uint16-wraparound arithmetic.
func (c *CPU) ReadByte(addr uint16) uint8 { return c.Mem[addr] }

func (c *CPU) WriteByte(addr uint16, v uint8) { c.Mem[addr] = v }

func (c *CPU) ReadWord(addr uint16) uint16 {
	return uint16(c.Mem[addr]) | uint16(c.Mem[addr+1])<<8
}

func (c *CPU) WriteWord(addr uint16, v uint16) {
	c.Mem[addr] = uint8(v)
	c.Mem[addr+1] = uint8(v >> 8)
}

// ExAFAF swaps AF with the shadow AF' (Z80-only; 8080 mode never decodes
// the instruction that reaches this).
func (c *CPU) ExAFAF() {
	c.A, c.A2 = c.A2, c.A
	c.F, c.F2 = c.F2, c.F
}

// Exx swaps BC/DE/HL with their shadow counterparts.
func (c *CPU) Exx() {
	c.B, c.B2 = c.B2, c.B
	c.C, c.C2 = c.C2, c.C
	c.D, c.D2 = c.D2, c.D
	c.E, c.E2 = c.E2, c.E
	c.H, c.H2 = c.H2, c.H
	c.L, c.L2 = c.L2, c.L
}

// ExDEHL swaps DE and HL in place (EX DE,HL is never retargeted by a
// DD/FD prefix, unlike every other HL-pair instruction).
func (c *CPU) ExDEHL() {
	de, hl := c.DE(), c.HL()
	c.SetDE(hl)
	c.SetHL(de)
}

// ExSPIndirect swaps the word at (SP) with the given register-pair value
// and returns the word that was read from memory (EX (SP),HL/IX/IY).
func (c *CPU) ExSPIndirect(v uint16) uint16 {
	old := c.ReadWord(c.SP)
	c.WriteWord(c.SP, v)
	return old
}

// RequestEI arms the one-instruction-delayed interrupt enable: IFF1/IFF2
// become true only after the instruction following EI completes, per
// spec §4.4.
func (c *CPU) RequestEI() { c.pendingEI = 2 }

// SettleEI advances the EI delay counter; pkg/exec calls this once after
// every instruction, including the EI instruction itself.
func (c *CPU) SettleEI() {
	if c.pendingEI == 0 {
		return
	}
	c.pendingEI--
	if c.pendingEI == 0 {
		c.IFF1, c.IFF2 = true, true
	}
}

// RaiseInt latches a maskable interrupt request carrying the vector byte
// the interrupting device places on the bus during the acknowledge cycle
// (an opcode in IM0/8080 mode, a low vector byte in IM2). pkg/exec services
// it on the next Step call, gated on IFF1, per spec's external interrupt
// interface.
func (c *CPU) RaiseInt(vector uint8) {
	c.pendingInt = true
	c.intVector = vector
}

// RaiseNMI latches a non-maskable interrupt request. Unlike RaiseInt, NMI
// is serviced regardless of IFF1.
func (c *CPU) RaiseNMI() {
	c.pendingNMI = true
}

// TakeNMI reports whether an NMI is pending and, if so, consumes it.
func (c *CPU) TakeNMI() bool {
	if !c.pendingNMI {
		return false
	}
	c.pendingNMI = false
	return true
}

// TakeInt reports whether a maskable interrupt is pending and currently
// permitted (IFF1 set); if so it consumes the request and returns its
// vector byte.
func (c *CPU) TakeInt() (uint8, bool) {
	if !c.pendingInt || !c.IFF1 {
		return 0, false
	}
	c.pendingInt = false
	return c.intVector, true
}
