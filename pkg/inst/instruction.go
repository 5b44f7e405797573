// Package inst describes a decoded 8080/Z80 instruction as a compact,
// transient operation descriptor: a Family tag plus operand fields, the
// (family, operand, addressing-mode) tuple the decoder produces and the
// executor consumes. One Family serves every addressing mode (register,
// (HL), (IX+d), (IY+d)) instead of exploding into a per-addressing-mode
// enum entry, since the full Z80 instruction set is far larger than the
// superoptimizer's original 406-opcode, HL-only subset.
package inst

// Family identifies the operation a decoded instruction performs.
type Family uint8

const (
	FamNone Family = iota
	FamLD8
	FamLD16
	FamADD
	FamADC
	FamSUB
	FamSBC
	FamAND
	FamOR
	FamXOR
	FamCP
	FamINC
	FamDEC
	FamRLCA
	FamRRCA
	FamRLA
	FamRRA
	FamRLC
	FamRRC
	FamRL
	FamRR
	FamSLA
	FamSRA
	FamSLL
	FamSRL
	FamBIT
	FamSET
	FamRES
	FamADD16
	FamADC16
	FamSBC16
	FamINC16
	FamDEC16
	FamJP
	FamJR
	FamDJNZ
	FamCALL
	FamRET
	FamRETI
	FamRETN
	FamRST
	FamPUSH
	FamPOP
	FamEX
	FamEXX
	FamIN
	FamOUT
	FamLDI
	FamLDD
	FamLDIR
	FamLDDR
	FamCPI
	FamCPD
	FamCPIR
	FamCPDR
	FamINI
	FamIND
	FamINIR
	FamINDR
	FamOUTI
	FamOUTD
	FamOTIR
	FamOTDR
	FamDAA
	FamCPL
	FamSCF
	FamCCF
	FamNEG
	FamNOP
	FamHALT
	FamDI
	FamEI
	FamIM
	FamLDAI // LD A,I
	FamLDAR // LD A,R
	FamLDIA // LD I,A
	FamLDRA // LD R,A
	FamRRD
	FamRLD
)

// Reg8 is an 8-bit register id. IXH/IXL/IYH/IYL are only reachable in Z80
// mode, via the DD/FD prefix retargeting the H/L slot of the r-field.
type Reg8 uint8

const (
	RegNone Reg8 = iota
	RegB
	RegC
	RegD
	RegE
	RegH
	RegL
	RegA
	RegF
	RegIXH
	RegIXL
	RegIYH
	RegIYL
	RegI
	RegR
)

// Pair is a 16-bit register-pair id.
type Pair uint8

const (
	PairNone Pair = iota
	PairBC
	PairDE
	PairHL
	PairSP
	PairAF
	PairIX
	PairIY
)

// MemMode is the memory addressing mode of an instruction's principal
// 8-bit operand, when it isn't a bare register or immediate.
type MemMode uint8

const (
	MemNone MemMode = iota
	MemHL
	MemIX // (IX+d); Disp holds d
	MemIY // (IY+d); Disp holds d
	MemBC
	MemDE
	MemNN // (nn); Imm16 holds the address
)

// Cond is a condition code tested against F by JP/JR/CALL/RET cc.
type Cond uint8

const (
	CondAlways Cond = iota
	CondNZ
	CondZ
	CondNC
	CondC
	CondPO
	CondPE
	CondP
	CondM
)

// Instruction is the transient operation descriptor the decoder produces
// and the executor consumes.
type Instruction struct {
	Family Family

	// Reg is the primary 8-bit register operand: the r in INC r, BIT n,r,
	// RLC r, and the destination of LD r,r'. Reg2 is the source register
	// of LD r,r'.
	Reg, Reg2 Reg8

	// Pair is the 16-bit register-pair operand for LD rr,nn / INC rr /
	// DEC rr / ADD HL,rr / PUSH rr / POP rr / LD SP,HL (dest). Pair2 is
	// EX's second operand (EX DE,HL uses Pair=HL, Pair2=DE) and LD SP,HL's
	// source register (Pair2=HL/IX/IY). For FamEX with Mem set to MemHL/
	// MemIX/MemIY, Mem is a pure marker meaning "exchanged via (SP)" (EX
	// (SP),HL/IX/IY) rather than a literal memory address — Pair names
	// which register pair is exchanged with the word at (SP).
	Pair, Pair2 Pair

	// Mem selects memory addressing when the 8-bit or 16-bit operand is
	// (HL), (IX+d), (IY+d), (BC), (DE), or (nn) rather than a register.
	// For FamLD8/FamLD16, MemIsDst disambiguates direction: true means the
	// memory operand is the destination and Reg/Pair/Imm8 names the
	// source (LD (HL),r / LD (nn),HL); false means memory is the source
	// and Reg/Pair names the destination (LD r,(HL) / LD HL,(nn)). It is
	// unused (and ignored) when Mem is MemNone, since Reg/Reg2 or
	// Pair/Pair2 already name both operands unambiguously.
	Mem      MemMode
	MemIsDst bool
	Disp     int8 // displacement for MemIX/MemIY

	Imm8  uint8
	Imm16 uint16
	BitN  uint8 // bit index, 0-7, for BIT/SET/RES

	Cond Cond

	// Length is the total byte count consumed from memory: opcode byte(s)
	// plus any prefix, displacement, and immediate bytes.
	Length int
}

// UsesIndexed reports whether this instruction addresses memory through a
// displaced index register, and so consumed a displacement byte.
func (in Instruction) UsesIndexed() bool {
	return in.Mem == MemIX || in.Mem == MemIY
}
