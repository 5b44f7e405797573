package inst

// Disassemble renders an Instruction as a human-readable mnemonic line, for
// tracing and debugging only — not used by pkg/decode or pkg/exec, which
// work entirely off the Family/operand fields. Generalized from the
// teacher's static per-OpCode Catalog table to a programmatic renderer:
// the full Z80 instruction set (CB/ED/DD/FD planes, IX/IY-displaced
// addressing) is too large to hand-enumerate one Info entry per encoding
// the way the superoptimizer's 406-opcode, HL-only Catalog did.
func Disassemble(in Instruction) string {
	reg := regName(in.Reg)
	reg2 := regName(in.Reg2)
	dst := operandName(in)

	switch in.Family {
	case FamLD8:
		return "LD " + ld8Operands(in, reg, reg2)
	case FamLD16:
		if in.Mem != MemNone {
			if in.MemIsDst {
				return "LD " + operandName(in) + "," + pairName(in.Pair)
			}
			return "LD " + pairName(in.Pair) + "," + operandName(in)
		}
		if in.Pair2 != PairNone {
			return "LD " + pairName(in.Pair) + "," + pairName(in.Pair2)
		}
		return "LD " + pairName(in.Pair) + "," + hex16(in.Imm16)
	case FamADD:
		return "ADD A," + dst
	case FamADC:
		return "ADC A," + dst
	case FamSUB:
		return "SUB " + dst
	case FamSBC:
		return "SBC A," + dst
	case FamAND:
		return "AND " + dst
	case FamOR:
		return "OR " + dst
	case FamXOR:
		return "XOR " + dst
	case FamCP:
		return "CP " + dst
	case FamINC:
		return "INC " + dst
	case FamDEC:
		return "DEC " + dst
	case FamRLCA:
		return "RLCA"
	case FamRRCA:
		return "RRCA"
	case FamRLA:
		return "RLA"
	case FamRRA:
		return "RRA"
	case FamRLC:
		return "RLC " + dst
	case FamRRC:
		return "RRC " + dst
	case FamRL:
		return "RL " + dst
	case FamRR:
		return "RR " + dst
	case FamSLA:
		return "SLA " + dst
	case FamSRA:
		return "SRA " + dst
	case FamSLL:
		return "SLL " + dst
	case FamSRL:
		return "SRL " + dst
	case FamBIT:
		return "BIT " + decimal(in.BitN) + "," + dst
	case FamSET:
		return "SET " + decimal(in.BitN) + "," + dst
	case FamRES:
		return "RES " + decimal(in.BitN) + "," + dst
	case FamADD16:
		return "ADD " + pairName(in.Pair2) + "," + pairName(in.Pair)
	case FamADC16:
		return "ADC HL," + pairName(in.Pair)
	case FamSBC16:
		return "SBC HL," + pairName(in.Pair)
	case FamINC16:
		return "INC " + pairName(in.Pair)
	case FamDEC16:
		return "DEC " + pairName(in.Pair)
	case FamJP:
		return "JP " + condPrefix(in.Cond) + jpTarget(in)
	case FamJR:
		return "JR " + condPrefix(in.Cond) + hex16(in.Imm16)
	case FamDJNZ:
		return "DJNZ " + hex16(in.Imm16)
	case FamCALL:
		return "CALL " + condPrefix(in.Cond) + hex16(in.Imm16)
	case FamRET:
		if in.Cond == CondAlways {
			return "RET"
		}
		return "RET " + condName(in.Cond)
	case FamRETI:
		return "RETI"
	case FamRETN:
		return "RETN"
	case FamRST:
		return "RST " + hex8(in.Imm8)
	case FamPUSH:
		return "PUSH " + pairName(in.Pair)
	case FamPOP:
		return "POP " + pairName(in.Pair)
	case FamEX:
		if in.Pair == PairAF && in.Pair2 == PairNone && in.Mem == MemNone {
			return "EX AF,AF'"
		}
		return "EX " + pairOrMemName(in.Pair2, in.Mem) + "," + pairName(in.Pair)
	case FamEXX:
		return "EXX"
	case FamIN:
		if in.Mem == MemNN {
			return "IN A," + hex8(in.Imm8)
		}
		if in.Reg == RegNone {
			return "IN (C)"
		}
		return "IN " + reg + ",(C)"
	case FamOUT:
		if in.Mem == MemNN {
			return "OUT " + hex8(in.Imm8) + ",A"
		}
		if in.Reg == RegNone {
			return "OUT (C),0"
		}
		return "OUT (C)," + reg
	case FamLDI:
		return "LDI"
	case FamLDD:
		return "LDD"
	case FamLDIR:
		return "LDIR"
	case FamLDDR:
		return "LDDR"
	case FamCPI:
		return "CPI"
	case FamCPD:
		return "CPD"
	case FamCPIR:
		return "CPIR"
	case FamCPDR:
		return "CPDR"
	case FamINI:
		return "INI"
	case FamIND:
		return "IND"
	case FamINIR:
		return "INIR"
	case FamINDR:
		return "INDR"
	case FamOUTI:
		return "OUTI"
	case FamOUTD:
		return "OUTD"
	case FamOTIR:
		return "OTIR"
	case FamOTDR:
		return "OTDR"
	case FamDAA:
		return "DAA"
	case FamCPL:
		return "CPL"
	case FamSCF:
		return "SCF"
	case FamCCF:
		return "CCF"
	case FamNEG:
		return "NEG"
	case FamNOP:
		return "NOP"
	case FamHALT:
		return "HALT"
	case FamDI:
		return "DI"
	case FamEI:
		return "EI"
	case FamIM:
		return "IM " + decimal(uint8(in.Imm8))
	case FamLDAI:
		return "LD A,I"
	case FamLDAR:
		return "LD A,R"
	case FamLDIA:
		return "LD I,A"
	case FamLDRA:
		return "LD R,A"
	case FamRRD:
		return "RRD"
	case FamRLD:
		return "RLD"
	default:
		return "???"
	}
}

// TStates gives an approximate (non-contended) cycle cost by family and
// addressing mode — enough for --trace cycle counters, not the
// cycle-accurate, memory-contention-aware timing spec.md's Non-goals
// explicitly exclude.
func TStates(in Instruction) int {
	base := 4
	switch in.Family {
	case FamLD8:
		base = 4
		if in.Mem != MemNone {
			base = 7
		}
		if in.UsesIndexed() {
			base = 19
		}
	case FamADD, FamADC, FamSUB, FamSBC, FamAND, FamOR, FamXOR, FamCP:
		base = 4
		if in.Mem != MemNone {
			base = 7
		}
		if in.UsesIndexed() {
			base = 19
		}
	case FamINC, FamDEC:
		base = 4
		if in.Mem == MemHL {
			base = 11
		}
		if in.UsesIndexed() {
			base = 23
		}
	case FamBIT:
		base = 8
		if in.Mem == MemHL {
			base = 12
		}
		if in.UsesIndexed() {
			base = 20
		}
	case FamSET, FamRES, FamRLC, FamRRC, FamRL, FamRR, FamSLA, FamSRA, FamSLL, FamSRL:
		base = 8
		if in.Mem == MemHL {
			base = 15
		}
		if in.UsesIndexed() {
			base = 23
		}
	case FamLD16:
		base = 10
	case FamADD16:
		base = 11
	case FamADC16, FamSBC16:
		base = 15
	case FamINC16, FamDEC16:
		base = 6
	case FamJP:
		base = 10
	case FamJR, FamDJNZ:
		base = 12
	case FamCALL:
		base = 17
	case FamRET:
		base = 10
	case FamPUSH:
		base = 11
	case FamPOP:
		base = 10
	case FamHALT, FamNOP, FamDI, FamEI, FamCPL, FamSCF, FamCCF, FamDAA:
		base = 4
	case FamEXX, FamEX:
		base = 4
	case FamIN, FamOUT:
		base = 12
	case FamLDI, FamLDD, FamCPI, FamCPD, FamINI, FamIND, FamOUTI, FamOUTD:
		base = 16
	case FamLDIR, FamLDDR, FamCPIR, FamCPDR, FamINIR, FamINDR, FamOTIR, FamOTDR:
		base = 21
	}
	return base
}

func regName(r Reg8) string {
	switch r {
	case RegB:
		return "B"
	case RegC:
		return "C"
	case RegD:
		return "D"
	case RegE:
		return "E"
	case RegH:
		return "H"
	case RegL:
		return "L"
	case RegA:
		return "A"
	case RegF:
		return "F"
	case RegIXH:
		return "IXH"
	case RegIXL:
		return "IXL"
	case RegIYH:
		return "IYH"
	case RegIYL:
		return "IYL"
	case RegI:
		return "I"
	case RegR:
		return "R"
	default:
		return ""
	}
}

func pairName(p Pair) string {
	switch p {
	case PairBC:
		return "BC"
	case PairDE:
		return "DE"
	case PairHL:
		return "HL"
	case PairSP:
		return "SP"
	case PairAF:
		return "AF"
	case PairIX:
		return "IX"
	case PairIY:
		return "IY"
	default:
		return ""
	}
}

func pairOrMemName(p Pair, m MemMode) string {
	if m == MemHL || m == MemIX || m == MemIY {
		return "(SP)"
	}
	return pairName(p)
}

func condName(c Cond) string {
	switch c {
	case CondNZ:
		return "NZ"
	case CondZ:
		return "Z"
	case CondNC:
		return "NC"
	case CondC:
		return "C"
	case CondPO:
		return "PO"
	case CondPE:
		return "PE"
	case CondP:
		return "P"
	case CondM:
		return "M"
	default:
		return ""
	}
}

func condPrefix(c Cond) string {
	if c == CondAlways {
		return ""
	}
	return condName(c) + ","
}

func operandName(in Instruction) string {
	switch in.Mem {
	case MemHL:
		return "(HL)"
	case MemIX:
		return "(IX" + dispSuffix(in.Disp) + ")"
	case MemIY:
		return "(IY" + dispSuffix(in.Disp) + ")"
	case MemBC:
		return "(BC)"
	case MemDE:
		return "(DE)"
	case MemNN:
		return "(" + hex16(in.Imm16) + ")"
	default:
		return regName(in.Reg)
	}
}

// ld8Operands renders FamLD8's operand pair, honoring MemIsDst to put the
// memory/immediate/register operand on the correct side of the comma.
func ld8Operands(in Instruction, reg, reg2 string) string {
	if in.Mem != MemNone {
		mem := operandName(in)
		if in.MemIsDst {
			if in.Reg != RegNone {
				return mem + "," + reg
			}
			return mem + "," + hex8(in.Imm8)
		}
		return reg + "," + mem
	}
	if in.Reg2 != RegNone {
		return reg + "," + reg2
	}
	return reg + "," + hex8(in.Imm8)
}

func jpTarget(in Instruction) string {
	if in.Pair != PairNone {
		return "(" + pairName(in.Pair) + ")"
	}
	return hex16(in.Imm16)
}

func dispSuffix(d int8) string {
	if d >= 0 {
		return "+" + decimal(uint8(d))
	}
	return "-" + decimal(uint8(-d))
}

const hexDigits = "0123456789ABCDEF"

func hex8(v uint8) string {
	return "0x" + string([]byte{hexDigits[v>>4], hexDigits[v&0xF]})
}

func hex16(v uint16) string {
	return "0x" + string([]byte{
		hexDigits[(v>>12)&0xF], hexDigits[(v>>8)&0xF],
		hexDigits[(v>>4)&0xF], hexDigits[v&0xF],
	})
}

func decimal(v uint8) string {
	if v < 10 {
		return string([]byte{'0' + v})
	}
	return string([]byte{'0' + v/10, '0' + v%10})
}
