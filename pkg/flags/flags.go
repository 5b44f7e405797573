// Package flags implements the dual-mode 8080/Z80 status-register model:
// bit layout, precomputed tables, and the ALU flag-computation helpers the
// executor calls into. Table construction is ported from remogatto/z80 (the
// lineage the teacher's own pkg/cpu/flags.go credits in its doc comment),
// generalized here to serve both CPU modes through a single write-back mask.
package flags

// Bit positions in the F register (host-visible constants, spec's
// "Flag bit constants" section).
const (
	S uint8 = 0x80 // Sign
	Z uint8 = 0x40 // Zero
	Y uint8 = 0x20 // undocumented, copy of result bit 5
	H uint8 = 0x10 // Half-carry
	X uint8 = 0x08 // undocumented, copy of result bit 3
	P uint8 = 0x04 // Parity (logical/rotate) or Overflow (arithmetic)
	V       = P    // alias: Overflow uses the same bit as Parity
	N uint8 = 0x02 // Add/Subtract (Z80); forced to 1 in 8080 mode
	C uint8 = 0x01 // Carry
)

// Mode selects 8080 or Z80 flag semantics and decode planes.
type Mode int

const (
	M8080 Mode = iota
	MZ80
)

// Precomputed per-result-byte tables.
var (
	// SZXYTable: S, Z, Y, X bits for each possible result byte.
	SZXYTable [256]uint8
	// SZXYPTable: SZXYTable with parity (P) folded in.
	SZXYPTable [256]uint8
	// ParityTable: P flag (set = even parity) for each byte value.
	ParityTable [256]uint8

	// Half-carry/overflow lookup tables, indexed by a 3-bit code built from
	// bit 3 (8-bit ops) or bit 11 (16-bit ops) of operand-a, operand-b and
	// the raw result (bit 7 or bit 15 for the overflow tables). See
	// Add8/Sub8/Cp8/Adc16/Sbc16 below for the index build.
	HalfCarryAddTable = [8]uint8{0, H, H, H, 0, 0, 0, H}
	HalfCarrySubTable = [8]uint8{0, 0, H, 0, H, 0, H, H}
	OverflowAddTable  = [8]uint8{0, 0, 0, V, V, 0, 0, 0}
	OverflowSubTable  = [8]uint8{0, V, 0, 0, 0, 0, V, 0}
)

func init() {
	for i := 0; i < 256; i++ {
		SZXYTable[i] = uint8(i) & (X | Y | S)

		v, parity := uint8(i), uint8(0)
		for b := 0; b < 8; b++ {
			parity ^= v & 1
			v >>= 1
		}
		if parity == 0 {
			ParityTable[i] = P
		}
		SZXYPTable[i] = SZXYTable[i] | ParityTable[i]
	}
	SZXYTable[0] |= Z
	SZXYPTable[0] |= Z
}

// WriteBack applies the mode-specific write mask described in spec §4.1:
// in 8080 mode bit 1 (N) is forced to 1 and bits 3/5 (X/Y) are forced to 0
// on every store; in Z80 mode all eight bits pass through unmodified. This
// is the single point the executor must funnel every F write through.
func WriteBack(mode Mode, raw uint8) uint8 {
	if mode == M8080 {
		return (raw & 0b1101_0101) | 0b0000_0010
	}
	return raw
}

// Parity8 reports whether v has even parity.
func Parity8(v uint8) bool {
	return ParityTable[v] != 0
}

// halfCarryIndex builds the 3-bit lookup index shared by 8-bit add/sub.
func halfCarryIndex(a, b, result uint8) uint8 {
	return ((a & 0x88) >> 3) | ((b & 0x88) >> 2) | ((result & 0x88) >> 1)
}

// Add8 computes A + value (+ carryIn), returning the result byte and the
// raw (unmasked) flag byte per spec §4.1's compute_add8.
func Add8(a, value, carryIn uint8) (result, f uint8) {
	wide := uint16(a) + uint16(value) + uint16(carryIn&1)
	result = uint8(wide)
	idx := halfCarryIndex(a, value, result)
	f = bsel(wide&0x100 != 0, C, 0) |
		HalfCarryAddTable[idx&0x07] |
		OverflowAddTable[idx>>4] |
		SZXYTable[result]
	return result, f
}

// Sub8 computes A - value (- borrowIn), the compute_sub8 of spec §4.1.
func Sub8(a, value, borrowIn uint8) (result, f uint8) {
	wide := uint16(a) - uint16(value) - uint16(borrowIn&1)
	result = uint8(wide)
	idx := halfCarryIndex(a, value, result)
	f = bsel(wide&0x100 != 0, C, 0) | N |
		HalfCarrySubTable[idx&0x07] |
		OverflowSubTable[idx>>4] |
		SZXYTable[result]
	return result, f
}

// Cp8 computes the flags for CP value (A unchanged); X/Y come from the
// operand rather than the (discarded) result, per spec §4.4.
func Cp8(a, value uint8) uint8 {
	wide := uint16(a) - uint16(value)
	result := uint8(wide)
	idx := halfCarryIndex(a, value, result)
	return bsel(wide&0x100 != 0, C, bsel(wide != 0, 0, Z)) |
		N |
		HalfCarrySubTable[idx&0x07] |
		OverflowSubTable[idx>>4] |
		(value & (X | Y)) |
		uint8(wide&uint16(S))
}

// Logical computes AND/OR/XOR flags. op is one of 'A', 'O', 'X'.
func Logical(op byte, result uint8) uint8 {
	f := SZXYPTable[result]
	if op == 'A' {
		f |= H
	}
	return f
}

// Inc8 computes the raw flags for INC r (or INC (HL)/(IX+d)/(IY+d)); C is
// preserved by the caller, not touched here.
func Inc8(carry, result uint8) uint8 {
	return (carry & C) |
		bsel(result == 0x80, V, 0) |
		bsel(result&0x0F != 0, 0, H) |
		SZXYTable[result]
}

// Dec8 computes the raw flags for DEC r / DEC (HL)/(IX+d)/(IY+d).
// before is the value prior to decrementing (needed for the half-borrow test).
func Dec8(carry, before, result uint8) uint8 {
	return (carry & C) | bsel(before&0x0F != 0, 0, H) | N |
		bsel(result == 0x7F, V, 0) | SZXYTable[result]
}

// Add16 implements ADD HL/IX/IY,rr: H (bit-11 carry), C (bit-15 carry), N=0;
// S, Z, P/V preserved by the caller; X, Y come from the high byte of the
// result.
func Add16(preserved uint8, hl, value uint16) (result uint16, f uint8) {
	wide := uint32(hl) + uint32(value)
	hc := (hl & 0x0FFF) + (value & 0x0FFF)
	result = uint16(wide)
	f = (preserved & (S | Z | V)) |
		bsel(hc&0x1000 != 0, H, 0) |
		bsel(wide&0x10000 != 0, C, 0) |
		(uint8(result>>8) & (X | Y))
	return result, f
}

// Adc16 implements ADC HL,rr (Z80-only ED-plane): full S,Z,H,P/V,N=0,C.
func Adc16(hl, value uint16, carryIn uint8) (result uint16, f uint8) {
	wide := uint(hl) + uint(value) + uint(carryIn&1)
	idx := byte(((uint(hl) & 0x8800) >> 11) | ((uint(value) & 0x8800) >> 10) | ((wide & 0x8800) >> 9))
	result = uint16(wide)
	hi := uint8(result >> 8)
	f = bsel(wide&0x10000 != 0, C, 0) |
		OverflowAddTable[idx>>4] |
		(hi & (X | Y | S)) |
		HalfCarryAddTable[idx&0x07] |
		bsel(result != 0, 0, Z)
	return result, f
}

// Sbc16 implements SBC HL,rr (Z80-only ED-plane): full S,Z,H,P/V,N=1,C.
func Sbc16(hl, value uint16, borrowIn uint8) (result uint16, f uint8) {
	wide := uint(hl) - uint(value) - uint(borrowIn&1)
	idx := byte(((uint(hl) & 0x8800) >> 11) | ((uint(value) & 0x8800) >> 10) | ((wide & 0x8800) >> 9))
	result = uint16(wide)
	hi := uint8(result >> 8)
	f = bsel(wide&0x10000 != 0, C, 0) | N |
		OverflowSubTable[idx>>4] |
		(hi & (X | Y | S)) |
		HalfCarrySubTable[idx&0x07] |
		bsel(result != 0, 0, Z)
	return result, f
}

// Rlc/Rrc/Rl/Rr/Sla/Sra/Sll/Srl are the general CB-plane rotate/shift
// helpers: full flag set, H=0, N=0, X/Y from result.

func Rlc(v uint8) (result, f uint8) {
	result = (v << 1) | (v >> 7)
	return result, (result & C) | SZXYPTable[result]
}

func Rrc(v uint8) (result, f uint8) {
	carry := v & C
	result = (v >> 1) | (v << 7)
	return result, carry | SZXYPTable[result]
}

func Rl(v, carryIn uint8) (result, f uint8) {
	result = (v << 1) | (carryIn & C)
	return result, (v >> 7) | SZXYPTable[result]
}

func Rr(v, carryIn uint8) (result, f uint8) {
	result = (v >> 1) | (carryIn << 7)
	return result, (v & C) | SZXYPTable[result]
}

func Sla(v uint8) (result, f uint8) {
	result = v << 1
	return result, (v >> 7) | SZXYPTable[result]
}

func Sra(v uint8) (result, f uint8) {
	result = (v & 0x80) | (v >> 1)
	return result, (v & C) | SZXYPTable[result]
}

func Sll(v uint8) (result, f uint8) {
	result = (v << 1) | 0x01
	return result, (v >> 7) | SZXYPTable[result]
}

func Srl(v uint8) (result, f uint8) {
	result = v >> 1
	return result, (v & C) | SZXYPTable[result]
}

// RotateA computes the flags for the non-CB accumulator rotates
// (RLCA/RRCA/RLA/RRA). These preserve S/Z/P and clear H/N in Z80 mode and
// in 8080 mode alike (spec §4.1); X/Y are copied from the result only in
// Z80 mode, forced to 0 in 8080 mode by WriteBack.
func RotateA(preserved uint8, result, carry uint8) uint8 {
	return (preserved & (P | Z | S)) | (result & (X | Y)) | carry
}

// Bit computes the flags for BIT n,r / BIT n,(HL)/(IX+d)/(IY+d). xy is the
// source of the undocumented X/Y bits: the tested register/memory byte for
// unprefixed and (HL) forms, or the high byte of the displaced address for
// (IX+d)/(IY+d) forms (spec §4.4).
func Bit(carry, value, xy uint8, bit uint) uint8 {
	f := (carry & C) | H | (xy & (X | Y))
	if value&(1<<bit) == 0 {
		f |= P | Z
	}
	if bit == 7 && value&0x80 != 0 {
		f |= S
	}
	return f
}

// Daa implements spec §4.5's decimal-adjust algorithm. It reuses Add8/Sub8
// so S, Z, H, X and Y fall out of the normal 8-bit add/subtract
// computation, then discards that computation's C and P/V and sets them
// per the spec's closing rule — the same shortcut the teacher's execDaa takes.
//
// 8080 has no N flag; spec's open question pins DAA-after-subtract to the
// Z80 formula for determinism, but real 8080 software only ever issues DAA
// after an add, so in 8080 mode the adjust always takes the add branch
// regardless of the (here always-forced-to-1) stored N bit.
func Daa(mode Mode, a, f uint8) (resultA, resultF uint8) {
	carry := f & C
	adjust := uint8(0)
	if f&H != 0 || (a&0x0F) > 9 {
		adjust = 0x06
	}
	if carry != 0 || a > 0x99 {
		adjust |= 0x60
	}
	if a > 0x99 {
		carry = C
	}

	subtract := mode == MZ80 && f&N != 0
	var rf uint8
	if subtract {
		resultA, rf = Sub8(a, adjust, 0)
	} else {
		resultA, rf = Add8(a, adjust, 0)
	}
	resultF = (rf &^ (C | P)) | carry | ParityTable[resultA]
	return resultA, resultF
}

// FixupPV corrects the P/V bit for 8080 mode. Add8/Sub8/Cp8/Inc8/Dec8/Adc16/
// Sbc16 compute P/V as Z80-style signed overflow; spec §3 says 8080's P/V
// always means parity regardless of family, so every arithmetic result
// that passes through this in 8080 mode gets its overflow bit replaced by
// the parity of the result. Logical ops never need this: their P bit is
// already parity in both modes.
func FixupPV(mode Mode, result, raw uint8) uint8 {
	if mode == M8080 {
		return (raw &^ P) | ParityTable[result]
	}
	return raw
}

func bsel(cond bool, a, b uint8) uint8 {
	if cond {
		return a
	}
	return b
}
