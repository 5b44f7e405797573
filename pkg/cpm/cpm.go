// Package cpm is a minimal CP/M 2.2 host: it loads a .COM image into a
// cpu.CPU's transient program area and services the two BDOS console calls
// real CP/M software actually issues in practice (console-out and
// print-string), trapping them at the conventional PC==5 entry point
// instead of emulating the BDOS itself. It is an external collaborator of
// the core, not part of it: the core never imports this package.
package cpm

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/z80run/z80run/pkg/cpu"
	"github.com/z80run/z80run/pkg/exec"
)

const (
	// TPAStart is the conventional CP/M transient-program-area origin.
	TPAStart = 0x0100
	// BDOSEntry is the fixed address CP/M software calls into the BDOS at.
	BDOSEntry = 0x0005
	// WarmBoot is the address CP/M jumps to on program exit (RET to 0).
	WarmBoot = 0x0000
)

// LoadCOM installs a CP/M .COM image at TPAStart, wires the warm-boot jump
// at address 0 and a RET stub at the BDOS entry point (never actually
// executed — Run traps PC==BDOSEntry before fetching it), and sets PC/SP to
// their CP/M defaults.
func LoadCOM(c *cpu.CPU, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("cpm: read program: %w", err)
	}
	if len(data) > len(c.Mem)-TPAStart {
		return fmt.Errorf("cpm: program is %d bytes, exceeds TPA capacity", len(data))
	}
	copy(c.Mem[TPAStart:], data)
	c.Mem[0] = 0xC3 // JMP 0x0000
	c.Mem[1] = 0x00
	c.Mem[2] = 0x00
	c.Mem[BDOSEntry] = 0xC9 // RET
	c.PC = TPAStart
	c.SP = 0xFFF0
	return nil
}

// Progress is called every progressEvery instructions, reporting the
// number of instructions executed so far and the current PC.
type Progress func(count int, pc uint16)

// Stepper executes one instruction and returns its T-state cost — the
// shape of exec.Step. Callers that want traced execution wrap pkg/trace.Step
// (which also takes a logger) in a closure of this shape, so Run never
// knows about tracing at all.
type Stepper func(c *cpu.CPU, in exec.PortIn, out exec.PortOut) int

// Run steps cpu via step until it returns to address 0 (the program's
// normal exit, per CP/M convention) or maxInstructions instructions have
// executed, which it reports as an error (0 means unlimited). console receives bytes written by BDOS functions 2 and 9.
// log, if not the zero value, receives one debug event per trapped BDOS
// call. A nil step defaults to exec.Step. trapAddr is usually BDOSEntry;
// it is a parameter rather than hardcoded so a caller loading a program
// linked against a relocated BDOS can still trap it.
func Run(c *cpu.CPU, console io.Writer, log zerolog.Logger, trapAddr uint16, maxInstructions, progressEvery int, progress Progress, step Stepper) error {
	if step == nil {
		step = exec.Step
	}
	portIn := func(uint16) uint8 { return 0xFF }
	portOut := func(uint16, uint8) {}

	count := 0
	for {
		if c.PC == WarmBoot {
			return nil
		}
		if c.PC == trapAddr {
			callBDOS(c, console, log)
			continue
		}
		step(c, portIn, portOut)
		count++
		if progress != nil && progressEvery > 0 && count%progressEvery == 0 {
			progress(count, c.PC)
		}
		if maxInstructions > 0 && count >= maxInstructions {
			return fmt.Errorf("cpm: exceeded instruction limit (%d)", maxInstructions)
		}
	}
}

// callBDOS services function 2 (console-out, character in E) and function 9
// (print $-terminated string at DE), the only two BDOS calls CP/M .COM
// test programs issue in practice, then pops the return address CALL 5
// pushed and resumes there.
func callBDOS(c *cpu.CPU, console io.Writer, log zerolog.Logger) {
	log.Debug().Uint8("func", c.C).Uint16("pc", c.PC).Msg("bdos call")
	switch c.C {
	case 2:
		fmt.Fprintf(console, "%c", c.E)
	case 9:
		addr := c.DE()
		for {
			ch := c.ReadByte(addr)
			if ch == '$' {
				break
			}
			fmt.Fprintf(console, "%c", ch)
			addr++
		}
	}
	ret := c.ReadWord(c.SP)
	c.SP += 2
	c.PC = ret
}
