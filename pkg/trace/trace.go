// Package trace wraps pkg/exec.Step with an optional structured trace line
// per instruction: host-side only, the way spec.md's external-collaborator
// split keeps tracing out of the core (pkg/cpu/pkg/exec never log).
package trace

import (
	"github.com/rs/zerolog"

	"github.com/z80run/z80run/pkg/cpu"
	"github.com/z80run/z80run/pkg/decode"
	"github.com/z80run/z80run/pkg/exec"
	"github.com/z80run/z80run/pkg/inst"
)

// Step disassembles and logs the instruction at c.PC before executing it,
// then delegates to exec.Step. log is typically zerolog.Nop() when tracing
// is disabled, in which case the Debug() call is a no-op allocation-free
// path through zerolog's own level gate.
func Step(c *cpu.CPU, log zerolog.Logger, in exec.PortIn, out exec.PortOut) int {
	pc := c.PC
	decoded, n := decode.Decode(&c.Mem, pc, c.Mode)
	log.Debug().
		Uint16("pc", pc).
		Str("mnemonic", inst.Disassemble(decoded)).
		Int("length", n).
		Msg("step")
	return exec.Step(c, in, out)
}
