// Command z80run loads a CP/M .COM image and interprets it against the
// dual-mode 8080/Z80 core, the way cmd/z80opt drives the superoptimizer's
// search package — a thin cobra command tree over a library that does all
// the real work.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/z80run/z80run/internal/config"
	"github.com/z80run/z80run/pkg/cpm"
	"github.com/z80run/z80run/pkg/cpu"
	"github.com/z80run/z80run/pkg/exec"
	"github.com/z80run/z80run/pkg/trace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "z80run",
		Short: "Dual-mode 8080/Z80 interpreter and CP/M .COM runner",
	}

	var configFile string

	addRunFlags := func(cmd *cobra.Command) {
		cmd.Flags().String("mode", "z80", "CPU mode: z80 or 8080")
		cmd.Flags().Int("entry", 0x0100, "Entry point (CP/M TPA origin)")
		cmd.Flags().Int("stack-pointer", 0xFFF0, "Initial stack pointer")
		cmd.Flags().Int("bdos-trap-address", 0x0005, "Address BDOS calls (CALL 5) are trapped at")
		cmd.Flags().Int("max-instructions", 0, "Instruction cap (0 = unlimited)")
		cmd.Flags().Int("progress-every", 0, "Report progress every N instructions (0 = off)")
		cmd.Flags().Bool("trace", false, "Log a debug line per executed instruction")
		cmd.Flags().StringVar(&configFile, "config", "", "Config file pinning mode/entry/stack-pointer/bdos-trap-address")
	}

	runCmd := &cobra.Command{
		Use:   "run <file.com>",
		Short: "Load and run a CP/M .COM image to completion or instruction cap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return runFile(args[0], cfg, os.Stdout)
		},
	}
	addRunFlags(runCmd)

	traceCmd := &cobra.Command{
		Use:   "trace <file.com>",
		Short: "Run with per-instruction tracing forced on (shorthand for run --trace)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configFile)
			if err != nil {
				return err
			}
			cfg.Trace = true
			return runFile(args[0], cfg, os.Stdout)
		},
	}
	addRunFlags(traceCmd)

	dumpRegsCmd := &cobra.Command{
		Use:   "dump-regs <file.com>",
		Short: "Run to completion (or the instruction cap) and print the final register file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, configFile)
			if err != nil {
				return err
			}
			return dumpRegs(args[0], cfg, os.Stdout)
		},
	}
	addRunFlags(dumpRegsCmd)

	rootCmd.AddCommand(runCmd, traceCmd, dumpRegsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfig binds cmd's own flag set into a layered config (flags >
// env > config file > defaults), the same flag set cobra already built
// from pflag, so there is nothing to duplicate between the CLI layer and
// internal/config.
func resolveConfig(cmd *cobra.Command, configFile string) (config.Config, error) {
	v, err := config.BindFlags(cmd.Flags(), configFile)
	if err != nil {
		return config.Config{}, err
	}
	return config.Resolve(v)
}

// defaultConfig returns the config z80run would use with no flags, config
// file, or environment overrides — the CP/M defaults from internal/config.
func defaultConfig() config.Config {
	v, err := config.BindFlags(pflag.NewFlagSet("z80run", pflag.ContinueOnError), "")
	if err != nil {
		panic(err)
	}
	cfg, err := config.Resolve(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func loadAndInit(path string, cfg config.Config) (*cpu.CPU, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("z80run: %w", err)
	}
	defer f.Close()

	c := cpu.New(cfg.Mode)
	if err := cpm.LoadCOM(c, f); err != nil {
		return nil, err
	}
	c.PC = cfg.Entry
	c.SP = cfg.StackPointer
	return c, nil
}

func runFile(path string, cfg config.Config, console io.Writer) error {
	c, err := loadAndInit(path, cfg)
	if err != nil {
		return err
	}

	var step cpm.Stepper
	log := zerolog.Nop()
	if cfg.Trace {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
		step = func(m *cpu.CPU, in exec.PortIn, out exec.PortOut) int {
			return trace.Step(m, log, in, out)
		}
	}

	var progress cpm.Progress
	if cfg.ProgressEvery > 0 {
		progress = func(count int, pc uint16) {
			fmt.Fprintf(os.Stderr, "z80run: %d instructions, pc=0x%04X\n", count, pc)
		}
	}

	return cpm.Run(c, console, log, cfg.BDOSTrapAddress, cfg.MaxInstructions, cfg.ProgressEvery, progress, step)
}

func dumpRegs(path string, cfg config.Config, w io.Writer) error {
	c, err := loadAndInit(path, cfg)
	if err != nil {
		return err
	}

	err = cpm.Run(c, io.Discard, zerolog.Nop(), cfg.BDOSTrapAddress, cfg.MaxInstructions, 0, nil, nil)
	if err != nil {
		fmt.Fprintf(w, "z80run: stopped: %v\n", err)
	}

	fmt.Fprintf(w, "PC=%04X SP=%04X\n", c.PC, c.SP)
	fmt.Fprintf(w, "AF=%02X%02X BC=%02X%02X DE=%02X%02X HL=%02X%02X\n",
		c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L)
	fmt.Fprintf(w, "IX=%04X IY=%04X I=%02X R=%02X IFF1=%v IFF2=%v IM=%d\n",
		c.IX, c.IY, c.I, c.R, c.IFF1, c.IFF2, c.IM)
	return nil
}
