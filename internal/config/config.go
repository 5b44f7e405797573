// Package config layers z80run's settings — CLI flags, a config file, and
// Z80RUN_-prefixed environment variables — through viper, the pairing the
// rest of this corpus's cobra-based CLIs reach for once a single flag set
// stops being enough (mode, entry point, stack pointer, and BDOS trap
// address all want to be pinnable from a checked-in file, not just flags).
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/z80run/z80run/pkg/flags"
)

// Config is the resolved set of run-time settings for z80run, after
// layering defaults, config file, environment, and flags (in that
// precedence order, viper's own).
type Config struct {
	Mode            flags.Mode
	Entry           uint16
	StackPointer    uint16
	BDOSTrapAddress uint16
	MaxInstructions int
	ProgressEvery   int
	Trace           bool
}

const (
	keyMode            = "mode"
	keyEntry           = "entry"
	keyStackPointer    = "stack-pointer"
	keyBDOSTrapAddress = "bdos-trap-address"
	keyMaxInstructions = "max-instructions"
	keyProgressEvery   = "progress-every"
	keyTrace           = "trace"
)

// Defaults mirror CP/M convention: TPA entry 0x100, BDOS trap at 0x0005.
func defaults() map[string]any {
	return map[string]any{
		keyMode:            "z80",
		keyEntry:           0x0100,
		keyStackPointer:    0xFFF0,
		keyBDOSTrapAddress: 0x0005,
		keyMaxInstructions: 0,
		keyProgressEvery:   0,
		keyTrace:           false,
	}
}

// BindFlags returns a viper instance bound to the z80run flags already
// registered on fs (it registers none itself), so flags override environment, which overrides the config
// file, which overrides the defaults above.
func BindFlags(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("Z80RUN")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: binding flags: %w", err)
	}
	return v, nil
}

// Resolve builds a Config from a bound viper instance, translating the
// string "mode" setting into a flags.Mode.
func Resolve(v *viper.Viper) (Config, error) {
	mode, err := parseMode(v.GetString(keyMode))
	if err != nil {
		return Config{}, err
	}
	return Config{
		Mode:            mode,
		Entry:           uint16(v.GetInt(keyEntry)),
		StackPointer:    uint16(v.GetInt(keyStackPointer)),
		BDOSTrapAddress: uint16(v.GetInt(keyBDOSTrapAddress)),
		MaxInstructions: v.GetInt(keyMaxInstructions),
		ProgressEvery:   v.GetInt(keyProgressEvery),
		Trace:           v.GetBool(keyTrace),
	}, nil
}

func parseMode(s string) (flags.Mode, error) {
	switch s {
	case "z80", "Z80":
		return flags.MZ80, nil
	case "8080", "i8080":
		return flags.M8080, nil
	default:
		return 0, fmt.Errorf("config: unknown mode %q (want \"z80\" or \"8080\")", s)
	}
}
