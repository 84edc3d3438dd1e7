// Package sr32cfg loads the emulator's default runtime settings from an
// optional TOML file, overridable per run by CLI flags.
package sr32cfg

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds emulator defaults. Only the trace settings meet CLI
// flags: a category is traced when either the config or its -tf/-tr/
// -tb/-ti flag enables it. RAM size, cycle budget and entry address
// have no CLI flag.
type Config struct {
	Ram struct {
		SizeLog2 int `toml:"size_log2"`
	} `toml:"ram"`

	Execution struct {
		MaxCycles    uint64 `toml:"max_cycles"`
		DefaultEntry uint32 `toml:"default_entry"`
	} `toml:"execution"`

	Trace struct {
		Fetch  bool `toml:"fetch"`
		Regs   bool `toml:"regs"`
		Branch bool `toml:"branch"`
		IO     bool `toml:"io"`
	} `toml:"trace"`
}

// DefaultConfig returns the built-in defaults: 8 MiB RAM, a 200M-cycle
// runaway guard, entry at 0x100000, and no tracing.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Ram.SizeLog2 = 23
	cfg.Execution.MaxCycles = 200_000_000
	cfg.Execution.DefaultEntry = 0x100000
	return cfg
}

// Load reads ./sr32.toml if present, falling back to DefaultConfig.
func Load() (*Config, error) {
	return LoadFrom("sr32.toml")
}

// LoadFrom reads path if it exists and decodes it over the default
// config; a missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
