// Package config holds the three runtime knobs shared by every stage
// of the toolchain (memory cells, general-purpose register count and
// clock period) plus the directive processors that set them from an
// optional TOML file, in-source `!KEY=VALUE` directives and trailing
// command-line arguments.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Configuration keys, case-insensitive on input and normalised to
// upper case before lookup.
const (
	MemoryKey    = "MEMORY"
	RegistersKey = "REGISTERS"
	ClockKey     = "CLOCK"
)

// Minimum legal value per key. A directive below its minimum is
// rejected, it does not clamp.
const (
	MinimumMemory    = 100
	MinimumRegisters = 3
	MinimumClock     = 0
)

// Config represents the toolchain configuration. It is established
// once during precompilation and read-only afterwards.
type Config struct {
	// Number of data/code memory cells.
	Memory int `toml:"memory"`

	// Number of general-purpose registers.
	Registers int `toml:"registers"`

	// Inter-cycle delay in milliseconds.
	Clock int `toml:"clock"`
}

// DefaultConfig returns a configuration with default values: every
// knob sits at its minimum.
func DefaultConfig() *Config {
	return &Config{
		Memory:    MinimumMemory,
		Registers: MinimumRegisters,
		Clock:     MinimumClock,
	}
}

// Minimum returns the lowest legal value for a configuration key, or
// false if the key is unknown.
func Minimum(key string) (int, bool) {
	switch key {
	case MemoryKey:
		return MinimumMemory, true
	case RegistersKey:
		return MinimumRegisters, true
	case ClockKey:
		return MinimumClock, true
	default:
		return 0, false
	}
}

// Get returns the current value for a configuration key, or false if
// the key is unknown.
func (c *Config) Get(key string) (int, bool) {
	switch key {
	case MemoryKey:
		return c.Memory, true
	case RegistersKey:
		return c.Registers, true
	case ClockKey:
		return c.Clock, true
	default:
		return 0, false
	}
}

// Set updates the value for a configuration key. It reports false for
// an unknown key; range checking is the caller's job (the directive
// processors validate against Minimum before calling Set).
func (c *Config) Set(key string, value int) bool {
	switch key {
	case MemoryKey:
		c.Memory = value
	case RegistersKey:
		c.Registers = value
	case ClockKey:
		c.Clock = value
	default:
		return false
	}
	return true
}

// LoadFrom loads configuration from the specified TOML file. A
// missing file is not an error: the defaults are returned unchanged.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Memory < MinimumMemory || cfg.Registers < MinimumRegisters || cfg.Clock < MinimumClock {
		return nil, fmt.Errorf("config file %s: value below its minimum", path)
	}

	return cfg, nil
}

// SaveTo saves configuration to the specified TOML file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
