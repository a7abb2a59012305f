package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"gregoryjjb/avrpins/gpio"
	"gregoryjjb/avrpins/shiftreg"
)

var ErrValidation = errors.New("invalid config")

// ConfigFileName is looked up in the home directory when no -config flag is
// given.
const ConfigFileName = "pinsim.toml"

const (
	defaultHost      = "127.0.0.1"
	defaultPort      = "1225"
	defaultTraceSize = 256
)

var defaultPorts = []gpio.PortID{gpio.PortB, gpio.PortC, gpio.PortD}

type Flags struct {
	ConfigPath string
}

type tomlConfig struct {
	Host      string           `toml:"host"`
	Port      string           `toml:"port"`
	LogLevel  string           `toml:"log_level"`
	Ports     []string         `toml:"ports"`
	TraceSize int              `toml:"trace_size"`
	BitOrder  string           `toml:"bit_order"`
	Pinout    map[string][]int `toml:"pinout"`
	Presets   map[string]uint8 `toml:"presets"`
}

type Config struct {
	path   string
	getenv func(string) string
	toml   tomlConfig

	ports    []gpio.PortID
	pinout   gpio.Pinout
	order    shiftreg.BitOrder
	logLevel zerolog.Level
}

// NewConfig reads the TOML config, if present, and validates it. Missing
// files yield the defaults.
func NewConfig(fs PinsimFS, flags Flags, getenv func(string) string) (*Config, error) {
	path := flags.ConfigPath
	if path == "" {
		home, err := fs.HomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ConfigFileName)
	}
	path, err := fs.Abs(path)
	if err != nil {
		return nil, err
	}

	c := &Config{path: path, getenv: getenv}

	raw, err := afero.ReadFile(fs, path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(raw, &c.toml); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrValidation, path, err)
		}
	case errors.Is(err, afero.ErrFileNotFound) && flags.ConfigPath == "":
		c.path = ""
	default:
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	c.ports = defaultPorts
	if len(c.toml.Ports) > 0 {
		c.ports = nil
		for _, s := range c.toml.Ports {
			p, err := gpio.ParsePortID(s)
			if err != nil {
				return fmt.Errorf("%w: ports: %w", ErrValidation, err)
			}
			c.ports = append(c.ports, p)
		}
	}

	pinout, err := gpio.ParsePinout(c.toml.Pinout)
	if err != nil {
		return fmt.Errorf("%w: pinout: %w", ErrValidation, err)
	}
	c.pinout = pinout

	if c.order, err = shiftreg.ParseBitOrder(c.toml.BitOrder); err != nil {
		return fmt.Errorf("%w: bit_order: %w", ErrValidation, err)
	}

	if c.toml.TraceSize < 0 {
		return fmt.Errorf("%w: trace_size must not be negative", ErrValidation)
	}

	c.logLevel = zerolog.DebugLevel
	if c.toml.LogLevel != "" {
		if c.logLevel, err = zerolog.ParseLevel(c.toml.LogLevel); err != nil {
			return fmt.Errorf("%w: log_level: %w", ErrValidation, err)
		}
	}

	for name := range c.toml.Presets {
		if _, _, err := gpio.ParseRegisterName(name); err != nil {
			return fmt.Errorf("%w: presets: %w", ErrValidation, err)
		}
	}

	return nil
}

// Path is the config file in use, empty when running on defaults.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) envOr(key, value, fallback string) string {
	if v := c.getenv(key); v != "" {
		return v
	}
	if value != "" {
		return value
	}
	return fallback
}

func (c *Config) Host() string {
	return c.envOr("HOST", c.toml.Host, defaultHost)
}

func (c *Config) Port() string {
	return c.envOr("PORT", c.toml.Port, defaultPort)
}

func (c *Config) Ports() []gpio.PortID {
	return c.ports
}

func (c *Config) Pinout() gpio.Pinout {
	return c.pinout
}

func (c *Config) BitOrder() shiftreg.BitOrder {
	return c.order
}

func (c *Config) LogLevel() zerolog.Level {
	return c.logLevel
}

func (c *Config) TraceSize() int {
	if c.toml.TraceSize == 0 {
		return defaultTraceSize
	}
	return c.toml.TraceSize
}

// Presets are register values applied when the harness starts.
func (c *Config) Presets() map[string]uint8 {
	return c.toml.Presets
}
