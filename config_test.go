package main_test

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pinsim "gregoryjjb/avrpins"
	"gregoryjjb/avrpins/gpio"
	"gregoryjjb/avrpins/shiftreg"
)

func newTestConfig(t *testing.T, flags pinsim.Flags, env map[string]string, toml string) *pinsim.Config {
	t.Helper()
	c, err := loadTestConfig(flags, env, toml)
	require.NoError(t, err)
	return c
}

func loadTestConfig(flags pinsim.Flags, env map[string]string, toml string) (*pinsim.Config, error) {
	fs := pinsim.NewPinsimMemFS()
	if toml != "" {
		if err := afero.WriteFile(fs, "/pinsim.toml", []byte(toml), 0644); err != nil {
			return nil, err
		}
	}
	return pinsim.NewConfig(fs, flags, func(s string) string { return env[s] })
}

func TestConfig_Defaults(t *testing.T) {
	c := newTestConfig(t, pinsim.Flags{}, nil, "")

	assert.Empty(t, c.Path())
	assert.Equal(t, "127.0.0.1", c.Host())
	assert.Equal(t, "1225", c.Port())
	assert.Equal(t, []gpio.PortID{gpio.PortB, gpio.PortC, gpio.PortD}, c.Ports())
	assert.Equal(t, 256, c.TraceSize())
	assert.Equal(t, shiftreg.MSBFirst, c.BitOrder())
	assert.Equal(t, zerolog.DebugLevel, c.LogLevel())
	assert.Empty(t, c.Pinout())
}

func TestConfig_File(t *testing.T) {
	c := newTestConfig(t, pinsim.Flags{}, nil, `
host = "0.0.0.0"
port = "8080"
log_level = "warn"
ports = ["c", "D"]
trace_size = 16
bit_order = "lsb"

[pinout]
D = [-1, -1, 17, 27, -1, -1, 22]

[presets]
PORTD = 0xFF
`)

	assert.Equal(t, "/pinsim.toml", c.Path())
	assert.Equal(t, "0.0.0.0", c.Host())
	assert.Equal(t, "8080", c.Port())
	assert.Equal(t, zerolog.WarnLevel, c.LogLevel())
	assert.Equal(t, []gpio.PortID{gpio.PortC, gpio.PortD}, c.Ports())
	assert.Equal(t, 16, c.TraceSize())
	assert.Equal(t, shiftreg.LSBFirst, c.BitOrder())
	assert.Equal(t, [8]int{-1, -1, 17, 27, -1, -1, 22, -1}, c.Pinout()[gpio.PortD])
	assert.Equal(t, map[string]uint8{"PORTD": 0xFF}, c.Presets())
}

func TestConfig_EnvOverrides(t *testing.T) {
	c := newTestConfig(t, pinsim.Flags{},
		map[string]string{"HOST": "10.0.0.2", "PORT": "9999"},
		`host = "0.0.0.0"`,
	)
	assert.Equal(t, "10.0.0.2", c.Host())
	assert.Equal(t, "9999", c.Port())
}

func TestConfig_ExplicitPathMustExist(t *testing.T) {
	_, err := loadTestConfig(pinsim.Flags{ConfigPath: "/etc/missing.toml"}, nil, "")
	assert.Error(t, err)
}

func TestConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{name: "syntax", toml: `host = `},
		{name: "port letter", toml: `ports = ["DD"]`},
		{name: "bit order", toml: `bit_order = "middle"`},
		{name: "trace size", toml: `trace_size = -1`},
		{name: "log level", toml: `log_level = "loud"`},
		{name: "preset name", toml: "[presets]\nTCCR0 = 1"},
		{name: "pinout length", toml: "[pinout]\nC = [1, 2, 3, 4, 5, 6, 7, 8, 9]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadTestConfig(pinsim.Flags{}, nil, tt.toml)
			assert.ErrorIs(t, err, pinsim.ErrValidation)
		})
	}
}
