//go:build gpio

package gpio

import (
	"github.com/rs/zerolog/log"
	"github.com/stianeikeland/go-rpio/v4"
)

// rpioPin adapts a Raspberry Pi BCM pin.
type rpioPin rpio.Pin

func (p rpioPin) Input()     { rpio.Pin(p).Input() }
func (p rpioPin) Output()    { rpio.Pin(p).Output() }
func (p rpioPin) High()      { rpio.Pin(p).High() }
func (p rpioPin) Low()       { rpio.Pin(p).Low() }
func (p rpioPin) Read() bool { return rpio.Pin(p).Read() == rpio.High }

// Init opens the Raspberry Pi GPIO and mirrors each configured port onto
// the pins named by the pinout. All mapped pins start as inputs.
func Init(config InitConfig) (Bank, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}

	b := newHILBank(config, func(n int) hilPin {
		return rpioPin(n)
	})
	for _, id := range config.Ports {
		row := config.Pinout.Row(id)
		log.Info().
			Str("port", id.String()).
			Ints("pins", row[:]).
			Msg("Port mirrored to GPIO")
	}

	return b, nil
}

func Close() error {
	return rpio.Close()
}
