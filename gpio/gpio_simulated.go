//go:build !gpio

package gpio

import (
	"github.com/rs/zerolog/log"
)

// Init returns a simulated bank for the configured ports.
func Init(config InitConfig) (Bank, error) {
	log.Debug().Int("ports", len(config.Ports)).Msg("GPIO will be simulated")

	var options []SimOption
	if config.Observer != nil {
		options = append(options, WithObserver(config.Observer))
	}
	return NewSimBank(config.Ports, options...), nil
}

func Close() error {
	log.Debug().Msg("Simulated GPIO closing")
	return nil
}
