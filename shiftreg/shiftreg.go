// Package shiftreg drives a serial-in, parallel-out shift register over three
// bit-banged lines: data, clock and latch.
package shiftreg

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

var srlog zerolog.Logger

func init() {
	srlog = log.With().Str("component", "shiftreg").Logger()
}

var ErrNoEnable = errors.New("no enable lines configured")

type BitOrder int

const (
	MSBFirst BitOrder = iota
	LSBFirst
)

// ParseBitOrder accepts "msb" or "lsb". The empty string means MSBFirst.
func ParseBitOrder(s string) (BitOrder, error) {
	switch s {
	case "", "msb":
		return MSBFirst, nil
	case "lsb":
		return LSBFirst, nil
	}
	return 0, fmt.Errorf("invalid bit order %q", s)
}

func (o BitOrder) String() string {
	if o == LSBFirst {
		return "lsb"
	}
	return "msb"
}

type Dev struct {
	data  gpio.PinOut
	clock gpio.PinOut
	latch gpio.PinOut

	enableLow  gpio.PinOut
	enableHigh gpio.PinOut

	order BitOrder
}

type Option func(*Dev)

func WithBitOrder(order BitOrder) Option {
	return func(d *Dev) {
		d.order = order
	}
}

// WithEnable hands the driver's enable inputs to software: low is active
// low, high is active high.
func WithEnable(low, high gpio.PinOut) Option {
	return func(d *Dev) {
		d.enableLow = low
		d.enableHigh = high
	}
}

// New drives data, clock and latch low and returns the device.
func New(data, clock, latch gpio.PinOut, options ...Option) (*Dev, error) {
	d := &Dev{data: data, clock: clock, latch: latch}
	for _, o := range options {
		o(d)
	}

	for _, p := range []gpio.PinOut{data, clock, latch} {
		if err := p.Out(gpio.Low); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Dev) HasEnable() bool {
	return d.enableLow != nil && d.enableHigh != nil
}

// Enable switches the driver outputs on or off.
func (d *Dev) Enable(on bool) error {
	if !d.HasEnable() {
		return ErrNoEnable
	}
	if err := d.enableLow.Out(gpio.Level(!on)); err != nil {
		return err
	}
	return d.enableHigh.Out(gpio.Level(on))
}

// Write shifts out every byte, then latches them to the outputs at once.
func (d *Dev) Write(bs ...byte) error {
	for _, b := range bs {
		if err := d.shift(b); err != nil {
			return err
		}
	}
	if err := pulse(d.latch); err != nil {
		return err
	}

	srlog.Debug().Hex("bytes", bs).Str("order", d.order.String()).Msg("Latched")
	return nil
}

func (d *Dev) shift(b byte) error {
	for i := 0; i < 8; i++ {
		var bit bool
		if d.order == LSBFirst {
			bit = b&(1<<i) != 0
		} else {
			bit = b&(0x80>>i) != 0
		}
		if err := d.data.Out(gpio.Level(bit)); err != nil {
			return err
		}
		if err := pulse(d.clock); err != nil {
			return err
		}
	}
	return nil
}

func pulse(p gpio.PinOut) error {
	if err := p.Out(gpio.High); err != nil {
		return err
	}
	return p.Out(gpio.Low)
}
