// Package fd650 drives an FD650 four digit LED display controller over its
// two-wire serial interface, bit-banged on a data and a clock line.
package fd650

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
)

var dlog zerolog.Logger

func init() {
	dlog = log.With().Str("component", "fd650").Logger()
}

var (
	ErrNoAck           = errors.New("fd650: no acknowledge")
	ErrBrightness      = errors.New("fd650: brightness out of range")
	ErrPosition        = errors.New("fd650: digit position out of range")
	ErrUnsupportedRune = errors.New("fd650: unsupported rune")
)

const (
	Digits = 4

	cmdSystem = 0x48
	sysOn     = 0x01
)

var digitAddr = [Digits]byte{0x68, 0x6A, 0x6C, 0x6E}

// Segment bits, a through g plus the decimal point.
const (
	SegA  byte = 1 << iota
	SegB
	SegC
	SegD
	SegE
	SegF
	SegG
	SegDP
)

var font = map[rune]byte{
	'0': 0x3F, '1': 0x06, '2': 0x5B, '3': 0x4F, '4': 0x66,
	'5': 0x6D, '6': 0x7D, '7': 0x07, '8': 0x7F, '9': 0x6F,
	'A': 0x77, 'B': 0x7C, 'C': 0x39, 'D': 0x5E, 'E': 0x79, 'F': 0x71,
	'-': SegG, ' ': 0x00,
}

type Dev struct {
	sda gpio.PinIO
	scl gpio.PinIO
}

// New idles both lines high.
func New(sda, scl gpio.PinIO) (*Dev, error) {
	if err := sda.Out(gpio.High); err != nil {
		return nil, err
	}
	if err := scl.Out(gpio.High); err != nil {
		return nil, err
	}
	return &Dev{sda: sda, scl: scl}, nil
}

// On enables the display at brightness 1 (dimmest) to 8.
func (d *Dev) On(brightness int) error {
	if brightness < 1 || brightness > 8 {
		return fmt.Errorf("%w: %d", ErrBrightness, brightness)
	}
	return d.command(cmdSystem, byte(brightness%8)<<4|sysOn)
}

func (d *Dev) Off() error {
	return d.command(cmdSystem, 0)
}

// SetDigit writes raw segments to the digit at pos, 0 being leftmost.
func (d *Dev) SetDigit(pos int, segments byte) error {
	if pos < 0 || pos >= Digits {
		return fmt.Errorf("%w: %d", ErrPosition, pos)
	}
	return d.command(digitAddr[pos], segments)
}

// Encode converts text to segments. A '.' lights the decimal point of the
// preceding digit. Text shorter than the display is padded with blanks.
func Encode(text string) ([Digits]byte, error) {
	var out [Digits]byte
	n := 0
	for _, r := range strings.ToUpper(text) {
		if r == '.' && n > 0 {
			out[n-1] |= SegDP
			continue
		}
		seg, ok := font[r]
		if !ok {
			return out, fmt.Errorf("%w: %q", ErrUnsupportedRune, r)
		}
		if n == Digits {
			return out, fmt.Errorf("%w: %q is longer than %d digits", ErrPosition, text, Digits)
		}
		out[n] = seg
		n++
	}
	return out, nil
}

// Display shows text on all four digits.
func (d *Dev) Display(text string) error {
	segs, err := Encode(text)
	if err != nil {
		return err
	}
	for i, s := range segs {
		if err := d.SetDigit(i, s); err != nil {
			return err
		}
	}

	dlog.Debug().Str("text", text).Msg("Displayed")
	return nil
}

func (d *Dev) command(addr, data byte) error {
	if err := d.start(); err != nil {
		return err
	}
	err := d.writeByte(addr)
	if err == nil {
		err = d.writeByte(data)
	}
	if serr := d.stop(); err == nil {
		err = serr
	}
	return err
}

// step drives one line to a level.
type step struct {
	pin   gpio.PinOut
	level gpio.Level
}

func drive(steps ...step) error {
	for _, s := range steps {
		if err := s.pin.Out(s.level); err != nil {
			return err
		}
	}
	return nil
}

// start pulls data low while the clock is high.
func (d *Dev) start() error {
	return drive(
		step{d.sda, gpio.High},
		step{d.scl, gpio.High},
		step{d.sda, gpio.Low},
		step{d.scl, gpio.Low},
	)
}

// stop releases data high while the clock is high.
func (d *Dev) stop() error {
	return drive(
		step{d.sda, gpio.Low},
		step{d.scl, gpio.High},
		step{d.sda, gpio.High},
	)
}

// writeByte clocks b out MSB first and samples the acknowledge bit on the
// ninth clock with the data line released.
func (d *Dev) writeByte(b byte) error {
	for i := 0; i < 8; i++ {
		bit := gpio.Level(b&(0x80>>i) != 0)
		if err := drive(step{d.sda, bit}, step{d.scl, gpio.High}, step{d.scl, gpio.Low}); err != nil {
			return err
		}
	}

	if err := d.sda.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.sda.In(gpio.Float, gpio.NoEdge); err != nil {
		return err
	}
	if err := d.scl.Out(gpio.High); err != nil {
		return err
	}
	ack := d.sda.Read()
	if err := drive(step{d.scl, gpio.Low}, step{d.sda, gpio.Low}); err != nil {
		return err
	}
	if ack == gpio.High {
		return fmt.Errorf("%w: byte 0x%02X", ErrNoAck, b)
	}
	return nil
}
