package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gregoryjjb/avrpins/board"
	"gregoryjjb/avrpins/circularbuffer"
	"gregoryjjb/avrpins/fd650"
	"gregoryjjb/avrpins/gpio"
	"gregoryjjb/avrpins/pubsub"
	"gregoryjjb/avrpins/shiftreg"
)

var hlog zerolog.Logger

func init() {
	hlog = log.With().Str("component", "harness").Logger()
}

var (
	ErrUnknownLine     = errors.New("unknown line")
	ErrUnknownRegister = errors.New("unknown register")
	ErrInvalidOp       = errors.New("invalid operation")
)

// Op is one of the write operations on a line.
type Op string

const (
	OpOutput Op = "output"
	OpInput  Op = "input"
	OpHigh   Op = "high"
	OpLow    Op = "low"
)

// Harness owns a register bank, the board pins bound to it and the two bus
// drivers, and records every register change.
type Harness struct {
	bank    gpio.Bank
	pins    *board.Pins
	shift   *shiftreg.Dev
	display *fd650.Dev

	events *pubsub.Pubsub[gpio.Event]
	trace  *circularbuffer.CircularBuffer[gpio.Event]
}

// NewHarness opens the bank selected at build time and binds the board.
func NewHarness(config *Config) (*Harness, error) {
	h := &Harness{
		events: pubsub.New[gpio.Event](64),
		trace:  circularbuffer.New[gpio.Event](config.TraceSize()),
	}

	bank, err := gpio.Init(gpio.InitConfig{
		Ports:    config.Ports(),
		Pinout:   config.Pinout(),
		Observer: h.record,
	})
	if err != nil {
		return nil, err
	}
	h.bank = bank

	if err := h.preset(config.Presets()); err != nil {
		return nil, err
	}

	if h.pins, err = board.Bind(bank); err != nil {
		return nil, err
	}

	options := []shiftreg.Option{shiftreg.WithBitOrder(config.BitOrder())}
	if len(h.pins.Enables) == 2 {
		options = append(options, shiftreg.WithEnable(h.pins.Enables[0].PinIO(4), h.pins.Enables[1].PinIO(5)))
	}
	h.shift, err = shiftreg.New(h.pins.BusData.PinIO(2), h.pins.BusClock.PinIO(3), h.pins.BusLatch.PinIO(6), options...)
	if err != nil {
		return nil, err
	}

	h.display, err = fd650.New(h.pins.SerialData.PinIO(0), h.pins.SerialClock.PinIO(1))
	if err != nil {
		return nil, err
	}

	hlog.Info().
		Bool("serial_config", board.SerialConfig).
		Int("lines", len(board.Lines())).
		Msg("Board bound")

	return h, nil
}

func (h *Harness) Close() error {
	return gpio.Close()
}

func (h *Harness) record(e gpio.Event) {
	h.trace.Push(e)
	h.events.Publish(e)
}

// preset applies register values in name order so runs are reproducible.
func (h *Harness) preset(values map[string]uint8) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.SetRegister(name, values[name]); err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
	}
	return nil
}

// Subscribe streams register events until the returned func is called.
func (h *Harness) Subscribe() (func(), <-chan gpio.Event) {
	id, ch := h.events.Subscribe()
	return func() {
		h.events.Unsubscribe(id)
	}, ch
}

func (h *Harness) Trace() []gpio.Event {
	return h.trace.Items()
}

func (h *Harness) Lines() []gpio.Line {
	return board.Lines()
}

func (h *Harness) pin(name string) (gpio.Pin, error) {
	p, ok := h.pins.Lookup(name)
	if !ok {
		return gpio.Pin{}, fmt.Errorf("%w: %q", ErrUnknownLine, name)
	}
	return p, nil
}

// Apply runs a write operation on the named line.
func (h *Harness) Apply(name string, op Op) error {
	p, err := h.pin(name)
	if err != nil {
		return err
	}

	switch op {
	case OpOutput:
		p.Output()
	case OpInput:
		p.Input()
	case OpHigh:
		p.High()
	case OpLow:
		p.Low()
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOp, op)
	}

	hlog.Debug().Str("line", name).Str("op", string(op)).Msg("Applied")
	return nil
}

// Read returns the raw masked input value of the named line.
func (h *Harness) Read(name string) (uint8, error) {
	p, err := h.pin(name)
	if err != nil {
		return 0, err
	}
	return p.Read(), nil
}

func (h *Harness) Registers() (map[string]uint8, error) {
	s, ok := h.bank.(gpio.Snapshotter)
	if !ok {
		return nil, gpio.ErrNotSupported
	}
	return s.Snapshot(), nil
}

// SetRegister writes a register by name. Writing an input register drives
// the external levels when the bank supports it.
func (h *Harness) SetRegister(name string, value uint8) error {
	class, port, err := gpio.ParseRegisterName(name)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownRegister, err)
	}

	if class == gpio.Input {
		d, ok := h.bank.(gpio.Driver)
		if !ok {
			return fmt.Errorf("driving %s: %w", name, gpio.ErrNotSupported)
		}
		if err := d.Drive(port, value); err != nil {
			return fmt.Errorf("%w: %w", ErrUnknownRegister, err)
		}
		return nil
	}

	r, err := h.bank.Register(class, port)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownRegister, err)
	}
	r.Set(value)
	return nil
}

func (h *Harness) Shift(bs []byte) error {
	return h.shift.Write(bs...)
}

func (h *Harness) Enable(on bool) error {
	return h.shift.Enable(on)
}

// Display turns the display on at brightness, then shows text.
func (h *Harness) Display(text string, brightness int) error {
	if err := h.display.On(brightness); err != nil {
		return err
	}
	return h.display.Display(text)
}

func (h *Harness) DisplayOff() error {
	return h.display.Off()
}
