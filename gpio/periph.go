package gpio

import (
	"fmt"
	"strings"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// periphPin exposes a Pin through the periph.io gpio interfaces. Pulls,
// edge detection and PWM are not available.
type periphPin struct {
	pin      Pin
	number   int
	function string
}

// PinIO wraps the pin for drivers written against periph.io. number is
// informational.
func (p Pin) PinIO(number int) pgpio.PinIO {
	return &periphPin{pin: p, number: number, function: "In"}
}

var _ pgpio.PinIO = &periphPin{}

func (p *periphPin) Name() string {
	return p.pin.line.Name
}

func (p *periphPin) Number() int {
	return p.number
}

// Deprecated: returns "In" or "Out" as last configured through this
// wrapper.
func (p *periphPin) Function() string {
	return p.function
}

func (p *periphPin) String() string {
	return fmt.Sprintf("%s(%s)", p.pin.line.Name, strings.Join(p.pin.line.Pins(), ","))
}

func (p *periphPin) Halt() error {
	return nil
}

func (p *periphPin) In(pull pgpio.Pull, edge pgpio.Edge) error {
	if pull != pgpio.Float && pull != pgpio.PullNoChange {
		return fmt.Errorf("%s: pull %v: %w", p.Name(), pull, ErrNotSupported)
	}
	if edge != pgpio.NoEdge {
		return fmt.Errorf("%s: edge %v: %w", p.Name(), edge, ErrNotSupported)
	}
	p.pin.Input()
	p.function = "In"
	return nil
}

func (p *periphPin) Read() pgpio.Level {
	return p.pin.Read() != 0
}

func (p *periphPin) WaitForEdge(timeout time.Duration) bool {
	return false
}

func (p *periphPin) Pull() pgpio.Pull {
	return pgpio.Float
}

func (p *periphPin) DefaultPull() pgpio.Pull {
	return pgpio.Float
}

// Out sets the level before switching the direction so the pin never
// glitches to the previous level.
func (p *periphPin) Out(l pgpio.Level) error {
	if l {
		p.pin.High()
	} else {
		p.pin.Low()
	}
	p.pin.Output()
	p.function = "Out"
	return nil
}

func (p *periphPin) PWM(duty pgpio.Duty, f physic.Frequency) error {
	return fmt.Errorf("%s: pwm: %w", p.Name(), ErrNotSupported)
}
