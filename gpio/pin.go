// Package gpio maps logical pin bindings onto the three registers that
// control an AVR GPIO port: the direction register (DDRx), the output
// register (PORTx) and the input register (PINx).
//
// A Line is the declarative binding (port letter plus bit mask). Binding a
// Line against a Bank resolves its registers once and yields a Pin, which
// exposes only the five sanctioned operations and touches only its own bits.
package gpio

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

var (
	ErrUnresolvedRegister = errors.New("unresolved register")
	ErrInvalidPort        = errors.New("invalid port identifier")
	ErrInvalidRegister    = errors.New("invalid register name")
	ErrNotSupported       = errors.New("not supported")
)

// PortID is the single letter naming a GPIO port.
type PortID byte

const (
	PortB PortID = 'B'
	PortC PortID = 'C'
	PortD PortID = 'D'
)

func (p PortID) String() string {
	return string(rune(p))
}

// ParsePortID accepts a single letter, case insensitive.
func ParsePortID(s string) (PortID, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	c := strings.ToUpper(s)[0]
	if c < 'A' || c > 'Z' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, s)
	}
	return PortID(c), nil
}

// Mask selects one or more bits of a port.
type Mask uint8

// Bit returns the mask for bit n of a port. It panics if n is not in 0..7.
func Bit(n uint) Mask {
	if n > 7 {
		panic(fmt.Sprintf("gpio: bit %d out of range", n))
	}
	return Mask(1 << n)
}

// Bits lists the bit positions set in the mask, lowest first.
func (m Mask) Bits() []int {
	out := make([]int, 0, bits.OnesCount8(uint8(m)))
	for i := 0; i < 8; i++ {
		if m&(1<<i) != 0 {
			out = append(out, i)
		}
	}
	return out
}

// Line binds a logical signal name to a port and bit mask.
type Line struct {
	Name string
	Port PortID
	Mask Mask
}

// Pins returns the AVR pin names covered by the line, e.g. "PD6".
func (l Line) Pins() []string {
	var names []string
	for _, b := range l.Mask.Bits() {
		names = append(names, fmt.Sprintf("P%s%d", l.Port, b))
	}
	return names
}

func (l Line) String() string {
	return fmt.Sprintf("%s(%s)", l.Name, strings.Join(l.Pins(), ","))
}

// RegisterClass is one of the three per-port registers.
type RegisterClass uint8

const (
	Direction RegisterClass = iota
	Output
	Input
)

var registerPrefixes = [...]string{
	Direction: "DDR",
	Output:    "PORT",
	Input:     "PIN",
}

// RegisterClasses lists every class in register file order.
var RegisterClasses = []RegisterClass{Direction, Output, Input}

func (c RegisterClass) Prefix() string {
	if int(c) >= len(registerPrefixes) {
		return "?"
	}
	return registerPrefixes[c]
}

// Name synthesizes the device register name for the port, e.g. "DDRC".
func (c RegisterClass) Name(port PortID) string {
	return c.Prefix() + port.String()
}

func (c RegisterClass) String() string {
	return c.Prefix()
}

// ParseRegisterName splits a synthesized register name back into its class
// and port.
func ParseRegisterName(name string) (RegisterClass, PortID, error) {
	upper := strings.ToUpper(name)
	// PORT must be tried before PIN.
	for _, class := range []RegisterClass{Output, Direction, Input} {
		rest, ok := strings.CutPrefix(upper, class.Prefix())
		if !ok {
			continue
		}
		port, err := ParsePortID(rest)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRegister, name)
		}
		return class, port, nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRegister, name)
}

// Register is an 8-bit hardware register. *volatile.Register8 satisfies it.
type Register interface {
	Get() uint8
	Set(value uint8)
	SetBits(value uint8)
	ClearBits(value uint8)
}

// Bank resolves registers by class and port.
type Bank interface {
	Register(class RegisterClass, port PortID) (Register, error)
}

func unresolved(class RegisterClass, port PortID) error {
	return fmt.Errorf("%w: %s", ErrUnresolvedRegister, class.Name(port))
}

// Pin is a Line bound to concrete registers.
//
// The four write operations are read-modify-write sequences executed inside
// a critical section: with interrupts disabled on the target, and under the
// bank lock for host banks. They are atomic with respect to interrupt
// handlers and goroutines touching the same register.
type Pin struct {
	line Line
	ddr  Register
	port Register
	pin  Register
}

// Bind resolves the registers of line in bank.
func Bind(bank Bank, line Line) (Pin, error) {
	regs := make([]Register, len(RegisterClasses))
	for i, class := range RegisterClasses {
		r, err := bank.Register(class, line.Port)
		if err != nil {
			return Pin{}, fmt.Errorf("bind %s: %w", line.Name, err)
		}
		regs[i] = r
	}

	return Pin{
		line: line,
		ddr:  regs[Direction],
		port: regs[Output],
		pin:  regs[Input],
	}, nil
}

// MustBind is like Bind but panics if a register cannot be resolved.
func MustBind(bank Bank, line Line) Pin {
	p, err := Bind(bank, line)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pin) Line() Line {
	return p.line
}

// Output configures the pin as an output.
func (p Pin) Output() {
	s := disableInterrupts()
	p.ddr.SetBits(uint8(p.line.Mask))
	restoreInterrupts(s)
}

// Input configures the pin as an input.
func (p Pin) Input() {
	s := disableInterrupts()
	p.ddr.ClearBits(uint8(p.line.Mask))
	restoreInterrupts(s)
}

// High drives the pin high. Only meaningful after Output.
func (p Pin) High() {
	s := disableInterrupts()
	p.port.SetBits(uint8(p.line.Mask))
	restoreInterrupts(s)
}

// Low drives the pin low.
func (p Pin) Low() {
	s := disableInterrupts()
	p.port.ClearBits(uint8(p.line.Mask))
	restoreInterrupts(s)
}

// Read returns the input register masked to the pin's bits. The value is
// not normalized: any non-zero result means the pin is high.
func (p Pin) Read() uint8 {
	return p.pin.Get() & uint8(p.line.Mask)
}
