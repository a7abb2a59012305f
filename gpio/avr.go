//go:build tinygo && atmega328p

package gpio

import (
	"device/avr"
	"runtime/volatile"
)

// AVR resolves registers to the ATmega328P I/O space.
var AVR Bank = avrBank{}

type avrBank struct{}

func (avrBank) Register(class RegisterClass, port PortID) (Register, error) {
	var regs [3]*volatile.Register8
	switch port {
	case PortB:
		regs = [3]*volatile.Register8{avr.DDRB, avr.PORTB, avr.PINB}
	case PortC:
		regs = [3]*volatile.Register8{avr.DDRC, avr.PORTC, avr.PINC}
	case PortD:
		regs = [3]*volatile.Register8{avr.DDRD, avr.PORTD, avr.PIND}
	default:
		return nil, unresolved(class, port)
	}
	if int(class) >= len(regs) {
		return nil, unresolved(class, port)
	}
	return regs[class], nil
}
