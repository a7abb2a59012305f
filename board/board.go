// Package board holds the pin bindings of the display/driver board wired to
// an Arduino UNO: an FD650 display driver on port C and a shift register
// driver on port D.
//
// The bindings must match the board schematic; nothing here can check that.
package board

import (
	"fmt"

	"gregoryjjb/avrpins/gpio"
)

// Bit masks, as wired on the board.
const (
	SerialDataMask  gpio.Mask = 1 << 0 // PC0, UNO A0
	SerialClockMask gpio.Mask = 1 << 1 // PC1, UNO A1
	BusDataMask     gpio.Mask = 1 << 2 // PD2, UNO D2
	BusClockMask    gpio.Mask = 1 << 3 // PD3, UNO D3
	BusLatchMask    gpio.Mask = 1 << 6 // PD6, UNO D6
	EnableLowMask   gpio.Mask = 1 << 4 // PD4, UNO D4
	EnableHighMask  gpio.Mask = 1 << 5 // PD5, UNO D5
)

var (
	SerialData  = gpio.Line{Name: "serial-data", Port: gpio.PortC, Mask: SerialDataMask}
	SerialClock = gpio.Line{Name: "serial-clock", Port: gpio.PortC, Mask: SerialClockMask}
	BusData     = gpio.Line{Name: "bus-data", Port: gpio.PortD, Mask: BusDataMask}
	BusClock    = gpio.Line{Name: "bus-clock", Port: gpio.PortD, Mask: BusClockMask}
	BusLatch    = gpio.Line{Name: "bus-latch", Port: gpio.PortD, Mask: BusLatchMask}
)

// Lines returns every binding on the board, in declaration order. The enable
// lines are only present when built with the serialconfig tag.
func Lines() []gpio.Line {
	lines := []gpio.Line{SerialData, SerialClock, BusData, BusClock, BusLatch}
	return append(lines, enableLines...)
}

// Lookup finds a line by name.
func Lookup(name string) (gpio.Line, bool) {
	for _, l := range Lines() {
		if l.Name == name {
			return l, true
		}
	}
	return gpio.Line{}, false
}

// Pins is the board table bound to a bank.
type Pins struct {
	SerialData  gpio.Pin
	SerialClock gpio.Pin
	BusData     gpio.Pin
	BusClock    gpio.Pin
	BusLatch    gpio.Pin

	// Enables holds the enable-low and enable-high pins, in that order, when
	// SerialConfig is set. It is empty when the board uses jumpers.
	Enables []gpio.Pin

	byName map[string]gpio.Pin
}

func Bind(bank gpio.Bank) (*Pins, error) {
	p := &Pins{byName: make(map[string]gpio.Pin)}
	for _, line := range Lines() {
		pin, err := gpio.Bind(bank, line)
		if err != nil {
			return nil, fmt.Errorf("board: %w", err)
		}
		p.byName[line.Name] = pin
	}

	p.SerialData = p.byName[SerialData.Name]
	p.SerialClock = p.byName[SerialClock.Name]
	p.BusData = p.byName[BusData.Name]
	p.BusClock = p.byName[BusClock.Name]
	p.BusLatch = p.byName[BusLatch.Name]
	for _, line := range enableLines {
		p.Enables = append(p.Enables, p.byName[line.Name])
	}

	return p, nil
}

func (p *Pins) Lookup(name string) (gpio.Pin, bool) {
	pin, ok := p.byName[name]
	return pin, ok
}
