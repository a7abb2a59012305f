package gpio

import "fmt"

// Unmapped marks a port bit with no hardware-in-the-loop pin behind it.
const Unmapped = -1

// Pinout maps each port bit to a BCM pin number on the harness host.
type Pinout map[PortID][8]int

// Row returns the pins behind each bit of port. A port with no entry is
// entirely unmapped.
func (p Pinout) Row(port PortID) [8]int {
	if row, ok := p[port]; ok {
		return row
	}
	var row [8]int
	for i := range row {
		row[i] = Unmapped
	}
	return row
}

// ParsePinout converts a port letter keyed table, as found in config files.
// Missing trailing bits are unmapped.
func ParsePinout(raw map[string][]int) (Pinout, error) {
	out := make(Pinout, len(raw))
	for key, pins := range raw {
		port, err := ParsePortID(key)
		if err != nil {
			return nil, err
		}
		if len(pins) > 8 {
			return nil, fmt.Errorf("pinout for port %s has %d entries, want at most 8", port, len(pins))
		}
		var row [8]int
		for i := range row {
			row[i] = Unmapped
			if i < len(pins) {
				row[i] = pins[i]
			}
		}
		out[port] = row
	}
	return out, nil
}

// InitConfig is passed to Init.
type InitConfig struct {
	Ports    []PortID
	Pinout   Pinout
	Observer func(Event)
}
