//go:build serialconfig

package board

import "gregoryjjb/avrpins/gpio"

// SerialConfig reports whether the shift register driver's enable inputs are
// under software control instead of board jumpers.
const SerialConfig = true

var (
	EnableLow  = gpio.Line{Name: "enable-low", Port: gpio.PortD, Mask: EnableLowMask}
	EnableHigh = gpio.Line{Name: "enable-high", Port: gpio.PortD, Mask: EnableHighMask}
)

var enableLines = []gpio.Line{EnableLow, EnableHigh}
