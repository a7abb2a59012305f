//go:build !serialconfig

package board

import "gregoryjjb/avrpins/gpio"

// SerialConfig reports whether the shift register driver's enable inputs are
// under software control instead of board jumpers.
const SerialConfig = false

var enableLines []gpio.Line
