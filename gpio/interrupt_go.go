//go:build !tinygo

package gpio

// interruptState is a placeholder on regular Go, where host banks
// serialize register updates themselves.
type interruptState uintptr

func disableInterrupts() interruptState {
	return 0
}

func restoreInterrupts(state interruptState) {}
