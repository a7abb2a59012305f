package fd650_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gregoryjjb/avrpins/board"
	"gregoryjjb/avrpins/fd650"
	"gregoryjjb/avrpins/gpio"
)

// bus decodes two-wire frames from PORTC writes.
type bus struct {
	bits   []bool
	frames [][]byte
}

func (b *bus) observe(e gpio.Event) {
	if e.Register != "PORTC" {
		return
	}
	sda, scl := uint8(board.SerialDataMask), uint8(board.SerialClockMask)
	clockHigh := e.Old&scl != 0 && e.New&scl != 0

	switch {
	case clockHigh && e.Old&sda != 0 && e.New&sda == 0:
		b.bits = nil
	case clockHigh && e.Old&sda == 0 && e.New&sda != 0:
		var frame []byte
		for i := 0; i+9 <= len(b.bits); i += 9 {
			var v byte
			for j := 0; j < 8; j++ {
				if b.bits[i+j] {
					v |= 0x80 >> j
				}
			}
			frame = append(frame, v)
		}
		b.frames = append(b.frames, frame)
	case e.Old&scl == 0 && e.New&scl != 0:
		b.bits = append(b.bits, e.New&sda != 0)
	}
}

func newDev(t *testing.T) (*fd650.Dev, *bus, *gpio.SimBank) {
	t.Helper()
	b := &bus{}
	bank := gpio.NewSimBank([]gpio.PortID{gpio.PortC, gpio.PortD}, gpio.WithObserver(b.observe))
	pins, err := board.Bind(bank)
	require.NoError(t, err)

	dev, err := fd650.New(pins.SerialData.PinIO(0), pins.SerialClock.PinIO(1))
	require.NoError(t, err)
	return dev, b, bank
}

func TestOnOff(t *testing.T) {
	dev, b, _ := newDev(t)

	require.NoError(t, dev.On(8))
	require.NoError(t, dev.On(3))
	require.NoError(t, dev.Off())

	assert.Equal(t, [][]byte{{0x48, 0x01}, {0x48, 0x31}, {0x48, 0x00}}, b.frames)
}

func TestOn_BrightnessRange(t *testing.T) {
	dev, b, _ := newDev(t)
	assert.ErrorIs(t, dev.On(0), fd650.ErrBrightness)
	assert.ErrorIs(t, dev.On(9), fd650.ErrBrightness)
	assert.Empty(t, b.frames)
}

func TestDisplay(t *testing.T) {
	dev, b, _ := newDev(t)

	require.NoError(t, dev.Display("12."))
	assert.Equal(t, [][]byte{
		{0x68, 0x06},
		{0x6A, 0x5B | fd650.SegDP},
		{0x6C, 0x00},
		{0x6E, 0x00},
	}, b.frames)
}

func TestSetDigit_Position(t *testing.T) {
	dev, _, _ := newDev(t)
	assert.ErrorIs(t, dev.SetDigit(4, 0xFF), fd650.ErrPosition)
	assert.ErrorIs(t, dev.SetDigit(-1, 0xFF), fd650.ErrPosition)
}

func TestEncode(t *testing.T) {
	tests := []struct {
		in   string
		want [fd650.Digits]byte
		err  error
	}{
		{in: "", want: [4]byte{}},
		{in: "beef", want: [4]byte{0x7C, 0x79, 0x79, 0x71}},
		{in: "-0-", want: [4]byte{fd650.SegG, 0x3F, fd650.SegG, 0}},
		{in: "1.2.3.4.", want: [4]byte{0x86, 0xDB, 0xCF, 0xE6}},
		{in: "12345", err: fd650.ErrPosition},
		{in: "hi", err: fd650.ErrUnsupportedRune},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := fd650.Encode(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNoAck(t *testing.T) {
	dev, b, bank := newDev(t)

	// Nothing pulls the data line low on the ninth clock.
	require.NoError(t, bank.Drive(gpio.PortC, uint8(board.SerialDataMask)))
	assert.ErrorIs(t, dev.On(1), fd650.ErrNoAck)

	// The bus is still released with a stop condition.
	require.Len(t, b.frames, 1)
	snap := bank.Snapshot()
	assert.Equal(t, uint8(0x03), snap["PORTC"]&0x03)
}
