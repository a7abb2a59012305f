package gpio_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gregoryjjb/avrpins/gpio"
)

var (
	latch = gpio.Line{Name: "latch", Port: gpio.PortD, Mask: gpio.Bit(6)}
	clock = gpio.Line{Name: "clock", Port: gpio.PortD, Mask: gpio.Bit(3)}
	data  = gpio.Line{Name: "data", Port: gpio.PortD, Mask: gpio.Bit(2)}
	sda   = gpio.Line{Name: "sda", Port: gpio.PortC, Mask: gpio.Bit(0)}
)

func newBank() *gpio.SimBank {
	return gpio.NewSimBank([]gpio.PortID{gpio.PortB, gpio.PortC, gpio.PortD})
}

func register(t *testing.T, bank gpio.Bank, class gpio.RegisterClass, port gpio.PortID) gpio.Register {
	t.Helper()
	r, err := bank.Register(class, port)
	require.NoError(t, err)
	return r
}

func TestRegisterClass_Name(t *testing.T) {
	assert.Equal(t, "DDRC", gpio.Direction.Name(gpio.PortC))
	assert.Equal(t, "PORTD", gpio.Output.Name(gpio.PortD))
	assert.Equal(t, "PINB", gpio.Input.Name(gpio.PortB))
	assert.Equal(t, gpio.Output.Name('D'), gpio.Output.Name('D'))
}

func TestParseRegisterName(t *testing.T) {
	tests := []struct {
		in    string
		class gpio.RegisterClass
		port  gpio.PortID
		err   bool
	}{
		{in: "DDRC", class: gpio.Direction, port: gpio.PortC},
		{in: "PORTD", class: gpio.Output, port: gpio.PortD},
		{in: "pinb", class: gpio.Input, port: gpio.PortB},
		{in: "PORT", err: true},
		{in: "PORTDD", err: true},
		{in: "TCCR0", err: true},
		{in: "PIN1", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			class, port, err := gpio.ParseRegisterName(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, gpio.ErrInvalidRegister)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.port, port)
		})
	}
}

func TestLine(t *testing.T) {
	assert.Equal(t, []string{"PD6"}, latch.Pins())
	assert.Equal(t, "latch(PD6)", latch.String())

	both := gpio.Line{Name: "enables", Port: gpio.PortD, Mask: gpio.Bit(4) | gpio.Bit(5)}
	assert.Equal(t, []int{4, 5}, both.Mask.Bits())
	assert.Equal(t, "enables(PD4,PD5)", both.String())
}

func TestBind_Unresolved(t *testing.T) {
	bank := newBank()
	_, err := gpio.Bind(bank, gpio.Line{Name: "ghost", Port: 'X', Mask: gpio.Bit(0)})
	assert.ErrorIs(t, err, gpio.ErrUnresolvedRegister)
	assert.Contains(t, err.Error(), "DDRX")

	assert.Panics(t, func() {
		gpio.MustBind(bank, gpio.Line{Name: "ghost", Port: 'A', Mask: gpio.Bit(0)})
	})
}

func TestPin_SetClear(t *testing.T) {
	bank := newBank()
	portD := register(t, bank, gpio.Output, gpio.PortD)
	pin := gpio.MustBind(bank, latch)

	portD.Set(0x00)
	pin.High()
	assert.Equal(t, uint8(0x40), portD.Get())

	pin.Low()
	assert.Equal(t, uint8(0x00), portD.Get())
}

func TestPin_InputClearsDirectionBit(t *testing.T) {
	bank := newBank()
	ddrC := register(t, bank, gpio.Direction, gpio.PortC)

	ddrC.Set(0xFF)
	gpio.MustBind(bank, sda).Input()
	assert.Equal(t, uint8(0xFE), ddrC.Get())

	gpio.MustBind(bank, sda).Output()
	assert.Equal(t, uint8(0xFF), ddrC.Get())
}

func TestPin_ClearPreservesOtherBits(t *testing.T) {
	bank := newBank()
	portD := register(t, bank, gpio.Output, gpio.PortD)

	portD.Set(0xFF)
	gpio.MustBind(bank, clock).Low()
	assert.Equal(t, uint8(0xF7), portD.Get())
}

func TestPin_ReadBack(t *testing.T) {
	bank := newBank()
	for _, line := range []gpio.Line{latch, clock, data, sda} {
		t.Run(line.Name, func(t *testing.T) {
			pin := gpio.MustBind(bank, line)
			pin.Output()
			pin.High()
			assert.Equal(t, uint8(line.Mask), pin.Read())

			pin.Low()
			assert.Zero(t, pin.Read())
		})
	}
}

func TestPin_ReadIsRawMask(t *testing.T) {
	bank := newBank()
	pin := gpio.MustBind(bank, latch)
	pin.Output()
	pin.High()
	assert.Equal(t, uint8(0x40), pin.Read())
}

func TestPin_Idempotent(t *testing.T) {
	bank := newBank()
	portD := register(t, bank, gpio.Output, gpio.PortD)
	pin := gpio.MustBind(bank, data)

	portD.Set(0x81)
	pin.High()
	once := portD.Get()
	pin.High()
	assert.Equal(t, once, portD.Get())
	assert.Equal(t, uint8(0x85), once)
}

func TestPin_MaskIsolation(t *testing.T) {
	bank := newBank()
	a := gpio.MustBind(bank, data)
	b := gpio.MustBind(bank, latch)

	b.Output()
	b.High()
	a.Output()
	a.High()
	a.Low()
	assert.Equal(t, uint8(latch.Mask), b.Read())

	b.Low()
	a.High()
	assert.Zero(t, b.Read())
	assert.Equal(t, uint8(data.Mask), a.Read())
}

func TestPin_ReadInput(t *testing.T) {
	bank := newBank()
	pin := gpio.MustBind(bank, sda)
	pin.Input()

	require.NoError(t, bank.Drive(gpio.PortC, 0x01))
	assert.Equal(t, uint8(0x01), pin.Read())

	// The driven output level does not leak into an input bit.
	pin.Low()
	require.NoError(t, bank.Drive(gpio.PortC, 0x00))
	pin.High()
	assert.Zero(t, pin.Read())
}

func TestPin_ConcurrentDisjointBits(t *testing.T) {
	bank := newBank()
	portD := register(t, bank, gpio.Output, gpio.PortD)

	var wg sync.WaitGroup
	for bit := uint(0); bit < 8; bit++ {
		wg.Add(1)
		go func(bit uint) {
			defer wg.Done()
			pin := gpio.MustBind(bank, gpio.Line{Name: "p", Port: gpio.PortD, Mask: gpio.Bit(bit)})
			for i := 0; i < 200; i++ {
				pin.High()
				pin.Low()
			}
			if bit%2 == 0 {
				pin.High()
			}
		}(bit)
	}
	wg.Wait()

	assert.Equal(t, uint8(0x55), portD.Get())
}

func TestSimBank_InputWriteToggles(t *testing.T) {
	bank := newBank()
	portB := register(t, bank, gpio.Output, gpio.PortB)
	pinB := register(t, bank, gpio.Input, gpio.PortB)

	portB.Set(0x0F)
	pinB.Set(0x11)
	assert.Equal(t, uint8(0x1E), portB.Get())
}

func TestSimBank_Observer(t *testing.T) {
	var events []gpio.Event
	bank := gpio.NewSimBank([]gpio.PortID{gpio.PortD}, gpio.WithObserver(func(e gpio.Event) {
		events = append(events, e)
	}))

	pin := gpio.MustBind(bank, latch)
	pin.Output()
	pin.High()

	require.Len(t, events, 2)
	assert.Equal(t, "DDRD", events[0].Register)
	assert.Equal(t, uint8(0x40), events[0].New)
	assert.Equal(t, "PORTD", events[1].Register)
	assert.Equal(t, uint8(0x00), events[1].Old)
	assert.Equal(t, uint8(0x40), events[1].New)
}

func TestSimBank_Snapshot(t *testing.T) {
	bank := gpio.NewSimBank([]gpio.PortID{gpio.PortD, gpio.PortC})
	assert.Equal(t, []gpio.PortID{gpio.PortC, gpio.PortD}, bank.Ports())

	pin := gpio.MustBind(bank, latch)
	pin.Output()
	pin.High()

	snap := bank.Snapshot()
	assert.Len(t, snap, 6)
	assert.Equal(t, uint8(0x40), snap["DDRD"])
	assert.Equal(t, uint8(0x40), snap["PORTD"])
	assert.Equal(t, uint8(0x40), snap["PIND"])
	assert.Zero(t, snap["PORTC"])
}

func TestParsePinout(t *testing.T) {
	p, err := gpio.ParsePinout(map[string][]int{"d": {4, 17, 27}})
	require.NoError(t, err)
	assert.Equal(t, [8]int{4, 17, 27, -1, -1, -1, -1, -1}, p[gpio.PortD])

	_, err = gpio.ParsePinout(map[string][]int{"DD": {1}})
	assert.ErrorIs(t, err, gpio.ErrInvalidPort)

	_, err = gpio.ParsePinout(map[string][]int{"C": {1, 2, 3, 4, 5, 6, 7, 8, 9}})
	assert.Error(t, err)
}

func TestBit(t *testing.T) {
	assert.Equal(t, gpio.Mask(0x01), gpio.Bit(0))
	assert.Equal(t, gpio.Mask(0x80), gpio.Bit(7))
	assert.Panics(t, func() { gpio.Bit(8) })
}

func TestPinout_Row(t *testing.T) {
	p, err := gpio.ParsePinout(map[string][]int{"D": {4}})
	require.NoError(t, err)
	assert.Equal(t, [8]int{4, -1, -1, -1, -1, -1, -1, -1}, p.Row(gpio.PortD))

	unmapped := [8]int{-1, -1, -1, -1, -1, -1, -1, -1}
	assert.Equal(t, unmapped, p.Row(gpio.PortB))

	empty, err := gpio.ParsePinout(nil)
	require.NoError(t, err)
	assert.Equal(t, unmapped, empty.Row(gpio.PortD))
}

func TestSimBank_ObserverSkipsUnchanged(t *testing.T) {
	var events []gpio.Event
	bank := gpio.NewSimBank([]gpio.PortID{gpio.PortD}, gpio.WithObserver(func(e gpio.Event) {
		events = append(events, e)
	}))

	pin := gpio.MustBind(bank, latch)
	pin.Low()
	pin.Input()
	require.NoError(t, bank.Drive(gpio.PortD, 0x00))
	assert.Empty(t, events)

	pin.High()
	pin.High()
	assert.Len(t, events, 1)
}

func TestSimBank_ObserverOrder(t *testing.T) {
	var events []gpio.Event
	bank := gpio.NewSimBank([]gpio.PortID{gpio.PortD}, gpio.WithObserver(func(e gpio.Event) {
		events = append(events, e)
	}))

	var wg sync.WaitGroup
	for bit := uint(0); bit < 8; bit++ {
		wg.Add(1)
		go func(bit uint) {
			defer wg.Done()
			pin := gpio.MustBind(bank, gpio.Line{Name: "p", Port: gpio.PortD, Mask: gpio.Bit(bit)})
			for i := 0; i < 50; i++ {
				pin.High()
				pin.Low()
			}
		}(bit)
	}
	wg.Wait()

	require.NotEmpty(t, events)
	prev := uint8(0)
	for i, e := range events {
		require.Equal(t, prev, e.Old, "event %d", i)
		prev = e.New
	}
	assert.Zero(t, prev)
}
