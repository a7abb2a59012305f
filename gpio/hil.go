package gpio

import (
	"sync"
	"time"
)

// hilPin is one host pin a port bit is mirrored onto.
type hilPin interface {
	Input()
	Output()
	High()
	Low()
	Read() bool
}

// hilPort mirrors a port onto host pins. Bits without a pin keep their
// value in the shadow registers only.
type hilPort struct {
	pins   [8]hilPin
	mapped uint8
	ddr    uint8
	port   uint8
}

func (p *hilPort) input() uint8 {
	v := p.port & p.ddr &^ p.mapped
	for i := 0; i < 8; i++ {
		bit := uint8(1 << i)
		if p.mapped&bit != 0 && p.pins[i].Read() {
			v |= bit
		}
	}
	return v
}

func (p *hilPort) applyDirection(old uint8) {
	for i := 0; i < 8; i++ {
		bit := uint8(1 << i)
		if p.mapped&bit == 0 || (old^p.ddr)&bit == 0 {
			continue
		}
		if p.ddr&bit != 0 {
			p.drive(i)
			p.pins[i].Output()
		} else {
			p.pins[i].Input()
		}
	}
}

func (p *hilPort) applyOutput() {
	for i := 0; i < 8; i++ {
		bit := uint8(1 << i)
		if p.mapped&bit != 0 && p.ddr&bit != 0 {
			p.drive(i)
		}
	}
}

func (p *hilPort) drive(i int) {
	if p.port&(1<<i) != 0 {
		p.pins[i].High()
	} else {
		p.pins[i].Low()
	}
}

type hilBank struct {
	mu       sync.Mutex
	ports    map[PortID]*hilPort
	observer func(Event)
}

// newHILBank builds a bank for ports, opening a host pin for every mapped
// bit of the pinout. Mapped pins start as inputs.
func newHILBank(config InitConfig, open func(n int) hilPin) *hilBank {
	b := &hilBank{
		ports:    make(map[PortID]*hilPort, len(config.Ports)),
		observer: config.Observer,
	}
	for _, id := range config.Ports {
		hp := &hilPort{}
		for i, n := range config.Pinout.Row(id) {
			if n == Unmapped {
				continue
			}
			pin := open(n)
			pin.Input()
			hp.pins[i] = pin
			hp.mapped |= 1 << i
		}
		b.ports[id] = hp
	}
	return b
}

func (b *hilBank) Register(class RegisterClass, port PortID) (Register, error) {
	if int(class) >= len(registerPrefixes) {
		return nil, unresolved(class, port)
	}
	if _, ok := b.ports[port]; !ok {
		return nil, unresolved(class, port)
	}
	return &hilRegister{bank: b, class: class, port: port}, nil
}

func (b *hilBank) Snapshot() map[string]uint8 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]uint8, len(b.ports)*len(RegisterClasses))
	for id, p := range b.ports {
		out[Direction.Name(id)] = p.ddr
		out[Output.Name(id)] = p.port
		out[Input.Name(id)] = p.input()
	}
	return out
}

// update applies fn under the bank lock. The observer runs under the lock
// too, so events arrive in register order.
func (b *hilBank) update(class RegisterClass, id PortID, fn func(uint8) uint8) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.ports[id]

	var ev Event
	switch class {
	case Direction:
		old := p.ddr
		p.ddr = fn(old)
		p.applyDirection(old)
		ev = Event{Register: class.Name(id), Old: old, New: p.ddr}
	case Output:
		old := p.port
		p.port = fn(old)
		p.applyOutput()
		ev = Event{Register: class.Name(id), Old: old, New: p.port}
	case Input:
		old := p.port
		p.port ^= fn(p.input())
		p.applyOutput()
		ev = Event{Register: Output.Name(id), Old: old, New: p.port}
	}

	if b.observer != nil && ev.Old != ev.New {
		ev.Time = time.Now()
		b.observer(ev)
	}
}

type hilRegister struct {
	bank  *hilBank
	class RegisterClass
	port  PortID
}

func (r *hilRegister) Get() uint8 {
	r.bank.mu.Lock()
	defer r.bank.mu.Unlock()

	p := r.bank.ports[r.port]
	switch r.class {
	case Direction:
		return p.ddr
	case Output:
		return p.port
	default:
		return p.input()
	}
}

func (r *hilRegister) Set(value uint8) {
	r.bank.update(r.class, r.port, func(uint8) uint8 { return value })
}

func (r *hilRegister) SetBits(value uint8) {
	if r.class == Input {
		r.Set(value)
		return
	}
	r.bank.update(r.class, r.port, func(v uint8) uint8 { return v | value })
}

func (r *hilRegister) ClearBits(value uint8) {
	if r.class == Input {
		r.Set(value)
		return
	}
	r.bank.update(r.class, r.port, func(v uint8) uint8 { return v &^ value })
}
