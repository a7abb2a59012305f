package gpio

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Event records a register changing value.
type Event struct {
	Register string    `json:"register"`
	Old      uint8     `json:"old"`
	New      uint8     `json:"new"`
	Time     time.Time `json:"time"`
}

// Driver is implemented by banks whose input levels can be driven from
// outside, standing in for the signals wired to input pins.
type Driver interface {
	Drive(port PortID, levels uint8) error
}

// Snapshotter is implemented by banks that can report every register.
type Snapshotter interface {
	Snapshot() map[string]uint8
}

type simPort struct {
	ddr      uint8
	port     uint8
	external uint8
}

// input is what PINx reads: driven levels for outputs, external levels for
// inputs.
func (p *simPort) input() uint8 {
	return (p.port & p.ddr) | (p.external &^ p.ddr)
}

// SimBank models the registers of a set of ports as plain memory.
//
// Writing PINx toggles the corresponding PORTx bits, as on the ATmega328P.
type SimBank struct {
	mu       sync.Mutex
	ports    map[PortID]*simPort
	observer func(Event)
	now      func() time.Time
}

type SimOption func(*SimBank)

// WithObserver registers fn to receive every register change, in the order
// the changes were applied. Writes that leave a register unchanged are not
// reported. fn runs under the bank lock and must not use the bank.
func WithObserver(fn func(Event)) SimOption {
	return func(b *SimBank) {
		b.observer = fn
	}
}

func WithClock(now func() time.Time) SimOption {
	return func(b *SimBank) {
		b.now = now
	}
}

func NewSimBank(ports []PortID, options ...SimOption) *SimBank {
	b := &SimBank{
		ports: make(map[PortID]*simPort, len(ports)),
		now:   time.Now,
	}
	for _, p := range ports {
		b.ports[p] = &simPort{}
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// Ports returns the simulated ports in letter order.
func (b *SimBank) Ports() []PortID {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]PortID, 0, len(b.ports))
	for p := range b.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *SimBank) Register(class RegisterClass, port PortID) (Register, error) {
	if int(class) >= len(registerPrefixes) {
		return nil, unresolved(class, port)
	}

	b.mu.Lock()
	_, ok := b.ports[port]
	b.mu.Unlock()
	if !ok {
		return nil, unresolved(class, port)
	}

	return &simRegister{bank: b, class: class, port: port}, nil
}

// Drive sets the external levels seen by the port's input bits.
func (b *SimBank) Drive(port PortID, levels uint8) error {
	b.mu.Lock()
	p, ok := b.ports[port]
	if !ok {
		b.mu.Unlock()
		return unresolved(Input, port)
	}
	old := p.input()
	p.external = levels
	b.notify(b.event(Input.Name(port), old, p.input()))
	b.mu.Unlock()
	return nil
}

func (b *SimBank) Snapshot() map[string]uint8 {
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

func (b *SimBank) event(name string, old, next uint8) Event {
	return Event{Register: name, Old: old, New: next, Time: b.now()}
}

func (b *SimBank) notify(ev Event) {
	if b.observer != nil && ev.Old != ev.New {
		b.observer(ev)
	}
}

// update applies fn to the register under the bank lock.
func (b *SimBank) update(class RegisterClass, id PortID, fn func(uint8) uint8) {
	b.mu.Lock()
	p := b.ports[id]

	var ev Event
	switch class {
	case Direction:
		old := p.ddr
		p.ddr = fn(old)
		ev = b.event(class.Name(id), old, p.ddr)
	case Output:
		old := p.port
		p.port = fn(old)
		ev = b.event(class.Name(id), old, p.port)
	case Input:
		old := p.port
		p.port ^= fn(p.input())
		ev = b.event(Output.Name(id), old, p.port)
	}
	b.notify(ev)
	b.mu.Unlock()
}

type simRegister struct {
	bank  *SimBank
	class RegisterClass
	port  PortID
}

func (r *simRegister) Get() uint8 {
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

func (r *simRegister) Set(value uint8) {
	r.bank.update(r.class, r.port, func(uint8) uint8 { return value })
}

// SetBits and ClearBits on PINx toggle the selected PORTx bits.
func (r *simRegister) SetBits(value uint8) {
	if r.class == Input {
		r.Set(value)
		return
	}
	r.bank.update(r.class, r.port, func(v uint8) uint8 { return v | value })
}

func (r *simRegister) ClearBits(value uint8) {
	if r.class == Input {
		r.Set(value)
		return
	}
	r.bank.update(r.class, r.port, func(v uint8) uint8 { return v &^ value })
}

func (r *simRegister) String() string {
	return fmt.Sprintf("%s (simulated)", r.class.Name(r.port))
}
