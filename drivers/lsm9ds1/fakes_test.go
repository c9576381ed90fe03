package lsm9ds1

import (
	"errors"
	"fmt"
)

var errBus = errors.New("bus fault")

// Compile-time check.
var _ Transport = (*memBus)(nil)

// memBus is a register file that stores writes and serves reads from them.
type memBus struct {
	regs [256]byte

	reads, writes int
	failRead      error
	failWrite     error

	ops   []string // "r 0x10" / "w 0x10=0x60" in call order
	wregs []uint8  // register of every write attempt
}

func (m *memBus) ReadRegister(reg uint8, buf []byte) error {
	m.reads++
	m.ops = append(m.ops, fmt.Sprintf("r %#02x", reg))
	if m.failRead != nil {
		return m.failRead
	}
	copy(buf, m.regs[int(reg):])
	return nil
}

func (m *memBus) WriteRegister(reg uint8, data []byte) error {
	m.writes++
	m.wregs = append(m.wregs, reg)
	m.ops = append(m.ops, fmt.Sprintf("w %#02x=%#02x", reg, data))
	if m.failWrite != nil {
		return m.failWrite
	}
	copy(m.regs[int(reg):], data)
	return nil
}

func newTestDevice() (*Device, *memBus, *memBus) {
	ag, mag := &memBus{}, &memBus{}
	return New(ag, mag), ag, mag
}
