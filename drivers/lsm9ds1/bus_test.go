package lsm9ds1

import (
	"bytes"
	"testing"

	"tinygo.org/x/drivers"
)

// Compile-time checks.
var (
	_ drivers.I2C = (*fakeI2C)(nil)
	_ drivers.SPI = (*fakeSPI)(nil)
	_ Transport   = (*I2C)(nil)
	_ Transport   = (*SPI)(nil)
)

type fakeI2C struct {
	addr  uint16
	w     []byte
	reply []byte
	err   error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	f.w = append([]byte(nil), w...)
	copy(r, f.reply)
	return f.err
}

type fakeSPI struct {
	w     []byte
	reply []byte
}

func (f *fakeSPI) Tx(w, r []byte) error {
	f.w = append([]byte(nil), w...)
	copy(r, f.reply)
	return nil
}

func (f *fakeSPI) Transfer(b byte) (byte, error) { return 0, nil }

func TestI2CAccelGyroAddressing(t *testing.T) {
	bus := &fakeI2C{reply: []byte{0x68, 0x01}}
	tr := NewI2C(bus, 0)

	buf := make([]byte, 2)
	if err := tr.ReadRegister(regWhoAmI, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if bus.addr != AddressAccelGyroHigh {
		t.Fatalf("addr = %#02x", bus.addr)
	}
	// The accel/gyro core auto-increments via IF_ADD_INC, not the sub-address.
	if !bytes.Equal(bus.w, []byte{regWhoAmI}) || !bytes.Equal(buf, bus.reply) {
		t.Fatalf("w=% x buf=% x", bus.w, buf)
	}

	if err := tr.WriteRegister(regCtrlReg8, []byte{0x44}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(bus.w, []byte{regCtrlReg8, 0x44}) {
		t.Fatalf("w=% x", bus.w)
	}
}

func TestI2CMagnetometerAutoIncrement(t *testing.T) {
	bus := &fakeI2C{}
	tr := NewMagI2C(bus, AddressMagLow)

	if err := tr.ReadRegister(regOutXLM, make([]byte, 6)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if bus.addr != AddressMagLow || bus.w[0] != regOutXLM|0x80 {
		t.Fatalf("addr=%#02x sub=%#02x", bus.addr, bus.w[0])
	}
	if err := tr.ReadRegister(regWhoAmIM, make([]byte, 1)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if bus.w[0] != regWhoAmIM {
		t.Fatalf("single read set increment bit: %#02x", bus.w[0])
	}
	if err := tr.WriteRegister(regIntThsLM, []byte{0x34, 0x12}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(bus.w, []byte{regIntThsLM | 0x80, 0x34, 0x12}) {
		t.Fatalf("w=% x", bus.w)
	}
}

func TestI2CPassesTransportErrorThrough(t *testing.T) {
	bus := &fakeI2C{err: errBus}
	if err := NewI2C(bus, 0).ReadRegister(regWhoAmI, make([]byte, 1)); err != errBus {
		t.Fatalf("err = %v", err)
	}
	if err := NewI2C(bus, 0).WriteRegister(regOffsetXLM, make([]byte, maxBurst+1)); err != ErrBurstTooLong {
		t.Fatalf("err = %v", err)
	}
}

func TestSPIFraming(t *testing.T) {
	var cs []bool
	bus := &fakeSPI{reply: []byte{0xFF, 0x3D}}
	tr := NewMagSPI(bus, func(sel bool) { cs = append(cs, sel) })

	buf := make([]byte, 1)
	if err := tr.ReadRegister(regWhoAmIM, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if bus.w[0] != regWhoAmIM|0x80 || buf[0] != 0x3D {
		t.Fatalf("w=% x buf=% x", bus.w, buf)
	}
	if len(cs) != 2 || !cs[0] || cs[1] {
		t.Fatalf("chip select sequence %v", cs)
	}

	if err := tr.ReadRegister(regOutXLM, make([]byte, 6)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if bus.w[0] != regOutXLM|0x80|0x40 || len(bus.w) != 7 {
		t.Fatalf("burst read w=% x", bus.w)
	}

	if err := tr.WriteRegister(regCtrlReg1M, []byte{0x7C}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !bytes.Equal(bus.w, []byte{regCtrlReg1M, 0x7C}) {
		t.Fatalf("write w=% x", bus.w)
	}
}

func TestSPIAccelGyroNoIncrementBit(t *testing.T) {
	bus := &fakeSPI{}
	tr := NewSPI(bus, nil)
	if err := tr.ReadRegister(regOutXLG, make([]byte, 6)); err != nil {
		t.Fatalf("read: %v", err)
	}
	if bus.w[0] != regOutXLG|0x80 {
		t.Fatalf("sub-address %#02x", bus.w[0])
	}
}
