package lsm9ds1

import (
	"tinygo.org/x/drivers"
)

// Transport moves bytes to and from one register address space. The driver
// borrows a Transport for the duration of each call and never retries;
// errors are returned to the caller unchanged.
type Transport interface {
	// ReadRegister fills buf with len(buf) consecutive registers from reg.
	ReadRegister(reg uint8, buf []byte) error
	// WriteRegister writes data to consecutive registers starting at reg.
	WriteRegister(reg uint8, data []byte) error
}

// TransportFuncs adapts a pair of functions to Transport.
type TransportFuncs struct {
	Read  func(reg uint8, buf []byte) error
	Write func(reg uint8, data []byte) error
}

func (t TransportFuncs) ReadRegister(reg uint8, buf []byte) error   { return t.Read(reg, buf) }
func (t TransportFuncs) WriteRegister(reg uint8, data []byte) error { return t.Write(reg, data) }

// Sub-address flags.
const (
	i2cAutoIncrement = 0x80 // magnetometer only; the AG core uses IF_ADD_INC
	spiRead          = 0x80
	spiMagIncrement  = 0x40
)

// maxBurst bounds a single transaction; the largest read is one output block.
const maxBurst = 8

// ---------------- I2C ----------------

// I2C is a Transport over a tinygo I2C bus at a fixed 7-bit address.
type I2C struct {
	bus  drivers.I2C
	addr uint16
	inc  uint8

	// Fixed buffers to avoid per-call heap allocations.
	w [1 + maxBurst]byte
}

// NewI2C returns the accelerometer/gyroscope transport. Multi-byte access
// relies on CTRL_REG8.IF_ADD_INC, which is set at reset.
func NewI2C(bus drivers.I2C, addr uint16) *I2C {
	if addr == 0 {
		addr = AddressAccelGyroHigh
	}
	return &I2C{bus: bus, addr: addr}
}

// NewMagI2C returns the magnetometer transport. The magnetometer needs
// bit 7 of the sub-address set to auto-increment across registers.
func NewMagI2C(bus drivers.I2C, addr uint16) *I2C {
	if addr == 0 {
		addr = AddressMagHigh
	}
	return &I2C{bus: bus, addr: addr, inc: i2cAutoIncrement}
}

func (t *I2C) ReadRegister(reg uint8, buf []byte) error {
	t.w[0] = reg
	if len(buf) > 1 {
		t.w[0] |= t.inc
	}
	return t.bus.Tx(t.addr, t.w[:1], buf)
}

func (t *I2C) WriteRegister(reg uint8, data []byte) error {
	if len(data) > maxBurst {
		return ErrBurstTooLong
	}
	t.w[0] = reg
	if len(data) > 1 {
		t.w[0] |= t.inc
	}
	n := copy(t.w[1:], data)
	return t.bus.Tx(t.addr, t.w[:1+n], nil)
}

// ---------------- SPI ----------------

// ChipSelect drives the CS line of one sub-device; true selects it.
type ChipSelect func(selected bool)

// SPI is a Transport over a tinygo SPI bus. SPI on this part is
// full-duplex: the first byte carries the sub-address, the rest the data.
type SPI struct {
	bus drivers.SPI
	cs  ChipSelect
	inc uint8

	w [1 + maxBurst]byte
	r [1 + maxBurst]byte
}

// NewSPI returns the accelerometer/gyroscope SPI transport.
func NewSPI(bus drivers.SPI, cs ChipSelect) *SPI {
	return &SPI{bus: bus, cs: cs}
}

// NewMagSPI returns the magnetometer SPI transport, which sets the MS bit
// on multi-byte transfers.
func NewMagSPI(bus drivers.SPI, cs ChipSelect) *SPI {
	return &SPI{bus: bus, cs: cs, inc: spiMagIncrement}
}

func (t *SPI) ReadRegister(reg uint8, buf []byte) error {
	n := len(buf)
	if n > maxBurst {
		return ErrBurstTooLong
	}
	t.w[0] = reg | spiRead
	if n > 1 {
		t.w[0] |= t.inc
	}
	for i := 1; i <= n; i++ {
		t.w[i] = 0
	}
	if err := t.tx(t.w[:1+n], t.r[:1+n]); err != nil {
		return err
	}
	copy(buf, t.r[1:1+n])
	return nil
}

func (t *SPI) WriteRegister(reg uint8, data []byte) error {
	n := len(data)
	if n > maxBurst {
		return ErrBurstTooLong
	}
	t.w[0] = reg &^ spiRead
	if n > 1 {
		t.w[0] |= t.inc
	}
	copy(t.w[1:], data)
	return t.tx(t.w[:1+n], t.r[:1+n])
}

func (t *SPI) tx(w, r []byte) error {
	if t.cs != nil {
		t.cs(true)
		defer t.cs(false)
	}
	return t.bus.Tx(w, r)
}
