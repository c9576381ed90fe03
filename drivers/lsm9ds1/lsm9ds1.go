// Package lsm9ds1 is a register-level driver for the ST LSM9DS1 inertial
// module: a 3D accelerometer and 3D gyroscope sharing one register space,
// and a 3D magnetometer in a second, independent register space.
//
// Design notes (datasheet references):
//   - Every setting is a bit field inside an 8-bit register. Sets are
//     read-modify-write through one primitive; nothing is cached.
//   - Settings that the hardware splits across both cores (BDU, SIM, BLE,
//     I2C disable, reset, reboot, interrupt polarity) write the accel/gyro
//     side first and the magnetometer side only if that succeeded. There is
//     no rollback.
//   - Operating modes spread over several fields decode through static
//     tables; an unlisted bit pattern decodes to the mode's fallback.
//   - Transport errors are returned unchanged. The driver adds no error kinds.
//   - Not safe for concurrent use; callers serialise access.
package lsm9ds1

import "errors"

// ErrBurstTooLong is returned by the bundled I2C/SPI transports when a
// transfer exceeds their fixed buffer.
var ErrBurstTooLong = errors.New("lsm9ds1: transfer exceeds transport buffer")

type Device struct {
	ag  Transport
	mag Transport

	// Fixed buffer for register reads.
	r [6]byte
}

// New binds a Device to the accelerometer/gyroscope and magnetometer
// transports. Either may be nil if the caller never touches that core.
func New(ag, mag Transport) *Device {
	return &Device{ag: ag, mag: mag}
}

func (d *Device) bus(s SubDevice) Transport {
	if s == Magnetometer {
		return d.mag
	}
	return d.ag
}

// ---------------- Register access ----------------

func (d *Device) readReg(s SubDevice, reg uint8) (uint8, error) {
	if err := d.bus(s).ReadRegister(reg, d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

func (d *Device) writeReg(s SubDevice, reg, v uint8) error {
	var w [1]byte
	w[0] = v
	return d.bus(s).WriteRegister(reg, w[:])
}

// fieldValue pairs a field with the value to encode into it.
type fieldValue struct {
	f Field
	v uint8
}

func set(f Field, v uint8) fieldValue { return fieldValue{f: f, v: v} }

// modifyFields is the read-modify-write primitive. All fields must live in
// the same register; a failed read aborts without writing.
func (d *Device) modifyFields(fvs ...fieldValue) error {
	if len(fvs) == 0 {
		return nil
	}
	dev, reg := fvs[0].f.Dev, fvs[0].f.Reg
	b, err := d.readReg(dev, reg)
	if err != nil {
		return err
	}
	for _, fv := range fvs {
		b = fv.f.Encode(b, fv.v)
	}
	return d.writeReg(dev, reg, b)
}

// Field reads the register holding f and returns the decoded field value.
func (d *Device) Field(f Field) (uint8, error) {
	b, err := d.readReg(f.Dev, f.Reg)
	if err != nil {
		return 0, err
	}
	return f.Decode(b), nil
}

// SetField updates f to v, leaving every other bit of its register as read.
// Bits of v above the field width are dropped.
func (d *Device) SetField(f Field, v uint8) error {
	return d.modifyFields(set(f, v))
}

func (d *Device) flag(f Field) (bool, error) {
	v, err := d.Field(f)
	return v != 0, err
}

func (d *Device) setFlag(f Field, on bool) error {
	return d.SetField(f, b2u(on))
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// readBlock reads n consecutive registers into the fixed buffer.
func (d *Device) readBlock(s SubDevice, reg uint8, n int) ([]byte, error) {
	buf := d.r[:n]
	if err := d.bus(s).ReadRegister(reg, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Device) writeBlock(s SubDevice, reg uint8, data []byte) error {
	return d.bus(s).WriteRegister(reg, data)
}
