package lsm9ds1

import "lsm9ds1-go/x/mathx"

func (d *Device) SetMagScale(s MagScale) error { return writeMode(d, &magScales, s) }
func (d *Device) MagScale() (MagScale, error)  { return readMode(d, &magScales) }

func (d *Device) SetMagSelfTest(on bool) error { return d.setFlag(FieldStM, on) }
func (d *Device) MagSelfTest() (bool, error)   { return d.flag(FieldStM) }

// SetMagTempCompensation enables temperature compensation of the magnetometer.
func (d *Device) SetMagTempCompensation(on bool) error { return d.setFlag(FieldTempComp, on) }
func (d *Device) MagTempCompensation() (bool, error)   { return d.flag(FieldTempComp) }

// SetMagLowPower forces the 0.625 Hz low-power configuration regardless of DO.
func (d *Device) SetMagLowPower(on bool) error { return d.setFlag(FieldLPM, on) }
func (d *Device) MagLowPower() (bool, error)   { return d.flag(FieldLPM) }

// ---------------- Hard-iron offset ----------------

// SetMagOffset writes OFFSET_{X,Y,Z}_REG_M as three little-endian words.
func (d *Device) SetMagOffset(x, y, z int16) error {
	var b [6]byte
	for i, v := range [3]int16{x, y, z} {
		b[2*i] = byte(v)
		b[2*i+1] = byte(uint16(v) >> 8)
	}
	return d.writeBlock(Magnetometer, regOffsetXLM, b[:])
}

func (d *Device) MagOffset() (x, y, z int16, err error) {
	b, err := d.readBlock(Magnetometer, regOffsetXLM, 6)
	if err != nil {
		return 0, 0, 0, err
	}
	v := RawBuffer(b).Vector()
	return v[0], v[1], v[2], nil
}

// ---------------- Interrupt ----------------

// MagIntBits mirrors INT_CFG_M without IEA, which belongs to SetPinPolarity.
type MagIntBits uint8

const (
	MagIntEnable   MagIntBits = 1 << 0
	MagIntNoLatch  MagIntBits = 1 << 1
	MagIntZ        MagIntBits = 1 << 5
	MagIntY        MagIntBits = 1 << 6
	MagIntX        MagIntBits = 1 << 7
	magIntWritable MagIntBits = MagIntEnable | MagIntNoLatch | MagIntZ | MagIntY | MagIntX
)

func (b MagIntBits) Has(flag MagIntBits) bool { return b&flag != 0 }

// SetMagIntConfig updates IEN, IEL and the axis enables in one write,
// leaving IEA as read.
func (d *Device) SetMagIntConfig(b MagIntBits) error {
	b &= magIntWritable
	return d.modifyFields(
		set(FieldIEN, uint8(b)),
		set(FieldIEL, uint8(b)>>1),
		set(FieldXYZIEN, uint8(b)>>5),
	)
}

func (d *Device) MagIntConfig() (MagIntBits, error) {
	v, err := d.Field(FieldIntCfgM)
	return MagIntBits(v) & magIntWritable, err
}

// MagThresholdMax is the largest magnetometer interrupt threshold.
const MagThresholdMax = 0x7FFF

// SetMagIntThreshold writes INT_THS_L_M and INT_THS_H_M in one transfer.
// The value is unsigned and compared against the absolute axis reading.
func (d *Device) SetMagIntThreshold(v uint16) error {
	v = mathx.Clamp(v, 0, MagThresholdMax)
	b := [2]byte{byte(v), byte(v >> 8)}
	return d.writeBlock(Magnetometer, regIntThsLM, b[:])
}

func (d *Device) MagIntThreshold() (uint16, error) {
	b, err := d.readBlock(Magnetometer, regIntThsLM, 2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1]&0x7F)<<8, nil
}

// MagIntSource mirrors INT_SRC_M.
type MagIntSource uint8

const (
	MagSrcInt MagIntSource = 1 << iota
	MagSrcOverflow
	MagSrcNegZ
	MagSrcNegY
	MagSrcNegX
	MagSrcPosZ
	MagSrcPosY
	MagSrcPosX
)

func (b MagIntSource) Has(flag MagIntSource) bool { return b&flag != 0 }

func (d *Device) MagIntSource() (MagIntSource, error) {
	v, err := d.Field(FieldIntSrcM)
	return MagIntSource(v), err
}

// ---------------- Flags ----------------

// MagDataReady reports ZYXDA: a new X, Y and Z set is available.
func (d *Device) MagDataReady() (bool, error) { return d.flag(FieldZYXDA) }

// MagOverrun reports ZYXOR: a set was overwritten before being read.
func (d *Device) MagOverrun() (bool, error) { return d.flag(FieldZYXOR) }

// MagOverflow reports MROI: the measurement range was exceeded.
func (d *Device) MagOverflow() (bool, error) { return d.flag(FieldMROI) }
