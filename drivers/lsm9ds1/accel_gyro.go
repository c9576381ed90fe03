package lsm9ds1

import "lsm9ds1-go/x/mathx"

// ---------------- Full scale ----------------

func (d *Device) SetAccelScale(s AccelScale) error { return writeMode(d, &accelScales, s) }
func (d *Device) AccelScale() (AccelScale, error)  { return readMode(d, &accelScales) }
func (d *Device) SetGyroScale(s GyroScale) error   { return writeMode(d, &gyroScales, s) }
func (d *Device) GyroScale() (GyroScale, error)    { return readMode(d, &gyroScales) }

// ---------------- Axes ----------------

// Axes is a set of X/Y/Z enables or signs, X in bit 0.
type Axes uint8

const (
	AxisX Axes = 1 << iota
	AxisY
	AxisZ

	AllAxes = AxisX | AxisY | AxisZ
)

func (a Axes) Has(flag Axes) bool { return a&flag != 0 }

func (d *Device) SetAccelAxes(a Axes) error { return d.SetField(FieldEnXL, uint8(a)) }

func (d *Device) AccelAxes() (Axes, error) {
	v, err := d.Field(FieldEnXL)
	return Axes(v), err
}

func (d *Device) SetGyroAxes(a Axes) error { return d.SetField(FieldEnG, uint8(a)) }

func (d *Device) GyroAxes() (Axes, error) {
	v, err := d.Field(FieldEnG)
	return Axes(v), err
}

// ---------------- Accelerometer filtering ----------------

// Decimation of accelerometer samples fed to the output registers and FIFO.
type Decimation uint8

const (
	NoDecimation Decimation = iota
	DecimateBy2
	DecimateBy4
	DecimateBy8
)

func (d *Device) SetAccelDecimation(v Decimation) error { return d.SetField(FieldDec, uint8(v)) }

func (d *Device) AccelDecimation() (Decimation, error) {
	v, err := d.Field(FieldDec)
	return Decimation(v), err
}

// AccelHPBandwidth is the high-pass cutoff as an ODR divisor. It shares
// CTRL_REG7_XL.DCF with the low-pass selection.
type AccelHPBandwidth uint8

const (
	AccelHPODRDiv50 AccelHPBandwidth = iota
	AccelHPODRDiv100
	AccelHPODRDiv9
	AccelHPODRDiv400
)

func (d *Device) SetAccelHPBandwidth(b AccelHPBandwidth) error {
	return d.SetField(FieldDcf, uint8(b))
}

func (d *Device) AccelHPBandwidth() (AccelHPBandwidth, error) {
	v, err := d.Field(FieldDcf)
	return AccelHPBandwidth(v), err
}

// AccelFilter selects whether the internal high-pass filter feeds a path.
type AccelFilter uint8

const (
	AccelFilterBypass AccelFilter = iota
	AccelFilterHP
)

// SetAccelOutPath routes filtered data to the output registers and FIFO (FDS).
func (d *Device) SetAccelOutPath(f AccelFilter) error { return d.SetField(FieldFDS, uint8(f)) }

func (d *Device) AccelOutPath() (AccelFilter, error) {
	v, err := d.Field(FieldFDS)
	return AccelFilter(v), err
}

// SetAccelIntPath routes filtered data to the interrupt generator (HPIS1).
func (d *Device) SetAccelIntPath(f AccelFilter) error { return d.SetField(FieldHpis1, uint8(f)) }

func (d *Device) AccelIntPath() (AccelFilter, error) {
	v, err := d.Field(FieldHpis1)
	return AccelFilter(v), err
}

// ---------------- Gyroscope filtering and orientation ----------------

// GyroLPBandwidth selects the LPF2 cutoff; the frequency also depends on ODR.
type GyroLPBandwidth uint8

const (
	GyroLPStrong GyroLPBandwidth = iota
	GyroLPMedium
	GyroLPLight
	GyroLPUltraLight
)

func (d *Device) SetGyroLPBandwidth(b GyroLPBandwidth) error { return d.SetField(FieldBwG, uint8(b)) }

func (d *Device) GyroLPBandwidth() (GyroLPBandwidth, error) {
	v, err := d.Field(FieldBwG)
	return GyroLPBandwidth(v), err
}

// GyroHPBandwidth is the HPCF_G code, 0 (highest cutoff) to 9.
type GyroHPBandwidth uint8

const (
	GyroHPExtreme GyroHPBandwidth = iota
	GyroHPUltraStrong
	GyroHPStrong
	GyroHPUltraHigh
	GyroHPHigh
	GyroHPMedium
	GyroHPLow
	GyroHPUltraLow
	GyroHPLight
	GyroHPUltraLight
)

func (d *Device) SetGyroHPBandwidth(b GyroHPBandwidth) error {
	return d.SetField(FieldHpcfG, uint8(b))
}

func (d *Device) GyroHPBandwidth() (GyroHPBandwidth, error) {
	v, err := d.Field(FieldHpcfG)
	return GyroHPBandwidth(v), err
}

// SetGyroReference sets the high-pass filter reference value.
func (d *Device) SetGyroReference(v uint8) error { return d.SetField(FieldReferenceG, v) }
func (d *Device) GyroReference() (uint8, error)  { return d.Field(FieldReferenceG) }

// Orientation maps the gyroscope axes (ORIENT 0..5) and inverts signs.
type Orientation struct {
	Orient uint8
	Sign   Axes
}

func (d *Device) SetGyroOrientation(o Orientation) error {
	return d.modifyFields(set(FieldOrient, o.Orient), set(FieldSignG, uint8(o.Sign)))
}

func (d *Device) GyroOrientation() (Orientation, error) {
	b, err := d.readReg(AccelGyro, regOrientCfgG)
	if err != nil {
		return Orientation{}, err
	}
	return Orientation{Orient: FieldOrient.Decode(b), Sign: Axes(FieldSignG.Decode(b))}, nil
}

func (d *Device) SetGyroSleep(on bool) error { return d.setFlag(FieldSleepG, on) }
func (d *Device) GyroSleep() (bool, error)   { return d.flag(FieldSleepG) }

// ---------------- Interface and pins ----------------

// SetDataReadyMask masks data-ready until filter settling completes.
func (d *Device) SetDataReadyMask(on bool) error { return d.setFlag(FieldDrdyMaskBit, on) }
func (d *Device) DataReadyMask() (bool, error)   { return d.flag(FieldDrdyMaskBit) }

// SetAutoIncrement controls IF_ADD_INC on the accel/gyro core. Burst reads
// of output registers need it on.
func (d *Device) SetAutoIncrement(on bool) error { return d.setFlag(FieldIfAddInc, on) }
func (d *Device) AutoIncrement() (bool, error)   { return d.flag(FieldIfAddInc) }

type PinMode uint8

const (
	PushPull PinMode = iota
	OpenDrain
)

func (d *Device) SetPinMode(m PinMode) error { return d.SetField(FieldPpOd, uint8(m)) }

func (d *Device) PinMode() (PinMode, error) {
	v, err := d.Field(FieldPpOd)
	return PinMode(v), err
}

// ---------------- Self test ----------------

func (d *Device) SetAccelSelfTest(on bool) error { return d.setFlag(FieldStXL, on) }
func (d *Device) AccelSelfTest() (bool, error)   { return d.flag(FieldStXL) }
func (d *Device) SetGyroSelfTest(on bool) error  { return d.setFlag(FieldStG, on) }
func (d *Device) GyroSelfTest() (bool, error)    { return d.flag(FieldStG) }

// ---------------- FIFO ----------------

// FIFODepth is the number of slots in the FIFO.
const FIFODepth = 32

// SetFIFOWatermark sets the FTH level, clamped to the 5-bit field.
func (d *Device) SetFIFOWatermark(level uint8) error {
	return d.SetField(FieldFth, mathx.Clamp(level, 0, FieldFth.Max()))
}

func (d *Device) FIFOWatermark() (uint8, error) { return d.Field(FieldFth) }

func (d *Device) SetFIFOStopOnWatermark(on bool) error { return d.setFlag(FieldStopOnFth, on) }
func (d *Device) FIFOStopOnWatermark() (bool, error)   { return d.flag(FieldStopOnFth) }
func (d *Device) SetFIFOTemperature(on bool) error     { return d.setFlag(FieldFIFOTempEn, on) }
func (d *Device) FIFOTemperature() (bool, error)       { return d.flag(FieldFIFOTempEn) }

// FIFOStatus is one read of FIFO_SRC.
type FIFOStatus struct {
	Level     uint8
	Overrun   bool
	Watermark bool
}

func (d *Device) FIFOStatus() (FIFOStatus, error) {
	b, err := d.readReg(AccelGyro, regFIFOSrc)
	if err != nil {
		return FIFOStatus{}, err
	}
	return FIFOStatus{
		Level:     FieldFSS.Decode(b),
		Overrun:   FieldOvrn.Decode(b) != 0,
		Watermark: FieldFthFlag.Decode(b) != 0,
	}, nil
}

// ---------------- Interrupt routing ----------------

// Int1Bits mirrors INT1_CTRL.
type Int1Bits uint8

const (
	Int1AccelReady Int1Bits = 1 << iota
	Int1GyroReady
	Int1Boot
	Int1FIFOWatermark
	Int1FIFOOverrun
	Int1FIFOFull
	Int1AccelIntGen
	Int1GyroIntGen
)

func (b Int1Bits) Has(flag Int1Bits) bool { return b&flag != 0 }

// Int2Bits mirrors INT2_CTRL.
type Int2Bits uint8

const (
	Int2AccelReady Int2Bits = 1 << iota
	Int2GyroReady
	Int2TempReady
	Int2FIFOWatermark
	Int2FIFOOverrun
	Int2FIFOFull
	_
	Int2Inactivity
)

func (b Int2Bits) Has(flag Int2Bits) bool { return b&flag != 0 }

func (d *Device) SetInt1Route(b Int1Bits) error { return d.SetField(FieldInt1Ctrl, uint8(b)) }

func (d *Device) Int1Route() (Int1Bits, error) {
	v, err := d.Field(FieldInt1Ctrl)
	return Int1Bits(v), err
}

func (d *Device) SetInt2Route(b Int2Bits) error { return d.SetField(FieldInt2Ctrl, uint8(b)) }

func (d *Device) Int2Route() (Int2Bits, error) {
	v, err := d.Field(FieldInt2Ctrl)
	return Int2Bits(v), err
}

// ---------------- Activity / inactivity ----------------

// SetActivityThreshold sets ACT_THS (7 bits) and sleep-on-inactivity in
// one register write.
func (d *Device) SetActivityThreshold(ths uint8, sleepOnInactive bool) error {
	return d.modifyFields(set(FieldActThs, ths), set(FieldSleepOnInactEn, b2u(sleepOnInactive)))
}

func (d *Device) ActivityThreshold() (ths uint8, sleepOnInactive bool, err error) {
	b, err := d.readReg(AccelGyro, regActThs)
	if err != nil {
		return 0, false, err
	}
	return FieldActThs.Decode(b), FieldSleepOnInactEn.Decode(b) != 0, nil
}

func (d *Device) SetActivityDuration(v uint8) error { return d.SetField(FieldActDur, v) }
func (d *Device) ActivityDuration() (uint8, error)  { return d.Field(FieldActDur) }

// ---------------- Accelerometer interrupt generator ----------------

// AccelIntGen mirrors INT_GEN_CFG_XL.
type AccelIntGen uint8

const (
	AccelIntXLow AccelIntGen = 1 << iota
	AccelIntXHigh
	AccelIntYLow
	AccelIntYHigh
	AccelIntZLow
	AccelIntZHigh
	AccelInt6D
	AccelIntAND
)

func (b AccelIntGen) Has(flag AccelIntGen) bool { return b&flag != 0 }

func (d *Device) SetAccelIntGen(b AccelIntGen) error { return d.SetField(FieldIntGenCfgXL, uint8(b)) }

func (d *Device) AccelIntGen() (AccelIntGen, error) {
	v, err := d.Field(FieldIntGenCfgXL)
	return AccelIntGen(v), err
}

// SetAccelIntThreshold writes INT_GEN_THS_{X,Y,Z}_XL in order, stopping at
// the first failure.
func (d *Device) SetAccelIntThreshold(x, y, z uint8) error {
	for _, fv := range [...]fieldValue{
		set(FieldIntGenThsXXL, x),
		set(FieldIntGenThsYXL, y),
		set(FieldIntGenThsZXL, z),
	} {
		if err := d.SetField(fv.f, fv.v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) AccelIntThreshold() (x, y, z uint8, err error) {
	if x, err = d.Field(FieldIntGenThsXXL); err != nil {
		return
	}
	if y, err = d.Field(FieldIntGenThsYXL); err != nil {
		return
	}
	z, err = d.Field(FieldIntGenThsZXL)
	return
}

// Duration is an interrupt duration in ODR cycles and whether the
// generator waits that long before deasserting.
type Duration struct {
	Samples uint8
	Wait    bool
}

func (d *Device) SetAccelIntDuration(v Duration) error {
	return d.modifyFields(set(FieldDurXL, v.Samples), set(FieldWaitXL, b2u(v.Wait)))
}

func (d *Device) AccelIntDuration() (Duration, error) {
	b, err := d.readReg(AccelGyro, regIntGenDurXL)
	if err != nil {
		return Duration{}, err
	}
	return Duration{Samples: FieldDurXL.Decode(b), Wait: FieldWaitXL.Decode(b) != 0}, nil
}

func (d *Device) SetAccelIntLatch(on bool) error { return d.setFlag(FieldLirXL1, on) }
func (d *Device) AccelIntLatch() (bool, error)   { return d.flag(FieldLirXL1) }
func (d *Device) SetAccelInt4D(on bool) error    { return d.setFlag(Field4DXL1, on) }
func (d *Device) AccelInt4D() (bool, error)      { return d.flag(Field4DXL1) }

// AccelIntSource mirrors INT_GEN_SRC_XL. Reading it clears a latched event.
type AccelIntSource uint8

const (
	AccelSrcXLow AccelIntSource = 1 << iota
	AccelSrcXHigh
	AccelSrcYLow
	AccelSrcYHigh
	AccelSrcZLow
	AccelSrcZHigh
	AccelSrcActive
)

func (b AccelIntSource) Has(flag AccelIntSource) bool { return b&flag != 0 }

func (d *Device) AccelIntSource() (AccelIntSource, error) {
	v, err := d.Field(FieldIntGenSrcXL)
	return AccelIntSource(v), err
}

// ---------------- Gyroscope interrupt generator ----------------

// GyroIntGen mirrors INT_GEN_CFG_G, including the LIR_G latch bit.
type GyroIntGen uint8

const (
	GyroIntXLow GyroIntGen = 1 << iota
	GyroIntXHigh
	GyroIntYLow
	GyroIntYHigh
	GyroIntZLow
	GyroIntZHigh
	GyroIntLatch
	GyroIntAND
)

func (b GyroIntGen) Has(flag GyroIntGen) bool { return b&flag != 0 }

func (d *Device) SetGyroIntGen(b GyroIntGen) error { return d.SetField(FieldIntGenCfgG, uint8(b)) }

func (d *Device) GyroIntGen() (GyroIntGen, error) {
	v, err := d.Field(FieldIntGenCfgG)
	return GyroIntGen(v), err
}

// GyroThresholdMax is the largest 15-bit gyroscope interrupt threshold.
const GyroThresholdMax = 0x7FFF

var gyroThs = [3][2]Field{
	{FieldThsGXH, FieldThsGXL},
	{FieldThsGYH, FieldThsGYL},
	{FieldThsGZH, FieldThsGZL},
}

// SetGyroIntThreshold writes the 15-bit X, Y, Z thresholds, high byte
// first per axis. DCRM_G in the X high register is preserved.
func (d *Device) SetGyroIntThreshold(x, y, z uint16) error {
	for i, v := range [3]uint16{x, y, z} {
		v = mathx.Clamp(v, 0, GyroThresholdMax)
		if err := d.SetField(gyroThs[i][0], uint8(v>>8)); err != nil {
			return err
		}
		if err := d.SetField(gyroThs[i][1], uint8(v)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) GyroIntThreshold() (x, y, z uint16, err error) {
	var out [3]uint16
	for i := range gyroThs {
		h, err := d.Field(gyroThs[i][0])
		if err != nil {
			return 0, 0, 0, err
		}
		l, err := d.Field(gyroThs[i][1])
		if err != nil {
			return 0, 0, 0, err
		}
		out[i] = uint16(h)<<8 | uint16(l)
	}
	return out[0], out[1], out[2], nil
}

// GyroCounterMode selects how the duration counter behaves when the
// threshold is no longer exceeded.
type GyroCounterMode uint8

const (
	GyroCounterReset GyroCounterMode = iota
	GyroCounterDecrement
)

func (d *Device) SetGyroCounterMode(m GyroCounterMode) error { return d.SetField(FieldDcrmG, uint8(m)) }

func (d *Device) GyroCounterMode() (GyroCounterMode, error) {
	v, err := d.Field(FieldDcrmG)
	return GyroCounterMode(v), err
}

func (d *Device) SetGyroIntDuration(v Duration) error {
	return d.modifyFields(set(FieldDurG, v.Samples), set(FieldWaitG, b2u(v.Wait)))
}

func (d *Device) GyroIntDuration() (Duration, error) {
	b, err := d.readReg(AccelGyro, regIntGenDurG)
	if err != nil {
		return Duration{}, err
	}
	return Duration{Samples: FieldDurG.Decode(b), Wait: FieldWaitG.Decode(b) != 0}, nil
}

// GyroIntSource mirrors INT_GEN_SRC_G. Reading it clears a latched event.
type GyroIntSource uint8

const (
	GyroSrcXLow GyroIntSource = 1 << iota
	GyroSrcXHigh
	GyroSrcYLow
	GyroSrcYHigh
	GyroSrcZLow
	GyroSrcZHigh
	GyroSrcActive
)

func (b GyroIntSource) Has(flag GyroIntSource) bool { return b&flag != 0 }

func (d *Device) GyroIntSource() (GyroIntSource, error) {
	v, err := d.Field(FieldIntGenSrcG)
	return GyroIntSource(v), err
}

// ---------------- Data-ready flags ----------------

func (d *Device) AccelDataReady() (bool, error) { return d.flag(FieldXLDA) }
func (d *Device) GyroDataReady() (bool, error)  { return d.flag(FieldGDA) }
func (d *Device) TempDataReady() (bool, error)  { return d.flag(FieldTDA) }
