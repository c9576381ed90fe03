package lsm9ds1

import "periph.io/x/conn/v3/physic"

// ---------------- Composite mode tables ----------------

// part places one field's value at a fixed bit position of a mode key.
type part struct {
	f     Field
	shift uint8
	// mirror parts are written on set but ignored on decode.
	mirror bool
}

type modeEntry[M ~uint8] struct {
	mode M
	name string
}

// modeTable maps mode keys to named modes. A key that matches no entry
// decodes to fallback.
type modeTable[M ~uint8] struct {
	layout   []part
	entries  []modeEntry[M]
	fallback M
}

func (t *modeTable[M]) decode(key uint8) M {
	for _, e := range t.entries {
		if uint8(e.mode) == key {
			return e.mode
		}
	}
	return t.fallback
}

func (t *modeTable[M]) name(m M) string {
	for _, e := range t.entries {
		if e.mode == m {
			return e.name
		}
	}
	return "unknown"
}

func (t *modeTable[M]) parse(s string) (M, bool) {
	for _, e := range t.entries {
		if e.name == s {
			return e.mode, true
		}
	}
	return t.fallback, false
}

func (t *modeTable[M]) names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.name
	}
	return out
}

// readMode builds the key from every non-mirror part. Parts sharing a
// register are served by one read.
func readMode[M ~uint8](d *Device, t *modeTable[M]) (M, error) {
	var (
		key    uint8
		cached bool
		cur    Field
		b      uint8
	)
	for _, p := range t.layout {
		if p.mirror {
			continue
		}
		if !cached || cur.Dev != p.f.Dev || cur.Reg != p.f.Reg {
			v, err := d.readReg(p.f.Dev, p.f.Reg)
			if err != nil {
				return t.fallback, err
			}
			b, cur, cached = v, p.f, true
		}
		key |= p.f.Decode(b) << p.shift
	}
	return t.decode(key), nil
}

// writeMode splits m back into its fields and writes them in layout order.
// Consecutive parts in one register share a read-modify-write. The first
// failure stops the sequence; earlier registers keep their new values.
func writeMode[M ~uint8](d *Device, t *modeTable[M], m M) error {
	key := uint8(m)
	var buf [4]fieldValue
	batch := buf[:0]
	for i, p := range t.layout {
		batch = append(batch, set(p.f, (key>>p.shift)&p.f.Max()))
		last := i == len(t.layout)-1
		if last || t.layout[i+1].f.Dev != p.f.Dev || t.layout[i+1].f.Reg != p.f.Reg {
			if err := d.modifyFields(batch...); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	return nil
}

// ---------------- Accelerometer / gyroscope data rate ----------------

// IMUDataRate is the joint accel/gyro output data rate and power mode.
// Key layout: LP_MODE bit 7, ODR_XL bits 6:4, ODR_G bits 2:0. With both
// sensors on the accelerometer runs at the gyroscope rate.
type IMUDataRate uint8

const (
	IMUOff IMUDataRate = 0x00

	GyroOffAccel10Hz  IMUDataRate = 0x10
	GyroOffAccel50Hz  IMUDataRate = 0x20
	GyroOffAccel119Hz IMUDataRate = 0x30
	GyroOffAccel238Hz IMUDataRate = 0x40
	GyroOffAccel476Hz IMUDataRate = 0x50
	GyroOffAccel952Hz IMUDataRate = 0x60

	AccelOffGyro14Hz9 IMUDataRate = 0x01
	AccelOffGyro59Hz5 IMUDataRate = 0x02
	AccelOffGyro119Hz IMUDataRate = 0x03
	AccelOffGyro238Hz IMUDataRate = 0x04
	AccelOffGyro476Hz IMUDataRate = 0x05
	AccelOffGyro952Hz IMUDataRate = 0x06

	IMU14Hz9 IMUDataRate = 0x11
	IMU59Hz5 IMUDataRate = 0x22
	IMU119Hz IMUDataRate = 0x33
	IMU238Hz IMUDataRate = 0x44
	IMU476Hz IMUDataRate = 0x55
	IMU952Hz IMUDataRate = 0x66

	AccelOffGyro14Hz9LP IMUDataRate = 0x81
	AccelOffGyro59Hz5LP IMUDataRate = 0x82
	AccelOffGyro119HzLP IMUDataRate = 0x83

	IMU14Hz9LP IMUDataRate = 0x91
	IMU59Hz5LP IMUDataRate = 0xA2
	IMU119HzLP IMUDataRate = 0xB3
)

var imuRates = modeTable[IMUDataRate]{
	layout: []part{
		{f: FieldOdrG, shift: 0},
		{f: FieldOdrXL, shift: 4},
		{f: FieldLpMode, shift: 7},
	},
	entries: []modeEntry[IMUDataRate]{
		{IMUOff, "off"},
		{GyroOffAccel10Hz, "xl-10Hz"},
		{GyroOffAccel50Hz, "xl-50Hz"},
		{GyroOffAccel119Hz, "xl-119Hz"},
		{GyroOffAccel238Hz, "xl-238Hz"},
		{GyroOffAccel476Hz, "xl-476Hz"},
		{GyroOffAccel952Hz, "xl-952Hz"},
		{AccelOffGyro14Hz9, "gy-14.9Hz"},
		{AccelOffGyro59Hz5, "gy-59.5Hz"},
		{AccelOffGyro119Hz, "gy-119Hz"},
		{AccelOffGyro238Hz, "gy-238Hz"},
		{AccelOffGyro476Hz, "gy-476Hz"},
		{AccelOffGyro952Hz, "gy-952Hz"},
		{IMU14Hz9, "14.9Hz"},
		{IMU59Hz5, "59.5Hz"},
		{IMU119Hz, "119Hz"},
		{IMU238Hz, "238Hz"},
		{IMU476Hz, "476Hz"},
		{IMU952Hz, "952Hz"},
		{AccelOffGyro14Hz9LP, "gy-14.9Hz-lp"},
		{AccelOffGyro59Hz5LP, "gy-59.5Hz-lp"},
		{AccelOffGyro119HzLP, "gy-119Hz-lp"},
		{IMU14Hz9LP, "14.9Hz-lp"},
		{IMU59Hz5LP, "59.5Hz-lp"},
		{IMU119HzLP, "119Hz-lp"},
	},
	fallback: IMUOff,
}

var (
	accelODR = [...]physic.Frequency{0, 10 * physic.Hertz, 50 * physic.Hertz, 119 * physic.Hertz,
		238 * physic.Hertz, 476 * physic.Hertz, 952 * physic.Hertz, 0}
	gyroODR = [...]physic.Frequency{0, 14900 * physic.MilliHertz, 59500 * physic.MilliHertz, 119 * physic.Hertz,
		238 * physic.Hertz, 476 * physic.Hertz, 952 * physic.Hertz, 0}
)

func (r IMUDataRate) String() string { return imuRates.name(r) }

// GyroFrequency is the gyroscope output rate, zero when it is off.
func (r IMUDataRate) GyroFrequency() physic.Frequency { return gyroODR[uint8(r)&0x07] }

// AccelFrequency is the accelerometer output rate, zero when it is off.
func (r IMUDataRate) AccelFrequency() physic.Frequency {
	if uint8(r)&0x70 == 0 {
		return 0
	}
	if g := r.GyroFrequency(); g != 0 {
		return g
	}
	return accelODR[(uint8(r)>>4)&0x07]
}

// LowPower reports whether the gyroscope low-power mode is selected.
func (r IMUDataRate) LowPower() bool { return uint8(r)&0x80 != 0 }

func ParseIMUDataRate(s string) (IMUDataRate, bool) { return imuRates.parse(s) }
func IMUDataRateNames() []string                    { return imuRates.names() }

// SetIMUDataRate writes CTRL_REG1_G.ODR_G, then CTRL_REG6_XL.ODR_XL, then
// CTRL_REG3_G.LP_MODE.
func (d *Device) SetIMUDataRate(r IMUDataRate) error { return writeMode(d, &imuRates, r) }

func (d *Device) IMUDataRate() (IMUDataRate, error) { return readMode(d, &imuRates) }

// ---------------- Magnetometer data rate ----------------

// MagDataRate is the magnetometer output data rate and operating mode.
// Key layout: MD bits 7:6, OM bits 5:4, FAST_ODR bit 3, DO bits 2:0.
type MagDataRate uint8

const (
	MagLP0Hz625 MagDataRate = 0x00 + iota
	MagLP1Hz25
	MagLP2Hz5
	MagLP5Hz
	MagLP10Hz
	MagLP20Hz
	MagLP40Hz
	MagLP80Hz
)

const (
	MagMP0Hz625 MagDataRate = 0x10 + iota
	MagMP1Hz25
	MagMP2Hz5
	MagMP5Hz
	MagMP10Hz
	MagMP20Hz
	MagMP40Hz
	MagMP80Hz
)

const (
	MagHP0Hz625 MagDataRate = 0x20 + iota
	MagHP1Hz25
	MagHP2Hz5
	MagHP5Hz
	MagHP10Hz
	MagHP20Hz
	MagHP40Hz
	MagHP80Hz
)

const (
	MagUHP0Hz625 MagDataRate = 0x30 + iota
	MagUHP1Hz25
	MagUHP2Hz5
	MagUHP5Hz
	MagUHP10Hz
	MagUHP20Hz
	MagUHP40Hz
	MagUHP80Hz
)

const (
	MagLP1000Hz  MagDataRate = 0x08
	MagMP560Hz   MagDataRate = 0x18
	MagHP300Hz   MagDataRate = 0x28
	MagUHP155Hz  MagDataRate = 0x38
	MagOneShot   MagDataRate = 0x70
	MagPowerDown MagDataRate = 0xC0
)

var magRates = modeTable[MagDataRate]{
	layout: []part{
		{f: FieldDO, shift: 0},
		{f: FieldFastODR, shift: 3},
		{f: FieldOM, shift: 4},
		{f: FieldOMZ, shift: 4, mirror: true},
		{f: FieldMD, shift: 6},
	},
	entries: []modeEntry[MagDataRate]{
		{MagLP0Hz625, "lp-0.625Hz"}, {MagLP1Hz25, "lp-1.25Hz"}, {MagLP2Hz5, "lp-2.5Hz"}, {MagLP5Hz, "lp-5Hz"},
		{MagLP10Hz, "lp-10Hz"}, {MagLP20Hz, "lp-20Hz"}, {MagLP40Hz, "lp-40Hz"}, {MagLP80Hz, "lp-80Hz"},
		{MagMP0Hz625, "mp-0.625Hz"}, {MagMP1Hz25, "mp-1.25Hz"}, {MagMP2Hz5, "mp-2.5Hz"}, {MagMP5Hz, "mp-5Hz"},
		{MagMP10Hz, "mp-10Hz"}, {MagMP20Hz, "mp-20Hz"}, {MagMP40Hz, "mp-40Hz"}, {MagMP80Hz, "mp-80Hz"},
		{MagHP0Hz625, "hp-0.625Hz"}, {MagHP1Hz25, "hp-1.25Hz"}, {MagHP2Hz5, "hp-2.5Hz"}, {MagHP5Hz, "hp-5Hz"},
		{MagHP10Hz, "hp-10Hz"}, {MagHP20Hz, "hp-20Hz"}, {MagHP40Hz, "hp-40Hz"}, {MagHP80Hz, "hp-80Hz"},
		{MagUHP0Hz625, "uhp-0.625Hz"}, {MagUHP1Hz25, "uhp-1.25Hz"}, {MagUHP2Hz5, "uhp-2.5Hz"}, {MagUHP5Hz, "uhp-5Hz"},
		{MagUHP10Hz, "uhp-10Hz"}, {MagUHP20Hz, "uhp-20Hz"}, {MagUHP40Hz, "uhp-40Hz"}, {MagUHP80Hz, "uhp-80Hz"},
		{MagLP1000Hz, "lp-1000Hz"},
		{MagMP560Hz, "mp-560Hz"},
		{MagHP300Hz, "hp-300Hz"},
		{MagUHP155Hz, "uhp-155Hz"},
		{MagOneShot, "one-shot"},
		{MagPowerDown, "power-down"},
	},
	fallback: MagPowerDown,
}

var (
	magODR = [...]physic.Frequency{625 * physic.MilliHertz, 1250 * physic.MilliHertz, 2500 * physic.MilliHertz,
		5 * physic.Hertz, 10 * physic.Hertz, 20 * physic.Hertz, 40 * physic.Hertz, 80 * physic.Hertz}
	magFastODR = [...]physic.Frequency{1000 * physic.Hertz, 560 * physic.Hertz, 300 * physic.Hertz, 155 * physic.Hertz}
)

func (r MagDataRate) String() string { return magRates.name(r) }

// Frequency is the continuous-mode output rate; zero for one-shot and
// power-down.
func (r MagDataRate) Frequency() physic.Frequency {
	if uint8(r)>>6 != 0 {
		return 0
	}
	if uint8(r)&0x08 != 0 {
		return magFastODR[(uint8(r)>>4)&0x03]
	}
	return magODR[uint8(r)&0x07]
}

func ParseMagDataRate(s string) (MagDataRate, bool) { return magRates.parse(s) }
func MagDataRateNames() []string                    { return magRates.names() }

// SetMagDataRate writes CTRL_REG1_M (OM, DO, FAST_ODR), copies OM into
// CTRL_REG4_M.OMZ, then writes CTRL_REG3_M.MD.
func (d *Device) SetMagDataRate(r MagDataRate) error { return writeMode(d, &magRates, r) }

func (d *Device) MagDataRate() (MagDataRate, error) { return readMode(d, &magRates) }

// ---------------- FIFO mode ----------------

// FIFOMode combines CTRL_REG9.FIFO_EN (key bit 4) with FIFO_CTRL.FMODE.
type FIFOMode uint8

const (
	FIFOOff            FIFOMode = 0x00
	FIFOBypass         FIFOMode = 0x10
	FIFOStopWhenFull   FIFOMode = 0x11
	FIFOStreamToFIFO   FIFOMode = 0x13
	FIFOBypassToStream FIFOMode = 0x14
	FIFOStream         FIFOMode = 0x16
)

var fifoModes = modeTable[FIFOMode]{
	layout: []part{
		{f: FieldFIFOEn, shift: 4},
		{f: FieldFMode, shift: 0},
	},
	entries: []modeEntry[FIFOMode]{
		{FIFOOff, "off"},
		{FIFOBypass, "bypass"},
		{FIFOStopWhenFull, "fifo"},
		{FIFOStreamToFIFO, "stream-to-fifo"},
		{FIFOBypassToStream, "bypass-to-stream"},
		{FIFOStream, "stream"},
	},
	fallback: FIFOOff,
}

func (m FIFOMode) String() string { return fifoModes.name(m) }

func ParseFIFOMode(s string) (FIFOMode, bool) { return fifoModes.parse(s) }
func FIFOModeNames() []string                 { return fifoModes.names() }

func (d *Device) SetFIFOMode(m FIFOMode) error { return writeMode(d, &fifoModes, m) }

func (d *Device) FIFOMode() (FIFOMode, error) { return readMode(d, &fifoModes) }

// ---------------- Gyroscope filter chain ----------------

// GyroPath selects the filter chain feeding the gyroscope output registers
// or the interrupt generator. Key layout: HP_EN bit 4, OUT_SEL/INT_SEL bits 1:0.
type GyroPath uint8

const (
	GyroLPF1        GyroPath = 0x00
	GyroLPF1HPF     GyroPath = 0x11
	GyroLPF1LPF2    GyroPath = 0x02
	GyroLPF1HPFLPF2 GyroPath = 0x12
)

var gyroPathEntries = []modeEntry[GyroPath]{
	{GyroLPF1, "lpf1"},
	{GyroLPF1HPF, "lpf1-hpf"},
	{GyroLPF1LPF2, "lpf1-lpf2"},
	{GyroLPF1HPFLPF2, "lpf1-hpf-lpf2"},
}

var (
	gyroOutPaths = modeTable[GyroPath]{
		layout: []part{
			{f: FieldOutSel, shift: 0},
			{f: FieldHpEn, shift: 4},
		},
		entries:  gyroPathEntries,
		fallback: GyroLPF1,
	}
	gyroIntPaths = modeTable[GyroPath]{
		layout: []part{
			{f: FieldIntSel, shift: 0},
			{f: FieldHpEn, shift: 4},
		},
		entries:  gyroPathEntries,
		fallback: GyroLPF1,
	}
)

func (p GyroPath) String() string { return gyroOutPaths.name(p) }

func ParseGyroPath(s string) (GyroPath, bool) { return gyroOutPaths.parse(s) }

// SetGyroOutPath selects the output register filter chain. HP_EN is shared
// with the interrupt path.
func (d *Device) SetGyroOutPath(p GyroPath) error { return writeMode(d, &gyroOutPaths, p) }

func (d *Device) GyroOutPath() (GyroPath, error) { return readMode(d, &gyroOutPaths) }

func (d *Device) SetGyroIntPath(p GyroPath) error { return writeMode(d, &gyroIntPaths, p) }

func (d *Device) GyroIntPath() (GyroPath, error) { return readMode(d, &gyroIntPaths) }

// ---------------- Accelerometer bandwidth ----------------

// AccelAABandwidth is the anti-aliasing filter bandwidth. Auto follows ODR.
type AccelAABandwidth uint8

const (
	AccelAAAuto  AccelAABandwidth = 0x00
	AccelAA408Hz AccelAABandwidth = 0x10
	AccelAA211Hz AccelAABandwidth = 0x11
	AccelAA105Hz AccelAABandwidth = 0x12
	AccelAA50Hz  AccelAABandwidth = 0x13
)

var accelAABandwidths = modeTable[AccelAABandwidth]{
	layout: []part{
		{f: FieldBwXL, shift: 0},
		{f: FieldBwScalODR, shift: 4},
	},
	entries: []modeEntry[AccelAABandwidth]{
		{AccelAAAuto, "auto"},
		{AccelAA408Hz, "408Hz"},
		{AccelAA211Hz, "211Hz"},
		{AccelAA105Hz, "105Hz"},
		{AccelAA50Hz, "50Hz"},
	},
	fallback: AccelAAAuto,
}

func (b AccelAABandwidth) String() string { return accelAABandwidths.name(b) }

func ParseAccelAABandwidth(s string) (AccelAABandwidth, bool) { return accelAABandwidths.parse(s) }

func (d *Device) SetAccelAABandwidth(b AccelAABandwidth) error {
	return writeMode(d, &accelAABandwidths, b)
}

func (d *Device) AccelAABandwidth() (AccelAABandwidth, error) {
	return readMode(d, &accelAABandwidths)
}

// AccelLPBandwidth is the high-resolution low-pass cutoff as an ODR divisor.
type AccelLPBandwidth uint8

const (
	AccelLPDisabled  AccelLPBandwidth = 0x00
	AccelLPODRDiv50  AccelLPBandwidth = 0x10
	AccelLPODRDiv100 AccelLPBandwidth = 0x11
	AccelLPODRDiv9   AccelLPBandwidth = 0x12
	AccelLPODRDiv400 AccelLPBandwidth = 0x13
)

var accelLPBandwidths = modeTable[AccelLPBandwidth]{
	layout: []part{
		{f: FieldDcf, shift: 0},
		{f: FieldHR, shift: 4},
	},
	entries: []modeEntry[AccelLPBandwidth]{
		{AccelLPDisabled, "off"},
		{AccelLPODRDiv50, "odr/50"},
		{AccelLPODRDiv100, "odr/100"},
		{AccelLPODRDiv9, "odr/9"},
		{AccelLPODRDiv400, "odr/400"},
	},
	fallback: AccelLPDisabled,
}

func (b AccelLPBandwidth) String() string { return accelLPBandwidths.name(b) }

func ParseAccelLPBandwidth(s string) (AccelLPBandwidth, bool) { return accelLPBandwidths.parse(s) }

func (d *Device) SetAccelLPBandwidth(b AccelLPBandwidth) error {
	return writeMode(d, &accelLPBandwidths, b)
}

func (d *Device) AccelLPBandwidth() (AccelLPBandwidth, error) {
	return readMode(d, &accelLPBandwidths)
}
