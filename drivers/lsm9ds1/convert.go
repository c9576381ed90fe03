package lsm9ds1

// Raw output words are two's complement. Sensitivities are the datasheet
// typicals; conversions are float32 so results match the reference
// figures exactly.

// ---------------- Accelerometer ----------------

type AccelScale uint8

const (
	Accel2g  AccelScale = 0
	Accel16g AccelScale = 1
	Accel4g  AccelScale = 2
	Accel8g  AccelScale = 3
)

var accelScales = modeTable[AccelScale]{
	layout: []part{
		{f: FieldFsXL},
	},
	entries: []modeEntry[AccelScale]{
		{Accel2g, "2g"},
		{Accel4g, "4g"},
		{Accel8g, "8g"},
		{Accel16g, "16g"},
	},
	fallback: Accel2g,
}

func (s AccelScale) String() string { return accelScales.name(s) }

// Sensitivity is in mg/LSB.
func (s AccelScale) Sensitivity() float32 {
	switch accelScales.decode(uint8(s)) {
	case Accel4g:
		return 0.122
	case Accel8g:
		return 0.244
	case Accel16g:
		return 0.732
	default:
		return 0.061
	}
}

// MilliG converts a raw accelerometer word.
func (s AccelScale) MilliG(lsb int16) float32 { return float32(lsb) * s.Sensitivity() }

func ParseAccelScale(s string) (AccelScale, bool) { return accelScales.parse(s) }

// ---------------- Gyroscope ----------------

type GyroScale uint8

const (
	Gyro245dps  GyroScale = 0
	Gyro500dps  GyroScale = 1
	Gyro2000dps GyroScale = 3
)

var gyroScales = modeTable[GyroScale]{
	layout: []part{
		{f: FieldFsG},
	},
	entries: []modeEntry[GyroScale]{
		{Gyro245dps, "245dps"},
		{Gyro500dps, "500dps"},
		{Gyro2000dps, "2000dps"},
	},
	fallback: Gyro245dps,
}

func (s GyroScale) String() string { return gyroScales.name(s) }

// Sensitivity is in mdps/LSB.
func (s GyroScale) Sensitivity() float32 {
	switch gyroScales.decode(uint8(s)) {
	case Gyro500dps:
		return 17.50
	case Gyro2000dps:
		return 70.0
	default:
		return 8.75
	}
}

// MilliDPS converts a raw gyroscope word.
func (s GyroScale) MilliDPS(lsb int16) float32 { return float32(lsb) * s.Sensitivity() }

func ParseGyroScale(s string) (GyroScale, bool) { return gyroScales.parse(s) }

// ---------------- Magnetometer ----------------

type MagScale uint8

const (
	Mag4Gauss MagScale = iota
	Mag8Gauss
	Mag12Gauss
	Mag16Gauss
)

var magScales = modeTable[MagScale]{
	layout: []part{
		{f: FieldFsM},
	},
	entries: []modeEntry[MagScale]{
		{Mag4Gauss, "4gauss"},
		{Mag8Gauss, "8gauss"},
		{Mag12Gauss, "12gauss"},
		{Mag16Gauss, "16gauss"},
	},
	fallback: Mag4Gauss,
}

func (s MagScale) String() string { return magScales.name(s) }

// Sensitivity is in mG/LSB.
func (s MagScale) Sensitivity() float32 {
	switch magScales.decode(uint8(s)) {
	case Mag8Gauss:
		return 0.29
	case Mag12Gauss:
		return 0.43
	case Mag16Gauss:
		return 0.58
	default:
		return 0.14
	}
}

// MilliGauss converts a raw magnetometer word.
func (s MagScale) MilliGauss(lsb int16) float32 { return float32(lsb) * s.Sensitivity() }

func ParseMagScale(s string) (MagScale, bool) { return magScales.parse(s) }

// ---------------- Temperature ----------------

// TemperatureCelsius converts OUT_TEMP: 16 LSB/°C, 0 at 25 °C.
func TemperatureCelsius(lsb int16) float32 {
	return float32(lsb)/16.0 + 25.0
}
