package lsm9ds1

// RawBuffer is one X/Y/Z output block as read from the device.
type RawBuffer [6]byte

// Vector decodes the block as three little-endian words, the layout with
// BLE cleared (the reset default).
func (b RawBuffer) Vector() [3]int16 {
	return [3]int16{
		int16(uint16(b[0]) | uint16(b[1])<<8),
		int16(uint16(b[2]) | uint16(b[3])<<8),
		int16(uint16(b[4]) | uint16(b[5])<<8),
	}
}

func (d *Device) readVector(s SubDevice, reg uint8) (RawBuffer, error) {
	var out RawBuffer
	b, err := d.readBlock(s, reg, len(out))
	if err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// AngularRateRaw reads OUT_X_G..OUT_Z_G.
func (d *Device) AngularRateRaw() (RawBuffer, error) { return d.readVector(AccelGyro, regOutXLG) }

// AccelerationRaw reads OUT_X_XL..OUT_Z_XL.
func (d *Device) AccelerationRaw() (RawBuffer, error) { return d.readVector(AccelGyro, regOutXLXL) }

// MagneticRaw reads OUT_X_M..OUT_Z_M.
func (d *Device) MagneticRaw() (RawBuffer, error) { return d.readVector(Magnetometer, regOutXLM) }

// TemperatureRaw reads OUT_TEMP as a signed word.
func (d *Device) TemperatureRaw() (int16, error) {
	b, err := d.readBlock(AccelGyro, regOutTempL, 2)
	if err != nil {
		return 0, err
	}
	return int16(uint16(b[0]) | uint16(b[1])<<8), nil
}

// Sample holds one raw reading of every output.
type Sample struct {
	Gyro  [3]int16
	Accel [3]int16
	Mag   [3]int16
	Temp  int16
}

// ReadSample reads gyroscope, accelerometer, magnetometer and temperature in
// that order, stopping at the first failure.
func (d *Device) ReadSample() (Sample, error) {
	var s Sample
	g, err := d.AngularRateRaw()
	if err != nil {
		return s, err
	}
	s.Gyro = g.Vector()
	a, err := d.AccelerationRaw()
	if err != nil {
		return s, err
	}
	s.Accel = a.Vector()
	m, err := d.MagneticRaw()
	if err != nil {
		return s, err
	}
	s.Mag = m.Vector()
	if s.Temp, err = d.TemperatureRaw(); err != nil {
		return s, err
	}
	return s, nil
}

// Scales is the full-scale configuration a Sample was taken with.
type Scales struct {
	Accel AccelScale
	Gyro  GyroScale
	Mag   MagScale
}

// Scales reads the three full-scale settings.
func (d *Device) Scales() (Scales, error) {
	var sc Scales
	var err error
	if sc.Accel, err = d.AccelScale(); err != nil {
		return sc, err
	}
	if sc.Gyro, err = d.GyroScale(); err != nil {
		return sc, err
	}
	sc.Mag, err = d.MagScale()
	return sc, err
}

// Reading is a Sample in engineering units: mg, mdps, mG and °C.
type Reading struct {
	Accel [3]float32
	Gyro  [3]float32
	Mag   [3]float32
	TempC float32
}

// Convert applies the sensitivities of sc to s. sc must match the device
// configuration at the time s was read.
func (sc Scales) Convert(s Sample) Reading {
	var r Reading
	for i := 0; i < 3; i++ {
		r.Accel[i] = sc.Accel.MilliG(s.Accel[i])
		r.Gyro[i] = sc.Gyro.MilliDPS(s.Gyro[i])
		r.Mag[i] = sc.Mag.MilliGauss(s.Mag[i])
	}
	r.TempC = TemperatureCelsius(s.Temp)
	return r
}
