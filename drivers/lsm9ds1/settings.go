package lsm9ds1

// Settings is a complete operating configuration. Apply writes it field by
// field; it does not reset the part first.
type Settings struct {
	BlockDataUpdate     bool
	AccelScale          AccelScale
	GyroScale           GyroScale
	MagScale            MagScale
	AccelAABandwidth    AccelAABandwidth
	AccelLPBandwidth    AccelLPBandwidth
	GyroOutPath         GyroPath
	FIFOMode            FIFOMode
	MagTempCompensation bool
	IMUDataRate         IMUDataRate
	MagDataRate         MagDataRate
}

// Apply programs s. Ranges and filters go in before the data rates so the
// first samples after power-up already use them. The first failure stops
// the sequence.
func (d *Device) Apply(s Settings) error {
	steps := [...]func() error{
		func() error { return d.SetBlockDataUpdate(s.BlockDataUpdate) },
		func() error { return d.SetAccelScale(s.AccelScale) },
		func() error { return d.SetGyroScale(s.GyroScale) },
		func() error { return d.SetMagScale(s.MagScale) },
		func() error { return d.SetAccelAABandwidth(s.AccelAABandwidth) },
		func() error { return d.SetAccelLPBandwidth(s.AccelLPBandwidth) },
		func() error { return d.SetGyroOutPath(s.GyroOutPath) },
		func() error { return d.SetFIFOMode(s.FIFOMode) },
		func() error { return d.SetMagTempCompensation(s.MagTempCompensation) },
		func() error { return d.SetIMUDataRate(s.IMUDataRate) },
		func() error { return d.SetMagDataRate(s.MagDataRate) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Settings reads back everything Apply writes.
func (d *Device) Settings() (Settings, error) {
	var (
		s   Settings
		err error
	)
	if s.BlockDataUpdate, err = d.BlockDataUpdate(); err != nil {
		return s, err
	}
	if s.AccelScale, err = d.AccelScale(); err != nil {
		return s, err
	}
	if s.GyroScale, err = d.GyroScale(); err != nil {
		return s, err
	}
	if s.MagScale, err = d.MagScale(); err != nil {
		return s, err
	}
	if s.AccelAABandwidth, err = d.AccelAABandwidth(); err != nil {
		return s, err
	}
	if s.AccelLPBandwidth, err = d.AccelLPBandwidth(); err != nil {
		return s, err
	}
	if s.GyroOutPath, err = d.GyroOutPath(); err != nil {
		return s, err
	}
	if s.FIFOMode, err = d.FIFOMode(); err != nil {
		return s, err
	}
	if s.MagTempCompensation, err = d.MagTempCompensation(); err != nil {
		return s, err
	}
	if s.IMUDataRate, err = d.IMUDataRate(); err != nil {
		return s, err
	}
	s.MagDataRate, err = d.MagDataRate()
	return s, err
}
