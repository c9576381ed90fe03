package lsm9ds1

// Settings mirrored across both cores. Sets touch the accel/gyro register
// first; the magnetometer is written only if that succeeded. A failure on
// the magnetometer side leaves the accel/gyro change in place.

// both runs the accel/gyro step, then the magnetometer step.
func both(ag, mag func() error) error {
	if err := ag(); err != nil {
		return err
	}
	return mag()
}

// andFlags reads one flag on each core and reports whether both are set.
func (d *Device) andFlags(ag, mag Field) (bool, error) {
	a, err := d.Field(ag)
	if err != nil {
		return false, err
	}
	m, err := d.Field(mag)
	if err != nil {
		return false, err
	}
	return a&m&1 != 0, nil
}

func (d *Device) setBoth(ag, mag Field, v uint8) error {
	return both(
		func() error { return d.SetField(ag, v) },
		func() error { return d.SetField(mag, v) },
	)
}

// ---------------- Block data update ----------------

// SetBlockDataUpdate holds output registers until both bytes are read.
// On the magnetometer FAST_READ is programmed as the complement of BDU in
// the same register write.
func (d *Device) SetBlockDataUpdate(on bool) error {
	v := b2u(on)
	return both(
		func() error { return d.SetField(FieldBDU, v) },
		func() error { return d.modifyFields(set(FieldBDUM, v), set(FieldFastRead, ^v)) },
	)
}

func (d *Device) BlockDataUpdate() (bool, error) {
	return d.andFlags(FieldBDU, FieldBDUM)
}

// ---------------- SPI wire mode ----------------

type SPIMode uint8

const (
	SPI4Wire SPIMode = iota
	SPI3Wire
)

func (m SPIMode) String() string {
	if m == SPI3Wire {
		return "3-wire"
	}
	return "4-wire"
}

func (d *Device) SetSPIMode(m SPIMode) error {
	return d.setBoth(FieldSIM, FieldSIMM, uint8(m))
}

func (d *Device) SPIMode() (SPIMode, error) {
	on, err := d.andFlags(FieldSIM, FieldSIMM)
	if err != nil {
		return SPI4Wire, err
	}
	if on {
		return SPI3Wire, nil
	}
	return SPI4Wire, nil
}

// ---------------- Data format ----------------

// DataFormat selects which byte of each output word sits at the lower address.
type DataFormat uint8

const (
	LSBAtLowAddress DataFormat = iota
	MSBAtLowAddress
)

func (f DataFormat) String() string {
	if f == MSBAtLowAddress {
		return "big-endian"
	}
	return "little-endian"
}

func (d *Device) SetDataFormat(f DataFormat) error {
	return d.setBoth(FieldBLE, FieldBLEM, uint8(f))
}

func (d *Device) DataFormat() (DataFormat, error) {
	on, err := d.andFlags(FieldBLE, FieldBLEM)
	if err != nil {
		return LSBAtLowAddress, err
	}
	if on {
		return MSBAtLowAddress, nil
	}
	return LSBAtLowAddress, nil
}

// ---------------- I2C interface ----------------

type I2CInterface uint8

const (
	I2CEnabled I2CInterface = iota
	I2CDisabled
)

func (i I2CInterface) String() string {
	if i == I2CDisabled {
		return "disabled"
	}
	return "enabled"
}

// SetI2CInterface disables or re-enables the I2C block on both cores. Once
// disabled the part only answers on SPI.
func (d *Device) SetI2CInterface(i I2CInterface) error {
	return d.setBoth(FieldI2CDisable, FieldI2CDisM, uint8(i))
}

func (d *Device) I2CInterface() (I2CInterface, error) {
	on, err := d.andFlags(FieldI2CDisable, FieldI2CDisM)
	if err != nil {
		return I2CEnabled, err
	}
	if on {
		return I2CDisabled, nil
	}
	return I2CEnabled, nil
}

// ---------------- Reset and reboot ----------------

// SetReset starts a software reset of the user registers on both cores.
// The bits self-clear when the reset completes.
func (d *Device) SetReset(on bool) error {
	return d.setBoth(FieldSwReset, FieldSoftRst, b2u(on))
}

// ResetInProgress reports whether both cores still show the reset bit.
func (d *Device) ResetInProgress() (bool, error) {
	return d.andFlags(FieldSwReset, FieldSoftRst)
}

// SetBoot reloads trimming parameters from non-volatile memory.
func (d *Device) SetBoot(on bool) error {
	return d.setBoth(FieldBoot, FieldReboot, b2u(on))
}

func (d *Device) Booting() (bool, error) {
	return d.andFlags(FieldBoot, FieldReboot)
}

// ---------------- Interrupt pin polarity ----------------

type PinPolarity uint8

const (
	ActiveHigh PinPolarity = iota
	ActiveLow
)

func (p PinPolarity) String() string {
	if p == ActiveLow {
		return "active-low"
	}
	return "active-high"
}

// SetPinPolarity programs INT1_A/G, INT2_A/G and INT_M together. The
// magnetometer IEA bit has the opposite sense to H_LACTIVE.
func (d *Device) SetPinPolarity(p PinPolarity) error {
	v := uint8(p)
	return both(
		func() error { return d.SetField(FieldHLActive, v) },
		func() error { return d.SetField(FieldIEA, ^v) },
	)
}

func (d *Device) PinPolarity() (PinPolarity, error) {
	h, err := d.Field(FieldHLActive)
	if err != nil {
		return ActiveHigh, err
	}
	iea, err := d.Field(FieldIEA)
	if err != nil {
		return ActiveHigh, err
	}
	if h&^iea&1 != 0 {
		return ActiveLow, nil
	}
	return ActiveHigh, nil
}

// ---------------- Identity and status ----------------

// ID holds both WHO_AM_I values.
type ID struct {
	AccelGyro uint8
	Mag       uint8
}

// Valid reports whether both cores answered with their expected identity.
func (id ID) Valid() bool {
	return id.AccelGyro == WhoAmIAccelGyro && id.Mag == WhoAmIMag
}

func (d *Device) ID() (ID, error) {
	var id ID
	ag, err := d.readReg(AccelGyro, regWhoAmI)
	if err != nil {
		return id, err
	}
	id.AccelGyro = ag
	mag, err := d.readReg(Magnetometer, regWhoAmIM)
	if err != nil {
		return id, err
	}
	id.Mag = mag
	return id, nil
}

// StatusBits mirrors STATUS_REG (0x17) of the accel/gyro core.
type StatusBits uint8

const (
	StatusXLDA StatusBits = 1 << iota
	StatusGDA
	StatusTDA
	StatusBootRunning
	StatusInactive
	StatusIGG
	StatusIGXL
)

func (b StatusBits) Has(flag StatusBits) bool { return b&flag != 0 }

// MagStatusBits mirrors STATUS_REG_M.
type MagStatusBits uint8

const (
	MagStatusXDA MagStatusBits = 1 << iota
	MagStatusYDA
	MagStatusZDA
	MagStatusZYXDA
	MagStatusXOR
	MagStatusYOR
	MagStatusZOR
	MagStatusZYXOR
)

func (b MagStatusBits) Has(flag MagStatusBits) bool { return b&flag != 0 }

// Status is the combined data-ready / overrun picture of both cores.
type Status struct {
	AccelGyro StatusBits
	Mag       MagStatusBits
}

func (d *Device) Status() (Status, error) {
	var st Status
	ag, err := d.readReg(AccelGyro, regStatusReg)
	if err != nil {
		return st, err
	}
	st.AccelGyro = StatusBits(ag)
	mag, err := d.readReg(Magnetometer, regStatusRegM)
	if err != nil {
		return st, err
	}
	st.Mag = MagStatusBits(mag)
	return st, nil
}
