// Package hostbus opens LSM9DS1 transports on a Linux host through periph.io.
//
// periph's i2c.Bus already has the tinygo drivers.I2C shape, so the I2C
// path reuses the driver's own transports. SPI connections get a thin
// drivers.SPI adapter; chip selects are either handled by spidev or driven
// from a GPIO named in the configuration.
package hostbus

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"lsm9ds1-go/drivers/lsm9ds1"
)

var (
	ErrUnknownInterface = errors.New("hostbus: interface must be \"i2c\" or \"spi\"")
	ErrPinNotFound      = errors.New("hostbus: chip-select pin not found")
)

// DefaultSPIFrequency is well under the 10 MHz limit of both cores.
const DefaultSPIFrequency = 5 * physic.MegaHertz

type Config struct {
	Interface string // "i2c" or "spi"

	I2CBus        string // "" selects the first bus
	AccelGyroAddr uint16 // 0 selects lsm9ds1.AddressAccelGyroHigh
	MagAddr       uint16 // 0 selects lsm9ds1.AddressMagHigh

	SPIAccelGyro string // spireg port names, e.g. "/dev/spidev0.0"
	SPIMag       string
	CSAccelGyro  string // optional gpioreg pin names for manual chip select
	CSMag        string
	SPIFrequency physic.Frequency
}

// Bus holds the two transports and whatever must be closed with them.
type Bus struct {
	AccelGyro lsm9ds1.Transport
	Mag       lsm9ds1.Transport

	closers []io.Closer
}

func (b *Bus) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Device binds a driver to both transports.
func (b *Bus) Device() *lsm9ds1.Device { return lsm9ds1.New(b.AccelGyro, b.Mag) }

// Open initialises the periph host drivers and opens the configured bus.
func Open(cfg Config) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hostbus: periph host init: %w", err)
	}
	switch strings.ToLower(cfg.Interface) {
	case "", "i2c":
		bus, err := i2creg.Open(cfg.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("hostbus: open i2c %q: %w", cfg.I2CBus, err)
		}
		b := FromI2C(bus, cfg.AccelGyroAddr, cfg.MagAddr)
		b.closers = append(b.closers, bus)
		return b, nil
	case "spi":
		return openSPI(cfg)
	default:
		return nil, ErrUnknownInterface
	}
}

// FromI2C builds both transports on one I2C bus. The caller keeps
// ownership of bus.
func FromI2C(bus i2c.Bus, agAddr, magAddr uint16) *Bus {
	return &Bus{
		AccelGyro: lsm9ds1.NewI2C(bus, agAddr),
		Mag:       lsm9ds1.NewMagI2C(bus, magAddr),
	}
}

// FromSPI builds both transports on two SPI connections. agCS and magCS
// may be nil when the connection drives its own chip select.
func FromSPI(ag, mag conn.Conn, agCS, magCS lsm9ds1.ChipSelect) *Bus {
	return &Bus{
		AccelGyro: lsm9ds1.NewSPI(spiConn{ag}, agCS),
		Mag:       lsm9ds1.NewMagSPI(spiConn{mag}, magCS),
	}
}

func openSPI(cfg Config) (*Bus, error) {
	freq := cfg.SPIFrequency
	if freq == 0 {
		freq = DefaultSPIFrequency
	}
	var closers []io.Closer
	fail := func(err error) (*Bus, error) {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}

	connect := func(name string) (spi.Conn, error) {
		port, err := spireg.Open(name)
		if err != nil {
			return nil, fmt.Errorf("hostbus: open spi %q: %w", name, err)
		}
		closers = append(closers, port)
		c, err := port.Connect(freq, spi.Mode3, 8)
		if err != nil {
			return nil, fmt.Errorf("hostbus: connect spi %q: %w", name, err)
		}
		return c, nil
	}

	ag, err := connect(cfg.SPIAccelGyro)
	if err != nil {
		return fail(err)
	}
	mag, err := connect(cfg.SPIMag)
	if err != nil {
		return fail(err)
	}
	agCS, err := chipSelect(cfg.CSAccelGyro)
	if err != nil {
		return fail(err)
	}
	magCS, err := chipSelect(cfg.CSMag)
	if err != nil {
		return fail(err)
	}
	b := FromSPI(ag, mag, agCS, magCS)
	b.closers = closers
	return b, nil
}

// chipSelect drives an active-low CS from a GPIO. An empty name means the
// SPI port handles CS itself.
func chipSelect(name string) (lsm9ds1.ChipSelect, error) {
	if name == "" {
		return nil, nil
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	if err := pin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("hostbus: cs %q: %w", name, err)
	}
	return func(selected bool) { _ = pin.Out(gpio.Level(!selected)) }, nil
}

// spiConn gives a periph connection the tinygo drivers.SPI method set.
type spiConn struct{ c conn.Conn }

func (s spiConn) Tx(w, r []byte) error { return s.c.Tx(w, r) }

func (s spiConn) Transfer(b byte) (byte, error) {
	var r [1]byte
	err := s.c.Tx([]byte{b}, r[:])
	return r[0], err
}
