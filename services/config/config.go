// Package config loads the lsm9ds1ctl configuration: bus wiring, sensor
// settings by name, telemetry cadence, MQTT and the register debugger.
// Values come from built-in defaults, then a YAML file, then LSM9DS1_*
// environment variables, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/drivers/lsm9ds1/hostbus"
	"lsm9ds1-go/types"
	"lsm9ds1-go/x/timex"
)

const (
	DefaultAppName    = "lsm9ds1"
	DefaultConfigName = "config"
	EnvConfigFile     = "LSM9DS1_CONFIG"
)

var userHomeDir, _ = os.UserHomeDir()

var (
	DefaultConfig            = path.Join(userHomeDir, ".config", DefaultAppName, DefaultConfigName+".yaml")
	DefaultConfigSearchPath0 = path.Join(userHomeDir, ".config", DefaultAppName)
)

const (
	DefaultConfigSearchPath1 = "/etc/" + DefaultAppName
	DefaultConfigSearchPath2 = "./"
)

var (
	ErrUnknownSetting = errors.New("config: unknown setting")
	ErrInvalid        = errors.New("config: invalid value")
	ErrConfigExists   = errors.New("config: file exists")
	ErrNoViper        = errors.New("config: not parsed")
)

// -----------------------------------------------------------------------------
// Options
// -----------------------------------------------------------------------------

type BusOpt struct {
	Interface      string `yaml:"interface" mapstructure:"interface"`
	I2CBus         string `yaml:"i2c_bus" mapstructure:"i2c_bus"`
	AccelGyroAddr  uint16 `yaml:"ag_addr" mapstructure:"ag_addr"`
	MagAddr        uint16 `yaml:"mag_addr" mapstructure:"mag_addr"`
	SPIAccelGyro   string `yaml:"spi_ag" mapstructure:"spi_ag"`
	SPIMag         string `yaml:"spi_mag" mapstructure:"spi_mag"`
	CSAccelGyro    string `yaml:"cs_ag" mapstructure:"cs_ag"`
	CSMag          string `yaml:"cs_mag" mapstructure:"cs_mag"`
	SPIFrequencyHz int64  `yaml:"spi_hz" mapstructure:"spi_hz"`
}

// SensorOpt names every setting Apply programs. Names are the ones the
// driver's Parse functions accept.
type SensorOpt struct {
	IMUDataRate         string `yaml:"imu_odr" mapstructure:"imu_odr"`
	MagDataRate         string `yaml:"mag_odr" mapstructure:"mag_odr"`
	AccelScale          string `yaml:"accel_fs" mapstructure:"accel_fs"`
	GyroScale           string `yaml:"gyro_fs" mapstructure:"gyro_fs"`
	MagScale            string `yaml:"mag_fs" mapstructure:"mag_fs"`
	AccelAABandwidth    string `yaml:"accel_aa_bw" mapstructure:"accel_aa_bw"`
	AccelLPBandwidth    string `yaml:"accel_lp_bw" mapstructure:"accel_lp_bw"`
	GyroOutPath         string `yaml:"gyro_out_path" mapstructure:"gyro_out_path"`
	FIFOMode            string `yaml:"fifo_mode" mapstructure:"fifo_mode"`
	BlockDataUpdate     bool   `yaml:"bdu" mapstructure:"bdu"`
	MagTempCompensation bool   `yaml:"mag_temp_comp" mapstructure:"mag_temp_comp"`
}

type TelemetryOpt struct {
	RateHz   uint32 `yaml:"rate_hz" mapstructure:"rate_hz"`
	Raw      bool   `yaml:"raw" mapstructure:"raw"`
	QueueLen int    `yaml:"queue_len" mapstructure:"queue_len"`
}

type MQTTOpt struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	Filter   string `yaml:"filter" mapstructure:"filter"`
	QoS      byte   `yaml:"qos" mapstructure:"qos"`
}

type DebuggerOpt struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	Path   string `yaml:"path" mapstructure:"path"`
}

type Opt struct {
	Bus       BusOpt       `yaml:"bus" mapstructure:"bus"`
	Sensor    SensorOpt    `yaml:"sensor" mapstructure:"sensor"`
	Telemetry TelemetryOpt `yaml:"telemetry" mapstructure:"telemetry"`
	MQTT      MQTTOpt      `yaml:"mqtt" mapstructure:"mqtt"`
	Debugger  DebuggerOpt  `yaml:"debugger" mapstructure:"debugger"`
	Debug     bool         `yaml:"debug" mapstructure:"debug"`
}

// Desc is a parsed configuration plus the viper instance that produced it.
type Desc struct {
	Opt   Opt
	Viper *viper.Viper
}

func NewDesc() Desc {
	return Desc{Opt: NewOpt()}
}

// NewOpt returns the built-in defaults: I2C on the first bus at the high
// addresses, both cores at moderate rates with BDU on, no MQTT.
func NewOpt() Opt {
	return Opt{
		Bus: BusOpt{
			Interface:      "i2c",
			AccelGyroAddr:  lsm9ds1.AddressAccelGyroHigh,
			MagAddr:        lsm9ds1.AddressMagHigh,
			SPIFrequencyHz: int64(hostbus.DefaultSPIFrequency / physic.Hertz),
		},
		Sensor: SensorOpt{
			IMUDataRate:      lsm9ds1.IMU119Hz.String(),
			MagDataRate:      lsm9ds1.MagHP20Hz.String(),
			AccelScale:       lsm9ds1.Accel4g.String(),
			GyroScale:        lsm9ds1.Gyro500dps.String(),
			MagScale:         lsm9ds1.Mag4Gauss.String(),
			AccelAABandwidth: lsm9ds1.AccelAAAuto.String(),
			AccelLPBandwidth: lsm9ds1.AccelLPDisabled.String(),
			GyroOutPath:      lsm9ds1.GyroLPF1.String(),
			FIFOMode:         lsm9ds1.FIFOOff.String(),
			BlockDataUpdate:  true,
		},
		Telemetry: TelemetryOpt{
			RateHz:   10,
			QueueLen: 16,
		},
		MQTT: MQTTOpt{
			Broker: "tcp://localhost:1883",
			Prefix: DefaultAppName,
			Filter: "imu/#",
		},
		Debugger: DebuggerOpt{
			Listen: "127.0.0.1:8089",
			Path:   "/ws",
		},
	}
}

// -----------------------------------------------------------------------------
// Loading
// -----------------------------------------------------------------------------

// Parse resolves the config file (--config flag, then $LSM9DS1_CONFIG, then
// the search path), layers it over the defaults and binds the debug flag.
// A missing file is not an error.
func (o *Desc) Parse(cmd *cobra.Command) error {
	file := ""
	if f, err := cmd.Flags().GetString("config"); err == nil && f != "" {
		file = f
	} else if env := os.Getenv(EnvConfigFile); env != "" {
		file = env
	}
	v, err := newViper(file)
	if err != nil {
		return err
	}
	if fl := cmd.Flags().Lookup("debug"); fl != nil {
		_ = v.BindPFlag("debug", fl)
	}
	return o.unmarshal(v)
}

// Load reads file over the defaults without any flags. An empty file name
// yields the defaults plus environment overrides.
func Load(file string) (Desc, error) {
	var d Desc
	v, err := newViper(file)
	if err != nil {
		return d, err
	}
	err = d.unmarshal(v)
	return d, err
}

func newViper(file string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults go in as a config layer so every key exists for AutomaticEnv.
	defaults, err := yaml.Marshal(NewOpt())
	if err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	v.SetEnvPrefix(DefaultAppName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(DefaultConfigSearchPath0)
		v.AddConfigPath(DefaultConfigSearchPath1)
		v.AddConfigPath(DefaultConfigSearchPath2)
	}

	err = v.MergeInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		log.Debugln("using config file:", v.ConfigFileUsed())
	case errors.As(err, &notFound):
		log.Debugln("no config file, using defaults")
	default:
		return nil, fmt.Errorf("config: read %s: %w", file, err)
	}
	return v, nil
}

func (o *Desc) unmarshal(v *viper.Viper) error {
	opt := NewOpt()
	if err := v.Unmarshal(&opt); err != nil {
		return fmt.Errorf("config: unmarshal: %w", err)
	}
	o.Opt = opt
	o.Viper = v
	return nil
}

// PostParse applies the log level.
func (o *Desc) PostParse() {
	if o.Opt.Debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// Watch re-reads the config file on change and republishes the runtime
// telemetry settings. Sensor and bus settings need a restart.
func (o *Desc) Watch(conn *bus.Connection) error {
	if o.Viper == nil {
		return ErrNoViper
	}
	file := o.Viper.ConfigFileUsed()
	o.Viper.OnConfigChange(func(e fsnotify.Event) {
		if err := reload(file, conn); err != nil {
			log.Warnln("config reload:", err)
			return
		}
		log.Infoln("config reloaded:", e.Name)
	})
	o.Viper.WatchConfig()
	return nil
}

// reload rebuilds every layer from scratch. viper's own re-read replaces the
// defaults layer, which would drop keys that only the environment sets.
func reload(file string, conn *bus.Connection) error {
	d, err := Load(file)
	if err != nil {
		return err
	}
	if err := d.Opt.Validate(); err != nil {
		return err
	}
	PublishTelemetry(conn, d.Opt.Telemetry)
	return nil
}

// PublishTelemetry puts the runtime telemetry settings on the bus, retained.
func PublishTelemetry(conn *bus.Connection, t TelemetryOpt) {
	raw := t.Raw
	cfg := types.TelemetryConfig{Raw: &raw}
	if t.RateHz > 0 {
		cfg.IntervalMs = uint32(timex.PeriodFromHz(t.RateHz).Milliseconds())
	}
	conn.Publish(conn.NewMessage(bus.T(types.TopicConfigTelemetry), cfg, true))
}

// -----------------------------------------------------------------------------
// Validation and conversion
// -----------------------------------------------------------------------------

// Validate checks every option that can be checked without hardware.
func (o Opt) Validate() error {
	switch strings.ToLower(o.Bus.Interface) {
	case "i2c":
	case "spi":
		if o.Bus.SPIAccelGyro == "" || o.Bus.SPIMag == "" {
			return fmt.Errorf("%w: bus.spi_ag and bus.spi_mag are required for spi", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: bus.interface %q", ErrInvalid, o.Bus.Interface)
	}
	if _, err := o.Sensor.Settings(); err != nil {
		return err
	}
	if o.Telemetry.RateHz == 0 || o.Telemetry.RateHz > 1000 {
		return fmt.Errorf("%w: telemetry.rate_hz %d not in 1..1000", ErrInvalid, o.Telemetry.RateHz)
	}
	if o.MQTT.Enabled && o.MQTT.Broker == "" {
		return fmt.Errorf("%w: mqtt.broker is required", ErrInvalid)
	}
	if o.MQTT.QoS > 2 {
		return fmt.Errorf("%w: mqtt.qos %d", ErrInvalid, o.MQTT.QoS)
	}
	return nil
}

// HostBus converts the bus options for hostbus.Open.
func (b BusOpt) HostBus() hostbus.Config {
	return hostbus.Config{
		Interface:     b.Interface,
		I2CBus:        b.I2CBus,
		AccelGyroAddr: b.AccelGyroAddr,
		MagAddr:       b.MagAddr,
		SPIAccelGyro:  b.SPIAccelGyro,
		SPIMag:        b.SPIMag,
		CSAccelGyro:   b.CSAccelGyro,
		CSMag:         b.CSMag,
		SPIFrequency:  physic.Frequency(b.SPIFrequencyHz) * physic.Hertz,
	}
}

// Settings parses the sensor names into driver values.
func (s SensorOpt) Settings() (lsm9ds1.Settings, error) {
	out := lsm9ds1.Settings{
		BlockDataUpdate:     s.BlockDataUpdate,
		MagTempCompensation: s.MagTempCompensation,
	}
	var bad []string
	check := func(key, val string, ok bool, names ...string) {
		if ok {
			return
		}
		msg := fmt.Sprintf("sensor.%s=%q", key, val)
		if len(names) > 0 {
			msg += " (one of " + strings.Join(names, " ") + ")"
		}
		bad = append(bad, msg)
	}
	var ok bool
	out.IMUDataRate, ok = lsm9ds1.ParseIMUDataRate(s.IMUDataRate)
	check("imu_odr", s.IMUDataRate, ok, lsm9ds1.IMUDataRateNames()...)
	out.MagDataRate, ok = lsm9ds1.ParseMagDataRate(s.MagDataRate)
	check("mag_odr", s.MagDataRate, ok, lsm9ds1.MagDataRateNames()...)
	out.AccelScale, ok = lsm9ds1.ParseAccelScale(s.AccelScale)
	check("accel_fs", s.AccelScale, ok)
	out.GyroScale, ok = lsm9ds1.ParseGyroScale(s.GyroScale)
	check("gyro_fs", s.GyroScale, ok)
	out.MagScale, ok = lsm9ds1.ParseMagScale(s.MagScale)
	check("mag_fs", s.MagScale, ok)
	out.AccelAABandwidth, ok = lsm9ds1.ParseAccelAABandwidth(s.AccelAABandwidth)
	check("accel_aa_bw", s.AccelAABandwidth, ok)
	out.AccelLPBandwidth, ok = lsm9ds1.ParseAccelLPBandwidth(s.AccelLPBandwidth)
	check("accel_lp_bw", s.AccelLPBandwidth, ok)
	out.GyroOutPath, ok = lsm9ds1.ParseGyroPath(s.GyroOutPath)
	check("gyro_out_path", s.GyroOutPath, ok)
	out.FIFOMode, ok = lsm9ds1.ParseFIFOMode(s.FIFOMode)
	check("fifo_mode", s.FIFOMode, ok, lsm9ds1.FIFOModeNames()...)

	if len(bad) > 0 {
		return out, fmt.Errorf("%w: %s", ErrUnknownSetting, strings.Join(bad, ", "))
	}
	return out, nil
}

// SensorOptFrom names the settings read back from a device.
func SensorOptFrom(s lsm9ds1.Settings) SensorOpt {
	return SensorOpt{
		IMUDataRate:         s.IMUDataRate.String(),
		MagDataRate:         s.MagDataRate.String(),
		AccelScale:          s.AccelScale.String(),
		GyroScale:           s.GyroScale.String(),
		MagScale:            s.MagScale.String(),
		AccelAABandwidth:    s.AccelAABandwidth.String(),
		AccelLPBandwidth:    s.AccelLPBandwidth.String(),
		GyroOutPath:         s.GyroOutPath.String(),
		FIFOMode:            s.FIFOMode.String(),
		BlockDataUpdate:     s.BlockDataUpdate,
		MagTempCompensation: s.MagTempCompensation,
	}
}

// Map flattens s with the YAML key names, for logs and info payloads.
func (s SensorOpt) Map() map[string]string {
	return map[string]string{
		"imu_odr":       s.IMUDataRate,
		"mag_odr":       s.MagDataRate,
		"accel_fs":      s.AccelScale,
		"gyro_fs":       s.GyroScale,
		"mag_fs":        s.MagScale,
		"accel_aa_bw":   s.AccelAABandwidth,
		"accel_lp_bw":   s.AccelLPBandwidth,
		"gyro_out_path": s.GyroOutPath,
		"fifo_mode":     s.FIFOMode,
		"bdu":           fmt.Sprint(s.BlockDataUpdate),
		"mag_temp_comp": fmt.Sprint(s.MagTempCompensation),
	}
}

// -----------------------------------------------------------------------------
// Templates
// -----------------------------------------------------------------------------

// Template renders opt as a config file.
func Template(opt Opt) ([]byte, error) {
	b, err := yaml.Marshal(opt)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return append([]byte("# lsm9ds1ctl configuration\n"), b...), nil
}

// Dump writes opt to file, creating parent directories. An existing file
// is left alone unless overwrite is set.
func Dump(opt Opt, file string, overwrite bool) error {
	if _, err := os.Stat(file); err == nil && !overwrite {
		return fmt.Errorf("%w: %s", ErrConfigExists, file)
	}
	b, err := Template(opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path.Dir(file), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(file, b, 0o644); err != nil {
		return err
	}
	log.Infoln("config written to", file)
	return nil
}
