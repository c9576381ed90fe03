package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/types"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultsAreValid(t *testing.T) {
	opt := NewOpt()
	if err := opt.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	s, err := opt.Sensor.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if s.IMUDataRate != lsm9ds1.IMU119Hz || s.AccelScale != lsm9ds1.Accel4g || !s.BlockDataUpdate {
		t.Fatalf("settings %+v", s)
	}
}

func TestLoadLayersFileOverDefaults(t *testing.T) {
	p := writeFile(t, `
bus:
  ag_addr: 0x6a
sensor:
  accel_fs: 16g
  imu_odr: gy-14.9Hz
telemetry:
  rate_hz: 50
`)
	d, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	o := d.Opt
	if o.Bus.AccelGyroAddr != lsm9ds1.AddressAccelGyroLow {
		t.Errorf("ag_addr = %#x", o.Bus.AccelGyroAddr)
	}
	if o.Sensor.AccelScale != "16g" || o.Sensor.IMUDataRate != "gy-14.9Hz" {
		t.Errorf("sensor %+v", o.Sensor)
	}
	if o.Telemetry.RateHz != 50 {
		t.Errorf("rate_hz = %d", o.Telemetry.RateHz)
	}
	// Untouched keys keep their defaults.
	def := NewOpt()
	if o.Bus.MagAddr != def.Bus.MagAddr || o.Sensor.GyroScale != def.Sensor.GyroScale || o.Debugger != def.Debugger {
		t.Errorf("defaults lost: %+v", o)
	}
	if d.Viper == nil || d.Viper.ConfigFileUsed() != p {
		t.Error("viper not kept")
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	p := writeFile(t, "sensor:\n  gyro_fs: 245dps\n")
	t.Setenv("LSM9DS1_SENSOR_GYRO_FS", "2000dps")
	t.Setenv("LSM9DS1_MQTT_ENABLED", "true")

	d, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if d.Opt.Sensor.GyroScale != "2000dps" || !d.Opt.MQTT.Enabled {
		t.Fatalf("env ignored: %+v %+v", d.Opt.Sensor, d.Opt.MQTT)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("want error for a missing explicit file")
	}
}

func TestParseFlagBeatsEnvFile(t *testing.T) {
	envFile := writeFile(t, "debug: false\nsensor:\n  mag_fs: 8gauss\n")
	flagFile := writeFile(t, "sensor:\n  mag_fs: 16gauss\n")
	t.Setenv(EnvConfigFile, envFile)

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Bool("debug", false, "")

	d := NewDesc()
	if err := d.Parse(cmd); err != nil {
		t.Fatal(err)
	}
	if d.Opt.Sensor.MagScale != "8gauss" {
		t.Fatalf("env file not used: %q", d.Opt.Sensor.MagScale)
	}

	if err := cmd.Flags().Set("config", flagFile); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("debug", "true"); err != nil {
		t.Fatal(err)
	}
	if err := d.Parse(cmd); err != nil {
		t.Fatal(err)
	}
	if d.Opt.Sensor.MagScale != "16gauss" || !d.Opt.Debug {
		t.Fatalf("flag ignored: %+v debug=%v", d.Opt.Sensor, d.Opt.Debug)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Opt){
		"interface":   func(o *Opt) { o.Bus.Interface = "uart" },
		"spi ports":   func(o *Opt) { o.Bus.Interface = "spi" },
		"sensor name": func(o *Opt) { o.Sensor.FIFOMode = "ring" },
		"rate zero":   func(o *Opt) { o.Telemetry.RateHz = 0 },
		"rate high":   func(o *Opt) { o.Telemetry.RateHz = 5000 },
		"mqtt broker": func(o *Opt) { o.MQTT = MQTTOpt{Enabled: true} },
		"mqtt qos":    func(o *Opt) { o.MQTT.QoS = 3 },
	}
	for name, mutate := range cases {
		o := NewOpt()
		mutate(&o)
		if err := o.Validate(); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}

	o := NewOpt()
	o.Bus.Interface = "SPI"
	o.Bus.SPIAccelGyro, o.Bus.SPIMag = "/dev/spidev0.0", "/dev/spidev0.1"
	if err := o.Validate(); err != nil {
		t.Errorf("spi: %v", err)
	}
}

func TestSettingsReportsEveryUnknownName(t *testing.T) {
	s := NewOpt().Sensor
	s.AccelScale = "3g"
	s.MagDataRate = "fast"
	_, err := s.Settings()
	if !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("err = %v", err)
	}
	for _, key := range []string{"accel_fs", "mag_odr"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("%s missing from %v", key, err)
		}
	}
	// Data rates list what would have been accepted.
	if !strings.Contains(err.Error(), "one of "+strings.Join(lsm9ds1.MagDataRateNames(), " ")) {
		t.Errorf("mag_odr choices missing from %v", err)
	}
}

func TestSensorOptFromRoundTrip(t *testing.T) {
	want := NewOpt().Sensor
	want.GyroOutPath = lsm9ds1.GyroLPF1HPFLPF2.String()
	want.MagTempCompensation = true
	s, err := want.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if got := SensorOptFrom(s); got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
	if m := want.Map(); m["gyro_out_path"] != "lpf1-hpf-lpf2" || m["bdu"] != "true" || len(m) != 11 {
		t.Fatalf("map %v", m)
	}
}

func TestHostBusConversion(t *testing.T) {
	b := NewOpt().Bus
	b.SPIFrequencyHz = 1_000_000
	hc := b.HostBus()
	if hc.SPIFrequency.String() != "1MHz" || hc.AccelGyroAddr != lsm9ds1.AddressAccelGyroHigh {
		t.Fatalf("%+v", hc)
	}
}

func TestPublishTelemetryRetained(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("config")
	PublishTelemetry(conn, TelemetryOpt{RateHz: 20, Raw: true})

	m, ok := b.Retained(bus.T(types.TopicConfigTelemetry))
	if !ok {
		t.Fatal("nothing retained")
	}
	cfg := m.Payload.(types.TelemetryConfig)
	if cfg.IntervalMs != 50 || cfg.Raw == nil || !*cfg.Raw {
		t.Fatalf("payload %+v", cfg)
	}
}

func TestDumpThenLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "sub", "config.yaml")
	opt := NewOpt()
	opt.Sensor.IMUDataRate = "952Hz"
	if err := Dump(opt, p, false); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if err := Dump(opt, p, false); !errors.Is(err, ErrConfigExists) {
		t.Fatalf("second dump err = %v", err)
	}
	if err := Dump(opt, p, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	d, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if d.Opt != opt {
		t.Fatalf("got %+v\nwant %+v", d.Opt, opt)
	}
}

func TestWatchNeedsParse(t *testing.T) {
	var d Desc
	if err := d.Watch(bus.NewBus(1).NewConnection("x")); !errors.Is(err, ErrNoViper) {
		t.Fatalf("err = %v", err)
	}
}

func TestReloadKeepsEnvironmentOverrides(t *testing.T) {
	t.Setenv("LSM9DS1_TELEMETRY_RATE_HZ", "50")
	p := writeFile(t, "debug: false\n")
	d, err := Load(p)
	if err != nil {
		t.Fatal(err)
	}
	if d.Opt.Telemetry.RateHz != 50 {
		t.Fatalf("initial rate_hz = %d", d.Opt.Telemetry.RateHz)
	}

	if err := os.WriteFile(p, []byte("telemetry:\n  raw: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := bus.NewBus(4)
	if err := reload(d.Viper.ConfigFileUsed(), b.NewConnection("config")); err != nil {
		t.Fatal(err)
	}
	m, ok := b.Retained(bus.T(types.TopicConfigTelemetry))
	if !ok {
		t.Fatal("nothing published")
	}
	cfg := m.Payload.(types.TelemetryConfig)
	if cfg.IntervalMs != 20 || cfg.Raw == nil || !*cfg.Raw {
		t.Fatalf("reloaded %+v, want 20 ms with raw on", cfg)
	}
}

func TestReloadRejectsInvalidFile(t *testing.T) {
	p := writeFile(t, "telemetry:\n  rate_hz: 5000\n")
	b := bus.NewBus(4)
	if err := reload(p, b.NewConnection("config")); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
	if _, ok := b.Retained(bus.T(types.TopicConfigTelemetry)); ok {
		t.Fatal("invalid config was published")
	}
}
