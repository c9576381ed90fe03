package types

// ------------------------
// Topics
// ------------------------

// Bus and MQTT topic paths, relative to the configured prefix.
const (
	TopicInfo            = "imu/info"
	TopicStatus          = "imu/status"
	TopicValue           = "imu/value"
	TopicRaw             = "imu/raw"
	TopicSampleGet       = "imu/sample/get"
	TopicConfigTelemetry = "config/telemetry"
	TopicBridgeState     = "bridge/state"
)

// ------------------------
// IMU
// ------------------------

// IMUInfo is published under imu/info as Info.Detail.
type IMUInfo struct {
	Interface   string            `json:"interface"` // "i2c" or "spi"
	WhoAmIAG    uint8             `json:"who_am_i_ag"`
	WhoAmIMag   uint8             `json:"who_am_i_mag"`
	GyroODRHz   float64           `json:"gyro_odr_hz"`
	AccelODRHz  float64           `json:"accel_odr_hz"`
	MagODRHz    float64           `json:"mag_odr_hz"`
	Sensitivity [3]float32        `json:"sensitivity"` // accel mg, gyro mdps, mag mgauss per LSB
	Settings    map[string]string `json:"settings"`
}

// IMUValue is one converted sample, published under imu/value.
type IMUValue struct {
	TS    int64      `json:"ts_ms"`
	Accel [3]float32 `json:"accel_mg"`
	Gyro  [3]float32 `json:"gyro_mdps"`
	Mag   [3]float32 `json:"mag_mgauss"`
	TempC float32    `json:"temp_c"`
}

// IMURaw carries the undecoded counts, published under imu/raw when
// enabled.
type IMURaw struct {
	TS    int64    `json:"ts_ms"`
	Accel [3]int16 `json:"accel"`
	Gyro  [3]int16 `json:"gyro"`
	Mag   [3]int16 `json:"mag"`
	Temp  int16    `json:"temp"`
}

// TelemetryConfig is the runtime control payload on config/telemetry.
// Zero fields leave the current value unchanged.
type TelemetryConfig struct {
	IntervalMs uint32 `json:"interval_ms,omitempty"`
	Raw        *bool  `json:"raw,omitempty"`
}
