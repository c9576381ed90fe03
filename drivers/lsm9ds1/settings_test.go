package lsm9ds1

import "testing"

func TestApplySettingsRoundTrip(t *testing.T) {
	dev, _, _ := newTestDevice()
	want := Settings{
		BlockDataUpdate:     true,
		AccelScale:          Accel8g,
		GyroScale:           Gyro500dps,
		MagScale:            Mag12Gauss,
		AccelAABandwidth:    AccelAA211Hz,
		AccelLPBandwidth:    AccelLPODRDiv100,
		GyroOutPath:         GyroLPF1HPFLPF2,
		FIFOMode:            FIFOStream,
		MagTempCompensation: true,
		IMUDataRate:         IMU238Hz,
		MagDataRate:         MagUHP155Hz,
	}
	if err := dev.Apply(want); err != nil {
		t.Fatalf("apply: %v", err)
	}
	got, err := dev.Settings()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	dev, ag, mag := newTestDevice()
	mag.failWrite = errBus
	if err := dev.Apply(Settings{IMUDataRate: IMU119Hz}); err != errBus {
		t.Fatalf("err = %v", err)
	}
	// BDU fails on its magnetometer half; nothing after it runs.
	if len(ag.wregs) != 1 || ag.wregs[0] != regCtrlReg8 {
		t.Fatalf("accel/gyro writes %#02x", ag.wregs)
	}
}
