package lsm9ds1

import (
	"reflect"
	"testing"
)

func TestRawBufferVector(t *testing.T) {
	b := RawBuffer{0x01, 0x00, 0xFF, 0xFF, 0x00, 0x80}
	want := [3]int16{1, -1, -32768}
	if got := b.Vector(); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestReadSample(t *testing.T) {
	dev, ag, mag := newTestDevice()
	copy(ag.regs[regOutXLG:], []byte{0x10, 0x00, 0x20, 0x00, 0x30, 0x00})
	copy(ag.regs[regOutXLXL:], []byte{0xE8, 0x03, 0x18, 0xFC, 0x00, 0x00})
	copy(mag.regs[regOutXLM:], []byte{0x64, 0x00, 0x00, 0x00, 0x9C, 0xFF})
	copy(ag.regs[regOutTempL:], []byte{0x10, 0x00})

	s, err := dev.ReadSample()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := Sample{
		Gyro:  [3]int16{16, 32, 48},
		Accel: [3]int16{1000, -1000, 0},
		Mag:   [3]int16{100, 0, -100},
		Temp:  16,
	}
	if !reflect.DeepEqual(s, want) {
		t.Fatalf("got %+v, want %+v", s, want)
	}

	r := Scales{Accel: Accel4g, Gyro: Gyro2000dps, Mag: Mag4Gauss}.Convert(s)
	if r.Accel[0] != float32(1000)*float32(0.122) || r.Gyro[1] != 32*70.0 || r.TempC != 26 {
		t.Fatalf("convert: %+v", r)
	}
}

func TestReadSampleStopsAtFirstFailure(t *testing.T) {
	dev, ag, mag := newTestDevice()
	ag.failRead = errBus
	if _, err := dev.ReadSample(); err != errBus {
		t.Fatalf("err = %v", err)
	}
	if ag.reads != 1 || mag.reads != 0 {
		t.Fatalf("reads ag=%d mag=%d after first failure", ag.reads, mag.reads)
	}
}

func TestScalesReadsAllThree(t *testing.T) {
	dev, ag, mag := newTestDevice()
	ag.regs[regCtrlReg6XL] = FieldFsXL.Encode(0, uint8(Accel8g))
	ag.regs[regCtrlReg1G] = FieldFsG.Encode(0, uint8(Gyro500dps))
	mag.regs[regCtrlReg2M] = FieldFsM.Encode(0, uint8(Mag16Gauss))

	sc, err := dev.Scales()
	if err != nil {
		t.Fatalf("scales: %v", err)
	}
	if sc != (Scales{Accel: Accel8g, Gyro: Gyro500dps, Mag: Mag16Gauss}) {
		t.Fatalf("got %+v", sc)
	}
}
