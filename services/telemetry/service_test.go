package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/types"
)

// regFile is one core's register space behind TransportFuncs.
type regFile struct {
	mu   sync.Mutex
	regs [128]byte
	fail error
}

func (r *regFile) transport() lsm9ds1.Transport {
	return lsm9ds1.TransportFuncs{
		Read: func(reg uint8, buf []byte) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.fail != nil {
				return r.fail
			}
			copy(buf, r.regs[reg:])
			return nil
		},
		Write: func(reg uint8, data []byte) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.fail != nil {
				return r.fail
			}
			copy(r.regs[reg:], data)
			return nil
		},
	}
}

func (r *regFile) setFail(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func newFixture() (*lsm9ds1.Device, *regFile, *regFile) {
	ag, mag := &regFile{}, &regFile{}
	ag.regs[0x0F] = lsm9ds1.WhoAmIAccelGyro
	mag.regs[0x0F] = lsm9ds1.WhoAmIMag
	ag.regs[0x10] = 0x60  // 119 Hz, 245 dps
	ag.regs[0x20] = 0x60  // 119 Hz, 2 g
	ag.regs[0x15] = 16    // 26 °C
	ag.regs[0x18] = 100   // gyro X
	mag.regs[0x2A] = 0xFF // mag Y = 255
	// accel X = 1000
	ag.regs[0x28], ag.regs[0x29] = 0xE8, 0x03
	return lsm9ds1.New(ag.transport(), mag.transport()), ag, mag
}

func waitFor(t *testing.T, sub *bus.Subscription, topic string) *bus.Message {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if m.Topic.String() == topic {
				return m
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", topic)
		}
	}
}

func TestServicePublishesInfoAndValues(t *testing.T) {
	dev, _, _ := newFixture()
	b := bus.NewBus(32)
	obs := b.NewConnection("observer").Subscribe(bus.T("imu/#"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := New(dev, &sync.Mutex{}, Options{Interval: 5 * time.Millisecond, Interface: "i2c"})
	svc.now = func() int64 { return 42 }
	svc.Start(ctx, b.NewConnection("telemetry"))

	info := waitFor(t, obs, types.TopicInfo).Payload.(types.Info)
	detail := info.Detail.(types.IMUInfo)
	if info.Driver != DriverName || detail.WhoAmIAG != lsm9ds1.WhoAmIAccelGyro || detail.Interface != "i2c" {
		t.Fatalf("info %+v", info)
	}
	if detail.GyroODRHz != 119 || detail.AccelODRHz != 119 || detail.MagODRHz != 0.625 {
		t.Fatalf("rates %+v", detail)
	}

	st := waitFor(t, obs, types.TopicStatus).Payload.(types.CapabilityStatus)
	if st.Link != types.LinkUp {
		t.Fatalf("status %+v", st)
	}

	v := waitFor(t, obs, types.TopicValue).Payload.(types.IMUValue)
	if v.TS != 42 || v.TempC != 26 {
		t.Fatalf("value %+v", v)
	}
	if v.Accel[0] != lsm9ds1.Accel2g.MilliG(1000) || v.Gyro[0] != lsm9ds1.Gyro245dps.MilliDPS(100) {
		t.Fatalf("converted %+v", v)
	}
	if v.Mag[1] != lsm9ds1.Mag4Gauss.MilliGauss(255) {
		t.Fatalf("mag %v", v.Mag)
	}
}

func TestServiceRawToggleAndInterval(t *testing.T) {
	dev, _, _ := newFixture()
	b := bus.NewBus(32)
	ctl := b.NewConnection("ctl")
	obs := ctl.Subscribe(bus.T(types.TopicRaw))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := New(dev, &sync.Mutex{}, Options{Interval: time.Hour})
	svc.Start(ctx, b.NewConnection("telemetry"))

	on := true
	ctl.Publish(ctl.NewMessage(bus.T(types.TopicConfigTelemetry), types.TelemetryConfig{IntervalMs: 5, Raw: &on}, true))

	raw := waitFor(t, obs, types.TopicRaw).Payload.(types.IMURaw)
	if raw.Accel[0] != 1000 || raw.Gyro[0] != 100 || raw.Temp != 16 {
		t.Fatalf("raw %+v", raw)
	}
}

func TestSampleRequestReply(t *testing.T) {
	dev, ag, _ := newFixture()
	b := bus.NewBus(8)
	client := b.NewConnection("client")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	New(dev, &sync.Mutex{}, Options{Interval: time.Hour}).Start(ctx, b.NewConnection("telemetry"))

	// Wait for the service to subscribe before requesting.
	waitSub := client.Subscribe(bus.T(types.TopicStatus))
	waitFor(t, waitSub, types.TopicStatus)

	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()
	reply, err := client.RequestWait(rctx, client.NewMessage(bus.T(types.TopicSampleGet), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := reply.Payload.(types.IMUValue); !ok || v.TempC != 26 {
		t.Fatalf("reply %#v", reply.Payload)
	}

	ag.setFail(errors.New("nack"))
	reply, err = client.RequestWait(rctx, client.NewMessage(bus.T(types.TopicSampleGet), nil, false))
	if err != nil {
		t.Fatal(err)
	}
	if e, ok := reply.Payload.(types.ErrorReply); !ok || e.Error != "transport" {
		t.Fatalf("reply %#v", reply.Payload)
	}
}

func TestServiceReportsDegradedAndRecovers(t *testing.T) {
	dev, _, mag := newFixture()
	b := bus.NewBus(32)
	obs := b.NewConnection("observer").Subscribe(bus.T(types.TopicStatus))

	ctx, cancel := context.WithCancel(context.Background())
	svc := New(dev, &sync.Mutex{}, Options{Interval: 5 * time.Millisecond})
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, b.NewConnection("telemetry"))
		close(done)
	}()

	if st := waitFor(t, obs, types.TopicStatus).Payload.(types.CapabilityStatus); st.Link != types.LinkUp {
		t.Fatalf("first status %+v", st)
	}
	mag.setFail(errors.New("nack"))
	st := waitFor(t, obs, types.TopicStatus).Payload.(types.CapabilityStatus)
	if st.Link != types.LinkDegraded || st.Error != "transport" {
		t.Fatalf("degraded status %+v", st)
	}
	mag.setFail(nil)
	if st := waitFor(t, obs, types.TopicStatus).Payload.(types.CapabilityStatus); st.Link != types.LinkUp {
		t.Fatalf("recovered status %+v", st)
	}

	cancel()
	<-done
	if m, ok := b.Retained(bus.T(types.TopicStatus)); !ok || m.Payload.(types.CapabilityStatus).Link != types.LinkDown {
		t.Fatalf("final status %+v", m)
	}
}

func TestApplyConfigClampsInterval(t *testing.T) {
	s := New(nil, &sync.Mutex{}, Options{})
	if s.opt.Interval != DefaultInterval {
		t.Fatalf("default interval %v", s.opt.Interval)
	}
	l := testEntry()
	if s.applyConfig("bogus", l) {
		t.Fatal("accepted a non-config payload")
	}
	if s.applyConfig(types.TelemetryConfig{}, l) {
		t.Fatal("empty config changed the interval")
	}
	if !s.applyConfig(types.TelemetryConfig{IntervalMs: 250}, l) || s.opt.Interval != 250*time.Millisecond {
		t.Fatalf("interval %v", s.opt.Interval)
	}
	if s.applyConfig(types.TelemetryConfig{IntervalMs: 250}, l) {
		t.Fatal("same interval reported as a change")
	}
}

func testEntry() *log.Entry { return log.WithField("svc", "test") }
