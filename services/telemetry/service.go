// Package telemetry samples the IMU on a ticker and publishes converted
// readings on the bus. It also answers one-shot sample requests and takes
// interval changes from config/telemetry at runtime.
package telemetry

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/errcode"
	"lsm9ds1-go/types"
	"lsm9ds1-go/x/mathx"
	"lsm9ds1-go/x/timex"
)

const (
	DriverName      = "lsm9ds1"
	SchemaVersion   = 1
	DefaultInterval = 100 * time.Millisecond
	MinInterval     = time.Millisecond
)

var (
	topicInfo      = bus.T(types.TopicInfo)
	topicStatus    = bus.T(types.TopicStatus)
	topicValue     = bus.T(types.TopicValue)
	topicRaw       = bus.T(types.TopicRaw)
	topicSampleGet = bus.T(types.TopicSampleGet)
	topicConfig    = bus.T(types.TopicConfigTelemetry)
)

type Options struct {
	Interval  time.Duration
	Raw       bool
	Interface string
	// Settings are published in the info payload as given.
	Settings map[string]string
}

// Service owns nothing but the schedule; the device and its lock are
// shared with whoever else drives the part.
type Service struct {
	dev *lsm9ds1.Device
	mu  sync.Locker
	opt Options

	link types.Link
	now  func() int64
}

// New returns a sampler for dev. Every device access holds mu.
func New(dev *lsm9ds1.Device, mu sync.Locker, opt Options) *Service {
	if opt.Interval <= 0 {
		opt.Interval = DefaultInterval
	}
	return &Service{dev: dev, mu: mu, opt: opt, now: timex.NowMs}
}

// Start runs the service loop in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.Run(ctx, conn)
	return nil
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	l := log.WithField("svc", "telemetry")

	cfgSub := conn.Subscribe(topicConfig)
	defer conn.Unsubscribe(cfgSub)
	getSub := conn.Subscribe(topicSampleGet)
	defer conn.Unsubscribe(getSub)

	s.publishInfo(conn, l)

	tick := time.NewTicker(s.opt.Interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Infoln("stopping")
			s.setLink(conn, types.LinkDown, nil)
			return
		case <-tick.C:
			s.sampleAndPublish(conn, l)
		case msg, ok := <-cfgSub.Channel():
			if !ok {
				return
			}
			if s.applyConfig(msg.Payload, l) {
				tick.Reset(s.opt.Interval)
			}
		case msg, ok := <-getSub.Channel():
			if !ok {
				return
			}
			v, _, err := s.sample()
			if err != nil {
				conn.Reply(msg, types.ErrorReply{Error: string(errcode.MapDriverErr(err))}, false)
				continue
			}
			conn.Reply(msg, v, false)
		}
	}
}

// applyConfig reports whether the interval changed.
func (s *Service) applyConfig(payload any, l *log.Entry) bool {
	cfg, ok := payload.(types.TelemetryConfig)
	if !ok {
		l.Warnf("ignoring config payload %T", payload)
		return false
	}
	if cfg.Raw != nil {
		s.opt.Raw = *cfg.Raw
	}
	if cfg.IntervalMs == 0 {
		return false
	}
	iv := mathx.Max(time.Duration(cfg.IntervalMs)*time.Millisecond, MinInterval)
	if iv == s.opt.Interval {
		return false
	}
	s.opt.Interval = iv
	l.Infoln("interval set to", iv)
	return true
}

// sample reads scales and a full sample in one critical section, so a
// concurrent range change cannot land between the two.
func (s *Service) sample() (types.IMUValue, types.IMURaw, error) {
	s.mu.Lock()
	sc, err := s.dev.Scales()
	var raw lsm9ds1.Sample
	if err == nil {
		raw, err = s.dev.ReadSample()
	}
	s.mu.Unlock()

	ts := s.now()
	if err != nil {
		return types.IMUValue{}, types.IMURaw{}, err
	}
	r := sc.Convert(raw)
	return types.IMUValue{TS: ts, Accel: r.Accel, Gyro: r.Gyro, Mag: r.Mag, TempC: r.TempC},
		types.IMURaw{TS: ts, Accel: raw.Accel, Gyro: raw.Gyro, Mag: raw.Mag, Temp: raw.Temp},
		nil
}

func (s *Service) sampleAndPublish(conn *bus.Connection, l *log.Entry) {
	v, raw, err := s.sample()
	if err != nil {
		if s.link != types.LinkDegraded {
			l.Warnln("sample failed:", err)
		}
		s.setLink(conn, types.LinkDegraded, err)
		return
	}
	s.setLink(conn, types.LinkUp, nil)
	conn.Publish(conn.NewMessage(topicValue, v, false))
	if s.opt.Raw {
		conn.Publish(conn.NewMessage(topicRaw, raw, false))
	}
}

// setLink publishes a retained status on every transition.
func (s *Service) setLink(conn *bus.Connection, link types.Link, err error) {
	if link == s.link {
		return
	}
	s.link = link
	st := types.CapabilityStatus{Link: link, TS: s.now()}
	if err != nil {
		st.Error = string(errcode.MapDriverErr(err))
	}
	conn.Publish(conn.NewMessage(topicStatus, st, true))
}

func (s *Service) publishInfo(conn *bus.Connection, l *log.Entry) {
	info, err := s.readInfo()
	if err != nil {
		l.Warnln("reading device info:", err)
		s.setLink(conn, types.LinkDegraded, err)
		return
	}
	if info.WhoAmIAG != lsm9ds1.WhoAmIAccelGyro || info.WhoAmIMag != lsm9ds1.WhoAmIMag {
		l.Warnf("unexpected identity ag=%#02x mag=%#02x", info.WhoAmIAG, info.WhoAmIMag)
	}
	conn.Publish(conn.NewMessage(topicInfo, types.Info{
		SchemaVersion: SchemaVersion,
		Driver:        DriverName,
		Detail:        info,
	}, true))
	s.setLink(conn, types.LinkUp, nil)
}

func (s *Service) readInfo() (types.IMUInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := types.IMUInfo{Interface: s.opt.Interface, Settings: s.opt.Settings}
	id, err := s.dev.ID()
	if err != nil {
		return info, err
	}
	info.WhoAmIAG, info.WhoAmIMag = id.AccelGyro, id.Mag

	imu, err := s.dev.IMUDataRate()
	if err != nil {
		return info, err
	}
	mag, err := s.dev.MagDataRate()
	if err != nil {
		return info, err
	}
	sc, err := s.dev.Scales()
	if err != nil {
		return info, err
	}
	info.GyroODRHz = hertz(imu.GyroFrequency())
	info.AccelODRHz = hertz(imu.AccelFrequency())
	info.MagODRHz = hertz(mag.Frequency())
	info.Sensitivity = [3]float32{sc.Accel.Sensitivity(), sc.Gyro.Sensitivity(), sc.Mag.Sensitivity()}
	return info, nil
}

func hertz(f physic.Frequency) float64 { return float64(f) / float64(physic.Hertz) }
