package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/drivers/lsm9ds1/hostbus"
	"lsm9ds1-go/services/bridge"
	"lsm9ds1-go/services/config"
	"lsm9ds1-go/services/regdebug"
	"lsm9ds1-go/services/telemetry"
	"lsm9ds1-go/types"
	"lsm9ds1-go/x/timex"
)

// app is what every hardware command needs: the parsed config, the open
// bus and the one lock that serializes access to the part.
type app struct {
	desc config.Desc
	hw   *hostbus.Bus
	dev  *lsm9ds1.Device
	mu   sync.Mutex
	out  io.Writer
}

// newApp parses and validates the config without touching hardware.
func newApp(cmd *cobra.Command) (*app, error) {
	a := &app{desc: config.NewDesc(), out: cmd.OutOrStdout()}
	if err := a.desc.Parse(cmd); err != nil {
		return nil, err
	}
	a.desc.PostParse()
	if err := a.desc.Opt.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// open brings up the transport and binds the driver.
func (a *app) open() error {
	hw, err := hostbus.Open(a.desc.Opt.Bus.HostBus())
	if err != nil {
		return err
	}
	a.hw, a.dev = hw, hw.Device()
	log.WithField("interface", a.desc.Opt.Bus.Interface).Debugln("bus open")
	return nil
}

func (a *app) close() {
	if a.hw == nil {
		return
	}
	if err := a.hw.Close(); err != nil {
		log.Warnln("closing bus:", err)
	}
}

// openApp is newApp followed by open. The caller must close.
func openApp(cmd *cobra.Command) (*app, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, err
	}
	if err := a.open(); err != nil {
		return nil, err
	}
	return a, nil
}

// configure writes the configured sensor settings and returns what the
// part reports afterwards.
func (a *app) configure() (lsm9ds1.Settings, error) {
	want, err := a.desc.Opt.Sensor.Settings()
	if err != nil {
		return lsm9ds1.Settings{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.dev.Apply(want); err != nil {
		return lsm9ds1.Settings{}, fmt.Errorf("apply settings: %w", err)
	}
	return a.dev.Settings()
}

func (a *app) readOnce() (types.IMUValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sc, err := a.dev.Scales()
	if err != nil {
		return types.IMUValue{}, err
	}
	s, err := a.dev.ReadSample()
	if err != nil {
		return types.IMUValue{}, err
	}
	r := sc.Convert(s)
	return types.IMUValue{TS: timex.NowMs(), Accel: r.Accel, Gyro: r.Gyro, Mag: r.Mag, TempC: r.TempC}, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	return enc.Encode(v)
}

// -----------------------------------------------------------------------------
// Services
// -----------------------------------------------------------------------------

type runOpts struct {
	bridge   bool
	debugger bool
	print    int // samples to print; 0 prints none, -1 prints forever
}

// run starts the services on a fresh bus and blocks until ctx ends, a
// signal arrives or the print budget is spent.
func (a *app) run(ctx context.Context, ro runOpts) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opt := a.desc.Opt
	b := bus.NewBus(opt.Telemetry.QueueLen)

	cfgConn := b.NewConnection("config")
	config.PublishTelemetry(cfgConn, opt.Telemetry)
	if err := a.desc.Watch(cfgConn); err != nil {
		log.Debugln("config watch:", err)
	}

	svc := telemetry.New(a.dev, &a.mu, telemetry.Options{
		Interval:  rateInterval(opt.Telemetry.RateHz),
		Raw:       opt.Telemetry.Raw,
		Interface: opt.Bus.Interface,
		Settings:  opt.Sensor.Map(),
	})
	if err := svc.Start(ctx, b.NewConnection("telemetry")); err != nil {
		return err
	}

	if ro.bridge && opt.MQTT.Enabled {
		bridge.New(b.NewConnection("bridge"), bridgeConfig(opt.MQTT), bridge.DialMQTT).Start(ctx)
	}

	errc := make(chan error, 1)
	if ro.debugger {
		srv := a.debugServer(b.NewConnection("regdebug"))
		go func() {
			log.Infof("register debugger on ws://%s%s", srv.Addr, opt.Debugger.Path)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	var values <-chan *bus.Message
	if ro.print != 0 {
		ui := b.NewConnection("ui")
		defer ui.Disconnect()
		values = ui.Subscribe(bus.T(types.TopicValue)).Channel()
	}

	printed := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case m := <-values:
			if err := a.printJSON(m.Payload); err != nil {
				return err
			}
			printed++
			if ro.print > 0 && printed >= ro.print {
				return nil
			}
		}
	}
}

func (a *app) debugServer(conn *bus.Connection) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(a.desc.Opt.Debugger.Path, regdebug.New(a.dev, &a.mu, conn))
	return &http.Server{
		Addr:              a.desc.Opt.Debugger.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func rateInterval(hz uint32) time.Duration {
	if hz == 0 {
		return telemetry.DefaultInterval
	}
	return timex.PeriodFromHz(hz)
}

func bridgeConfig(m config.MQTTOpt) bridge.Config {
	return bridge.Config{
		Broker:   m.Broker,
		ClientID: m.ClientID,
		Username: m.Username,
		Password: m.Password,
		Prefix:   m.Prefix,
		Filter:   m.Filter,
		QoS:      m.QoS,
	}
}
