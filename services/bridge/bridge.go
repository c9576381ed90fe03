// Package bridge mirrors bus traffic to an MQTT broker. It subscribes to a
// topic filter on the local bus, encodes each payload as JSON and publishes
// it under a prefix, reconnecting with backoff when the link drops.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/types"
	"lsm9ds1-go/x/timex"
)

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string // prepended to every bus topic
	Filter   string // bus filter, e.g. "imu/#"
	QoS      byte
}

// remote maps a bus topic to its broker topic.
func (c Config) remote(t bus.Topic) string {
	if c.Prefix == "" {
		return t.String()
	}
	return c.Prefix + "/" + t.String()
}

// -----------------------------------------------------------------------------
// Link
// -----------------------------------------------------------------------------

// Link is the broker side of the bridge.
type Link interface {
	Connect(ctx context.Context) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	// Lost delivers at most one error when the connection drops.
	Lost() <-chan error
	Close()
}

// Dialer builds a fresh, unconnected Link.
type Dialer func(Config) (Link, error)

// -----------------------------------------------------------------------------
// Service
// -----------------------------------------------------------------------------

type Service struct {
	conn       *bus.Connection
	cfg        Config
	dial       Dialer
	stateTopic bus.Topic

	backoffMin time.Duration
	backoffMax time.Duration
}

func New(conn *bus.Connection, cfg Config, dial Dialer) *Service {
	if cfg.Filter == "" {
		cfg.Filter = bus.WildRest
	}
	return &Service{
		conn:       conn,
		cfg:        cfg,
		dial:       dial,
		stateTopic: bus.T(types.TopicBridgeState),
		backoffMin: 250 * time.Millisecond,
		backoffMax: 5 * time.Second,
	}
}

// Start runs the bridge in a goroutine.
func (s *Service) Start(ctx context.Context) {
	go s.Run(ctx)
}

// Run supervises the link until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	l := log.WithField("svc", "bridge")
	backoff := backoffSeq(s.backoffMin, s.backoffMax)
	s.publishState("idle", "connecting", nil)

	for {
		link, err := s.dial(s.cfg)
		if err != nil {
			l.Errorln("link init:", err)
			s.publishState("error", "link_init_failed", err)
			return
		}
		if err := link.Connect(ctx); err != nil {
			link.Close()
			if ctx.Err() != nil {
				s.publishState("down", "stopped", nil)
				return
			}
			delay := backoff()
			l.Warnf("connect %s: %v (retry in %s)", s.cfg.Broker, err, delay)
			s.publishState("degraded", "dial_failed_retrying", err)
			if !sleep(ctx, delay) {
				s.publishState("down", "stopped", nil)
				return
			}
			continue
		}

		l.Infoln("connected to", s.cfg.Broker)
		s.publishState("up", "link_established", nil)
		backoff = backoffSeq(s.backoffMin, s.backoffMax)

		err = s.forward(ctx, link, l)
		link.Close()
		if err == nil {
			s.publishState("down", "stopped", nil)
			return
		}
		delay := backoff()
		l.Warnf("link lost: %v (retry in %s)", err, delay)
		s.publishState("degraded", "link_lost_retrying", err)
		if !sleep(ctx, delay) {
			s.publishState("down", "stopped", nil)
			return
		}
	}
}

// forward owns one connected link. It returns nil when ctx ends and the
// cause otherwise. Retained bus messages are replayed on every new link
// because the subscription is made afresh.
func (s *Service) forward(ctx context.Context, link Link, l *log.Entry) error {
	sub := s.conn.Subscribe(bus.T(s.cfg.Filter))
	defer s.conn.Unsubscribe(sub)

	// Overwrites the broker-side will left by a previous drop.
	if err := s.publishRemoteState(link, "up", "link_established"); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			s.stopRemote(link, l)
			return nil
		case err := <-link.Lost():
			if err == nil {
				err = errLinkClosed
			}
			return err
		case msg, ok := <-sub.Channel():
			if !ok {
				s.stopRemote(link, l)
				return nil
			}
			if skip(msg.Topic) {
				continue
			}
			payload, err := json.Marshal(msg.Payload)
			if err != nil {
				l.Warnf("%s: %v", msg.Topic, err)
				continue
			}
			if err := link.Publish(s.cfg.remote(msg.Topic), s.cfg.QoS, msg.Retained, payload); err != nil {
				return err
			}
		}
	}
}

var errLinkClosed = errors.New("bridge: link closed")

// stopRemote leaves a retained "stopped" on the broker. The will only
// fires on an unclean drop, so a clean shutdown has to say so itself.
func (s *Service) stopRemote(link Link, l *log.Entry) {
	if err := s.publishRemoteState(link, "down", "stopped"); err != nil {
		l.Warnln("remote state:", err)
	}
}

func (s *Service) publishRemoteState(link Link, level, status string) error {
	b, err := json.Marshal(types.BridgeState{Level: level, Status: status, TS: timex.NowMs()})
	if err != nil {
		return err
	}
	return link.Publish(s.cfg.remote(s.stateTopic), 1, true, b)
}

// skip drops reply plumbing and the bridge's own state.
func skip(t bus.Topic) bool {
	return len(t) > 0 && (t[0] == "_reply" || t.String() == types.TopicBridgeState)
}

// -----------------------------------------------------------------------------
// Utilities
// -----------------------------------------------------------------------------

func (s *Service) publishState(level, status string, err error) {
	st := types.BridgeState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(s.stateTopic, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	var cur = min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
