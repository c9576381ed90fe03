package bridge

import (
	"context"
	"errors"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/types"
	"lsm9ds1-go/x/strx"
)

const (
	connectTimeout = 5 * time.Second
	publishTimeout = 2 * time.Second
)

var errPublishTimeout = errors.New("bridge: publish timed out")

// mqttLink is a Link over paho. Reconnects are left to the bridge so the
// state topic sees every drop.
type mqttLink struct {
	c    mqtt.Client
	lost chan error
}

// DialMQTT is the production Dialer.
func DialMQTT(cfg Config) (Link, error) {
	if cfg.Broker == "" {
		return nil, errors.New("bridge: no broker configured")
	}
	l := &mqttLink{lost: make(chan error, 1)}
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(strx.Coalesce(cfg.ClientID, defaultClientID())).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(false).
		SetConnectTimeout(connectTimeout).
		SetWill(cfg.remote(bus.T(types.TopicBridgeState)), `{"level":"down","status":"connection_lost"}`, 1, true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			select {
			case l.lost <- err:
			default:
			}
		})
	l.c = mqtt.NewClient(opts)
	return l, nil
}

func (l *mqttLink) Connect(ctx context.Context) error {
	tok := l.c.Connect()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *mqttLink) Publish(topic string, qos byte, retained bool, payload []byte) error {
	tok := l.c.Publish(topic, qos, retained, payload)
	if !tok.WaitTimeout(publishTimeout) {
		return errPublishTimeout
	}
	return tok.Error()
}

func (l *mqttLink) Lost() <-chan error { return l.lost }

func (l *mqttLink) Close() {
	if l.c.IsConnected() {
		l.c.Disconnect(250)
	}
}

func defaultClientID() string {
	host, _ := os.Hostname()
	return "lsm9ds1-" + strx.Coalesce(host, "host")
}
