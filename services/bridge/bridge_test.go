package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"lsm9ds1-go/bus"
	"lsm9ds1-go/types"
)

var _ Link = (*mqttLink)(nil)

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeLink records publishes; a non-nil connErr fails Connect.
type fakeLink struct {
	mu      sync.Mutex
	pubs    []published
	lost    chan error
	onPub   chan published
	connErr error
}

func (f *fakeLink) Connect(context.Context) error { return f.connErr }
func (f *fakeLink) Lost() <-chan error            { return f.lost }
func (f *fakeLink) Close()                        {}

func (f *fakeLink) Publish(topic string, qos byte, retained bool, payload []byte) error {
	p := published{topic, qos, retained, append([]byte(nil), payload...)}
	f.mu.Lock()
	f.pubs = append(f.pubs, p)
	f.mu.Unlock()
	f.onPub <- p
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	dials   int
	fails   int // connect failures before success
	links   []*fakeLink
	onPub   chan published
	initErr error
}

func (d *fakeDialer) dial(Config) (Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initErr != nil {
		return nil, d.initErr
	}
	d.dials++
	l := &fakeLink{lost: make(chan error, 1), onPub: d.onPub}
	if d.dials <= d.fails {
		l.connErr = errors.New("connection refused")
	}
	d.links = append(d.links, l)
	return l, nil
}

func (d *fakeDialer) last() *fakeLink {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.links[len(d.links)-1]
}

func newTestService(conn *bus.Connection, d *fakeDialer) *Service {
	s := New(conn, Config{Prefix: "lab", Filter: "imu/#", QoS: 1}, d.dial)
	s.backoffMin, s.backoffMax = time.Millisecond, 2*time.Millisecond
	return s
}

func nextState(t *testing.T, sub *bus.Subscription) types.BridgeState {
	t.Helper()
	select {
	case m := <-sub.Channel():
		st, ok := m.Payload.(types.BridgeState)
		if !ok {
			t.Fatalf("state payload %T", m.Payload)
		}
		return st
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for bridge/state")
		return types.BridgeState{}
	}
}

func nextPub(t *testing.T, ch <-chan published) published {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for publish")
		return published{}
	}
}

func TestBridgeRetriesThenForwards(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("bridge_test")
	states := conn.Subscribe(bus.T(types.TopicBridgeState))

	d := &fakeDialer{fails: 1, onPub: make(chan published, 16)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn.Publish(conn.NewMessage(bus.T(types.TopicInfo), types.Info{Driver: "lsm9ds1"}, true))
	newTestService(conn, d).Start(ctx)

	if st := nextState(t, states); st.Level != "idle" {
		t.Fatalf("first state %+v", st)
	}
	if st := nextState(t, states); st.Status != "dial_failed_retrying" || st.Error == "" {
		t.Fatalf("retry state %+v", st)
	}
	if st := nextState(t, states); st.Status != "link_established" {
		t.Fatalf("up state %+v", st)
	}

	// Remote state first, then the retained info replayed to the new link.
	if p := nextPub(t, d.onPub); p.topic != "lab/bridge/state" || !p.retained {
		t.Fatalf("remote state %+v", p)
	}
	p := nextPub(t, d.onPub)
	if p.topic != "lab/imu/info" || !p.retained || p.qos != 1 {
		t.Fatalf("info publish %+v", p)
	}
	var info types.Info
	if err := json.Unmarshal(p.payload, &info); err != nil || info.Driver != "lsm9ds1" {
		t.Fatalf("info payload %s (%v)", p.payload, err)
	}

	conn.Publish(conn.NewMessage(bus.T(types.TopicValue), types.IMUValue{TempC: 25}, false))
	p = nextPub(t, d.onPub)
	if p.topic != "lab/imu/value" || p.retained {
		t.Fatalf("value publish %+v", p)
	}

	// Outside the filter: not forwarded.
	conn.Publish(conn.NewMessage(bus.T("config/telemetry"), types.TelemetryConfig{}, false))
	select {
	case p := <-d.onPub:
		t.Fatalf("unexpected publish %+v", p)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestBridgeReconnectsAfterLoss(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("bridge_test")
	states := conn.Subscribe(bus.T(types.TopicBridgeState))

	d := &fakeDialer{onPub: make(chan published, 16)}
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestService(conn, d)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	nextState(t, states) // idle
	if st := nextState(t, states); st.Level != "up" {
		t.Fatalf("state %+v", st)
	}
	nextPub(t, d.onPub)
	d.last().lost <- errors.New("broker went away")

	if st := nextState(t, states); st.Status != "link_lost_retrying" || st.Error != "broker went away" {
		t.Fatalf("lost state %+v", st)
	}
	if st := nextState(t, states); st.Level != "up" {
		t.Fatalf("reconnect state %+v", st)
	}

	cancel()
	<-done
	if m, _ := b.Retained(bus.T(types.TopicBridgeState)); m.Payload.(types.BridgeState).Level != "down" {
		t.Fatalf("final state %+v", m.Payload)
	}
}

func TestBridgeStopLeavesRemoteState(t *testing.T) {
	b := bus.NewBus(16)
	conn := b.NewConnection("bridge_test")
	states := conn.Subscribe(bus.T(types.TopicBridgeState))

	d := &fakeDialer{onPub: make(chan published, 16)}
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestService(conn, d)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	nextState(t, states) // idle
	if st := nextState(t, states); st.Level != "up" {
		t.Fatalf("state %+v", st)
	}
	nextPub(t, d.onPub) // remote "up"

	cancel()
	<-done

	p := nextPub(t, d.onPub)
	if p.topic != "lab/bridge/state" || !p.retained || p.qos != 1 {
		t.Fatalf("stop publish %+v", p)
	}
	var st types.BridgeState
	if err := json.Unmarshal(p.payload, &st); err != nil || st.Level != "down" || st.Status != "stopped" {
		t.Fatalf("stop payload %s (%v)", p.payload, err)
	}

	link := d.last()
	link.mu.Lock()
	defer link.mu.Unlock()
	if last := link.pubs[len(link.pubs)-1]; last.topic != "lab/bridge/state" {
		t.Fatalf("last publish on %q", last.topic)
	}
}

func TestBridgeInitFailureIsTerminal(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("bridge_test")
	states := conn.Subscribe(bus.T(types.TopicBridgeState))

	d := &fakeDialer{initErr: errors.New("no broker")}
	done := make(chan struct{})
	go func() {
		newTestService(conn, d).Run(context.Background())
		close(done)
	}()

	nextState(t, states)
	if st := nextState(t, states); st.Level != "error" || st.Status != "link_init_failed" {
		t.Fatalf("state %+v", st)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRemoteTopicAndSkip(t *testing.T) {
	if got := (Config{}).remote(bus.T("imu/value")); got != "imu/value" {
		t.Fatalf("no prefix: %q", got)
	}
	if got := (Config{Prefix: "a/b"}).remote(bus.T("imu/value")); got != "a/b/imu/value" {
		t.Fatalf("prefix: %q", got)
	}
	if !skip(bus.Topic{"_reply", "7"}) || !skip(bus.T(types.TopicBridgeState)) || skip(bus.T(types.TopicValue)) {
		t.Fatal("skip rules")
	}
	if _, err := DialMQTT(Config{}); err == nil {
		t.Fatal("DialMQTT accepted an empty broker")
	}
}

func TestBackoffSeq(t *testing.T) {
	next := backoffSeq(10*time.Millisecond, 35*time.Millisecond)
	for i, want := range []time.Duration{10, 20, 35, 35} {
		if got := next(); got != want*time.Millisecond {
			t.Fatalf("step %d = %v", i, got)
		}
	}
}
