package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"

	"github.com/cenkalti/backoff/v4"
)

func newTestClient(cfg Config, fc *fakeClient, sink CommandSink, diag Diagnostics) *Client {
	c := NewClient(cfg, sink, diag, logger.Nop())
	c.client = fc
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c
}

func TestBrokerURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "bare host", cfg: Config{Broker: "10.0.0.5", Port: 1883}, want: "tcp://10.0.0.5:1883"},
		{name: "host and port", cfg: Config{Broker: "broker.lan:1884", Port: 1883}, want: "tcp://broker.lan:1884"},
		{name: "full url", cfg: Config{Broker: "ssl://broker.lan:8883", Port: 1883}, want: "ssl://broker.lan:8883"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BrokerURL(); got != tt.want {
				t.Fatalf("BrokerURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConnect_RetriesUntilSuccess(t *testing.T) {
	fc := &fakeClient{connectErrs: []error{errBroker, errBroker, nil}}
	c := newTestClient(Config{Broker: "h", ConnectRetries: 5}, fc, nil, nil)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if fc.connects != 3 {
		t.Fatalf("connect attempts = %d, want 3", fc.connects)
	}
}

func TestConnect_UnlimitedByDefault(t *testing.T) {
	errs := make([]error, 50)
	for i := range errs {
		errs[i] = errBroker
	}
	fc := &fakeClient{connectErrs: errs}
	c := newTestClient(Config{Broker: "h"}, fc, nil, nil)

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if fc.connects != 51 {
		t.Fatalf("connect attempts = %d, want 51", fc.connects)
	}
}

func TestStart_ConnectsInBackground(t *testing.T) {
	fc := &fakeClient{connectErrs: []error{errBroker, errBroker, errBroker}}
	c := newTestClient(Config{Broker: "h"}, fc, nil, nil)

	select {
	case err := <-c.Start(context.Background()):
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() never connected")
	}
	if !fc.IsConnected() {
		t.Fatal("client not connected")
	}
}

func TestStart_StopsWithContext(t *testing.T) {
	fc := &fakeClient{connectErrs: []error{errBroker}}
	c := newTestClient(Config{Broker: "h"}, fc, nil, nil)
	c.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	done := c.Start(ctx)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Start() connected after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() ignored cancellation")
	}
}

func TestConnect_GivesUpAfterRetries(t *testing.T) {
	fc := &fakeClient{connectErrs: []error{errBroker, errBroker, errBroker, errBroker}}
	c := newTestClient(Config{Broker: "h", ConnectRetries: 2}, fc, nil, nil)

	err := c.Connect(context.Background())
	if !errors.Is(err, errBroker) {
		t.Fatalf("Connect() error = %v, want %v", err, errBroker)
	}
	if fc.connects != 2 {
		t.Fatalf("connect attempts = %d, want 2", fc.connects)
	}
}

func TestConnect_CancelledContext(t *testing.T) {
	fc := &fakeClient{connectErrs: []error{errBroker, errBroker, errBroker}}
	c := newTestClient(Config{Broker: "h", ConnectRetries: 3}, fc, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Connect(ctx); err == nil {
		t.Fatal("Connect() with cancelled context returned nil")
	}
}

func TestOnConnect_SubscribesAndAnnounces(t *testing.T) {
	fc := &fakeClient{}
	var got []models.Command
	c := newTestClient(Config{TopicPrefix: "cooler/"}, fc,
		func(cmd models.Command) { got = append(got, cmd) },
		fakeDiag{ip: "192.168.1.40", rssi: -61, ok: true})

	c.onConnect(fc)

	if len(fc.subs) != 1 || fc.subs[0].filter != "cooler/cmnd/#" || fc.subs[0].qos != 1 {
		t.Fatalf("subscriptions = %+v", fc.subs)
	}
	pubs := fc.published()
	want := []published{
		{topic: "cooler/ip", retained: true, payload: "192.168.1.40"},
		{topic: "cooler/rssi", retained: true, payload: "-61"},
	}
	if len(pubs) != len(want) {
		t.Fatalf("published = %+v, want %+v", pubs, want)
	}
	for i := range want {
		if pubs[i] != want[i] {
			t.Fatalf("published[%d] = %+v, want %+v", i, pubs[i], want[i])
		}
	}

	fc.subs[0].handler(fc, fakeMessage{topic: "cooler/cmnd/target", payload: []byte("8")})
	fc.subs[0].handler(fc, fakeMessage{topic: "cooler/cmnd/foo", payload: []byte("bar")})
	if len(got) != 2 {
		t.Fatalf("sink got %d commands, want 2", len(got))
	}
	if got[0].Kind != models.CommandSetTarget || got[0].Value != 8 || got[0].Source != models.SourceMQTT {
		t.Fatalf("first command = %+v", got[0])
	}
	if got[1].Kind != models.CommandInvalid {
		t.Fatalf("second command kind = %v, want invalid", got[1].Kind)
	}
}

func TestOnConnect_NoRSSI(t *testing.T) {
	fc := &fakeClient{}
	c := newTestClient(Config{TopicPrefix: "p/"}, fc, nil, fakeDiag{ip: "10.0.0.2"})

	c.onConnect(fc)

	pubs := fc.published()
	if len(pubs) != 1 || pubs[0].topic != "p/ip" {
		t.Fatalf("published = %+v, want only ip", pubs)
	}
}

func TestOnConnect_SubscribeFailureSkipsAnnounce(t *testing.T) {
	fc := &fakeClient{subscribeErr: errBroker}
	c := newTestClient(Config{TopicPrefix: "p/"}, fc, nil, fakeDiag{ip: "10.0.0.2", ok: true})

	c.onConnect(fc)

	if pubs := fc.published(); len(pubs) != 0 {
		t.Fatalf("published = %+v, want nothing", pubs)
	}
}

func TestDisconnect(t *testing.T) {
	fc := &fakeClient{connected: true}
	c := newTestClient(Config{}, fc, nil, nil)

	c.Disconnect()
	if !fc.disconnected {
		t.Fatal("Disconnect() did not disconnect the connected client")
	}
}
