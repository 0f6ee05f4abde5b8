// Package mqtt connects the controller to the broker: command topics in,
// status and log topics out.
package mqtt

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"mobiremote/internal/command"
	"mobiremote/internal/logger"
	"mobiremote/internal/models"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	qosCommands = 1
	qosStatus   = 0

	publishTimeout = 5 * time.Second
	disconnectWait = 250 // ms

	maxConnectInterval = 30 * time.Second
)

// Config holds the effective broker parameters. ConnectRetries caps the first
// connection attempts; zero or less retries until the context ends.
type Config struct {
	Broker         string
	Port           int
	Username       string
	Password       string
	ClientID       string
	TopicPrefix    string
	ConnectRetries int
}

// BrokerURL accepts a full URL, host:port, or a bare host that gets Port.
func (c Config) BrokerURL() string {
	if strings.Contains(c.Broker, "://") {
		return c.Broker
	}
	if _, _, err := net.SplitHostPort(c.Broker); err == nil {
		return "tcp://" + c.Broker
	}
	return fmt.Sprintf("tcp://%s:%d", c.Broker, c.Port)
}

// CommandSink receives every command parsed from the broker.
type CommandSink func(cmd models.Command)

// Client wraps the paho client. Commands are handed to the sink on paho's
// callback goroutine; the sink must not block.
type Client struct {
	client paho.Client
	cfg    Config
	sink   CommandSink
	diag   Diagnostics
	log    *logger.Logger

	newBackOff func() backoff.BackOff
}

// NewClient builds a client with auto-reconnect. On every (re)connect it
// subscribes to the command topics and announces ip and rssi.
func NewClient(cfg Config, sink CommandSink, diag Diagnostics, log *logger.Logger) *Client {
	c := &Client{cfg: cfg, sink: sink, diag: diag, log: log.Named("mqtt")}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL())
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.log.Warnw("mqtt_connection_lost", "error", err)
	})
	opts.SetOnConnectHandler(c.onConnect)

	c.client = paho.NewClient(opts)
	c.newBackOff = defaultBackOff
	return c
}

func defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = maxConnectInterval
	bo.MaxElapsedTime = 0
	return bo
}

// Connect makes the first connection, retrying with exponential backoff.
// Later drops are handled by paho's auto-reconnect.
func (c *Client) Connect(ctx context.Context) error {
	attempt := 0
	op := func() error {
		attempt++
		if tok := c.client.Connect(); tok.Wait() && tok.Error() != nil {
			c.log.Warnw("mqtt_connect_failed", "broker", c.cfg.BrokerURL(), "attempt", attempt, "error", tok.Error())
			return tok.Error()
		}
		return nil
	}
	bo := c.newBackOff()
	if retries := c.cfg.ConnectRetries; retries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(retries-1))
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return fmt.Errorf("connect to %s after %d attempts: %w", c.cfg.BrokerURL(), attempt, err)
	}

	c.log.Infow("mqtt_connected", "broker", c.cfg.BrokerURL(), "client_id", c.cfg.ClientID)
	return nil
}

// Start runs Connect in the background so a broker that is down at boot
// does not hold up the rest of the controller. The returned channel yields
// Connect's result once.
func (c *Client) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := c.Connect(ctx)
		if err != nil && ctx.Err() == nil {
			c.log.Errorw("mqtt_unavailable", "broker", c.cfg.BrokerURL(), "error", err)
		}
		done <- err
	}()
	return done
}

func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Disconnect(disconnectWait)
	}
	c.log.Infow("mqtt_disconnected")
}

// Paho returns the underlying client for publishers.
func (c *Client) Paho() paho.Client { return c.client }

func (c *Client) onConnect(pc paho.Client) {
	filter := command.Filter(c.cfg.TopicPrefix)
	if tok := pc.Subscribe(filter, qosCommands, c.handleMessage); tok.Wait() && tok.Error() != nil {
		c.log.Errorw("mqtt_subscribe_failed", "filter", filter, "error", tok.Error())
		return
	}
	c.log.Infow("mqtt_subscribed", "filter", filter)

	if c.diag == nil {
		return
	}
	c.announce(pc, "ip", c.diag.IP())
	if rssi, ok := c.diag.RSSI(); ok {
		c.announce(pc, "rssi", strconv.Itoa(rssi))
	}
}

func (c *Client) announce(pc paho.Client, suffix, value string) {
	tok := pc.Publish(c.cfg.TopicPrefix+suffix, qosStatus, true, value)
	if !tok.WaitTimeout(publishTimeout) {
		c.log.Warnw("mqtt_publish_timeout", "topic", suffix)
		return
	}
	if err := tok.Error(); err != nil {
		c.log.Warnw("mqtt_publish_failed", "topic", suffix, "error", err)
	}
}

func (c *Client) handleMessage(_ paho.Client, msg paho.Message) {
	cmd := command.Parse(msg.Topic(), msg.Payload())
	c.log.Debugw("mqtt_command", "topic", msg.Topic(), "payload", string(msg.Payload()), "kind", cmd.Kind.String())
	if c.sink != nil {
		c.sink(cmd)
	}
}
