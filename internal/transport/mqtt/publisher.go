package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mobiremote/internal/models"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// ErrOffline is returned while no broker session is open. Publishes are not
// queued; the next status command republishes the current state.
var ErrOffline = errors.New("mqtt offline")

// Publisher pushes status and journal lines to <prefix>target, power, temp
// and log. Only log is retained, so a late subscriber sees the last line.
type Publisher struct {
	client  paho.Client
	prefix  string
	timeout time.Duration
}

func NewPublisher(client paho.Client, prefix string) *Publisher {
	return &Publisher{client: client, prefix: prefix, timeout: publishTimeout}
}

func (p *Publisher) publish(ctx context.Context, suffix, payload string, retained bool) error {
	topic := p.prefix + suffix
	if !p.client.IsConnectionOpen() {
		return fmt.Errorf("publish %s: %w", topic, ErrOffline)
	}
	tok := p.client.Publish(topic, qosStatus, retained, payload)

	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	case <-time.After(p.timeout):
		return fmt.Errorf("publish %s: timed out after %s", topic, p.timeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) PublishTarget(ctx context.Context, target int) error {
	return p.publish(ctx, "target", strconv.Itoa(target), false)
}

func (p *Publisher) PublishPower(ctx context.Context, on bool) error {
	v := "0"
	if on {
		v = "1"
	}
	return p.publish(ctx, "power", v, false)
}

func (p *Publisher) PublishTemperature(ctx context.Context, celsius float64) error {
	return p.publish(ctx, "temp", strconv.FormatFloat(celsius, 'f', 2, 64), false)
}

func (p *Publisher) PublishLog(ctx context.Context, e models.ApplianceEvent) error {
	return p.publish(ctx, "log", e.Description, true)
}
