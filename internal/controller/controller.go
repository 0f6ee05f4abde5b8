// Package controller runs the single control loop. Commands from MQTT, HTTP
// and the reset button are queued one deep and executed strictly in order,
// interleaved with temperature sampling.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"mobiremote/internal/gpio"
	"mobiremote/internal/logger"
	"mobiremote/internal/models"
	"mobiremote/internal/service"
)

var (
	// ErrBusy is returned by Submit when a command is already waiting.
	ErrBusy = errors.New("controller busy: a command is already queued")
	// ErrStopped is returned by Submit once the control loop has exited.
	ErrStopped = errors.New("controller stopped")
)

// Command outcomes reported to the Recorder.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeInvalid  = "invalid"
	OutcomeBusy     = "busy"
)

// Recorder counts handled commands.
type Recorder interface {
	ObserveCommand(kind, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCommand(string, string) {}

type Controller struct {
	app       service.Appliance
	temps     service.Temperature
	indicator gpio.Indicator
	metrics   Recorder
	interval  time.Duration
	log       *logger.Logger

	mu      sync.Mutex
	stopped bool
	queue   chan models.Command
}

// New returns a controller sampling temperature every interval.
func New(app service.Appliance, temps service.Temperature, indicator gpio.Indicator, metrics Recorder, interval time.Duration, log *logger.Logger) *Controller {
	if indicator == nil {
		indicator = gpio.NopIndicator{}
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Controller{
		app:       app,
		temps:     temps,
		indicator: indicator,
		metrics:   metrics,
		interval:  interval,
		log:       log.Named("controller"),
		queue:     make(chan models.Command, 1),
	}
}

// Submit queues cmd without blocking. While one command is executing a
// second one may wait; anything beyond that is rejected with ErrBusy and
// journaled.
func (c *Controller) Submit(ctx context.Context, cmd models.Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		c.metrics.ObserveCommand(cmd.Kind.String(), OutcomeBusy)
		c.app.RejectBusy(ctx, cmd)
		return ErrStopped
	}
	select {
	case c.queue <- cmd:
		c.log.Debugw("command_queued", "command", cmd.String(), "source", cmd.Source)
		return nil
	default:
		c.metrics.ObserveCommand(cmd.Kind.String(), OutcomeBusy)
		c.app.RejectBusy(ctx, cmd)
		return ErrBusy
	}
}

// Run owns the appliance until ctx is done. A command in progress is always
// finished before Run returns; one still waiting in the queue is journaled
// as discarded.
func (c *Controller) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	defer c.stop(context.WithoutCancel(ctx))

	c.temps.Sample(ctx)
	for {
		// cancellation wins over a command that is already waiting
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.queue:
			// the press sequence and its journal entries must complete
			// even when shutdown starts halfway through
			c.Handle(context.WithoutCancel(ctx), cmd)
		case <-t.C:
			c.temps.Sample(ctx)
		}
	}
}

func (c *Controller) stop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopped = true
	for {
		select {
		case cmd := <-c.queue:
			c.metrics.ObserveCommand(cmd.Kind.String(), OutcomeBusy)
			c.app.RejectBusy(ctx, cmd)
		default:
			c.log.Infow("control_loop_stopped")
			return
		}
	}
}

// Handle executes one command synchronously. Exported for tests and tools
// that bypass the queue.
func (c *Controller) Handle(ctx context.Context, cmd models.Command) {
	c.indicator.Set(true)
	defer c.indicator.Set(false)

	start := time.Now()
	err := c.dispatch(ctx, cmd)

	outcome := OutcomeOK
	var rerr *service.RejectionError
	switch {
	case cmd.Kind == models.CommandInvalid:
		outcome = OutcomeInvalid
	case errors.As(err, &rerr):
		outcome = OutcomeRejected
	case err != nil:
		outcome = OutcomeError
	}
	c.metrics.ObserveCommand(cmd.Kind.String(), outcome)
	c.log.Infow("command_handled",
		"command", cmd.String(),
		"source", cmd.Source,
		"outcome", outcome,
		"took", time.Since(start).String(),
	)
}

func (c *Controller) dispatch(ctx context.Context, cmd models.Command) error {
	switch cmd.Kind {
	case models.CommandSetTarget:
		return c.app.ApplyTarget(ctx, cmd.Value)
	case models.CommandSetPower:
		return c.app.ApplyPower(ctx, cmd.On)
	case models.CommandInitTarget:
		return c.app.ForceTarget(ctx, cmd.Value)
	case models.CommandInitPower:
		return c.app.ForcePower(ctx, cmd.On)
	case models.CommandStatus:
		return c.app.PublishStatus(ctx)
	case models.CommandResetConfig:
		return c.app.ResetBrokerConfig(ctx)
	case models.CommandProvisionBroker:
		return c.app.ProvisionBroker(ctx, cmd.Broker)
	default:
		c.app.RejectInvalid(ctx, cmd)
		return nil
	}
}
