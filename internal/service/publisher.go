package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"
)

// StatusPublisher pushes state outward (MQTT topics, telemetry sinks).
// Failures are reported to the caller, which logs them; they never undo a
// state change.
type StatusPublisher interface {
	PublishTarget(ctx context.Context, target int) error
	PublishPower(ctx context.Context, on bool) error
	PublishTemperature(ctx context.Context, celsius float64) error
	PublishLog(ctx context.Context, e models.ApplianceEvent) error
}

// MultiPublisher fans out to every attached publisher. Sinks can be attached
// after construction, once their connections are up.
type MultiPublisher struct {
	mu   sync.RWMutex
	subs []StatusPublisher
	log  *logger.Logger
}

func NewMultiPublisher(log *logger.Logger, subs ...StatusPublisher) *MultiPublisher {
	return &MultiPublisher{subs: subs, log: log.Named("publisher")}
}

func (m *MultiPublisher) Attach(p StatusPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, p)
}

func (m *MultiPublisher) each(f func(StatusPublisher) error) error {
	m.mu.RLock()
	subs := append([]StatusPublisher(nil), m.subs...)
	m.mu.RUnlock()

	var errs []error
	for _, p := range subs {
		if err := f(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiPublisher) PublishTarget(ctx context.Context, target int) error {
	return m.each(func(p StatusPublisher) error { return p.PublishTarget(ctx, target) })
}

func (m *MultiPublisher) PublishPower(ctx context.Context, on bool) error {
	return m.each(func(p StatusPublisher) error { return p.PublishPower(ctx, on) })
}

func (m *MultiPublisher) PublishTemperature(ctx context.Context, celsius float64) error {
	return m.each(func(p StatusPublisher) error { return p.PublishTemperature(ctx, celsius) })
}

func (m *MultiPublisher) PublishLog(ctx context.Context, e models.ApplianceEvent) error {
	return m.each(func(p StatusPublisher) error { return p.PublishLog(ctx, e) })
}

// Recorder receives operational measurements.
type Recorder interface {
	ObserveActuation(presses int, took time.Duration, err error)
	ObserveTemperatureReport(celsius float64)
	ObserveSensorError()
}

type NopRecorder struct{}

func (NopRecorder) ObserveActuation(int, time.Duration, error) {}
func (NopRecorder) ObserveTemperatureReport(float64)           {}
func (NopRecorder) ObserveSensorError()                        {}
