// Package telemetry mirrors appliance state into InfluxDB.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mobiremote/internal/config"
	"mobiremote/internal/logger"
	"mobiremote/internal/models"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sony/gobreaker"
)

const (
	measurementState       = "appliance_state"
	measurementTemperature = "appliance_temperature"
	measurementJournal     = "appliance_journal"
)

var ErrIncompleteConfig = errors.New("influx config incomplete")

// PointWriter is the subset of api.WriteAPIBlocking the sink uses.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// InfluxSink implements service.StatusPublisher. Writes go through a circuit
// breaker so a dead InfluxDB costs one failed call per open period instead of
// one timeout per sample.
type InfluxSink struct {
	writer PointWriter
	cb     *gobreaker.CircuitBreaker
	device string
	now    func() time.Time
	log    *logger.Logger
	close  func()
}

// NewInfluxSink dials nothing; the client connects lazily on first write.
func NewInfluxSink(cfg config.InfluxConfig, device string, log *logger.Logger) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, ErrIncompleteConfig
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	s := newSink(client.WriteAPIBlocking(cfg.Org, cfg.Bucket), cfg.Breaker, device, log)
	s.close = client.Close
	return s, nil
}

func newSink(w PointWriter, bc config.BreakerConfig, device string, log *logger.Logger) *InfluxSink {
	s := &InfluxSink{
		writer: w,
		device: device,
		now:    time.Now,
		log:    log.Named("influx"),
		close:  func() {},
	}
	s.cb = newBreaker("influx", bc, s.log)
	return s
}

func newBreaker(name string, bc config.BreakerConfig, log *logger.Logger) *gobreaker.CircuitBreaker {
	fails := bc.Failures
	if fails < 1 {
		fails = 1
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: bc.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("breaker_state_change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}

func (s *InfluxSink) Close() { s.close() }

// State reports the breaker state, for health output.
func (s *InfluxSink) State() gobreaker.State { return s.cb.State() }

func (s *InfluxSink) write(ctx context.Context, measurement string, tags map[string]string, fields map[string]interface{}) error {
	if tags == nil {
		tags = map[string]string{}
	}
	tags["device"] = s.device
	p := influxdb2.NewPoint(measurement, tags, fields, s.now())

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.writer.WritePoint(ctx, p)
	})
	if err != nil {
		return fmt.Errorf("influx write %s: %w", measurement, err)
	}
	return nil
}

func (s *InfluxSink) PublishTarget(ctx context.Context, target int) error {
	return s.write(ctx, measurementState, nil, map[string]interface{}{"target": target})
}

func (s *InfluxSink) PublishPower(ctx context.Context, on bool) error {
	return s.write(ctx, measurementState, nil, map[string]interface{}{"power_on": on})
}

func (s *InfluxSink) PublishTemperature(ctx context.Context, celsius float64) error {
	return s.write(ctx, measurementTemperature, nil, map[string]interface{}{"celsius": celsius})
}

func (s *InfluxSink) PublishLog(ctx context.Context, e models.ApplianceEvent) error {
	return s.write(ctx, measurementJournal,
		map[string]string{"type": e.Type},
		map[string]interface{}{"description": e.Description, "event_id": e.EventID})
}
