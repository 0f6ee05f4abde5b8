package service

import (
	"context"
	"math"
	"sync"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"
	"mobiremote/internal/sensor"
)

// DefaultReportThreshold is the smallest change in °C worth reporting.
const DefaultReportThreshold = 0.1

// absorbs representation error, e.g. 20.1-20.0 < 0.1
const thresholdEpsilon = 1e-9

// Debouncer decides which readings are reported. The first reading is always
// reported; after that only readings at least Threshold away from the last
// reported value are.
type Debouncer struct {
	Threshold float64

	last     float64
	reported bool
}

func (d *Debouncer) Observe(v float64) bool {
	if d.reported && math.Abs(v-d.last) < d.Threshold-thresholdEpsilon {
		return false
	}
	d.last = v
	d.reported = true
	return true
}

// TemperatureService samples the sensor on the control loop.
type TemperatureService struct {
	sensor  sensor.Sensor
	pub     StatusPublisher
	journal EventLog
	metrics Recorder
	log     *logger.Logger

	deb     Debouncer
	failing bool

	mu  sync.RWMutex
	obs models.ObservedTemperature
}

func NewTemperatureService(s sensor.Sensor, threshold float64, pub StatusPublisher, journal EventLog, metrics Recorder, log *logger.Logger) *TemperatureService {
	if threshold <= 0 {
		threshold = DefaultReportThreshold
	}
	return &TemperatureService{
		sensor:  s,
		pub:     pub,
		journal: journal,
		metrics: metrics,
		log:     log.Named("temperature"),
		deb:     Debouncer{Threshold: threshold},
	}
}

// Sample reads the sensor once and publishes the value when the debouncer
// lets it through. Read errors are journaled once per failure streak.
func (s *TemperatureService) Sample(ctx context.Context) {
	v, err := s.sensor.ReadCelsius(ctx)
	if err != nil {
		s.metrics.ObserveSensorError()
		s.mu.Lock()
		s.obs.Valid = false
		s.mu.Unlock()
		if !s.failing {
			s.failing = true
			s.log.Warnw("sensor_read_failed", "error", err)
			s.journal.Record(ctx, models.EventError, "temperature sensor: "+err.Error(), nil)
		}
		return
	}
	if s.failing {
		s.failing = false
		s.log.Infow("sensor_recovered", "celsius", v)
	}

	report := s.deb.Observe(v)

	s.mu.Lock()
	s.obs.Value = v
	s.obs.Valid = true
	if report {
		s.obs.LastReported = v
		s.obs.Reported = true
	}
	s.mu.Unlock()

	if !report {
		return
	}
	s.metrics.ObserveTemperatureReport(v)
	if err := s.pub.PublishTemperature(ctx, v); err != nil {
		s.log.Warnw("publish_failed", "topic", "temp", "error", err)
	}
}

func (s *TemperatureService) Observed() models.ObservedTemperature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.obs
}
