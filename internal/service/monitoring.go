package service

import (
	"context"
	"time"

	"mobiremote/internal/models"
)

// ShadowSource provides the shadow state and its last change time.
type ShadowSource interface {
	State() (models.ShadowState, time.Time)
}

type MonitoringService struct {
	shadow ShadowSource
	temps  TemperatureSource
	rng    models.TargetRange
}

func NewMonitoringService(shadow ShadowSource, temps TemperatureSource, rng models.TargetRange) *MonitoringService {
	return &MonitoringService{shadow: shadow, temps: temps, rng: rng}
}

// GetStatus returns the current snapshot. It never blocks on an actuation.
func (s *MonitoringService) GetStatus(ctx context.Context) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}

	st, updatedAt := s.shadow.State()
	obs := s.temps.Observed()

	return models.Snapshot{
		Target:           st.Target,
		PowerOn:          st.PowerOn,
		TemperatureC:     obs.Value,
		TemperatureValid: obs.Valid,
		MinTarget:        s.rng.Min,
		MaxTarget:        s.rng.Max,
		UpdatedAt:        toUTC(updatedAt),
	}, nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
