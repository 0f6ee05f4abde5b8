// Package sensor reads the cooler's compartment temperature.
package sensor

import (
	"context"
	"errors"
	"fmt"

	"mobiremote/internal/config"
	"mobiremote/internal/logger"
)

// Sensor returns a calibrated temperature in degrees Celsius.
type Sensor interface {
	ReadCelsius(ctx context.Context) (float64, error)
}

var (
	ErrNoDevice    = errors.New("no temperature device found")
	ErrImplausible = errors.New("implausible temperature reading")
)

// New builds the sensor selected by cfg.Kind.
func New(cfg config.SensorConfig, log *logger.Logger) (Sensor, error) {
	switch cfg.Kind {
	case config.SensorFixed:
		return Fixed(cfg.Fixed.Celsius), nil
	case config.SensorDS18B20:
		path := cfg.DS18B20.Path
		if path == "" {
			paths := Enumerate(W1DevicesRoot)
			if len(paths) == 0 {
				return nil, fmt.Errorf("ds18b20 under %s: %w", W1DevicesRoot, ErrNoDevice)
			}
			path = paths[0]
			log.Infow("ds18b20_enumerated", "path", path, "found", len(paths))
		}
		return NewDS18B20(path), nil
	case config.SensorNTC:
		return NewNTC(NewSysfsADC(cfg.NTC.RawPath), cfg.NTC)
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", cfg.Kind)
	}
}

// Fixed always reports the same value.
type Fixed float64

func (f Fixed) ReadCelsius(context.Context) (float64, error) { return float64(f), nil }
