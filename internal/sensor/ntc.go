package sensor

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"mobiremote/internal/config"
)

const kelvinOffset = 273.15

// ADC returns one raw conversion.
type ADC interface {
	ReadRaw(ctx context.Context) (int, error)
}

// SysfsADC reads a Linux IIO channel such as
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type SysfsADC struct {
	path string
}

func NewSysfsADC(path string) *SysfsADC { return &SysfsADC{path: path} }

func (a *SysfsADC) ReadRaw(context.Context) (int, error) {
	b, err := os.ReadFile(a.path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", a.path, err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, fmt.Errorf("parse adc value: %w", err)
	}
	return v, nil
}

// NTC is a thermistor on the low side of a divider with a fixed series
// resistor to the reference voltage.
type NTC struct {
	adc ADC
	cfg config.NTCConfig
}

func NewNTC(adc ADC, cfg config.NTCConfig) (*NTC, error) {
	if cfg.Samples <= 0 {
		return nil, fmt.Errorf("ntc samples must be positive, got %d", cfg.Samples)
	}
	if cfg.ADCMax <= 0 {
		return nil, fmt.Errorf("ntc adc_max must be positive, got %v", cfg.ADCMax)
	}
	switch cfg.Transfer {
	case config.TransferSteinhart:
		if cfg.SeriesResistor <= 0 {
			return nil, fmt.Errorf("ntc series_resistor must be positive, got %v", cfg.SeriesResistor)
		}
	case config.TransferLinear:
	default:
		return nil, fmt.Errorf("unknown ntc transfer %q", cfg.Transfer)
	}
	return &NTC{adc: adc, cfg: cfg}, nil
}

// ReadCelsius averages cfg.Samples conversions and applies the transfer.
func (n *NTC) ReadCelsius(ctx context.Context) (float64, error) {
	var sum float64
	for i := 0; i < n.cfg.Samples; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		v, err := n.adc.ReadRaw(ctx)
		if err != nil {
			return 0, err
		}
		sum += float64(v)
	}
	raw := sum / float64(n.cfg.Samples)

	if n.cfg.Transfer == config.TransferLinear {
		return n.cfg.Slope*raw + n.cfg.Offset, nil
	}
	return n.steinhartHart(raw)
}

func (n *NTC) steinhartHart(raw float64) (float64, error) {
	// a rail reading means an open or shorted probe
	if raw <= 0 || raw >= n.cfg.ADCMax {
		return 0, fmt.Errorf("adc %.1f at rail: %w", raw, ErrImplausible)
	}
	r := n.cfg.SeriesResistor * raw / (n.cfg.ADCMax - raw)
	lnR := math.Log(r)
	inv := n.cfg.A + n.cfg.B*lnR + n.cfg.C*lnR*lnR*lnR
	if inv <= 0 {
		return 0, fmt.Errorf("resistance %.0f ohm: %w", r, ErrImplausible)
	}
	return 1/inv - kelvinOffset, nil
}
