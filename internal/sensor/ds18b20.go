package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// W1DevicesRoot is where the w1-therm kernel driver exposes devices.
const W1DevicesRoot = "/sys/bus/w1/devices"

// DS18B20 datasheet limits.
const (
	ds18b20Min = -55.0
	ds18b20Max = 125.0
)

// powerOnReset is the scratchpad content before the first conversion. A sensor
// that browned out reports it until the next successful conversion.
const powerOnReset = 85000

const (
	readAttempts = 3
	retryDelay   = 200 * time.Millisecond
)

// DS18B20 reads a one-wire probe through its sysfs "temperature" file, which
// holds millidegrees Celsius.
type DS18B20 struct {
	path  string
	delay time.Duration
}

func NewDS18B20(path string) *DS18B20 {
	return &DS18B20{path: path, delay: retryDelay}
}

func (d *DS18B20) ReadCelsius(ctx context.Context) (float64, error) {
	var raw []byte
	for attempt := 1; attempt <= readAttempts; attempt++ {
		var err error
		raw, err = os.ReadFile(d.path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", d.path, err)
		}
		if len(strings.TrimSpace(string(raw))) > 0 {
			break
		}
		// the driver sometimes returns an empty file mid-conversion
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(d.delay):
		}
	}
	return parseMilliCelsius(raw)
}

func parseMilliCelsius(raw []byte) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, fmt.Errorf("empty temperature file: %w", ErrImplausible)
	}
	milli, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if milli == powerOnReset {
		return 0, fmt.Errorf("power-on reset value: %w", ErrImplausible)
	}
	c := float64(milli) / 1000
	if c < ds18b20Min || c > ds18b20Max {
		return 0, fmt.Errorf("%.3f °C: %w", c, ErrImplausible)
	}
	return c, nil
}

// Enumerate returns the temperature files of every probe under root that
// currently yields a plausible reading, sorted by device ID.
func Enumerate(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	var paths []string
	for _, e := range entries {
		p := filepath.Join(root, e.Name(), "temperature")
		raw, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		if _, err := parseMilliCelsius(raw); err != nil {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}
