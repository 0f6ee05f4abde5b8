// Package gpio drives the cooler's button lines, the status LED and the
// configuration-reset button.
package gpio

import (
	"errors"
	"fmt"

	"mobiremote/internal/config"
	"mobiremote/internal/logger"
	"mobiremote/internal/models"

	"github.com/stianeikeland/go-rpio/v4"
)

// Line is the subset of rpio.Pin used here.
type Line interface {
	Output()
	Input()
	PullUp()
	Write(rpio.State)
	Read() rpio.State
}

var _ Line = rpio.Pin(0)

var ErrUnmappedControl = errors.New("control has no GPIO line")

// Open maps the GPIO registers. Close must be called on shutdown.
func Open() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("open gpio: %w", err)
	}
	return nil
}

func Close() error { return rpio.Close() }

func level(asserted, activeHigh bool) rpio.State {
	if asserted == activeHigh {
		return rpio.High
	}
	return rpio.Low
}

// RPIOActuator drives one output line per control.
type RPIOActuator struct {
	lines      map[models.Control]Line
	activeHigh bool
	log        *logger.Logger
}

// NewRPIOActuator configures every button pin as an output in the released
// state. gpio.Open must have succeeded.
func NewRPIOActuator(pins config.PinConfig, activeHigh bool, log *logger.Logger) *RPIOActuator {
	return NewActuator(map[models.Control]Line{
		models.ControlPower:     rpio.Pin(pins.Power),
		models.ControlConfirm:   rpio.Pin(pins.Confirm),
		models.ControlIncrement: rpio.Pin(pins.Increment),
		models.ControlDecrement: rpio.Pin(pins.Decrement),
	}, activeHigh, log)
}

// NewActuator is NewRPIOActuator over arbitrary lines.
func NewActuator(lines map[models.Control]Line, activeHigh bool, log *logger.Logger) *RPIOActuator {
	for _, l := range lines {
		l.Output()
		l.Write(level(false, activeHigh))
	}
	return &RPIOActuator{lines: lines, activeHigh: activeHigh, log: log.Named("gpio")}
}

func (a *RPIOActuator) Set(c models.Control, asserted bool) error {
	l, ok := a.lines[c]
	if !ok {
		return fmt.Errorf("%s: %w", c, ErrUnmappedControl)
	}
	l.Write(level(asserted, a.activeHigh))
	a.log.Debugw("button_line", "control", c.String(), "asserted", asserted)
	return nil
}

// Indicator is the status LED.
type Indicator interface {
	Set(on bool)
}

// LEDIndicator drives a single output line.
type LEDIndicator struct {
	line       Line
	activeHigh bool
}

func NewLEDIndicator(line Line, activeHigh bool) *LEDIndicator {
	line.Output()
	line.Write(level(false, activeHigh))
	return &LEDIndicator{line: line, activeHigh: activeHigh}
}

func (i *LEDIndicator) Set(on bool) {
	i.line.Write(level(on, i.activeHigh))
}

// NopIndicator is used when no LED is wired.
type NopIndicator struct{}

func (NopIndicator) Set(bool) {}
