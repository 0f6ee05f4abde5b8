// Package sequencer turns appliance changes into timed button presses.
//
// A Sequence is a plain value: the list of presses plus the settle time the
// appliance needs afterwards. Building it and running it are separate so the
// plan can be inspected without touching hardware.
package sequencer

import (
	"errors"
	"fmt"
	"time"

	"mobiremote/internal/models"
)

// Button timings measured on the cooler's front panel.
const (
	PressDuration = 200 * time.Millisecond
	LongExtra     = 3000 * time.Millisecond
	SettleDelay   = 100 * time.Millisecond

	// MenuTimeout is how long the set-point menu stays open after the last
	// press. Nothing else may be pressed until it closes.
	MenuTimeout = 11000 * time.Millisecond
)

// Actuator drives one button line.
type Actuator interface {
	Set(c models.Control, asserted bool) error
}

// Sleeper blocks for d.
type Sleeper interface {
	Sleep(d time.Duration)
}

type SleeperFunc func(time.Duration)

func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// Sequence is an ordered press plan.
type Sequence struct {
	Actions  []models.ButtonAction
	Trailing time.Duration
}

// Len is the number of presses.
func (s Sequence) Len() int { return len(s.Actions) }

// Count returns how many presses of control c the plan holds.
func (s Sequence) Count(c models.Control) int {
	n := 0
	for _, a := range s.Actions {
		if a.Control == c {
			n++
		}
	}
	return n
}

// Duration is the wall time Run will take.
func (s Sequence) Duration() time.Duration {
	var d time.Duration
	for _, a := range s.Actions {
		d += hold(a.Hold) + SettleDelay
	}
	return d + s.Trailing
}

// TargetChange opens the set-point menu and steps by delta.
// A zero delta yields an empty sequence.
func TargetChange(delta int) Sequence {
	if delta == 0 {
		return Sequence{}
	}

	step := models.ControlIncrement
	if delta < 0 {
		step = models.ControlDecrement
		delta = -delta
	}

	actions := make([]models.ButtonAction, 0, delta+1)
	actions = append(actions, models.ButtonAction{Control: models.ControlConfirm, Hold: models.HoldShort})
	for i := 0; i < delta; i++ {
		actions = append(actions, models.ButtonAction{Control: step, Hold: models.HoldShort})
	}
	return Sequence{Actions: actions, Trailing: MenuTimeout}
}

// PowerToggle is a single long press on power.
func PowerToggle() Sequence {
	return Sequence{Actions: []models.ButtonAction{{Control: models.ControlPower, Hold: models.HoldLong}}}
}

// ErrActuator wraps every failure reported by the Actuator.
var ErrActuator = errors.New("actuator failure")

type Sequencer struct {
	act   Actuator
	sleep Sleeper
}

// New returns a Sequencer. A nil sleeper uses time.Sleep.
func New(act Actuator, sleep Sleeper) *Sequencer {
	if sleep == nil {
		sleep = SleeperFunc(time.Sleep)
	}
	return &Sequencer{act: act, sleep: sleep}
}

// Run executes seq on the calling goroutine. It cannot be cancelled: a
// half-entered set-point menu is worse than a late return. On an actuator
// error every button is released and the remaining plan is abandoned.
func (s *Sequencer) Run(seq Sequence) error {
	for i, a := range seq.Actions {
		if err := s.press(a); err != nil {
			s.releaseAll()
			return fmt.Errorf("press %d/%d %s: %w", i+1, len(seq.Actions), a.Control, err)
		}
	}
	if seq.Trailing > 0 {
		s.sleep.Sleep(seq.Trailing)
	}
	return nil
}

func (s *Sequencer) press(a models.ButtonAction) error {
	if err := s.act.Set(a.Control, true); err != nil {
		return errors.Join(ErrActuator, err)
	}
	s.sleep.Sleep(hold(a.Hold))
	if err := s.act.Set(a.Control, false); err != nil {
		return errors.Join(ErrActuator, err)
	}
	s.sleep.Sleep(SettleDelay)
	return nil
}

func (s *Sequencer) releaseAll() {
	for _, c := range []models.Control{models.ControlPower, models.ControlConfirm, models.ControlIncrement, models.ControlDecrement} {
		_ = s.act.Set(c, false)
	}
}

func hold(h models.Hold) time.Duration {
	if h == models.HoldLong {
		return PressDuration + LongExtra
	}
	return PressDuration
}
