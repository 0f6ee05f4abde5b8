package gpio

import (
	"sync"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"
)

// SimulatedActuator stands in for the button lines on a machine without
// GPIO. It logs every press and counts them.
type SimulatedActuator struct {
	log *logger.Logger

	mu      sync.Mutex
	held    map[models.Control]bool
	presses map[models.Control]int
}

func NewSimulatedActuator(log *logger.Logger) *SimulatedActuator {
	return &SimulatedActuator{
		log:     log.Named("gpio-sim"),
		held:    make(map[models.Control]bool),
		presses: make(map[models.Control]int),
	}
}

func (s *SimulatedActuator) Set(c models.Control, asserted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if asserted && !s.held[c] {
		s.presses[c]++
	}
	s.held[c] = asserted
	s.log.Debugw("button_line", "control", c.String(), "asserted", asserted)
	return nil
}

// Presses returns how often c went from released to asserted.
func (s *SimulatedActuator) Presses(c models.Control) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presses[c]
}

// SimulatedIndicator logs LED changes.
type SimulatedIndicator struct {
	log *logger.Logger
}

func NewSimulatedIndicator(log *logger.Logger) *SimulatedIndicator {
	return &SimulatedIndicator{log: log.Named("gpio-sim")}
}

func (s *SimulatedIndicator) Set(on bool) {
	s.log.Debugw("status_led", "on", on)
}
