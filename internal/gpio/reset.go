package gpio

import (
	"context"
	"time"

	"mobiremote/internal/logger"

	"github.com/stianeikeland/go-rpio/v4"
)

// ResetButton watches an active-low push button with the internal pull-up
// enabled and reports each press once.
type ResetButton struct {
	line Line
	poll time.Duration
	log  *logger.Logger
}

func NewResetButton(line Line, poll time.Duration, log *logger.Logger) *ResetButton {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	line.Input()
	line.PullUp()
	return &ResetButton{line: line, poll: poll, log: log.Named("reset-button")}
}

// Run polls the line until ctx is done and calls onPress on every
// released-to-pressed transition.
func (b *ResetButton) Run(ctx context.Context, onPress func()) {
	t := time.NewTicker(b.poll)
	defer t.Stop()

	before := b.line.Read()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			now := b.line.Read()
			if before == rpio.High && now == rpio.Low {
				b.log.Infow("reset_button_pressed")
				onPress()
			}
			before = now
		}
	}
}
