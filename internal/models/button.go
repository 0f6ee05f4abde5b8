package models

// Control is one of the cooler's physical buttons.
type Control int

const (
	ControlPower Control = iota
	ControlConfirm
	ControlIncrement
	ControlDecrement
)

func (c Control) String() string {
	switch c {
	case ControlPower:
		return "POWER"
	case ControlConfirm:
		return "CONFIRM"
	case ControlIncrement:
		return "INCREMENT"
	case ControlDecrement:
		return "DECREMENT"
	default:
		return "UNKNOWN"
	}
}

// Hold is how long a button stays asserted.
type Hold int

const (
	HoldShort Hold = iota
	HoldLong
)

func (h Hold) String() string {
	if h == HoldLong {
		return "long"
	}
	return "short"
}

// ButtonAction is one atomic actuation.
type ButtonAction struct {
	Control Control
	Hold    Hold
}
