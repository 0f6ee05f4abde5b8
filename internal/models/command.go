package models

import "fmt"

// CommandKind identifies a typed inbound instruction.
type CommandKind int

const (
	CommandInvalid CommandKind = iota
	CommandSetTarget
	CommandSetPower
	CommandInitTarget
	CommandInitPower
	CommandStatus
	CommandResetConfig
	CommandProvisionBroker
)

func (k CommandKind) String() string {
	switch k {
	case CommandSetTarget:
		return "target"
	case CommandSetPower:
		return "power"
	case CommandInitTarget:
		return "inittemp"
	case CommandInitPower:
		return "initpower"
	case CommandStatus:
		return "status"
	case CommandResetConfig:
		return "reset"
	case CommandProvisionBroker:
		return "provision"
	default:
		return "invalid"
	}
}

// Command sources.
const (
	SourceMQTT   = "mqtt"
	SourceHTTP   = "http"
	SourceButton = "button"
)

// Command is consumed exactly once by the control loop.
type Command struct {
	Kind   CommandKind
	Value  int            // SetTarget / InitTarget
	On     bool           // SetPower / InitPower
	Broker BrokerSettings // ProvisionBroker
	Source string

	// Raw topic suffix and payload, kept for logging.
	Suffix  string
	Payload string
}

func (c Command) String() string {
	switch c.Kind {
	case CommandSetTarget, CommandInitTarget:
		return fmt.Sprintf("%s=%d", c.Kind, c.Value)
	case CommandSetPower, CommandInitPower:
		return fmt.Sprintf("%s=%t", c.Kind, c.On)
	case CommandInvalid:
		return fmt.Sprintf("invalid(%s=%s)", c.Suffix, c.Payload)
	default:
		return c.Kind.String()
	}
}
