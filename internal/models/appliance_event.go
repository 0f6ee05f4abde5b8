package models

import "time"

// Journal event types.
const (
	EventTargetChange   = "TARGET_CHANGE"
	EventPowerChange    = "POWER_CHANGE"
	EventSync           = "SYNC"
	EventRejected       = "REJECTED"
	EventInvalidCommand = "INVALID_COMMAND"
	EventStatus         = "STATUS"
	EventBusy           = "BUSY"
	EventConfigReset    = "CONFIG_RESET"
	EventProvisioned    = "CONFIG_PROVISIONED"
	EventStorage        = "STORAGE"
	EventError          = "ERROR"
)

// ApplianceEvent is a single journal entry. Its Description is what goes out
// on the MQTT log topic.
type ApplianceEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
