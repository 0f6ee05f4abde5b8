package models

import "time"

// ShadowState is what the controller believes the cooler is set to.
type ShadowState struct {
	Target  int  `json:"target"`
	PowerOn bool `json:"power_on"`
}

// ObservedTemperature tracks the last sample and the last value that was
// actually reported outward.
type ObservedTemperature struct {
	Value        float64 `json:"value"`
	LastReported float64 `json:"last_reported"`
	Valid        bool    `json:"valid"`
	Reported     bool    `json:"reported"`
}

// TargetRange is the closed set-point range the cooler accepts.
type TargetRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r TargetRange) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// Midpoint is the safe default target, rounded toward zero.
func (r TargetRange) Midpoint() int {
	return (r.Min + r.Max) / 2
}

// Snapshot is the read-only status view served to status queries, HTTP and
// the websocket stream.
type Snapshot struct {
	Target           int       `json:"target"`
	PowerOn          bool      `json:"power_on"`
	TemperatureC     float64   `json:"temperature_c"`
	TemperatureValid bool      `json:"temperature_valid"`
	MinTarget        int       `json:"min_target"`
	MaxTarget        int       `json:"max_target"`
	UpdatedAt        time.Time `json:"updated_at"`
}
