package models

// FieldCapacity is the fixed byte capacity of every string in a Record.
const FieldCapacity = 30

// BrokerSettings are the MQTT connection parameters kept next to the shadow
// state. Empty fields mean "use the configuration file".
type BrokerSettings struct {
	Server      string `json:"server"`
	User        string `json:"user"`
	Password    string `json:"-"`
	TopicPrefix string `json:"topic_prefix"`
}

// IsZero reports whether no broker parameter has been stored.
func (b BrokerSettings) IsZero() bool {
	return b == BrokerSettings{}
}

// Fits reports whether every field fits the record's fixed capacity.
func (b BrokerSettings) Fits() bool {
	for _, f := range []string{b.Server, b.User, b.Password, b.TopicPrefix} {
		if len(f) > FieldCapacity {
			return false
		}
	}
	return true
}

// Record is the fixed-size aggregate persisted by the config store.
type Record struct {
	Shadow ShadowState
	Broker BrokerSettings
}
