package service

import (
	"context"
	"time"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"
	"mobiremote/internal/repository"
	"mobiremote/internal/sensor"
)

// Operators manages API accounts and bearer tokens.
type Operators interface {
	Register(ctx context.Context, by models.Identity, username, password string, role models.Role) (models.Operator, error)
	SignIn(ctx context.Context, username, password string) (string, error)
	Verify(accessToken string) (models.Identity, error)
}

// Appliance is the guarded state machine around the shadow state. Every
// mutating method must be called from the control loop only.
type Appliance interface {
	Init(ctx context.Context) error
	ApplyTarget(ctx context.Context, target int) error
	ApplyPower(ctx context.Context, on bool) error
	ForceTarget(ctx context.Context, target int) error
	ForcePower(ctx context.Context, on bool) error
	PublishStatus(ctx context.Context) error
	ResetBrokerConfig(ctx context.Context) error
	ProvisionBroker(ctx context.Context, b models.BrokerSettings) error
	RejectInvalid(ctx context.Context, cmd models.Command)
	RejectBusy(ctx context.Context, cmd models.Command)

	EffectiveBroker(fromConfig models.BrokerSettings) models.BrokerSettings
	State() (models.ShadowState, time.Time)
}

// Temperature samples the sensor and owns the observed temperature.
type Temperature interface {
	Sample(ctx context.Context)
	Observed() models.ObservedTemperature
}

// Monitoring exposes a read-only status snapshot.
type Monitoring interface {
	GetStatus(ctx context.Context) (models.Snapshot, error)
}

// EventLog is the journal: append + filtered history.
type EventLog interface {
	Record(ctx context.Context, typ, description string, meta any)
	List(ctx context.Context, f LogFilter) ([]models.ApplianceEvent, error)
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "TARGET_CHANGE", "POWER_CHANGE", "REJECTED", ...
}

type Service struct {
	Appliance
	Temperature
	Monitoring
	EventLog
	Operators
}

// Deps are the non-repository collaborators of the services.
type Deps struct {
	Range     models.TargetRange
	Actuation Actuation
	Sensor    sensor.Sensor
	Threshold float64
	Publisher StatusPublisher
	Metrics   Recorder

	SigningKey string
	TokenTTL   time.Duration

	Log *logger.Logger
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, d Deps) *Service {
	if d.Publisher == nil {
		d.Publisher = NewMultiPublisher(d.Log)
	}
	if d.Metrics == nil {
		d.Metrics = NopRecorder{}
	}

	events := NewEventLogService(repos.EventRepo, d.Publisher, d.Log)
	temps := NewTemperatureService(d.Sensor, d.Threshold, d.Publisher, events, d.Metrics, d.Log)
	appliance := NewApplianceService(repos.RecordRepo, d.Actuation, d.Range, temps, d.Publisher, events, d.Metrics, d.Log)

	return &Service{
		Appliance:   appliance,
		Temperature: temps,
		Monitoring:  NewMonitoringService(appliance, temps, d.Range),
		EventLog:    events,
		Operators:   NewOperatorService(repos.Operators, d.SigningKey, d.TokenTTL, d.Log),
	}
}
