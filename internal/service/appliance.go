package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"
	"mobiremote/internal/repository"
	"mobiremote/internal/sequencer"
)

// Actuation runs a press plan against the hardware.
type Actuation interface {
	Run(seq sequencer.Sequence) error
}

// TemperatureSource provides the last observed temperature.
type TemperatureSource interface {
	Observed() models.ObservedTemperature
}

// Rejection reasons.
var (
	ErrPowerOff   = errors.New("appliance is powered off")
	ErrUnchanged  = errors.New("value equals current state")
	ErrOutOfRange = errors.New("target outside accepted range")
	ErrOutOfSync  = errors.New("current target outside accepted range, resync with inittemp")
)

// RejectionError is returned when a command fails validation. The shadow
// state is untouched and no button was pressed.
type RejectionError struct {
	Command string
	Value   any
	Current any
	Reason  error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s %v rejected (current %v): %v", e.Command, e.Value, e.Current, e.Reason)
}

func (e *RejectionError) Unwrap() error { return e.Reason }

// ApplianceService owns the shadow state and the persisted record. Only the
// control loop mutates it; State and BrokerSettings may be read from any
// goroutine.
type ApplianceService struct {
	records repository.RecordRepo
	act     Actuation
	rng     models.TargetRange
	temps   TemperatureSource
	pub     StatusPublisher
	journal EventLog
	metrics Recorder
	log     *logger.Logger

	mu        sync.RWMutex
	rec       models.Record
	updatedAt time.Time
}

func NewApplianceService(
	records repository.RecordRepo,
	act Actuation,
	rng models.TargetRange,
	temps TemperatureSource,
	pub StatusPublisher,
	journal EventLog,
	metrics Recorder,
	log *logger.Logger,
) *ApplianceService {
	return &ApplianceService{
		records: records,
		act:     act,
		rng:     rng,
		temps:   temps,
		pub:     pub,
		journal: journal,
		metrics: metrics,
		log:     log.Named("appliance"),
	}
}

// Init loads the persisted record. A missing or corrupt record is replaced
// by safe defaults (power off, midpoint target), which are saved right away.
func (s *ApplianceService) Init(ctx context.Context) error {
	rec, err := s.records.Load(ctx)
	switch {
	case err == nil:
		s.set(rec)
		s.log.Infow("shadow_loaded", "target", rec.Shadow.Target, "power_on", rec.Shadow.PowerOn)
		return nil
	case errors.Is(err, repository.ErrNoRecord), errors.Is(err, repository.ErrCorruptRecord):
	default:
		return fmt.Errorf("load record: %w", err)
	}

	defaults := models.Record{Shadow: models.ShadowState{Target: s.rng.Midpoint(), PowerOn: false}}
	if saveErr := s.records.Save(ctx, defaults); saveErr != nil {
		return fmt.Errorf("save default record: %w", saveErr)
	}
	s.set(defaults)

	s.log.Warnw("shadow_defaults_applied", "reason", err, "target", defaults.Shadow.Target)
	s.journal.Record(ctx, models.EventStorage,
		fmt.Sprintf("stored state unusable (%v); defaults applied: target %d, power off", err, defaults.Shadow.Target),
		map[string]any{"target": defaults.Shadow.Target, "power_on": false})
	return nil
}

func (s *ApplianceService) set(rec models.Record) {
	s.mu.Lock()
	s.rec = rec
	s.updatedAt = time.Now().UTC()
	s.mu.Unlock()
}

func (s *ApplianceService) record() models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec
}

// State returns the shadow and the time it last changed.
func (s *ApplianceService) State() (models.ShadowState, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Shadow, s.updatedAt
}

// BrokerSettings returns the broker parameters stored in the record.
func (s *ApplianceService) BrokerSettings() models.BrokerSettings {
	return s.record().Broker
}

// commit applies mutate to a copy of the record, saves it and only then
// publishes it in memory.
func (s *ApplianceService) commit(ctx context.Context, mutate func(r *models.Record)) error {
	rec := s.record()
	mutate(&rec)
	err := s.records.Save(ctx, rec)
	if err != nil && errors.Is(err, repository.ErrFieldTooLong) {
		return err
	}
	// after an actuation the physical state has moved, so memory follows it
	// even when the write fails
	s.set(rec)
	if err != nil {
		s.journal.Record(ctx, models.EventError, fmt.Sprintf("persist state: %v", err), nil)
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}

func (s *ApplianceService) reject(ctx context.Context, command string, value, current any, reason error) error {
	rerr := &RejectionError{Command: command, Value: value, Current: current, Reason: reason}
	s.log.Infow("command_rejected", "command", command, "value", value, "reason", reason)
	s.journal.Record(ctx, models.EventRejected, rerr.Error(), map[string]any{
		"command": command,
		"value":   value,
		"current": current,
	})
	return rerr
}

func (s *ApplianceService) actuate(ctx context.Context, seq sequencer.Sequence) error {
	start := time.Now()
	err := s.act.Run(seq)
	s.metrics.ObserveActuation(seq.Len(), time.Since(start), err)
	if err != nil {
		s.log.Errorw("actuation_failed", "error", err, "presses", seq.Len())
		s.journal.Record(ctx, models.EventError,
			fmt.Sprintf("actuation failed: %v; state unchanged, resync with inittemp/initpower if the appliance moved", err),
			nil)
		return fmt.Errorf("actuate: %w", err)
	}
	return nil
}

func (s *ApplianceService) publish(topic string, err error) {
	if err != nil {
		s.log.Warnw("publish_failed", "topic", topic, "error", err)
	}
}

// ApplyTarget walks the cooler's set-point from the current shadow target to
// target. Rejected when powered off, unchanged or out of range. A shadow
// target left outside the range by a force command must be resynced first:
// the walk from it would have no bound on its length.
func (s *ApplianceService) ApplyTarget(ctx context.Context, target int) error {
	cur := s.record().Shadow

	switch {
	case !cur.PowerOn:
		return s.reject(ctx, "target", target, cur.Target, ErrPowerOff)
	case target == cur.Target:
		return s.reject(ctx, "target", target, cur.Target, ErrUnchanged)
	case !s.rng.Contains(target):
		return s.reject(ctx, "target", target, cur.Target, ErrOutOfRange)
	case !s.rng.Contains(cur.Target):
		return s.reject(ctx, "target", target, cur.Target, ErrOutOfSync)
	}

	seq := sequencer.TargetChange(target - cur.Target)
	if err := s.actuate(ctx, seq); err != nil {
		return err
	}
	if err := s.commit(ctx, func(r *models.Record) { r.Shadow.Target = target }); err != nil {
		return err
	}

	s.log.Infow("target_changed", "from", cur.Target, "to", target, "presses", seq.Len())
	s.journal.Record(ctx, models.EventTargetChange,
		fmt.Sprintf("target %d -> %d", cur.Target, target),
		map[string]any{"from": cur.Target, "to": target, "presses": seq.Len()})
	s.publish("target", s.pub.PublishTarget(ctx, target))
	return nil
}

// ApplyPower toggles power with one long press when on differs from the
// shadow.
func (s *ApplianceService) ApplyPower(ctx context.Context, on bool) error {
	cur := s.record().Shadow
	if on == cur.PowerOn {
		return s.reject(ctx, "power", powerValue(on), powerValue(cur.PowerOn), ErrUnchanged)
	}

	if err := s.actuate(ctx, sequencer.PowerToggle()); err != nil {
		return err
	}
	if err := s.commit(ctx, func(r *models.Record) { r.Shadow.PowerOn = on }); err != nil {
		return err
	}

	s.log.Infow("power_changed", "on", on)
	s.journal.Record(ctx, models.EventPowerChange,
		fmt.Sprintf("power %d -> %d", powerValue(cur.PowerOn), powerValue(on)),
		map[string]any{"power_on": on})
	s.publish("power", s.pub.PublishPower(ctx, on))
	return nil
}

// ForceTarget overwrites the shadow target without pressing anything.
func (s *ApplianceService) ForceTarget(ctx context.Context, target int) error {
	prev := s.record().Shadow.Target
	if err := s.commit(ctx, func(r *models.Record) { r.Shadow.Target = target }); err != nil {
		return err
	}
	s.log.Infow("target_synced", "from", prev, "to", target)
	s.journal.Record(ctx, models.EventSync,
		fmt.Sprintf("target set to %d without actuation", target),
		map[string]any{"from": prev, "to": target})
	s.publish("target", s.pub.PublishTarget(ctx, target))
	return nil
}

// ForcePower overwrites the shadow power flag without pressing anything.
func (s *ApplianceService) ForcePower(ctx context.Context, on bool) error {
	if err := s.commit(ctx, func(r *models.Record) { r.Shadow.PowerOn = on }); err != nil {
		return err
	}
	s.log.Infow("power_synced", "on", on)
	s.journal.Record(ctx, models.EventSync,
		fmt.Sprintf("power set to %d without actuation", powerValue(on)),
		map[string]any{"power_on": on})
	s.publish("power", s.pub.PublishPower(ctx, on))
	return nil
}

// PublishStatus pushes target, power and, when a reading exists, the
// temperature.
func (s *ApplianceService) PublishStatus(ctx context.Context) error {
	cur := s.record().Shadow
	s.publish("target", s.pub.PublishTarget(ctx, cur.Target))
	s.publish("power", s.pub.PublishPower(ctx, cur.PowerOn))

	meta := map[string]any{"target": cur.Target, "power_on": cur.PowerOn}
	if obs := s.temps.Observed(); obs.Valid {
		s.publish("temp", s.pub.PublishTemperature(ctx, obs.Value))
		meta["temperature_c"] = obs.Value
	}
	s.journal.Record(ctx, models.EventStatus, "status published", meta)
	return nil
}

// ResetBrokerConfig clears the stored broker parameters. The configuration
// file applies again from the next start.
func (s *ApplianceService) ResetBrokerConfig(ctx context.Context) error {
	if err := s.commit(ctx, func(r *models.Record) { r.Broker = models.BrokerSettings{} }); err != nil {
		return err
	}
	s.log.Warnw("broker_config_reset")
	s.journal.Record(ctx, models.EventConfigReset, "stored broker settings cleared; config file applies after restart", nil)
	return nil
}

// ProvisionBroker stores broker parameters that override the configuration
// file from the next start. Empty fields keep following the file.
func (s *ApplianceService) ProvisionBroker(ctx context.Context, b models.BrokerSettings) error {
	if err := s.commit(ctx, func(r *models.Record) { r.Broker = b }); err != nil {
		return err
	}
	s.log.Infow("broker_provisioned", "server", b.Server, "user", b.User, "topic_prefix", b.TopicPrefix)
	s.journal.Record(ctx, models.EventProvisioned, "stored broker settings updated; applied after restart",
		map[string]any{"server": b.Server, "user": b.User, "topic_prefix": b.TopicPrefix})
	return nil
}

// EffectiveBroker returns the broker settings to connect with: provisioned
// values win over fromConfig field by field. Nothing is persisted here, so
// editing the configuration file always takes effect unless a value was
// provisioned explicitly.
func (s *ApplianceService) EffectiveBroker(fromConfig models.BrokerSettings) models.BrokerSettings {
	stored := s.BrokerSettings()
	for _, f := range []struct {
		name           string
		stored, config string
	}{
		{"server", stored.Server, fromConfig.Server},
		{"user", stored.User, fromConfig.User},
		{"password", stored.Password, fromConfig.Password},
		{"topic_prefix", stored.TopicPrefix, fromConfig.TopicPrefix},
	} {
		if f.stored != "" && f.config != "" && f.stored != f.config {
			s.log.Warnw("broker_setting_overrides_config", "field", f.name)
		}
	}
	return mergeBroker(stored, fromConfig)
}

func mergeBroker(stored, fallback models.BrokerSettings) models.BrokerSettings {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return models.BrokerSettings{
		Server:      pick(stored.Server, fallback.Server),
		User:        pick(stored.User, fallback.User),
		Password:    pick(stored.Password, fallback.Password),
		TopicPrefix: pick(stored.TopicPrefix, fallback.TopicPrefix),
	}
}

// RejectInvalid records an unparseable command.
func (s *ApplianceService) RejectInvalid(ctx context.Context, cmd models.Command) {
	s.log.Infow("command_invalid", "suffix", cmd.Suffix, "payload", cmd.Payload, "source", cmd.Source)
	s.journal.Record(ctx, models.EventInvalidCommand,
		fmt.Sprintf("invalid command %q payload %q", cmd.Suffix, cmd.Payload),
		map[string]any{"suffix": cmd.Suffix, "payload": cmd.Payload, "source": cmd.Source})
}

// RejectBusy records a command dropped because the queue was full.
func (s *ApplianceService) RejectBusy(ctx context.Context, cmd models.Command) {
	s.log.Warnw("command_busy", "command", cmd.String(), "source", cmd.Source)
	s.journal.Record(ctx, models.EventBusy,
		fmt.Sprintf("busy, command %s discarded", cmd),
		map[string]any{"command": cmd.String(), "source": cmd.Source})
}

func powerValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
