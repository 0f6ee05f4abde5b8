package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mobiremote/internal/logger"
	"mobiremote/internal/models"
	"mobiremote/internal/repository"

	"github.com/google/uuid"
)

// EventLogService is the outward log channel: every entry is appended to
// the journal table and published on the log topic.
type EventLogService struct {
	eventRepo repository.EventRepo
	pub       StatusPublisher
	log       *logger.Logger
}

func NewEventLogService(eventRepo repository.EventRepo, pub StatusPublisher, log *logger.Logger) *EventLogService {
	return &EventLogService{eventRepo: eventRepo, pub: pub, log: log.Named("journal")}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
)

// Record never fails the caller; storage and publish errors go to the
// process log.
func (s *EventLogService) Record(ctx context.Context, typ, description string, meta any) {
	e := models.ApplianceEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        normalizeEventType(typ),
		Description: description,
		Metadata:    meta,
	}

	if err := s.eventRepo.Append(ctx, e); err != nil {
		s.log.Errorw("journal_append_failed", "type", e.Type, "error", err)
	}
	if s.pub != nil {
		if err := s.pub.PublishLog(ctx, e); err != nil {
			s.log.Warnw("publish_failed", "topic", "log", "error", err)
		}
	}
}

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter prepares query parameters and validates the time range.
func normalizeAndValidateFilter(f LogFilter) (time.Time, time.Time, string, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, "", errInvalidTimeRange
	}

	eventType := normalizeEventType(f.Type)
	return from, to, eventType, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.ApplianceEvent, error) {
	from, to, typ, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, from, to, typ)
}
