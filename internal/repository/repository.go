package repository

import (
	"context"
	"database/sql"
	"time"

	"mobiremote/internal/models"
)

// OperatorRepo stores HTTP API accounts.
type OperatorRepo interface {
	Create(ctx context.Context, op models.Operator) (int, error)
	GetByUsername(ctx context.Context, username string) (models.Operator, error)
	Count(ctx context.Context) (int, error)
}

// RecordRepo is the persistent config store: one fixed-size record.
type RecordRepo interface {
	Load(ctx context.Context) (models.Record, error)
	Save(ctx context.Context, r models.Record) error
}

type EventRepo interface {
	Append(ctx context.Context, e models.ApplianceEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.ApplianceEvent, error)
}

type Repository struct {
	RecordRepo RecordRepo
	EventRepo  EventRepo
	Operators  OperatorRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		RecordRepo: NewRecordSQLite(db),
		EventRepo:  NewEventSQLite(db),
		Operators:  NewOperatorSQLite(db),
	}
}
