package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mobiremote/internal/models"
)

type RecordSQLite struct {
	db *sql.DB
}

func NewRecordSQLite(db *sql.DB) *RecordSQLite {
	return &RecordSQLite{db: db}
}

var _ RecordRepo = (*RecordSQLite)(nil)

const (
	recordRowID = 1

	upsertRecordSQL = `
		INSERT INTO appliance_record (id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload=excluded.payload,
			updated_at=excluded.updated_at
	`

	selectRecordSQL = `SELECT payload FROM appliance_record WHERE id=?`
)

// Save writes the record inside a single transaction. Either the whole blob
// is committed or nothing changes.
func (r *RecordSQLite) Save(ctx context.Context, rec models.Record) error {
	payload, err := EncodeRecord(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertRecordSQL, recordRowID, payload, time.Now().UTC()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("write record: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Load returns ErrNoRecord when nothing was saved yet and ErrCorruptRecord
// when the stored blob fails validation.
func (r *RecordSQLite) Load(ctx context.Context) (models.Record, error) {
	var payload []byte
	if err := r.db.QueryRowContext(ctx, selectRecordSQL, recordRowID).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, ErrNoRecord
		}
		return models.Record{}, fmt.Errorf("read record: %w", err)
	}
	return DecodeRecord(payload)
}
