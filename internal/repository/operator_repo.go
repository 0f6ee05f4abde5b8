package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mobiremote/internal/models"
)

// ErrOperatorNotFound is returned by GetByUsername for an unknown account.
var ErrOperatorNotFound = errors.New("operator not found")

type OperatorSQLite struct {
	db *sql.DB
}

func NewOperatorSQLite(db *sql.DB) *OperatorSQLite { return &OperatorSQLite{db: db} }

var _ OperatorRepo = (*OperatorSQLite)(nil)

const (
	insertOperatorSQL = `INSERT INTO operators (username, password_hash, role) VALUES (?, ?, ?)`
	selectOperatorSQL = `SELECT id, username, password_hash, role FROM operators WHERE username = ?`
	countOperatorsSQL = `SELECT COUNT(*) FROM operators`
)

// Create stores op and returns its ID.
func (r *OperatorSQLite) Create(ctx context.Context, op models.Operator) (int, error) {
	res, err := r.db.ExecContext(ctx, insertOperatorSQL, op.Username, op.PasswordHash, string(op.Role))
	if err != nil {
		return 0, fmt.Errorf("insert operator %q: %w", op.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("operator %q id: %w", op.Username, err)
	}
	return int(id), nil
}

func (r *OperatorSQLite) GetByUsername(ctx context.Context, username string) (models.Operator, error) {
	var (
		op   models.Operator
		role string
	)
	err := r.db.QueryRowContext(ctx, selectOperatorSQL, username).Scan(&op.ID, &op.Username, &op.PasswordHash, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Operator{}, ErrOperatorNotFound
	}
	if err != nil {
		return models.Operator{}, fmt.Errorf("select operator %q: %w", username, err)
	}
	op.Role = models.Role(role)
	return op, nil
}

// Count is used to recognise the first registration, which becomes admin.
func (r *OperatorSQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countOperatorsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count operators: %w", err)
	}
	return n, nil
}
