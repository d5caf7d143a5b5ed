package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	pg "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/model"
)

// queryer runs over either *sql.DB or *sql.Tx, so the transaction queries work
// both inside and outside a locked scope.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func selectBalance(ctx context.Context, q queryer, walletID uuid.UUID) (decimal.Decimal, error) {
	const SQL = `
		SELECT coalesce(sum(amount), 0) as b
		FROM transactions
		WHERE wallet_id=$1
`
	sum := decimal.NewFromInt(0)

	err := q.QueryRowContext(ctx, SQL, walletID).Scan(&sum)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sum, nil
		}
		return sum, fmt.Errorf("select: %w", err)
	}

	return sum, nil
}

func selectTransactions(ctx context.Context, q queryer, walletID uuid.UUID) ([]*model.Transaction, error) {
	const SQL = `
		SELECT id, wallet_id, executed_by, type, status, created_at, amount, reference_id
		FROM transactions
		WHERE wallet_id=$1
		ORDER BY created_at DESC
`
	res := make([]*model.Transaction, 0)

	rows, err := q.QueryContext(ctx, SQL, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return res, nil
		}
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := &model.Transaction{}
		if err := rows.Scan(&m.ID, &m.WalletID, &m.ExecutedBy, &m.Type, &m.Status, &m.CreatedAt, &m.Amount, &m.ReferenceID); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return res, nil
}

// insertTransaction appends a row. A reference_id already present yields
// apperr.ErrDuplicateReference; losing a concurrent race on the uniqueness
// constraint yields the retryable apperr.ErrReferenceConflict instead.
func insertTransaction(ctx context.Context, q queryer, m *model.Transaction) (*model.Transaction, error) {
	const sqlExists = `SELECT EXISTS(SELECT 1 FROM transactions WHERE reference_id=$1)`

	var exists bool
	if err := q.QueryRowContext(ctx, sqlExists, m.ReferenceID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	if exists {
		return nil, apperr.ErrDuplicateReference
	}

	const SQL = `
		INSERT INTO transactions (id, wallet_id, executed_by, type, status, created_at, amount, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := q.ExecContext(ctx, SQL, m.ID, m.WalletID, m.ExecutedBy, m.Type, m.Status, m.CreatedAt, m.Amount, m.ReferenceID)
	if err != nil {
		if pgErr, ok := err.(*pg.Error); ok && pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code)) {
			return nil, apperr.ErrReferenceConflict
		}
		return nil, fmt.Errorf("insert: %w", err)
	}

	return m, nil
}
