package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	pg "github.com/lib/pq"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/storage"
)

// storage.CustomerRepository interface implementation
var _ storage.CustomerRepository = (*CustomerRepository)(nil)

type CustomerRepository struct {
	db *sql.DB
}

func (r *CustomerRepository) LoggerComponent() string {
	return "CustomerRepository"
}

func NewCustomerRepository(db *sql.DB) (*CustomerRepository, error) {
	s := &CustomerRepository{
		db: db,
	}
	return s, nil
}

// GetOrCreate implementation of interface storage.CustomerRepository
func (r *CustomerRepository) GetOrCreate(ctx context.Context, xid uuid.UUID, token string) (*model.Customer, bool, error) {
	m, err := r.readByXID(ctx, xid)
	if err == nil {
		return m, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	const SQL = `
		INSERT INTO customers (id, xid, token)
		VALUES ($1, $2, $3)
		RETURNING id, xid, token, created_at
`
	m = &model.Customer{}
	err = r.db.QueryRowContext(ctx, SQL, uuid.New(), xid, token).
		Scan(&m.ID, &m.XID, &m.Token, &m.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pg.Error); ok && pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code)) {
			// Concurrent init for the same customer, keep the winner's token.
			m, err = r.readByXID(ctx, xid)
			return m, false, err
		}
		return nil, false, fmt.Errorf("insert: %w", err)
	}

	return m, true, nil
}

// ReadByToken implementation of interface storage.CustomerRepository
func (r *CustomerRepository) ReadByToken(ctx context.Context, token string) (*model.Customer, error) {
	const SQL = `
		SELECT id, xid, token, created_at
		FROM customers
		WHERE token=$1
`
	m := &model.Customer{}

	err := r.db.QueryRowContext(ctx, SQL, token).Scan(&m.ID, &m.XID, &m.Token, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

func (r *CustomerRepository) readByXID(ctx context.Context, xid uuid.UUID) (*model.Customer, error) {
	const SQL = `
		SELECT id, xid, token, created_at
		FROM customers
		WHERE xid=$1
`
	m := &model.Customer{}

	err := r.db.QueryRowContext(ctx, SQL, xid).Scan(&m.ID, &m.XID, &m.Token, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}
