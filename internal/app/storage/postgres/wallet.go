package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	pg "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/logger"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/storage"
)

// storage.WalletStore interface implementation
var _ storage.WalletStore = (*WalletRepository)(nil)

type WalletRepository struct {
	db *sql.DB
}

func (r *WalletRepository) LoggerComponent() string {
	return "WalletRepository"
}

func NewWalletRepository(db *sql.DB) (*WalletRepository, error) {
	s := &WalletRepository{
		db: db,
	}
	return s, nil
}

const sqlSelectWalletByCustomer = `
		SELECT id, customer_id, status, enabled_at, disabled_at, created_at
		FROM wallets
		WHERE customer_id=$1
`

// GetOrCreate implementation of interface storage.WalletStore
func (r *WalletRepository) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error) {
	m, err := r.ReadByCustomer(ctx, customerID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	const SQL = `
		INSERT INTO wallets (id, customer_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, customer_id, status, enabled_at, disabled_at, created_at
`
	m = &model.Wallet{}
	err = r.db.QueryRowContext(ctx, SQL, uuid.New(), customerID, model.WalletStatusDisabled).
		Scan(&m.ID, &m.CustomerID, &m.Status, &m.EnabledAt, &m.DisabledAt, &m.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pg.Error); ok && pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code)) {
			// Lost the first-call race, the winner's row is there now.
			return r.ReadByCustomer(ctx, customerID)
		}
		return nil, fmt.Errorf("insert: %w", err)
	}

	return m, nil
}

// ReadByCustomer implementation of interface storage.WalletStore
func (r *WalletRepository) ReadByCustomer(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error) {
	m := &model.Wallet{}

	err := r.db.QueryRowContext(ctx, sqlSelectWalletByCustomer, customerID).
		Scan(&m.ID, &m.CustomerID, &m.Status, &m.EnabledAt, &m.DisabledAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

// Balance implementation of interface storage.WalletStore
func (r *WalletRepository) Balance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	return selectBalance(ctx, r.db, walletID)
}

// Transactions implementation of interface storage.WalletStore
func (r *WalletRepository) Transactions(ctx context.Context, walletID uuid.UUID) ([]*model.Transaction, error) {
	return selectTransactions(ctx, r.db, walletID)
}

// Update implementation of interface storage.WalletStore.
//
// The wallet row is locked with SELECT ... FOR UPDATE for the duration of fn.
// The deferred rollback covers error returns, panics and context cancellation,
// so no partially written transaction row survives an aborted scope.
func (r *WalletRepository) Update(ctx context.Context, walletID uuid.UUID, fn func(tx storage.WalletTx) error) error {
	l := logger.Get(ctx, r).With().Str("wallet_id", walletID.String()).Logger()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("tx begin: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sqlLock = `
		SELECT id, customer_id, status, enabled_at, disabled_at, created_at
		FROM wallets
		WHERE id=$1
		FOR UPDATE
`
	m := &model.Wallet{}
	err = tx.QueryRowContext(ctx, sqlLock, walletID).
		Scan(&m.ID, &m.CustomerID, &m.Status, &m.EnabledAt, &m.DisabledAt, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		l.Error().Err(err).Msg("Wallet lock failed")
		return fmt.Errorf("lock: %w", err)
	}

	if err := fn(&walletTx{tx: tx, wallet: m}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("TX commit failed")
		return fmt.Errorf("tx commit: %w", err)
	}
	committed = true

	return nil
}

// walletTx is the locked scope over a single wallet row.
type walletTx struct {
	tx     *sql.Tx
	wallet *model.Wallet
}

func (w *walletTx) Wallet() *model.Wallet {
	return w.wallet
}

func (w *walletTx) Balance(ctx context.Context) (decimal.Decimal, error) {
	return selectBalance(ctx, w.tx, w.wallet.ID)
}

func (w *walletTx) Append(ctx context.Context, m *model.Transaction) (*model.Transaction, error) {
	return insertTransaction(ctx, w.tx, m)
}

func (w *walletTx) UpdateStatus(ctx context.Context, status model.WalletStatus, at time.Time) error {
	column := "enabled_at"
	if status == model.WalletStatusDisabled {
		column = "disabled_at"
	}

	SQL := fmt.Sprintf(`UPDATE wallets SET status=$1, %s=$2 WHERE id=$3`, column)
	if _, err := w.tx.ExecContext(ctx, SQL, status, at, w.wallet.ID); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	w.wallet.Status = status
	if status == model.WalletStatusEnabled {
		w.wallet.EnabledAt = &at
	} else {
		w.wallet.DisabledAt = &at
	}

	return nil
}
