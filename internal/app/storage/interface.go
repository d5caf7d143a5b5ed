package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"miniwallet/internal/app/model"
)

type CustomerRepository interface {
	// GetOrCreate resolves the customer with the given external id, inserting a
	// new record when none exists. The supplied token is stored only on insert;
	// for an existing customer the stored token wins. created reports whether
	// this call inserted the record. Safe under a concurrent first-call race:
	// the xid uniqueness constraint guarantees a single record per customer.
	GetOrCreate(ctx context.Context, xid uuid.UUID, token string) (m *model.Customer, created bool, err error)
	// ReadByToken resolves a bearer token to its customer.
	ReadByToken(ctx context.Context, token string) (*model.Customer, error)
}

// WalletStore owns the durable state of wallets and transactions.
//
// All balance-affecting mutation goes through Update, which serializes access
// per wallet. Reads outside Update are lock-free and may observe state from
// before or after a concurrent mutation, never a partial one.
type WalletStore interface {
	// GetOrCreate returns the customer's wallet, creating a disabled one when
	// none exists. Exactly one wallet is created per customer even under a
	// concurrent first-call race.
	GetOrCreate(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error)
	// ReadByCustomer returns the customer's wallet or apperr.ErrNotFound.
	ReadByCustomer(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error)
	// Balance returns the sum of the wallet's transaction amounts, zero when
	// there are none.
	Balance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
	// Transactions returns the wallet's transactions, most recent first.
	Transactions(ctx context.Context, walletID uuid.UUID) ([]*model.Transaction, error)
	// Update runs fn while holding an exclusive lock on the wallet. Writes made
	// through the WalletTx commit when fn returns nil and roll back otherwise;
	// the lock is released on every exit path.
	Update(ctx context.Context, walletID uuid.UUID, fn func(tx WalletTx) error) error
}

// WalletTx is the locked scope handed to WalletStore.Update callbacks.
type WalletTx interface {
	// Wallet returns the locked wallet snapshot. UpdateStatus mutates it.
	Wallet() *model.Wallet
	// Balance recomputes the balance inside the lock.
	Balance(ctx context.Context) (decimal.Decimal, error)
	// Append inserts a transaction row. Fails with apperr.ErrDuplicateReference
	// when the reference_id is already used, or apperr.ErrReferenceConflict when
	// the uniqueness constraint trips concurrently.
	Append(ctx context.Context, m *model.Transaction) (*model.Transaction, error)
	// UpdateStatus persists a status transition, stamping enabled_at or
	// disabled_at with at.
	UpdateStatus(ctx context.Context, status model.WalletStatus, at time.Time) error
}
