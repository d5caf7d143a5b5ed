// Package ledger enforces the wallet business rules: init, enable, disable,
// deposit and withdraw. Every balance-affecting rule runs inside the wallet's
// locked scope provided by storage.WalletStore.Update, so concurrent operations
// on the same wallet are linearized and two withdrawals can never jointly
// overdraw it.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/logger"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/session"
	"miniwallet/internal/app/storage"
)

var minAmount = decimal.NewFromInt(1)

type Service struct {
	customers storage.CustomerRepository
	wallets   storage.WalletStore
	tokens    session.Creator
}

func (s *Service) LoggerComponent() string {
	return "LedgerService"
}

func New(customers storage.CustomerRepository, wallets storage.WalletStore, tokens session.Creator) *Service {
	return &Service{
		customers: customers,
		wallets:   wallets,
		tokens:    tokens,
	}
}

// Init resolves or creates the customer identified by xid, issues its auth
// token on first creation and get-or-creates the wallet. Idempotent: repeated
// calls return the same wallet and the same token.
func (s *Service) Init(ctx context.Context, xid uuid.UUID) (*model.Wallet, string, error) {
	l := logger.Get(ctx, s).With().Str("customer_xid", xid.String()).Logger()

	token, err := s.tokens.Create(ctx)
	if err != nil {
		return nil, "", err
	}

	c, created, err := s.customers.GetOrCreate(ctx, xid, token)
	if err != nil {
		return nil, "", err
	}
	if created {
		l.Debug().Msg("Customer created, token issued")
	}

	w, err := s.wallets.GetOrCreate(ctx, c.ID)
	if err != nil {
		return nil, "", err
	}

	return w, c.Token, nil
}

// Wallet returns the customer's wallet with its derived balance.
func (s *Service) Wallet(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error) {
	w, err := s.wallets.ReadByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	b, err := s.wallets.Balance(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	w.Balance = b

	return w, nil
}

// Enable transitions the wallet from disabled to enabled.
func (s *Service) Enable(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error) {
	return s.transition(ctx, customerID, model.WalletStatusEnabled)
}

// Disable transitions the wallet from enabled to disabled. The caller must
// confirm explicitly.
func (s *Service) Disable(ctx context.Context, customerID uuid.UUID, confirm bool) (*model.Wallet, error) {
	if !confirm {
		return nil, apperr.ErrConfirmationRequired
	}
	return s.transition(ctx, customerID, model.WalletStatusDisabled)
}

func (s *Service) transition(ctx context.Context, customerID uuid.UUID, status model.WalletStatus) (*model.Wallet, error) {
	w, err := s.wallets.ReadByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var out *model.Wallet
	err = s.wallets.Update(ctx, w.ID, func(tx storage.WalletTx) error {
		locked := tx.Wallet()

		// Re-checked inside the lock, a stale read must not let two concurrent
		// enable calls both succeed.
		if locked.Status == status {
			if status == model.WalletStatusEnabled {
				return apperr.ErrAlreadyEnabled
			}
			return apperr.ErrAlreadyDisabled
		}

		if err := tx.UpdateStatus(ctx, status, time.Now().UTC()); err != nil {
			return err
		}

		out = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	b, err := s.wallets.Balance(ctx, out.ID)
	if err != nil {
		return nil, err
	}
	out.Balance = b

	return out, nil
}

// Deposit appends a positive transaction to the customer's wallet.
func (s *Service) Deposit(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Transaction, error) {
	return s.append(ctx, customerID, model.TransactionTypeDeposit, amount, referenceID)
}

// Withdraw appends a negative transaction after checking, inside the locked
// scope, that the wallet holds at least the requested amount. The balance check
// and the write are atomic with respect to every other mutation of the wallet.
func (s *Service) Withdraw(ctx context.Context, customerID uuid.UUID, amount decimal.Decimal, referenceID uuid.UUID) (*model.Transaction, error) {
	return s.append(ctx, customerID, model.TransactionTypeWithdraw, amount, referenceID)
}

func (s *Service) append(ctx context.Context, customerID uuid.UUID, typ model.TransactionType, amount decimal.Decimal, referenceID uuid.UUID) (*model.Transaction, error) {
	l := logger.Get(ctx, s).With().
		Str("type", string(typ)).
		Str("reference_id", referenceID.String()).
		Logger()

	if !amount.IsInteger() || amount.LessThan(minAmount) {
		return nil, apperr.ErrInvalidInput
	}

	w, err := s.wallets.ReadByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var out *model.Transaction
	err = s.wallets.Update(ctx, w.ID, func(tx storage.WalletTx) error {
		// Second line of defense behind the handler-side gate.
		if tx.Wallet().IsDisabled() {
			return apperr.ErrWalletDisabled
		}

		signed := amount
		if typ == model.TransactionTypeWithdraw {
			balance, err := tx.Balance(ctx)
			if err != nil {
				return err
			}
			if amount.GreaterThan(balance) {
				return apperr.ErrInsufficientFunds
			}
			signed = amount.Neg()
		}

		m, err := tx.Append(ctx, &model.Transaction{
			ID:          uuid.New(),
			WalletID:    w.ID,
			ExecutedBy:  customerID,
			Type:        typ,
			Status:      model.TransactionStatusSuccess,
			CreatedAt:   time.Now().UTC(),
			Amount:      signed,
			ReferenceID: referenceID,
		})
		if err != nil {
			return err
		}

		out = m
		return nil
	})
	if err != nil {
		l.Debug().Err(err).Send()
		return nil, err
	}

	return out, nil
}

// Transactions lists the wallet's transactions, most recent first.
func (s *Service) Transactions(ctx context.Context, customerID uuid.UUID) ([]*model.Transaction, error) {
	w, err := s.wallets.ReadByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	return s.wallets.Transactions(ctx, w.ID)
}
