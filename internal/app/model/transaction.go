package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
)

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success"
	// TransactionStatusFailed is reserved. No operation currently records a
	// failed transaction: every operation either commits fully or writes nothing.
	TransactionStatusFailed TransactionStatus = "failed"
)

// Transaction is an immutable signed ledger entry. Deposits store a positive
// amount, withdrawals a negative one.
type Transaction struct {
	ID          uuid.UUID
	WalletID    uuid.UUID
	ExecutedBy  uuid.UUID
	Type        TransactionType
	Status      TransactionStatus
	CreatedAt   time.Time
	Amount      decimal.Decimal
	ReferenceID uuid.UUID
}

// AbsAmount returns the unsigned magnitude used in API views.
func (t *Transaction) AbsAmount() decimal.Decimal {
	return t.Amount.Abs()
}
