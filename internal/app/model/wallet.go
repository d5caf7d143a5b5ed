package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletStatus string

const (
	WalletStatusDisabled WalletStatus = "disabled"
	WalletStatusEnabled  WalletStatus = "enabled"
)

// Wallet holds a single customer balance. Balance is never stored: it is the
// sum of the wallet's transaction amounts, recomputed on read.
type Wallet struct {
	ID         uuid.UUID
	CustomerID uuid.UUID
	Status     WalletStatus
	EnabledAt  *time.Time
	DisabledAt *time.Time
	CreatedAt  time.Time

	// Balance is derived, populated by reads that request it.
	Balance decimal.Decimal
}

func (w *Wallet) IsEnabled() bool {
	return w.Status == WalletStatusEnabled
}

func (w *Wallet) IsDisabled() bool {
	return w.Status == WalletStatusDisabled
}
