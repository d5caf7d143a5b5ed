// Package memory holds in-memory implementations of the storage interfaces.
// They keep the same locking semantics as the postgres implementations (one
// in-flight mutating operation per wallet, all-or-nothing commit) and back the
// ledger tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/storage"
)

// storage.WalletStore interface implementation
var _ storage.WalletStore = (*Store)(nil)

type Store struct {
	mu         sync.Mutex
	wallets    map[uuid.UUID]*record
	byCustomer map[uuid.UUID]uuid.UUID
	refs       map[uuid.UUID]struct{}
}

// record is one wallet with its transaction log. record.mu is the per-wallet
// exclusive lock taken by Update.
type record struct {
	mu           sync.Mutex
	wallet       model.Wallet
	transactions []*model.Transaction
}

// snapshot copies the wallet under the per-wallet lock. Never call it while
// holding Store.mu, Append acquires Store.mu under record.mu.
func (r *record) snapshot() *model.Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := r.wallet
	return &w
}

func NewStore() *Store {
	return &Store{
		wallets:    make(map[uuid.UUID]*record),
		byCustomer: make(map[uuid.UUID]uuid.UUID),
		refs:       make(map[uuid.UUID]struct{}),
	}
}

// GetOrCreate implementation of interface storage.WalletStore
func (s *Store) GetOrCreate(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error) {
	s.mu.Lock()
	if id, ok := s.byCustomer[customerID]; ok {
		rec := s.wallets[id]
		s.mu.Unlock()
		return rec.snapshot(), nil
	}
	defer s.mu.Unlock()

	rec := &record{
		wallet: model.Wallet{
			ID:         uuid.New(),
			CustomerID: customerID,
			Status:     model.WalletStatusDisabled,
			CreatedAt:  time.Now().UTC(),
		},
	}
	s.wallets[rec.wallet.ID] = rec
	s.byCustomer[customerID] = rec.wallet.ID

	w := rec.wallet
	return &w, nil
}

// ReadByCustomer implementation of interface storage.WalletStore
func (s *Store) ReadByCustomer(ctx context.Context, customerID uuid.UUID) (*model.Wallet, error) {
	s.mu.Lock()
	id, ok := s.byCustomer[customerID]
	if !ok {
		s.mu.Unlock()
		return nil, apperr.ErrNotFound
	}
	rec := s.wallets[id]
	s.mu.Unlock()

	return rec.snapshot(), nil
}

// Balance implementation of interface storage.WalletStore
func (s *Store) Balance(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error) {
	rec := s.record(walletID)
	if rec == nil {
		return decimal.Zero, apperr.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	return sumAmounts(rec.transactions), nil
}

// Transactions implementation of interface storage.WalletStore
func (s *Store) Transactions(ctx context.Context, walletID uuid.UUID) ([]*model.Transaction, error) {
	rec := s.record(walletID)
	if rec == nil {
		return nil, apperr.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	res := make([]*model.Transaction, 0, len(rec.transactions))
	for i := len(rec.transactions) - 1; i >= 0; i-- {
		m := *rec.transactions[i]
		res = append(res, &m)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res, nil
}

// Update implementation of interface storage.WalletStore
func (s *Store) Update(ctx context.Context, walletID uuid.UUID, fn func(tx storage.WalletTx) error) error {
	rec := s.record(walletID)
	if rec == nil {
		return apperr.ErrNotFound
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	wt := &walletTx{store: s, rec: rec, wallet: rec.wallet}
	if err := fn(wt); err != nil {
		wt.rollback()
		return err
	}

	rec.wallet = wt.wallet
	rec.transactions = append(rec.transactions, wt.pending...)
	return nil
}

func (s *Store) record(walletID uuid.UUID) *record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[walletID]
}

// walletTx buffers writes until the enclosing Update commits.
type walletTx struct {
	store    *Store
	rec      *record
	wallet   model.Wallet
	pending  []*model.Transaction
	reserved []uuid.UUID
}

func (w *walletTx) Wallet() *model.Wallet {
	return &w.wallet
}

func (w *walletTx) Balance(ctx context.Context) (decimal.Decimal, error) {
	sum := sumAmounts(w.rec.transactions)
	return sum.Add(sumAmounts(w.pending)), nil
}

func (w *walletTx) Append(ctx context.Context, m *model.Transaction) (*model.Transaction, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	if _, ok := w.store.refs[m.ReferenceID]; ok {
		return nil, apperr.ErrDuplicateReference
	}
	w.store.refs[m.ReferenceID] = struct{}{}
	w.reserved = append(w.reserved, m.ReferenceID)

	cp := *m
	w.pending = append(w.pending, &cp)
	return m, nil
}

func (w *walletTx) UpdateStatus(ctx context.Context, status model.WalletStatus, at time.Time) error {
	w.wallet.Status = status
	if status == model.WalletStatusEnabled {
		w.wallet.EnabledAt = &at
	} else {
		w.wallet.DisabledAt = &at
	}
	return nil
}

// rollback releases reference_id reservations so an aborted scope leaves no
// trace.
func (w *walletTx) rollback() {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()

	for _, ref := range w.reserved {
		delete(w.store.refs, ref)
	}
	w.pending = nil
	w.reserved = nil
}

func sumAmounts(mm []*model.Transaction) decimal.Decimal {
	sum := decimal.NewFromInt(0)
	for _, m := range mm {
		sum = sum.Add(m.Amount)
	}
	return sum
}
