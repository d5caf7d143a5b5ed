package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/storage"
)

// storage.CustomerRepository interface implementation
var _ storage.CustomerRepository = (*CustomerRepository)(nil)

type CustomerRepository struct {
	mu      sync.Mutex
	byXID   map[uuid.UUID]*model.Customer
	byToken map[string]*model.Customer
}

func NewCustomerRepository() *CustomerRepository {
	return &CustomerRepository{
		byXID:   make(map[uuid.UUID]*model.Customer),
		byToken: make(map[string]*model.Customer),
	}
}

// GetOrCreate implementation of interface storage.CustomerRepository
func (r *CustomerRepository) GetOrCreate(ctx context.Context, xid uuid.UUID, token string) (*model.Customer, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.byXID[xid]; ok {
		cp := *m
		return &cp, false, nil
	}

	m := &model.Customer{
		ID:        uuid.New(),
		XID:       xid,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}
	r.byXID[xid] = m
	r.byToken[token] = m

	cp := *m
	return &cp, true, nil
}

// ReadByToken implementation of interface storage.CustomerRepository
func (r *CustomerRepository) ReadByToken(ctx context.Context, token string) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byToken[token]
	if !ok {
		return nil, apperr.ErrNotFound
	}

	cp := *m
	return &cp, nil
}
