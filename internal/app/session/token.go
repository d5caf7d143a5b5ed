// Package session issues and resolves the opaque bearer tokens used by the
// wallet API. A customer's token is minted exactly once, when the customer
// record is first created, and stays stable across init calls.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/logger"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/storage"
)

type Creator interface {
	// Create mints a fresh opaque token.
	Create(ctx context.Context) (string, error)
}

type Reader interface {
	// Read resolves a bearer token to its customer.
	Read(ctx context.Context, token string) (*model.Customer, error)
}

type Manager interface {
	Creator
	Reader
}

// session.Manager interface implementation
var _ Manager = (*TokenManager)(nil)

type TokenManager struct {
	customers storage.CustomerRepository
}

func (m *TokenManager) LoggerComponent() string {
	return "TokenManager"
}

func NewTokenManager(customers storage.CustomerRepository) *TokenManager {
	return &TokenManager{
		customers: customers,
	}
}

// Create method of session.Creator implementation
func (m *TokenManager) Create(ctx context.Context) (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token generate: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Read method of session.Reader implementation
func (m *TokenManager) Read(ctx context.Context, token string) (*model.Customer, error) {
	l := logger.Get(ctx, m)

	if token == "" {
		return nil, apperr.ErrUnauthorized
	}

	c, err := m.customers.ReadByToken(ctx, token)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.Debug().Msg("Unknown token")
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}

	return c, nil
}
