package app

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"

	"miniwallet/internal/app/config"
	"miniwallet/internal/app/logger"
	"miniwallet/internal/app/service/ledger"
	"miniwallet/internal/app/session"
	"miniwallet/internal/app/storage"
	"miniwallet/internal/app/storage/postgres"
)

type App struct {
	config    config.Config
	logger    logger.Logger
	customers storage.CustomerRepository
	wallets   storage.WalletStore
	session   session.Manager
	ledger    *ledger.Service
	stopCh    chan struct{}
}

func New(cfg config.Config, logger logger.Logger, e embed.FS) (*App, error) {
	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := applyMigrations(e, db); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	customers, err := postgres.NewCustomerRepository(db)
	if err != nil {
		return nil, fmt.Errorf("customer repository init: %w", err)
	}

	wallets, err := postgres.NewWalletRepository(db)
	if err != nil {
		return nil, fmt.Errorf("wallet repository init: %w", err)
	}

	sm := session.NewTokenManager(customers)

	a := &App{
		config:    cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		customers: customers,
		wallets:   wallets,
		session:   sm,
		ledger:    ledger.New(customers, wallets, sm),
	}

	go func() {
		<-a.stopCh
		a.logger.Info().Msg("Shutting down application")
	}()

	return a, nil
}

func (a *App) Stop() {
	close(a.stopCh)
}
