package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/logger"
	"miniwallet/internal/app/model"
	"miniwallet/internal/app/service/ledger"
)

type WalletHandler struct {
	ledger *ledger.Service
}

func NewWalletHandler(svc *ledger.Service) *WalletHandler {
	return &WalletHandler{
		ledger: svc,
	}
}

type walletView struct {
	ID         uuid.UUID       `json:"id"`
	OwnedBy    uuid.UUID       `json:"owned_by"`
	Status     string          `json:"status"`
	EnabledAt  *time.Time      `json:"enabled_at"`
	DisabledAt *time.Time      `json:"disabled_at,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
}

type walletData struct {
	Wallet walletView `json:"wallet"`
}

func newWalletData(c *model.Customer, w *model.Wallet) walletData {
	return walletData{Wallet: walletView{
		ID:         w.ID,
		OwnedBy:    c.XID,
		Status:     string(w.Status),
		EnabledAt:  w.EnabledAt,
		DisabledAt: w.DisabledAt,
		Balance:    w.Balance,
	}}
}

func (h *WalletHandler) Init(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Wallet.Init")

	in := struct {
		CustomerXID string `json:"customer_xid" validate:"required,uuid4"`
	}{}

	if err := readBody(r, &in); err != nil {
		l.Debug().Err(err).Msg("Body read failed")
		WriteAppError(w, apperr.ErrInvalidInput)
		return
	}

	if !validateData(w, in) {
		return
	}

	xid, err := uuid.Parse(in.CustomerXID)
	if err != nil {
		WriteAppError(w, apperr.ErrInvalidInput)
		return
	}

	_, token, err := h.ledger.Init(ctx, xid)
	if err != nil {
		l.Error().Err(err).Send()
		WriteAppError(w, err)
		return
	}

	out := struct {
		Token string `json:"token"`
	}{token}

	WriteSuccess(w, out, http.StatusCreated)
}

func (h *WalletHandler) Enable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Wallet.Enable")

	c, err := ReadContextCustomer(ctx)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	wlt, err := h.ledger.Enable(ctx, c.ID)
	if err != nil {
		l.Debug().Err(err).Send()
		WriteAppError(w, err)
		return
	}

	WriteSuccess(w, newWalletData(c, wlt), http.StatusCreated)
}

// View returns the wallet with its derived balance. A disabled wallet is not
// viewable, same rule as the other gated endpoints.
func (h *WalletHandler) View(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Wallet.View")

	c, err := ReadContextCustomer(ctx)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	wlt, err := h.ledger.Wallet(ctx, c.ID)
	if err != nil {
		l.Debug().Err(err).Send()
		WriteAppError(w, err)
		return
	}

	if wlt.IsDisabled() {
		WriteAppError(w, apperr.ErrWalletDisabled)
		return
	}

	WriteSuccess(w, newWalletData(c, wlt), http.StatusOK)
}

func (h *WalletHandler) Disable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Wallet.Disable")

	c, err := ReadContextCustomer(ctx)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	in := struct {
		IsDisabled *bool `json:"is_disabled"`
	}{}

	if err := readBody(r, &in); err != nil {
		l.Debug().Err(err).Msg("Body read failed")
		WriteAppError(w, apperr.ErrInvalidInput)
		return
	}

	confirm := in.IsDisabled != nil && *in.IsDisabled

	wlt, err := h.ledger.Disable(ctx, c.ID, confirm)
	if err != nil {
		l.Debug().Err(err).Send()
		WriteAppError(w, err)
		return
	}

	WriteSuccess(w, newWalletData(c, wlt), http.StatusOK)
}
