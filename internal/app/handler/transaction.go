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

type TransactionHandler struct {
	ledger *ledger.Service
}

func NewTransactionHandler(svc *ledger.Service) *TransactionHandler {
	return &TransactionHandler{
		ledger: svc,
	}
}

type transactionView struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"transaction_type"`
	ExecutedBy  uuid.UUID       `json:"executed_by"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID uuid.UUID       `json:"reference_id"`
}

type depositView struct {
	ID          uuid.UUID       `json:"id"`
	DepositedBy uuid.UUID       `json:"deposited_by"`
	Status      string          `json:"status"`
	DepositedAt time.Time       `json:"deposited_at"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID uuid.UUID       `json:"reference_id"`
}

type withdrawalView struct {
	ID          uuid.UUID       `json:"id"`
	WithdrawnBy uuid.UUID       `json:"withdrawn_by"`
	Status      string          `json:"status"`
	WithdrawnAt time.Time       `json:"withdrawn_at"`
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID uuid.UUID       `json:"reference_id"`
}

type transactionIn struct {
	Amount      decimal.Decimal `json:"amount"`
	ReferenceID string          `json:"reference_id" validate:"required,uuid4"`
}

// requireEnabled is the permission gate in front of the transaction endpoints.
// The engine re-checks status inside the locked scope.
func (h *TransactionHandler) requireEnabled(w http.ResponseWriter, r *http.Request) (*model.Customer, bool) {
	ctx := r.Context()

	c, err := ReadContextCustomer(ctx)
	if err != nil {
		WriteAppError(w, err)
		return nil, false
	}

	wlt, err := h.ledger.Wallet(ctx, c.ID)
	if err != nil {
		WriteAppError(w, err)
		return nil, false
	}
	if wlt.IsDisabled() {
		WriteAppError(w, apperr.ErrWalletDisabled)
		return nil, false
	}

	return c, true
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.List")

	c, ok := h.requireEnabled(w, r)
	if !ok {
		return
	}

	mm, err := h.ledger.Transactions(ctx, c.ID)
	if err != nil {
		l.Debug().Err(err).Send()
		WriteAppError(w, err)
		return
	}

	views := make([]transactionView, 0, len(mm))
	for _, m := range mm {
		views = append(views, transactionView{
			ID:          m.ID,
			Type:        string(m.Type),
			ExecutedBy:  c.XID,
			Status:      string(m.Status),
			CreatedAt:   m.CreatedAt,
			Amount:      m.AbsAmount(),
			ReferenceID: m.ReferenceID,
		})
	}

	out := struct {
		Transactions []transactionView `json:"transactions"`
	}{views}

	WriteSuccess(w, out, http.StatusOK)
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.Deposit")

	c, ok := h.requireEnabled(w, r)
	if !ok {
		return
	}

	in := transactionIn{}
	if err := readBody(r, &in); err != nil {
		l.Debug().Err(err).Msg("Body read failed")
		WriteAppError(w, apperr.ErrInvalidInput)
		return
	}
	if !validateData(w, in) {
		return
	}

	m, err := h.ledger.Deposit(ctx, c.ID, in.Amount, uuid.MustParse(in.ReferenceID))
	if err != nil {
		l.Debug().Err(err).Send()
		WriteAppError(w, err)
		return
	}

	out := struct {
		Deposit depositView `json:"deposit"`
	}{depositView{
		ID:          m.ID,
		DepositedBy: c.XID,
		Status:      string(m.Status),
		DepositedAt: m.CreatedAt,
		Amount:      m.AbsAmount(),
		ReferenceID: m.ReferenceID,
	}}

	WriteSuccess(w, out, http.StatusCreated)
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Transaction.Withdraw")

	c, ok := h.requireEnabled(w, r)
	if !ok {
		return
	}

	in := transactionIn{}
	if err := readBody(r, &in); err != nil {
		l.Debug().Err(err).Msg("Body read failed")
		WriteAppError(w, apperr.ErrInvalidInput)
		return
	}
	if !validateData(w, in) {
		return
	}

	m, err := h.ledger.Withdraw(ctx, c.ID, in.Amount, uuid.MustParse(in.ReferenceID))
	if err != nil {
		l.Debug().Err(err).Send()
		WriteAppError(w, err)
		return
	}

	out := struct {
		Withdrawal withdrawalView `json:"withdrawal"`
	}{withdrawalView{
		ID:          m.ID,
		WithdrawnBy: c.XID,
		Status:      string(m.Status),
		WithdrawnAt: m.CreatedAt,
		Amount:      m.AbsAmount(),
		ReferenceID: m.ReferenceID,
	}}

	WriteSuccess(w, out, http.StatusCreated)
}
