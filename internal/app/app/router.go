package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"miniwallet/internal/app/handler"
	mw "miniwallet/internal/app/middleware"
)

func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(mw.Log(a.logger))

	wh := handler.NewWalletHandler(a.ledger)
	th := handler.NewTransactionHandler(a.ledger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/init", wh.Init)

		r.Group(func(r chi.Router) {
			r.Use(mw.Auth(a.session))

			r.Post("/wallet", wh.Enable)
			r.Get("/wallet", wh.View)
			r.Patch("/wallet", wh.Disable)

			r.Get("/wallet/transactions", th.List)
			r.Post("/wallet/deposits", th.Deposit)
			r.Post("/wallet/withdrawals", th.Withdraw)
		})
	})

	return r
}
