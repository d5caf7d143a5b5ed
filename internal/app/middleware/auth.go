package middleware

import (
	"context"
	"net/http"
	"strings"

	"miniwallet/internal/app/apperr"
	"miniwallet/internal/app/handler"
	"miniwallet/internal/app/logger"
	"miniwallet/internal/app/session"
)

// Auth resolves the "Authorization: Token <t>" header to a customer and stores
// it in the request context.
func Auth(tokens session.Reader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.Get(r.Context(), "Middleware.Auth")

			reqHeader := r.Header.Get("Authorization")
			splitToken := strings.Split(reqHeader, "Token ")
			if len(splitToken) != 2 {
				log.Debug().Str("header", reqHeader).Msg("Invalid Authorization header")
				handler.WriteAppError(w, apperr.ErrUnauthorized)
				return
			}

			c, err := tokens.Read(r.Context(), strings.TrimSpace(splitToken[1]))
			if err != nil {
				log.Debug().Err(err).Msg("Token resolution failed")
				handler.WriteAppError(w, apperr.ErrUnauthorized)
				return
			}

			log.Debug().Str("customer_xid", c.XID.String()).Msg("Customer authorized")
			r = r.WithContext(context.WithValue(r.Context(), handler.ContextKeyCustomer{}, c))
			next.ServeHTTP(w, r)
		})
	}
}
