package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/agrovalue/marketplace-api/internal/auth"
	"github.com/agrovalue/marketplace-api/internal/domain/order"
	"github.com/agrovalue/marketplace-api/internal/domain/payment"
	"github.com/agrovalue/marketplace-api/internal/domain/product"
	"github.com/agrovalue/marketplace-api/internal/domain/user"
	"github.com/agrovalue/marketplace-api/internal/stripe"
)

// errorResponse is the envelope for every error reply.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// respondDomainError maps a domain error onto an HTTP status. Validation and
// authorization errors are surfaced verbatim; everything unexpected logs and
// returns a generic 500 so internals never leak.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty *order.InvalidQuantityError
		noProduct  *order.ProductNotFoundError
		noCustomer *order.CustomerNotFoundError
		ledgerErr  *order.LedgerWriteError
		procErr    *stripe.ProcessorError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, product.ErrInvalidPrice),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrInvalidCurrency),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidRole),
		errors.As(err, &invalidQty):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &noProduct), errors.As(err, &noCustomer):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, product.ErrNotOwner),
		errors.Is(err, order.ErrForbidden),
		errors.Is(err, payment.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, payment.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, user.ErrHasOrders),
		errors.Is(err, payment.ErrAlreadyExists),
		errors.Is(err, payment.ErrConflictingOutcome),
		errors.Is(err, order.ErrInvalidTransition):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &procErr):
		respondError(w, http.StatusBadGateway, procErr.Error())
	case errors.As(err, &ledgerErr):
		zctx.From(r.Context()).Error("order ledger write failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "order could not be persisted, retry later")
	default:
		zctx.From(r.Context()).Error("unhandled error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
