package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovalue/marketplace-api/internal/domain/payment"
)

type createIntentRequest struct {
	// OrderID links the intent to an order. When set, Amount is ignored and
	// the order's total is charged.
	OrderID  string          `json:"orderId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type intentResponse struct {
	IntentID     string               `json:"intentId"`
	ClientSecret string               `json:"clientSecret"`
	Transaction  *transactionResponse `json:"transaction,omitempty"`
}

type transactionResponse struct {
	ID                string    `json:"id"`
	OrderID           string    `json:"orderId"`
	ExternalPaymentID string    `json:"externalPaymentId"`
	Amount            float64   `json:"amount"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
}

type webhookEvent struct {
	PaymentIntentID string `json:"paymentIntentId"`
	Status          string `json:"status"`
}

func toTransactionResponse(t payment.Transaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID,
		OrderID:           t.OrderID,
		ExternalPaymentID: t.ExternalPaymentID,
		Amount:            t.Amount.InexactFloat64(),
		Status:            string(t.Status),
		CreatedAt:         t.CreatedAt,
	}
}

// CreatePaymentIntent obtains a payment intent from the processor. With an
// orderId the intent is linked to the order through a transaction record;
// without one only the bare intent is returned.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req createIntentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.OrderID != "" {
		intent, txn, err := h.payments.AttachIntent(r.Context(), identity, req.OrderID, req.Currency)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		txnResp := toTransactionResponse(*txn)
		respondJSON(w, http.StatusCreated, intentResponse{
			IntentID:     intent.ID,
			ClientSecret: intent.ClientSecret,
			Transaction:  &txnResp,
		})
		return
	}

	intent, err := h.payments.CreateIntent(r.Context(), req.Amount, req.Currency)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, intentResponse{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	})
}

// PaymentWebhook receives payment outcomes from the processor. Deliveries
// are signed with HMAC-SHA256 over the raw body; the processor retries until
// it sees a 2xx, so recording is idempotent.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !verifyWebhookSignature(h.webhookSecret, body, r.Header.Get("X-Webhook-Signature")) {
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	status, ok := mapWebhookStatus(event.Status)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown payment status")
		return
	}

	if err := h.payments.RecordOutcome(r.Context(), event.PaymentIntentID, status); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mapWebhookStatus translates processor event names to transaction statuses.
func mapWebhookStatus(s string) (payment.Status, bool) {
	switch s {
	case "succeeded", "SUCCEEDED":
		return payment.StatusSucceeded, true
	case "failed", "payment_failed", "FAILED":
		return payment.StatusFailed, true
	}
	return "", false
}

// ListTransactions returns every payment transaction. Admin only.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.payments.ListTransactions(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]transactionResponse, len(txns))
	for i, t := range txns {
		out[i] = toTransactionResponse(t)
	}
	respondJSON(w, http.StatusOK, out)
}
