// Package handler implements the HTTP API. Handlers decode requests, resolve
// the authenticated identity, delegate to the domain services with that
// identity as an explicit argument, and map domain errors to status codes.
package handler

import (
	"net/http"

	"github.com/agrovalue/marketplace-api/internal/auth"
	"github.com/agrovalue/marketplace-api/internal/domain/admin"
	"github.com/agrovalue/marketplace-api/internal/domain/order"
	"github.com/agrovalue/marketplace-api/internal/domain/payment"
	"github.com/agrovalue/marketplace-api/internal/domain/product"
	"github.com/agrovalue/marketplace-api/internal/domain/user"
)

// Handler holds the domain services behind the HTTP API.
type Handler struct {
	auth          *auth.Service
	products      *product.Service
	orders        *order.Service
	payments      *payment.Service
	admin         *admin.Service
	webhookSecret []byte
}

// NewHandler constructs a Handler with the required domain dependencies.
// webhookSecret signs payment webhook payloads (HMAC-SHA256 over the body).
func NewHandler(
	authSvc *auth.Service,
	products *product.Service,
	orders *order.Service,
	payments *payment.Service,
	adminSvc *admin.Service,
	webhookSecret []byte,
) *Handler {
	return &Handler{
		auth:          authSvc,
		products:      products,
		orders:        orders,
		payments:      payments,
		admin:         adminSvc,
		webhookSecret: webhookSecret,
	}
}

// Routes registers every API route on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.Handle("GET /api/products/mine", h.requireRole(h.ListMyProducts, user.RoleFarmer))
	mux.Handle("POST /api/products", h.requireRole(h.CreateProduct, user.RoleFarmer))
	mux.Handle("PUT /api/products/{id}", h.requireRole(h.UpdateProduct, user.RoleFarmer))
	mux.Handle("DELETE /api/products/{id}", h.requireRole(h.DeleteProduct, user.RoleFarmer))

	mux.Handle("POST /api/orders", h.requireRole(h.PlaceOrder, user.RoleCustomer))
	mux.Handle("GET /api/orders/me", h.requireRole(h.ListMyOrders, user.RoleCustomer))
	mux.Handle("POST /api/orders/{id}/cancel", h.requireRole(h.CancelOrder, user.RoleCustomer))
	mux.Handle("POST /api/orders/{id}/fulfill", h.requireRole(h.FulfillOrder, user.RoleAdmin))

	mux.Handle("POST /api/payments/intent", h.requireRole(h.CreatePaymentIntent, user.RoleCustomer, user.RoleAdmin))
	mux.HandleFunc("POST /api/payments/webhook", h.PaymentWebhook)

	mux.Handle("GET /api/admin/users", h.requireRole(h.ListUsers, user.RoleAdmin))
	mux.Handle("DELETE /api/admin/users/{id}", h.requireRole(h.DeleteUser, user.RoleAdmin))
	mux.Handle("GET /api/admin/orders", h.requireRole(h.ListAllOrders, user.RoleAdmin))
	mux.Handle("GET /api/admin/transactions", h.requireRole(h.ListTransactions, user.RoleAdmin))

	return mux
}
