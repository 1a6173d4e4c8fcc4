package handler

import (
	"net/http"
	"time"

	"github.com/agrovalue/marketplace-api/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type placeOrderRequest struct {
	Items []orderItemRequest `json:"items"`
}

type orderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customerId"`
	Items         []orderItemResponse `json:"items"`
	TotalAmount   float64             `json:"totalAmount"`
	OrderStatus   string              `json:"orderStatus"`
	PaymentStatus string              `json:"paymentStatus"`
	OrderDate     time.Time           `json:"orderDate"`
}

func toOrderResponse(o order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.InexactFloat64(),
		}
	}
	return orderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		Items:         items,
		TotalAmount:   o.TotalAmount.InexactFloat64(),
		OrderStatus:   string(o.OrderStatus),
		PaymentStatus: string(o.PaymentStatus),
		OrderDate:     o.OrderDate,
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

// PlaceOrder creates an order for the authenticated customer. The customer
// id always comes from the verified identity, never from the payload.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req placeOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	items := make([]order.ItemRequest, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		CustomerID: identity.UserID,
		Items:      items,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(*o))
}

// ListMyOrders returns the authenticated customer's orders.
func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	orders, err := h.orders.ListForCustomer(r.Context(), identity.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

// CancelOrder moves the caller's PENDING order to CANCELLED.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	o, err := h.orders.Cancel(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(*o))
}

// FulfillOrder moves a CONFIRMED order to FULFILLED. Admin only.
func (h *Handler) FulfillOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.MarkFulfilled(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(*o))
}

// ListAllOrders returns every order. Admin only.
func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}
