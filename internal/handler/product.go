package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agrovalue/marketplace-api/internal/domain/product"
)

type productRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	ImageURL      string          `json:"imageUrl"`
}

type productResponse struct {
	ID            string    `json:"id"`
	FarmerID      string    `json:"farmerId"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	StockQuantity int       `json:"stockQuantity"`
	ImageURL      string    `json:"imageUrl"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		FarmerID:      p.FarmerID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price.InexactFloat64(),
		StockQuantity: p.StockQuantity,
		ImageURL:      p.ImageURL,
		CreatedAt:     p.CreatedAt,
	}
}

func toProductResponses(products []product.Product) []productResponse {
	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	return out
}

// ListProducts returns the whole catalog. Public.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}

// GetProduct returns one product. Public.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*p))
}

// ListMyProducts returns the authenticated farmer's listings.
func (h *Handler) ListMyProducts(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	products, err := h.products.ListByFarmer(r.Context(), identity.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponses(products))
}

// CreateProduct lists a new product owned by the authenticated farmer.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name required")
		return
	}

	p, err := h.products.Create(r.Context(), identity, product.CreateRequest{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductResponse(*p))
}

// UpdateProduct replaces a product's listing fields. Owner only.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.products.Update(r.Context(), identity, r.PathValue("id"), product.CreateRequest{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(*p))
}

// DeleteProduct removes a product. Owner only.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFrom(r.Context())

	if err := h.products.Delete(r.Context(), identity, r.PathValue("id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
