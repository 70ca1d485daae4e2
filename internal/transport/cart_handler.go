package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/cart"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/middleware"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/repository"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddToCartRequest carries the product to insert; quantity always starts at 1
type AddToCartRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
}

// CartHandler handles HTTP requests for the buyer's cart
type CartHandler struct {
	carts   *cart.Store
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(carts *cart.Store, catalog service.CatalogService, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, catalog: catalog, logger: logger}
}

// RegisterRoutes registers all cart routes; everything requires auth
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddItem)
		r.Post("/items/{productID}/increment", h.IncrementItem)
		r.Post("/items/{productID}/decrement", h.DecrementItem)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

func buyerID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := middleware.GetUserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetCart returns the buyer's cart with running totals
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	c, err := h.carts.Get(r.Context(), buyer)
	if err != nil {
		h.logger.Error("Failed to load cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, c)
}

// AddItem inserts a product at its current effective price. Adding a product
// already in the cart changes nothing.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to resolve product for cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	if !product.Active {
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "product is not available")
		return
	}

	c, err := h.carts.Add(r.Context(), buyer, product)
	if err != nil {
		h.logger.Error("Failed to add to cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to add to cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, c)
}

// IncrementItem raises an item quantity by one
func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjustItem(w, r, h.carts.Increment)
}

// DecrementItem lowers an item quantity by one, never below one
func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.adjustItem(w, r, h.carts.Decrement)
}

func (h *CartHandler) adjustItem(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, buyer, product uuid.UUID) (*cart.Cart, error)) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	c, err := op(r.Context(), buyer, productID)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "item not in cart")
			return
		}
		h.logger.Error("Failed to update cart item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, c)
}

// RemoveItem deletes an item from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	c, err := h.carts.Remove(r.Context(), buyer, productID)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "item not in cart")
			return
		}
		h.logger.Error("Failed to remove cart item", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, c)
}

// ClearCart empties the buyer's cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.carts.Clear(r.Context(), buyer); err != nil {
		h.logger.Error("Failed to clear cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
