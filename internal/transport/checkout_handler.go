package transport

import (
	"errors"
	"net/http"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/middleware"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/repository"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CheckoutItemRequest is one submitted line item. No price fields: the
// server resolves prices from the catalog.
type CheckoutItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// CheckoutRequest is the full checkout submission payload
type CheckoutRequest struct {
	Items           []CheckoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ClientName      string                `json:"client_name" validate:"required"`
	ClientEmail     string                `json:"client_email" validate:"required,email"`
	ClientPhone     string                `json:"client_phone" validate:"required"`
	ShippingMethod  string                `json:"shipping_method" validate:"required"`
	ShippingAddress string                `json:"shipping_address" validate:"required"`
	ShippingCost    float64               `json:"shipping_cost" validate:"gte=0"`
	PaymentMethod   string                `json:"payment_method" validate:"required"`
	ReferenceNumber string                `json:"reference_number" validate:"required"`
	ReceiptImage    string                `json:"receipt_image"`
}

// CheckoutHandler handles HTTP requests for checkout submission
type CheckoutHandler struct {
	checkout service.CheckoutService
	logger   *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkout service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, logger: logger}
}

// RegisterRoutes registers the checkout route
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/api/checkout", h.Checkout)
	})
}

// Checkout submits the cart as one atomic order. Any failure leaves nothing
// persisted; the client must resubmit explicitly.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]service.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
			return
		}
		items = append(items, service.CheckoutItem{ProductID: productID, Quantity: item.Quantity})
	}

	order, err := h.checkout.Checkout(r.Context(), service.CheckoutInput{
		BuyerID:           buyer,
		Items:             items,
		ClientName:        req.ClientName,
		ClientEmail:       req.ClientEmail,
		ClientPhone:       req.ClientPhone,
		ShippingMethod:    req.ShippingMethod,
		ShippingAddress:   req.ShippingAddress,
		ShippingCost:      req.ShippingCost,
		PaymentMethodName: req.PaymentMethod,
		ReferenceNumber:   req.ReferenceNumber,
		ReceiptImage:      req.ReceiptImage,
	})
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, order)
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCheckout):
		middleware.RespondWithError(w, http.StatusBadRequest, "checkout has no items")
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "a product in the order no longer exists")
	case errors.Is(err, repository.ErrProductInactive):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "a product in the order is not available")
	case errors.Is(err, repository.ErrInsufficientStock):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "insufficient stock for a product in the order")
	case errors.Is(err, repository.ErrPaymentMethodNotFound):
		middleware.RespondWithError(w, http.StatusUnprocessableEntity, "unknown payment method")
	default:
		h.logger.Error("Checkout failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process checkout")
	}
}
