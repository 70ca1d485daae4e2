package transport

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/middleware"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/repository"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UpdateStatusRequest carries the admin status transition
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// RateSaleRequest carries a buyer's post-purchase rating
type RateSaleRequest struct {
	Rating int `json:"rating" validate:"required,gte=1,lte=5"`
}

// PagedResponse wraps a listing with its pagination envelope
type PagedResponse struct {
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// OrderHandler handles HTTP requests for order history, admin listings,
// status transitions and sale rating
type OrderHandler struct {
	orders service.OrderService
	logger *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// RegisterRoutes registers buyer and admin order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, adminMiddleware func(http.Handler) http.Handler) {
	r.Get("/api/products/{id}/rating", h.ProductRating)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/api/orders", h.BuyerHistory)
		r.Get("/api/orders/{id}", h.GetOrder)
		r.Post("/api/sales/{id}/rating", h.RateSale)
	})

	r.Route("/api/admin/orders", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(adminMiddleware)
		r.Get("/", h.AdminOrders)
		r.Get("/legacy", h.AdminLegacyOrders)
		r.Patch("/{id}/status", h.UpdateStatus)
	})
}

func pageParams(r *http.Request, defaultSize int) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = defaultSize
	}
	return page, pageSize
}

// BuyerHistory returns the authenticated buyer's orders, authoritative and
// inferred legacy groups merged newest first
func (h *OrderHandler) BuyerHistory(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, pageSize := pageParams(r, 10)
	views, total, err := h.orders.BuyerHistory(r.Context(), buyer, page, pageSize)
	if err != nil {
		h.logger.Error("Failed to load order history", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PagedResponse{
		Data:     views,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetOrder returns one order. Buyers see their own orders; admins see any.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	view, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to load order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load order")
		return
	}

	role, _ := middleware.GetUserRole(r.Context())
	if view.BuyerID != buyer && role != "admin" {
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// RateSale records the buyer's rating for a sale line, first write wins
func (h *OrderHandler) RateSale(w http.ResponseWriter, r *http.Request) {
	buyer, ok := buyerID(r)
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale ID")
		return
	}

	var req RateSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sale, err := h.orders.RateSale(r.Context(), saleID, buyer, req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSaleNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "sale not found")
		case errors.Is(err, repository.ErrSaleAlreadyRated):
			middleware.RespondWithError(w, http.StatusConflict, "sale has already been rated")
		case errors.Is(err, repository.ErrRatingOutOfRange):
			middleware.RespondWithError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		default:
			h.logger.Error("Failed to rate sale", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to rate sale")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, sale)
}

// ProductRating returns the average rating and review count for a product
func (h *OrderHandler) ProductRating(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	summary, err := h.orders.ProductRating(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load product rating", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load product rating")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, summary)
}

// AdminOrders lists orders with status, payment method and literal-day date
// filters
func (h *OrderHandler) AdminOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r, 20)
	q := r.URL.Query()

	orders, total, err := h.orders.AdminOrders(r.Context(), service.AdminOrderQuery{
		Status:        q.Get("status"),
		PaymentMethod: q.Get("payment_method"),
		FromDate:      q.Get("from"),
		ToDate:        q.Get("to"),
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		h.logger.Debug("Admin order listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PagedResponse{
		Data:     orders,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// AdminLegacyOrders lists the synthetic orders inferred from sale rows that
// predate the orders table
func (h *OrderHandler) AdminLegacyOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orders.AdminLegacyOrders(r.Context())
	if err != nil {
		h.logger.Error("Failed to load legacy orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load legacy orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, views)
}

// UpdateStatus applies an admin status transition
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status := domain.OrderStatus(req.Status)
	if !status.Valid() {
		middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOrderNotFound):
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, repository.ErrInvalidTransition):
			middleware.RespondWithError(w, http.StatusConflict, "invalid status transition")
		default:
			h.logger.Error("Failed to update order status", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, order)
}
