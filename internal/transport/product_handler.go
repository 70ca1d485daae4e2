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

// ProductHandler serves the public catalog read endpoints
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes registers the public catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/products", h.ListProducts)
	r.Get("/api/products/{id}", h.GetProduct)
	r.Get("/api/payment-methods", h.ListPaymentMethods)
}

// ListProducts returns active products filtered by brand, model, category
// and free-text query
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter repository.ProductFilter
	if raw := q.Get("brand_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid brand ID")
			return
		}
		filter.BrandID = &id
	}
	if raw := q.Get("model_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid model ID")
			return
		}
		filter.ModelID = &id
	}
	filter.Category = q.Get("category")
	filter.Query = q.Get("q")

	sortOrder := repository.SortOrderAsc
	if q.Get("sort_order") == "desc" {
		sortOrder = repository.SortOrderDesc
	}

	page, pageSize := pageParams(r, 20)
	products, total, err := h.catalog.ListProducts(r.Context(), filter, page, pageSize, q.Get("sort_by"), sortOrder)
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, PagedResponse{
		Data:     products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetProduct returns one product with its rating aggregate
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// ListPaymentMethods returns the active payment methods shown at checkout
func (h *ProductHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.catalog.ListPaymentMethods(r.Context())
	if err != nil {
		h.logger.Error("Failed to list payment methods", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list payment methods")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, methods)
}
