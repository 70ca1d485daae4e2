package service

import (
	"context"
	"fmt"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/repository"

	"github.com/google/uuid"
)

// CatalogService is the read boundary to the product catalog and the
// payment-method directory. The order core reads prices and stock through
// it but never mutates catalog state.
type CatalogService interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error)
}

type catalogService struct {
	products repository.ProductRepository
	payments repository.PaymentMethodRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(products repository.ProductRepository, payments repository.PaymentMethodRepository) CatalogService {
	return &catalogService{products: products, payments: payments}
}

// GetProduct retrieves a product with its rating aggregate
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// ListProducts lists active products for the storefront
func (s *catalogService) ListProducts(ctx context.Context, filter repository.ProductFilter, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return s.products.List(ctx, filter, page, pageSize, sortBy, sortOrder)
}

// ListPaymentMethods returns the active payment methods with their
// disclosure fields for the checkout page
func (s *catalogService) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	methods, err := s.payments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	return methods, nil
}
