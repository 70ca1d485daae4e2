package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/config"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/metrics"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// historyFetchLimit bounds how many authoritative orders are pulled when the
// buyer history is merged with legacy groups in memory.
const historyFetchLimit = 500

// AdminOrderQuery carries the admin listing filters with dates as literal
// calendar days ("2006-01-02") in the deployment timezone
type AdminOrderQuery struct {
	Status        string
	PaymentMethod string
	FromDate      string
	ToDate        string
	Page          int
	PageSize      int
}

// OrderService exposes the order read paths, the status state machine and
// sale rating
type OrderService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderView, error)
	BuyerHistory(ctx context.Context, buyerID uuid.UUID, page, pageSize int) ([]*domain.OrderView, int, error)
	AdminOrders(ctx context.Context, query AdminOrderQuery) ([]*domain.Order, int, error)
	AdminLegacyOrders(ctx context.Context) ([]*domain.OrderView, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	RateSale(ctx context.Context, saleID, buyerID uuid.UUID, rating int) (*domain.Sale, error)
	ProductRating(ctx context.Context, productID uuid.UUID) (*repository.RatingSummary, error)
}

type orderService struct {
	orders repository.OrderRepository
	sales  repository.SaleRepository
	cfg    config.CheckoutConfig
	logger *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	orders repository.OrderRepository,
	sales repository.SaleRepository,
	cfg config.CheckoutConfig,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		orders: orders,
		sales:  sales,
		cfg:    cfg,
		logger: logger,
	}
}

// GetOrder retrieves one authoritative order as a view
func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.OrderView, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return AuthoritativeView(order), nil
}

// BuyerHistory merges the buyer's authoritative orders with inferred legacy
// groups, newest first, and paginates the merged sequence
func (s *orderService) BuyerHistory(ctx context.Context, buyerID uuid.UUID, page, pageSize int) ([]*domain.OrderView, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	orders, _, err := s.orders.ListByBuyer(ctx, buyerID, 1, historyFetchLimit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	legacy, err := s.sales.ListLegacyByBuyer(ctx, buyerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list legacy sales: %w", err)
	}

	views := make([]*domain.OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, AuthoritativeView(order))
	}
	views = append(views, GroupLegacySales(legacy)...)

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Date.After(views[j].Date)
	})

	total := len(views)
	start := (page - 1) * pageSize
	if start >= total {
		return []*domain.OrderView{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return views[start:end], total, nil
}

// AdminOrders lists authoritative orders for the admin panel. Date filters
// are literal calendar days in the deployment timezone, compared half-open
// against the persisted order date.
func (s *orderService) AdminOrders(ctx context.Context, query AdminOrderQuery) ([]*domain.Order, int, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 {
		query.PageSize = 20
	}

	filter := repository.OrderFilter{
		PaymentMethod: query.PaymentMethod,
	}

	if query.Status != "" {
		status := domain.OrderStatus(query.Status)
		if !status.Valid() {
			return nil, 0, fmt.Errorf("unknown order status %q", query.Status)
		}
		filter.Status = status
	}

	loc := s.cfg.Location()
	if query.FromDate != "" {
		from, err := time.ParseInLocation("2006-01-02", query.FromDate, loc)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid from date: %w", err)
		}
		filter.From = &from
	}
	if query.ToDate != "" {
		to, err := time.ParseInLocation("2006-01-02", query.ToDate, loc)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid to date: %w", err)
		}
		// Half-open upper bound: include the whole "to" day
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}

	return s.orders.ListAdmin(ctx, filter, query.Page, query.PageSize)
}

// AdminLegacyOrders exposes the inferred legacy groups to the admin panel
func (s *orderService) AdminLegacyOrders(ctx context.Context) ([]*domain.OrderView, error) {
	legacy, err := s.sales.ListLegacy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy sales: %w", err)
	}
	return GroupLegacySales(legacy), nil
}

// UpdateStatus applies an admin transition through the state machine; the
// repository cascades it to the order's sales
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		if err == repository.ErrOrderNotFound || err == repository.ErrInvalidTransition {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	metrics.StatusTransitionsTotal.WithLabelValues(status.String()).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", id.String()),
		zap.String("status", status.String()),
	)

	return order, nil
}

// RateSale records a buyer's first rating on a sale and returns the updated
// row. Re-rating is rejected; rating does not depend on order status.
func (s *orderService) RateSale(ctx context.Context, saleID, buyerID uuid.UUID, rating int) (*domain.Sale, error) {
	if err := s.sales.Rate(ctx, saleID, buyerID, rating); err != nil {
		switch err {
		case repository.ErrSaleNotFound, repository.ErrSaleAlreadyRated, repository.ErrRatingOutOfRange:
			return nil, err
		}
		return nil, fmt.Errorf("failed to rate sale: %w", err)
	}

	return s.sales.FindByID(ctx, saleID)
}

// ProductRating returns the read-time rating aggregate for a product
func (s *orderService) ProductRating(ctx context.Context, productID uuid.UUID) (*repository.RatingSummary, error) {
	return s.sales.RatingForProduct(ctx, productID)
}
