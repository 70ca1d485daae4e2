package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/cart"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/config"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/metrics"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/pricing"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/repository"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrEmptyCheckout = errors.New("checkout has no items")
)

// CheckoutItem is one submitted line: product id and quantity only. Prices
// are never accepted from the client; the writer re-resolves them from the
// catalog.
type CheckoutItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gte=1"`
}

// CheckoutInput is a complete checkout submission
type CheckoutInput struct {
	BuyerID           uuid.UUID
	Items             []CheckoutItem
	ClientName        string
	ClientEmail       string
	ClientPhone       string
	ShippingMethod    string
	ShippingAddress   string
	ShippingCost      float64 // client hint, re-derived server-side
	PaymentMethodName string
	ReferenceNumber   string
	ReceiptImage      string // optional base64 payload
}

// CheckoutService turns a submission into one order plus its sale rows,
// all-or-nothing
type CheckoutService interface {
	Checkout(ctx context.Context, input CheckoutInput) (*domain.Order, error)
	ShippingCost(subtotal float64) float64
}

type checkoutService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	payments repository.PaymentMethodRepository
	carts    *cart.Store
	receipts *storage.ReceiptStore
	cfg      config.CheckoutConfig
	logger   *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	products repository.ProductRepository,
	orders repository.OrderRepository,
	payments repository.PaymentMethodRepository,
	carts *cart.Store,
	receipts *storage.ReceiptStore,
	cfg config.CheckoutConfig,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		products: products,
		orders:   orders,
		payments: payments,
		carts:    carts,
		receipts: receipts,
		cfg:      cfg,
		logger:   logger,
	}
}

// ShippingCost derives the shipping charge from the order subtotal. The
// client computes the same value for display; the server-derived one is
// authoritative.
func (s *checkoutService) ShippingCost(subtotal float64) float64 {
	if subtotal >= s.cfg.FreeShippingThreshold {
		return 0
	}
	return s.cfg.FlatShippingRate
}

// Checkout resolves every line against the current catalog, snapshots
// prices, derives shipping, and writes the order and its sales in one
// transaction. Any unresolvable line aborts the whole submission; nothing is
// retried automatically. The buyer's cart is cleared only after the write
// commits.
func (s *checkoutService) Checkout(ctx context.Context, input CheckoutInput) (*domain.Order, error) {
	if len(input.Items) == 0 {
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyCheckout
	}

	method, err := s.payments.FindByName(ctx, input.PaymentMethodName)
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
		if err == repository.ErrPaymentMethodNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve payment method: %w", err)
	}

	lines := make([]repository.CheckoutLine, 0, len(input.Items))
	subtotal := 0.0
	for _, item := range input.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
			if err == repository.ErrProductNotFound {
				return nil, fmt.Errorf("product %s: %w", item.ProductID, repository.ErrProductNotFound)
			}
			return nil, fmt.Errorf("failed to resolve product: %w", err)
		}
		if !product.Active {
			metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("product %s: %w", product.Name, repository.ErrProductInactive)
		}

		unit := pricing.Effective(product.Price, product.Discount)
		lines = append(lines, repository.CheckoutLine{
			ProductID:     product.ID,
			Quantity:      item.Quantity,
			OriginalPrice: product.Price,
			Discount:      product.Discount,
			UnitPrice:     unit,
		})
		subtotal += pricing.LineTotal(unit, item.Quantity)
	}

	shippingCost := s.ShippingCost(subtotal)
	if input.ShippingCost != shippingCost {
		s.logger.Debug("Client shipping cost differs from derived value",
			zap.Float64("client", input.ShippingCost),
			zap.Float64("derived", shippingCost),
		)
	}

	receiptPath := ""
	if strings.TrimSpace(input.ReceiptImage) != "" {
		receiptPath, err = s.receipts.SaveBase64(input.ReceiptImage)
		if err != nil {
			metrics.CheckoutsTotal.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("failed to store receipt image: %w", err)
		}
	}

	now := time.Now()
	order := &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     newOrderNumber(now),
		BuyerID:         input.BuyerID,
		ClientName:      input.ClientName,
		ClientEmail:     input.ClientEmail,
		ClientPhone:     input.ClientPhone,
		Status:          domain.OrderStatusPending,
		ShippingMethod:  input.ShippingMethod,
		ShippingAddress: input.ShippingAddress,
		ShippingCost:    shippingCost,
		PaymentMethod:   method.Name,
		ReferenceNumber: input.ReferenceNumber,
		Total:           subtotal + shippingCost,
		CreatedAt:       now,
		UpdatedAt:       now,
		ReceiptImage:    receiptPath,
	}

	if err := s.orders.CreateWithSales(ctx, order, lines); err != nil {
		metrics.CheckoutsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to write order: %w", err)
	}

	// Cart clearing is best-effort; the order is already committed and the
	// client clears its own view on success anyway.
	if err := s.carts.Clear(ctx, input.BuyerID); err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("buyer_id", input.BuyerID.String()),
			zap.Error(err),
		)
	}

	metrics.CheckoutsTotal.WithLabelValues("created").Inc()
	metrics.OrderTotalAmount.Observe(order.Total)

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(order.Sales)),
		zap.Float64("total", order.Total),
	)

	return order, nil
}

// newOrderNumber builds a human-readable unique order number
func newOrderNumber(t time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:8])
	return fmt.Sprintf("RO-%s-%s", t.Format("20060102"), suffix)
}
