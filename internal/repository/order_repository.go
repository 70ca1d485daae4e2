package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// OrderFilter narrows admin order listings. From/To are half-open time
// bounds already resolved to the deployment timezone by the caller; the
// comparison happens against the persisted order date as stored, so the
// listing honors literal calendar days rather than a reinterpreted UTC day.
type OrderFilter struct {
	Status        domain.OrderStatus
	PaymentMethod string
	From          *time.Time
	To            *time.Time
}

// OrderRepository persists and reads orders with their sale line items.
// CreateWithSales is the single write path for checkout: everything happens
// in one transaction or not at all.
type OrderRepository interface {
	CreateWithSales(ctx context.Context, order *domain.Order, lines []CheckoutLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error)
	ListAdmin(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*domain.Order, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
}

// CheckoutLine is one resolved cart line ready to be written. Prices are the
// server-side snapshot taken from the catalog at write time.
type CheckoutLine struct {
	ProductID     uuid.UUID
	Quantity      int
	OriginalPrice float64
	Discount      float64
	UnitPrice     float64
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateWithSales writes one order header and one sale row per line in a
// single transaction, decrementing product stock with a guard. Any failure
// rolls back everything, so a checkout with an unresolvable line persists
// zero rows.
func (r *orderRepository) CreateWithSales(ctx context.Context, order *domain.Order, lines []CheckoutLine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	orderQuery := `
		INSERT INTO orders (id, order_number, buyer_id, client_name, client_email, client_phone,
			status, shipping_method, shipping_address, shipping_cost, payment_method,
			reference_number, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = tx.ExecContext(
		ctx,
		orderQuery,
		order.ID,
		order.OrderNumber,
		order.BuyerID,
		order.ClientName,
		order.ClientEmail,
		order.ClientPhone,
		order.Status,
		order.ShippingMethod,
		order.ShippingAddress,
		order.ShippingCost,
		order.PaymentMethod,
		order.ReferenceNumber,
		order.Total,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	stockQuery := `UPDATE products SET stock = stock - $2, updated_at = $3 WHERE id = $1 AND stock >= $2`

	saleQuery := `
		INSERT INTO sales (id, order_id, product_id, buyer_id, quantity, original_price,
			discount, unit_price, sale_date, status, payment_method, reference_number,
			receipt_image, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL)
	`

	order.Sales = order.Sales[:0]
	for _, line := range lines {
		result, err := tx.ExecContext(ctx, stockQuery, line.ProductID, line.Quantity, order.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to reserve stock: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return ErrInsufficientStock
		}

		sale := &domain.Sale{
			ID:              uuid.New(),
			OrderID:         &order.ID,
			ProductID:       line.ProductID,
			BuyerID:         order.BuyerID,
			Quantity:        line.Quantity,
			OriginalPrice:   line.OriginalPrice,
			Discount:        line.Discount,
			UnitPrice:       line.UnitPrice,
			SaleDate:        order.CreatedAt,
			Status:          order.Status,
			PaymentMethod:   order.PaymentMethod,
			ReferenceNumber: order.ReferenceNumber,
			ReceiptImage:    order.ReceiptImage,
		}

		_, err = tx.ExecContext(
			ctx,
			saleQuery,
			sale.ID,
			sale.OrderID,
			sale.ProductID,
			sale.BuyerID,
			sale.Quantity,
			sale.OriginalPrice,
			sale.Discount,
			sale.UnitPrice,
			sale.SaleDate,
			sale.Status,
			sale.PaymentMethod,
			sale.ReferenceNumber,
			sale.ReceiptImage,
		)
		if err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		order.Sales = append(order.Sales, sale)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout transaction: %w", err)
	}

	return nil
}

const orderColumns = `
	o.id, o.order_number, o.buyer_id, o.client_name, o.client_email, o.client_phone,
	o.status, o.shipping_method, o.shipping_address, o.shipping_cost, o.payment_method,
	o.reference_number, o.total, o.created_at, o.updated_at
`

func scanOrder(row interface{ Scan(...interface{}) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.BuyerID,
		&order.ClientName,
		&order.ClientEmail,
		&order.ClientPhone,
		&order.Status,
		&order.ShippingMethod,
		&order.ShippingAddress,
		&order.ShippingCost,
		&order.PaymentMethod,
		&order.ReferenceNumber,
		&order.Total,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

// FindByID retrieves an order with its sales, each sale carrying the product
// name and first image
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders o WHERE o.id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	sales, err := r.salesForOrders(ctx, []uuid.UUID{order.ID})
	if err != nil {
		return nil, err
	}
	order.Sales = sales[order.ID]

	return order, nil
}

// ListByBuyer retrieves a buyer's orders, newest first, with their sales
func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, page, pageSize int) ([]*domain.Order, int, error) {
	countQuery := `SELECT COUNT(*) FROM orders o WHERE o.buyer_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, buyerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		WHERE o.buyer_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`, orderColumns)

	return r.queryOrders(ctx, query, total, buyerID, pageSize, offset)
}

// ListAdmin retrieves orders for the admin panel with status, payment method
// and date-range filters
func (r *orderRepository) ListAdmin(ctx context.Context, filter OrderFilter, page, pageSize int) ([]*domain.Order, int, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.PaymentMethod != "" {
		conditions = append(conditions, fmt.Sprintf("o.payment_method = $%d", argIndex))
		args = append(args, filter.PaymentMethod)
		argIndex++
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("o.created_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("o.created_at < $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM orders o %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	query := fmt.Sprintf(`
		SELECT %s
		FROM orders o
		%s
		ORDER BY o.created_at DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, whereClause, argIndex, argIndex+1)
	args = append(args, pageSize, offset)

	return r.queryOrders(ctx, query, total, args...)
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, total int, args ...interface{}) ([]*domain.Order, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	ids := []uuid.UUID{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(ids) > 0 {
		salesByOrder, err := r.salesForOrders(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
		for _, order := range orders {
			order.Sales = salesByOrder[order.ID]
		}
	}

	return orders, total, nil
}

// salesForOrders loads the sale rows for a set of orders in one query
func (r *orderRepository) salesForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]*domain.Sale, error) {
	placeholders := make([]string, len(orderIDs))
	args := make([]interface{}, len(orderIDs))
	for i, id := range orderIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(`
		SELECT s.id, s.order_id, s.product_id, s.buyer_id, s.quantity, s.original_price,
		       s.discount, s.unit_price, s.sale_date, s.status, s.payment_method,
		       s.reference_number, s.receipt_image, s.rating,
		       p.name, p.image_url
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.order_id IN (%s)
		ORDER BY s.sale_date DESC, s.id
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load order sales: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]*domain.Sale)
	for rows.Next() {
		sale := &domain.Sale{}
		err := rows.Scan(
			&sale.ID,
			&sale.OrderID,
			&sale.ProductID,
			&sale.BuyerID,
			&sale.Quantity,
			&sale.OriginalPrice,
			&sale.Discount,
			&sale.UnitPrice,
			&sale.SaleDate,
			&sale.Status,
			&sale.PaymentMethod,
			&sale.ReferenceNumber,
			&sale.ReceiptImage,
			&sale.Rating,
			&sale.ProductName,
			&sale.ProductImage,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		result[*sale.OrderID] = append(result[*sale.OrderID], sale)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	return result, nil
}

// UpdateStatus applies an admin status transition to the order and mirrors
// the new status onto every sale in it, so legacy consumers reading only sale
// rows stay consistent. Cancelling restores the reserved stock.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order status: %w", err)
	}

	if !domain.CanTransition(current, status) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`, id, status, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	_, err = tx.ExecContext(ctx, `UPDATE sales SET status = $2 WHERE order_id = $1`, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to cascade status to sales: %w", err)
	}

	if status == domain.OrderStatusCancelled {
		_, err = tx.ExecContext(ctx, `
			UPDATE products p
			SET stock = p.stock + s.quantity, updated_at = $2
			FROM sales s
			WHERE s.order_id = $1 AND s.product_id = p.id
		`, id, now)
		if err != nil {
			return nil, fmt.Errorf("failed to restore stock: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status update: %w", err)
	}

	return r.FindByID(ctx, id)
}
