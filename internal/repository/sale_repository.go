package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSaleNotFound     = errors.New("sale not found")
	ErrSaleAlreadyRated = errors.New("sale has already been rated")
	ErrRatingOutOfRange = errors.New("rating must be between 1 and 5")
)

// RatingSummary is a product's read-time rating aggregate
type RatingSummary struct {
	Average float64 `json:"average"`
	Reviews int     `json:"reviews"`
}

// SaleRepository reads and mutates individual sale rows. Writes happen only
// through OrderRepository.CreateWithSales; the single post-creation mutation
// a buyer may perform is rating, first-write-wins.
type SaleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	Rate(ctx context.Context, id uuid.UUID, buyerID uuid.UUID, rating int) error
	RatingForProduct(ctx context.Context, productID uuid.UUID) (*RatingSummary, error)
	ListLegacyByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Sale, error)
	ListLegacy(ctx context.Context) ([]*domain.Sale, error)
}

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db *sql.DB) SaleRepository {
	return &saleRepository{db: db}
}

const saleColumns = `
	s.id, s.order_id, s.product_id, s.buyer_id, s.quantity, s.original_price,
	s.discount, s.unit_price, s.sale_date, s.status, s.payment_method,
	s.reference_number, s.receipt_image, s.rating,
	p.name, p.image_url
`

func scanSale(row interface{ Scan(...interface{}) error }) (*domain.Sale, error) {
	sale := &domain.Sale{}
	err := row.Scan(
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
	return sale, err
}

// FindByID retrieves a sale with its product display fields
func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.id = $1
	`, saleColumns)

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	return sale, nil
}

// Rate records a buyer's rating for a sale. First write wins: a sale that
// already carries a rating rejects the attempt. Rating is independent of
// order status.
func (r *saleRepository) Rate(ctx context.Context, id uuid.UUID, buyerID uuid.UUID, rating int) error {
	if rating < 1 || rating > 5 {
		return ErrRatingOutOfRange
	}

	query := `
		UPDATE sales
		SET rating = $3
		WHERE id = $1 AND buyer_id = $2 AND rating IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id, buyerID, rating)
	if err != nil {
		return fmt.Errorf("failed to rate sale: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish "already rated" from "not yours / not found"
		var existing *int
		err := r.db.QueryRowContext(ctx, `SELECT rating FROM sales WHERE id = $1 AND buyer_id = $2`, id, buyerID).Scan(&existing)
		if err == sql.ErrNoRows {
			return ErrSaleNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check sale rating: %w", err)
		}
		if existing != nil {
			return ErrSaleAlreadyRated
		}
		return ErrSaleNotFound
	}

	return nil
}

// RatingForProduct computes the product's average rating and review count
// from sale ratings inside [1,5]. No qualifying ratings yields 0 and 0.
func (r *saleRepository) RatingForProduct(ctx context.Context, productID uuid.UUID) (*RatingSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(rating)
		FROM sales
		WHERE product_id = $1 AND rating BETWEEN 1 AND 5
	`

	summary := &RatingSummary{}
	err := r.db.QueryRowContext(ctx, query, productID).Scan(&summary.Average, &summary.Reviews)
	if err != nil {
		return nil, fmt.Errorf("failed to compute product rating: %w", err)
	}

	return summary, nil
}

// ListLegacyByBuyer retrieves a buyer's sale rows that predate the orders
// table, newest first, for minute-bucket grouping
func (r *saleRepository) ListLegacyByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Sale, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.order_id IS NULL AND s.buyer_id = $1
		ORDER BY s.sale_date DESC, s.id
	`, saleColumns)

	return r.querySales(ctx, query, buyerID)
}

// ListLegacy retrieves all legacy sale rows for the admin view
func (r *saleRepository) ListLegacy(ctx context.Context) ([]*domain.Sale, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sales s
		JOIN products p ON p.id = s.product_id
		WHERE s.order_id IS NULL
		ORDER BY s.sale_date DESC, s.id
	`, saleColumns)

	return r.querySales(ctx, query)
}

func (r *saleRepository) querySales(ctx context.Context, query string, args ...interface{}) ([]*domain.Sale, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	return sales, nil
}
