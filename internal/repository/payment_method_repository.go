package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"
)

var ErrPaymentMethodNotFound = errors.New("payment method not found")

// PaymentMethodRepository reads the payment-method directory. The core only
// labels orders with a method name and records a human-entered reference; it
// never validates payment completion.
type PaymentMethodRepository interface {
	Create(ctx context.Context, method *domain.PaymentMethod) error
	ListActive(ctx context.Context) ([]*domain.PaymentMethod, error)
	FindByName(ctx context.Context, name string) (*domain.PaymentMethod, error)
}

type paymentMethodRepository struct {
	db *sql.DB
}

// NewPaymentMethodRepository creates a new instance of PaymentMethodRepository
func NewPaymentMethodRepository(db *sql.DB) PaymentMethodRepository {
	return &paymentMethodRepository{db: db}
}

// Create inserts a payment method
func (r *paymentMethodRepository) Create(ctx context.Context, method *domain.PaymentMethod) error {
	query := `
		INSERT INTO payment_methods (id, name, details, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, method.ID, method.Name, method.Details, method.Active, method.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}

	return nil
}

// ListActive retrieves the active payment methods shown at checkout
func (r *paymentMethodRepository) ListActive(ctx context.Context) ([]*domain.PaymentMethod, error) {
	query := `
		SELECT id, name, details, active, created_at
		FROM payment_methods
		WHERE active = TRUE
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	methods := []*domain.PaymentMethod{}
	for rows.Next() {
		method := &domain.PaymentMethod{}
		if err := rows.Scan(&method.ID, &method.Name, &method.Details, &method.Active, &method.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, method)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payment methods: %w", err)
	}

	return methods, nil
}

// FindByName retrieves an active payment method by its display name
func (r *paymentMethodRepository) FindByName(ctx context.Context, name string) (*domain.PaymentMethod, error) {
	query := `
		SELECT id, name, details, active, created_at
		FROM payment_methods
		WHERE name = $1 AND active = TRUE
	`

	method := &domain.PaymentMethod{}
	err := r.db.QueryRowContext(ctx, query, name).Scan(&method.ID, &method.Name, &method.Details, &method.Active, &method.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, fmt.Errorf("failed to find payment method: %w", err)
	}

	return method, nil
}
