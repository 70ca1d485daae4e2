package domain

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	// OrderStatusPending is the initial status set at order creation
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusShipped indicates the order left the warehouse
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusCompleted indicates the order was delivered and closed
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled by an admin
	OrderStatusCancelled OrderStatus = "cancelled"
)

// String returns the string representation of the status
func (s OrderStatus) String() string {
	return string(s)
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransition reports whether an order may move from one status to another.
// Transitions are admin-triggered only; there are no automatic ones.
func CanTransition(from, to OrderStatus) bool {
	if !to.Valid() || from == to {
		return false
	}
	switch from {
	case OrderStatusPending:
		return to == OrderStatusShipped || to == OrderStatusCompleted || to == OrderStatusCancelled
	case OrderStatusShipped:
		return to == OrderStatusCompleted || to == OrderStatusCancelled
	}
	return false
}

// Order is the authoritative header record for one checkout transaction.
// Client contact fields are snapshots taken at checkout and may differ from
// the buyer's account profile. Total is computed once at creation and never
// recomputed from current catalog prices.
type Order struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	OrderNumber     string      `json:"order_number" db:"order_number"`
	BuyerID         uuid.UUID   `json:"buyer_id" db:"buyer_id"`
	ClientName      string      `json:"client_name" db:"client_name"`
	ClientEmail     string      `json:"client_email" db:"client_email"`
	ClientPhone     string      `json:"client_phone" db:"client_phone"`
	Status          OrderStatus `json:"status" db:"status"`
	ShippingMethod  string      `json:"shipping_method" db:"shipping_method"`
	ShippingAddress string      `json:"shipping_address" db:"shipping_address"`
	ShippingCost    float64     `json:"shipping_cost" db:"shipping_cost"`
	PaymentMethod   string      `json:"payment_method" db:"payment_method"`
	ReferenceNumber string      `json:"reference_number" db:"reference_number"`
	Total           float64     `json:"total" db:"total"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`

	// ReceiptImage is not a column on orders; it is copied onto each sale
	// row at creation for legacy readers.
	ReceiptImage string `json:"receipt_image,omitempty" db:"-"`

	Sales []*Sale `json:"sales,omitempty" db:"-"`
}

// Sale is one product line item within an order. OriginalPrice, Discount and
// UnitPrice are snapshots of the catalog at purchase time; later catalog edits
// never touch them. OrderID is nullable because legacy rows predate the
// orders table.
type Sale struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	OrderID         *uuid.UUID  `json:"order_id,omitempty" db:"order_id"`
	ProductID       uuid.UUID   `json:"product_id" db:"product_id"`
	BuyerID         uuid.UUID   `json:"buyer_id" db:"buyer_id"`
	Quantity        int         `json:"quantity" db:"quantity"`
	OriginalPrice   float64     `json:"original_price" db:"original_price"`
	Discount        float64     `json:"discount" db:"discount"`
	UnitPrice       float64     `json:"unit_price" db:"unit_price"`
	SaleDate        time.Time   `json:"sale_date" db:"sale_date"`
	Status          OrderStatus `json:"status" db:"status"`
	PaymentMethod   string      `json:"payment_method" db:"payment_method"`
	ReferenceNumber string      `json:"reference_number" db:"reference_number"`
	ReceiptImage    string      `json:"receipt_image" db:"receipt_image"`
	Rating          *int        `json:"rating,omitempty" db:"rating"`

	ProductName  string `json:"product_name" db:"-"`
	ProductImage string `json:"product_image" db:"-"`
}

// LineTotal returns the amount charged for this line
func (s *Sale) LineTotal() float64 {
	return s.UnitPrice * float64(s.Quantity)
}

// OrderViewKind discriminates the two read paths for an order
type OrderViewKind string

const (
	// OrderViewAuthoritative is backed by an orders table row
	OrderViewAuthoritative OrderViewKind = "authoritative"
	// OrderViewInferred is reconstructed from legacy sale rows by
	// buyer + minute-bucket grouping
	OrderViewInferred OrderViewKind = "inferred"
)

// OrderView is the tagged union of the two order representations. Exactly one
// of Order or the (GroupKey, Sales) pair is meaningful for a given kind.
type OrderView struct {
	Kind     OrderViewKind `json:"kind"`
	Order    *Order        `json:"order,omitempty"`
	GroupKey string        `json:"group_key,omitempty"`
	BuyerID  uuid.UUID     `json:"buyer_id"`
	Date     time.Time     `json:"date"`
	Sales    []*Sale       `json:"sales"`
	Total    float64       `json:"total"`
}
