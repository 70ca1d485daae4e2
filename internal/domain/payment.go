package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is an entry in the payment-method directory: a manually
// settled channel (bank transfer, mobile payment, ...) whose disclosure
// fields are shown to the buyer at checkout. The core records a reference
// number against it; it never confirms payment.
type PaymentMethod struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Details   string    `json:"details" db:"details"` // JSON disclosure fields (account number, holder, ...)
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
