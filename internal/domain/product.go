package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents an auto part in the catalog. Price and Discount are the
// current catalog values; historical sales carry their own snapshots.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Price       float64   `json:"price" db:"price"`
	Discount    float64   `json:"discount" db:"discount"` // percentage, 0 if none
	Stock       int       `json:"stock" db:"stock"`
	Category    string    `json:"category" db:"category"`
	Subcategory string    `json:"subcategory" db:"subcategory"`
	YearRange   string    `json:"year_range" db:"year_range"`
	BrandID     uuid.UUID `json:"brand_id" db:"brand_id"`
	ModelID     uuid.UUID `json:"model_id" db:"model_id"`
	ImageURL    string    `json:"image_url" db:"image_url"`
	Active      bool      `json:"active" db:"active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`

	// Derived at read time from sale ratings, never persisted.
	Rating  float64 `json:"rating" db:"-"`
	Reviews int     `json:"reviews" db:"-"`
}

// Brand represents a vehicle manufacturer
type Brand struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CarModel represents a vehicle model belonging to a brand
type CarModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	BrandID   uuid.UUID `json:"brand_id" db:"brand_id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
