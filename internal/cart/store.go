// Package cart holds per-buyer shopping carts in Redis so a cart survives
// session reloads. Unit prices stored here are previews resolved at add
// time; checkout re-resolves every price from the catalog.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"
	"github.com/kaltre10/repuestos-oriente-sub000/internal/pricing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrItemNotFound = errors.New("item not in cart")
)

// Item is one cart line: a product reference, display fields, a quantity of
// at least 1 and the discounted unit price at insertion time.
type Item struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"image_url"`
	UnitPrice float64   `json:"unit_price"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart is the materialized view of a buyer's cart
type Cart struct {
	Items []Item  `json:"items"`
	Total float64 `json:"total"` // sum of unit price x quantity
	Count int     `json:"count"` // sum of quantities
}

// Store owns all cart state. One cart per buyer, keyed by buyer id.
type Store struct {
	client *redis.Client
}

// NewStore creates a cart store backed by the given Redis client
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func cartKey(buyerID uuid.UUID) string {
	return fmt.Sprintf("cart:%s", buyerID)
}

func (s *Store) load(ctx context.Context, buyerID uuid.UUID) ([]Item, error) {
	raw, err := s.client.Get(ctx, cartKey(buyerID)).Result()
	if err == redis.Nil {
		return []Item{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

func (s *Store) save(ctx context.Context, buyerID uuid.UUID, items []Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.client.Set(ctx, cartKey(buyerID), raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

// Add inserts a product with quantity 1 at its current effective price. If
// the product is already in the cart the call is a no-op: raising the
// quantity takes an explicit Increment.
func (s *Store) Add(ctx context.Context, buyerID uuid.UUID, product *domain.Product) (*Cart, error) {
	items, err := s.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		if item.ProductID == product.ID {
			return materialize(items), nil
		}
	}

	items = append(items, Item{
		ProductID: product.ID,
		Name:      product.Name,
		ImageURL:  product.ImageURL,
		UnitPrice: pricing.Effective(product.Price, product.Discount),
		Quantity:  1,
		AddedAt:   time.Now(),
	})

	if err := s.save(ctx, buyerID, items); err != nil {
		return nil, err
	}
	return materialize(items), nil
}

// Increment raises an item's quantity by one
func (s *Store) Increment(ctx context.Context, buyerID, productID uuid.UUID) (*Cart, error) {
	return s.adjust(ctx, buyerID, productID, 1)
}

// Decrement lowers an item's quantity by one, flooring at 1. Going below 1
// takes an explicit Remove.
func (s *Store) Decrement(ctx context.Context, buyerID, productID uuid.UUID) (*Cart, error) {
	return s.adjust(ctx, buyerID, productID, -1)
}

func (s *Store) adjust(ctx context.Context, buyerID, productID uuid.UUID, delta int) (*Cart, error) {
	items, err := s.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range items {
		if items[i].ProductID == productID {
			next := items[i].Quantity + delta
			if next >= 1 {
				items[i].Quantity = next
			}
			found = true
			break
		}
	}
	if !found {
		return nil, ErrItemNotFound
	}

	if err := s.save(ctx, buyerID, items); err != nil {
		return nil, err
	}
	return materialize(items), nil
}

// Remove deletes an item from the cart
func (s *Store) Remove(ctx context.Context, buyerID, productID uuid.UUID) (*Cart, error) {
	items, err := s.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	next := items[:0]
	found := false
	for _, item := range items {
		if item.ProductID == productID {
			found = true
			continue
		}
		next = append(next, item)
	}
	if !found {
		return nil, ErrItemNotFound
	}

	if err := s.save(ctx, buyerID, next); err != nil {
		return nil, err
	}
	return materialize(next), nil
}

// Clear empties the buyer's cart. Called after a successful checkout and on
// explicit request.
func (s *Store) Clear(ctx context.Context, buyerID uuid.UUID) error {
	if err := s.client.Del(ctx, cartKey(buyerID)).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// Get returns the buyer's cart with its running totals
func (s *Store) Get(ctx context.Context, buyerID uuid.UUID) (*Cart, error) {
	items, err := s.load(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return materialize(items), nil
}

func materialize(items []Item) *Cart {
	cart := &Cart{Items: items}
	for _, item := range items {
		cart.Total += pricing.LineTotal(item.UnitPrice, item.Quantity)
		cart.Count += item.Quantity
	}
	return cart
}
