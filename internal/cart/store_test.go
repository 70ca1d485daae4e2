package cart

import (
	"context"
	"testing"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewStore(client), client
}

func testProduct(price, discount float64) *domain.Product {
	return &domain.Product{
		ID:       uuid.New(),
		Name:     "Front brake pads",
		ImageURL: "products/brake-pads.jpg",
		Price:    price,
		Discount: discount,
		Stock:    10,
		Active:   true,
	}
}

func TestAdd_UsesEffectivePrice(t *testing.T) {
	store, _ := newTestStore(t)
	buyer := uuid.New()

	cart, err := store.Add(context.Background(), buyer, testProduct(100, 20))
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 80.0, cart.Items[0].UnitPrice)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.Equal(t, 80.0, cart.Total)
	assert.Equal(t, 1, cart.Count)
}

func TestAdd_IsIdempotentPerProduct(t *testing.T) {
	store, _ := newTestStore(t)
	buyer := uuid.New()
	product := testProduct(50, 0)

	ctx := context.Background()
	_, err := store.Add(ctx, buyer, product)
	require.NoError(t, err)

	// Second add of the same product must not change quantity
	cart, err := store.Add(ctx, buyer, product)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestIncrementDecrement_FloorsAtOne(t *testing.T) {
	store, _ := newTestStore(t)
	buyer := uuid.New()
	product := testProduct(10, 0)
	ctx := context.Background()

	_, err := store.Add(ctx, buyer, product)
	require.NoError(t, err)

	cart, err := store.Increment(ctx, buyer, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = store.Decrement(ctx, buyer, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	// Decrementing at 1 is a no-op, not a removal
	cart, err = store.Decrement(ctx, buyer, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestAdjust_UnknownProduct(t *testing.T) {
	store, _ := newTestStore(t)
	buyer := uuid.New()

	_, err := store.Increment(context.Background(), buyer, uuid.New())
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestTotals_AcrossItems(t *testing.T) {
	store, _ := newTestStore(t)
	buyer := uuid.New()
	ctx := context.Background()

	a := testProduct(100, 20) // effective 80
	b := testProduct(25.50, 0)

	_, err := store.Add(ctx, buyer, a)
	require.NoError(t, err)
	_, err = store.Add(ctx, buyer, b)
	require.NoError(t, err)
	_, err = store.Increment(ctx, buyer, a.ID)
	require.NoError(t, err)

	cart, err := store.Get(ctx, buyer)
	require.NoError(t, err)

	assert.Equal(t, 185.50, cart.Total) // 80*2 + 25.50
	assert.Equal(t, 3, cart.Count)
}

func TestRemoveAndClear(t *testing.T) {
	store, _ := newTestStore(t)
	buyer := uuid.New()
	ctx := context.Background()

	a := testProduct(10, 0)
	b := testProduct(20, 0)
	_, err := store.Add(ctx, buyer, a)
	require.NoError(t, err)
	_, err = store.Add(ctx, buyer, b)
	require.NoError(t, err)

	cart, err := store.Remove(ctx, buyer, a.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].ProductID)

	_, err = store.Remove(ctx, buyer, a.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	require.NoError(t, store.Clear(ctx, buyer))
	cart, err = store.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0.0, cart.Total)
}

func TestCart_SurvivesStoreRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	buyer := uuid.New()
	product := testProduct(100, 20)
	ctx := context.Background()

	first := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	_, err := NewStore(first).Add(ctx, buyer, product)
	require.NoError(t, err)
	first.Close()

	// A fresh store over the same Redis sees the same cart
	second := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer second.Close()

	cart, err := NewStore(second).Get(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 80.0, cart.Items[0].UnitPrice)
}

func TestCarts_AreIsolatedPerBuyer(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()

	_, err := store.Add(ctx, alice, testProduct(10, 0))
	require.NoError(t, err)

	cart, err := store.Get(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
