package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	// Apply the real schema, not a test copy
	if err := goose.SetDialect("postgres"); err != nil {
		return dbContainer.Terminate, err
	}
	if err := goose.Up(testDB, "../../migrations"); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func seedBuyer(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testDB.Exec(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at, updated_at)
		VALUES ($1, $2, 'x', 'Test', 'Buyer', 'user', NOW(), NOW())`,
		id, fmt.Sprintf("buyer-%s@example.com", id.String()[:8]))
	require.NoError(t, err)
	return id
}

func seedProduct(t *testing.T, price, discount float64, stock int) uuid.UUID {
	t.Helper()

	brandID := uuid.New()
	_, err := testDB.Exec(`INSERT INTO brands (id, name, created_at) VALUES ($1, $2, NOW())`,
		brandID, "Brand "+brandID.String()[:8])
	require.NoError(t, err)

	modelID := uuid.New()
	_, err = testDB.Exec(`INSERT INTO car_models (id, brand_id, name, created_at) VALUES ($1, $2, $3, NOW())`,
		modelID, brandID, "Model "+modelID.String()[:8])
	require.NoError(t, err)

	productID := uuid.New()
	_, err = testDB.Exec(`
		INSERT INTO products (id, name, description, price, discount, stock, category, subcategory, year_range, brand_id, model_id, image_url, active, created_at, updated_at)
		VALUES ($1, $2, '', $3, $4, $5, 'Frenos', '', '', $6, $7, '', TRUE, NOW(), NOW())`,
		productID, "Part "+productID.String()[:8], price, discount, stock, brandID, modelID)
	require.NoError(t, err)

	return productID
}

func productStock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var stock int
	require.NoError(t, testDB.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	return stock
}

func testOrder(buyerID uuid.UUID, total float64) *domain.Order {
	now := time.Now().UTC()
	return &domain.Order{
		ID:              uuid.New(),
		OrderNumber:     fmt.Sprintf("RO-%s-%s", now.Format("20060102"), uuid.New().String()[:8]),
		BuyerID:         buyerID,
		ClientName:      "Ana Perez",
		ClientEmail:     "ana@example.com",
		ClientPhone:     "0414-5551234",
		Status:          domain.OrderStatusPending,
		ShippingMethod:  "delivery",
		ShippingAddress: "Av. Bolivar, Caracas",
		ShippingCost:    5,
		PaymentMethod:   "Pago Movil",
		ReferenceNumber: "REF-001",
		Total:           total,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestCreateWithSalesWritesSnapshotAndDecrementsStock(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	productID := seedProduct(t, 100, 20, 10)

	order := testOrder(buyerID, 165)
	err := repo.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: productID, Quantity: 2, OriginalPrice: 100, Discount: 20, UnitPrice: 80},
	})
	require.NoError(t, err)
	require.Len(t, order.Sales, 1)

	require.Equal(t, 8, productStock(t, productID))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.OrderNumber, found.OrderNumber)
	require.Len(t, found.Sales, 1)

	sale := found.Sales[0]
	require.Equal(t, 100.0, sale.OriginalPrice)
	require.Equal(t, 20.0, sale.Discount)
	require.Equal(t, 80.0, sale.UnitPrice)
	require.Equal(t, 2, sale.Quantity)
	require.NotNil(t, sale.OrderID)
	require.Equal(t, order.ID, *sale.OrderID)
	require.Equal(t, domain.OrderStatusPending, sale.Status)
}

func TestCreateWithSalesInsufficientStockRollsBack(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	okProduct := seedProduct(t, 50, 0, 10)
	scarceProduct := seedProduct(t, 30, 0, 1)

	order := testOrder(buyerID, 160)
	err := repo.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: okProduct, Quantity: 2, OriginalPrice: 50, Discount: 0, UnitPrice: 50},
		{ProductID: scarceProduct, Quantity: 2, OriginalPrice: 30, Discount: 0, UnitPrice: 30},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The whole transaction rolled back: no order row, no stock movement
	_, err = repo.FindByID(ctx, order.ID)
	require.ErrorIs(t, err, ErrOrderNotFound)
	require.Equal(t, 10, productStock(t, okProduct))
	require.Equal(t, 1, productStock(t, scarceProduct))
}

func TestPriceSnapshotSurvivesCatalogEdit(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	productID := seedProduct(t, 100, 0, 5)

	order := testOrder(buyerID, 105)
	require.NoError(t, repo.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: productID, Quantity: 1, OriginalPrice: 100, Discount: 0, UnitPrice: 100},
	}))

	_, err := testDB.Exec(`UPDATE products SET price = 999, discount = 50 WHERE id = $1`, productID)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 100.0, found.Sales[0].OriginalPrice)
	require.Equal(t, 100.0, found.Sales[0].UnitPrice)
	require.Equal(t, 0.0, found.Sales[0].Discount)
}

func TestUpdateStatusCascadesToSales(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	productID := seedProduct(t, 40, 0, 5)

	order := testOrder(buyerID, 45)
	require.NoError(t, repo.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: productID, Quantity: 1, OriginalPrice: 40, Discount: 0, UnitPrice: 40},
	}))

	updated, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusShipped, updated.Status)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusShipped, found.Sales[0].Status)
}

func TestUpdateStatusCancelRestoresStock(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	productID := seedProduct(t, 40, 0, 5)

	order := testOrder(buyerID, 85)
	require.NoError(t, repo.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: productID, Quantity: 2, OriginalPrice: 40, Discount: 0, UnitPrice: 40},
	}))
	require.Equal(t, 3, productStock(t, productID))

	_, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	require.Equal(t, 5, productStock(t, productID))
}

func TestUpdateStatusRejectsTerminalTransition(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	productID := seedProduct(t, 40, 0, 5)

	order := testOrder(buyerID, 45)
	require.NoError(t, repo.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: productID, Quantity: 1, OriginalPrice: 40, Discount: 0, UnitPrice: 40},
	}))

	_, err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusCompleted)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRateSaleFirstWriteWins(t *testing.T) {
	orders := NewOrderRepository(testDB)
	sales := NewSaleRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	productID := seedProduct(t, 60, 0, 5)

	order := testOrder(buyerID, 65)
	require.NoError(t, orders.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: productID, Quantity: 1, OriginalPrice: 60, Discount: 0, UnitPrice: 60},
	}))
	saleID := order.Sales[0].ID

	require.NoError(t, sales.Rate(ctx, saleID, buyerID, 4))
	require.ErrorIs(t, sales.Rate(ctx, saleID, buyerID, 1), ErrSaleAlreadyRated)

	sale, err := sales.FindByID(ctx, saleID)
	require.NoError(t, err)
	require.NotNil(t, sale.Rating)
	require.Equal(t, 4, *sale.Rating)

	summary, err := sales.RatingForProduct(ctx, productID)
	require.NoError(t, err)
	require.Equal(t, 4.0, summary.Average)
	require.Equal(t, 1, summary.Reviews)
}

func TestRateSaleOtherBuyerNotFound(t *testing.T) {
	orders := NewOrderRepository(testDB)
	sales := NewSaleRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	otherBuyer := seedBuyer(t)
	productID := seedProduct(t, 60, 0, 5)

	order := testOrder(buyerID, 65)
	require.NoError(t, orders.CreateWithSales(ctx, order, []CheckoutLine{
		{ProductID: productID, Quantity: 1, OriginalPrice: 60, Discount: 0, UnitPrice: 60},
	}))

	err := sales.Rate(ctx, order.Sales[0].ID, otherBuyer, 5)
	require.ErrorIs(t, err, ErrSaleNotFound)
}

func TestLegacySalesListedWithoutOrder(t *testing.T) {
	sales := NewSaleRepository(testDB)
	ctx := context.Background()

	buyerID := seedBuyer(t)
	productID := seedProduct(t, 25, 0, 5)

	// Legacy rows were written before the orders table existed
	_, err := testDB.Exec(`
		INSERT INTO sales (id, order_id, product_id, buyer_id, quantity, original_price, discount, unit_price, sale_date, status, payment_method, reference_number, receipt_image)
		VALUES ($1, NULL, $2, $3, 2, 25, 0, 25, NOW(), 'completed', 'Zelle', 'REF-L1', '')`,
		uuid.New(), productID, buyerID)
	require.NoError(t, err)

	legacy, err := sales.ListLegacyByBuyer(ctx, buyerID)
	require.NoError(t, err)
	require.Len(t, legacy, 1)
	require.Nil(t, legacy[0].OrderID)
	require.Equal(t, 25.0, legacy[0].UnitPrice)
}

func TestProperty_StockNeverGoesNegative(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("checkout succeeds exactly when quantity fits the stock", prop.ForAll(
		func(stock int, quantity int) bool {
			buyerID := seedBuyer(t)
			productID := seedProduct(t, 10, 0, stock)

			order := testOrder(buyerID, float64(10*quantity))
			err := repo.CreateWithSales(ctx, order, []CheckoutLine{
				{ProductID: productID, Quantity: quantity, OriginalPrice: 10, Discount: 0, UnitPrice: 10},
			})

			remaining := productStock(t, productID)
			if remaining < 0 {
				t.Logf("FAIL: stock went negative: %d", remaining)
				return false
			}

			if quantity <= stock {
				if err != nil {
					t.Logf("FAIL: expected success with stock=%d quantity=%d: %v", stock, quantity, err)
					return false
				}
				return remaining == stock-quantity
			}

			if err != ErrInsufficientStock {
				t.Logf("FAIL: expected ErrInsufficientStock with stock=%d quantity=%d, got %v", stock, quantity, err)
				return false
			}
			return remaining == stock
		},
		gen.IntRange(0, 10),
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
