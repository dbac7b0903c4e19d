package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container and connection pool.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	createSchema(t, pool)

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// createSchema creates the database schema for testing.
func createSchema(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	schema := `
		CREATE TABLE IF NOT EXISTS customers (
			id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			document VARCHAR(20) NOT NULL DEFAULT '',
			phone VARCHAR(30) NOT NULL DEFAULT '',
			address VARCHAR(255) NOT NULL DEFAULT '',
			city VARCHAR(100) NOT NULL DEFAULT '',
			state VARCHAR(2) NOT NULL DEFAULT '',
			zip_code VARCHAR(9) NOT NULL DEFAULT '',
			credit_limit DECIMAL(10, 2) NOT NULL DEFAULT 0,
			sales_rep_id BIGINT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS products (
			id BIGINT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			sku VARCHAR(50) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			cost DECIMAL(10, 2) NOT NULL DEFAULT 0,
			weight DECIMAL(10, 3) NOT NULL DEFAULT 0,
			stock INTEGER NOT NULL CHECK (stock >= 0),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			order_number VARCHAR(50) NOT NULL UNIQUE,
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			subtotal DECIMAL(10, 2) NOT NULL,
			discount DECIMAL(10, 2) NOT NULL DEFAULT 0,
			shipping_fee DECIMAL(10, 2) NOT NULL DEFAULT 0,
			total DECIMAL(10, 2) NOT NULL,
			payment_method VARCHAR(20) NOT NULL,
			status VARCHAR(20) NOT NULL,
			payment_status VARCHAR(20) NOT NULL,
			payment_transaction_id VARCHAR(100),
			shipping_zip_code VARCHAR(9) NOT NULL DEFAULT '',
			shipping_address VARCHAR(255) NOT NULL DEFAULT '',
			shipping_city VARCHAR(100) NOT NULL DEFAULT '',
			shipping_state VARCHAR(2) NOT NULL DEFAULT '',
			needs_reconciliation BOOLEAN NOT NULL DEFAULT FALSE,
			created_by BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id BIGINT NOT NULL REFERENCES products(id),
			product_name VARCHAR(255) NOT NULL,
			sku VARCHAR(50) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(10, 2) NOT NULL,
			total DECIMAL(10, 2) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS coupons (
			code VARCHAR(50) PRIMARY KEY,
			discount_type VARCHAR(20) NOT NULL,
			discount_value DECIMAL(10, 2) NOT NULL,
			max_discount_amount DECIMAL(10, 2),
			min_order_value DECIMAL(10, 2),
			usage_limit INTEGER,
			usage_limit_per_customer INTEGER,
			expiry_date TIMESTAMP NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);

		CREATE TABLE IF NOT EXISTS coupon_usage (
			id BIGSERIAL PRIMARY KEY,
			coupon_code VARCHAR(50) NOT NULL REFERENCES coupons(code),
			order_id VARCHAR(36) NOT NULL,
			customer_id BIGINT NOT NULL,
			discount_applied DECIMAL(10, 2) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS order_logs (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL,
			action VARCHAR(30) NOT NULL,
			user_id BIGINT NOT NULL,
			details JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS daily_metrics (
			date DATE NOT NULL,
			metric_type VARCHAR(30) NOT NULL,
			value DECIMAL(12, 2) NOT NULL DEFAULT 0,
			PRIMARY KEY (date, metric_type)
		);

		CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
		CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
		CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
		CREATE INDEX IF NOT EXISTS idx_coupon_usage_code ON coupon_usage(coupon_code);
		CREATE INDEX IF NOT EXISTS idx_order_logs_order_id ON order_logs(order_id);
	`

	_, err := pool.Exec(ctx, schema)
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
}

// SeedCustomers inserts test customer data into the database.
func SeedCustomers(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	customers := []struct {
		id          int64
		name        string
		email       string
		zipCode     string
		creditLimit float64
		salesRepID  *int64
		active      bool
	}{
		{42, "Maria Silva", "maria@example.com", "01310-100", 1000.00, ptrInt64(10), true},
		{43, "Joao Santos", "joao@example.com", "20040-020", 500.00, nil, true},
		{44, "Inactive Buyer", "inactive@example.com", "01310-100", 1000.00, nil, false},
	}

	for _, c := range customers {
		_, err := pool.Exec(ctx,
			`INSERT INTO customers (id, name, email, document, zip_code, credit_limit, sales_rep_id, active)
			 VALUES ($1, $2, $3, '12345678901', $4, $5, $6, $7)`,
			c.id, c.name, c.email, c.zipCode, c.creditLimit, c.salesRepID, c.active,
		)
		if err != nil {
			t.Fatalf("failed to seed customer %d: %v", c.id, err)
		}
	}
}

// SeedProducts inserts test product data into the database.
func SeedProducts(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	products := []struct {
		id     int64
		name   string
		sku    string
		price  float64
		weight float64
		stock  int
		active bool
	}{
		{1, "Widget", "WID-1", 30.00, 1.0, 10, true},
		{2, "Gadget", "GAD-2", 20.00, 0.5, 5, true},
		{3, "Scarce Item", "SCR-3", 50.00, 2.0, 5, true},
		{4, "Retired Item", "RET-4", 10.00, 0.5, 10, false},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, name, sku, price, weight, stock, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.id, p.name, p.sku, p.price, p.weight, p.stock, p.active,
		)
		if err != nil {
			t.Fatalf("failed to seed product %d: %v", p.id, err)
		}
	}
}

// SeedCoupons inserts test coupon data into the database.
func SeedCoupons(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	_, err := pool.Exec(ctx,
		`INSERT INTO coupons (code, discount_type, discount_value, expiry_date, active)
		 VALUES ('SAVE10', 'PERCENTAGE', 10, $1, TRUE)`,
		time.Now().Add(30*24*time.Hour),
	)
	if err != nil {
		t.Fatalf("failed to seed coupons: %v", err)
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"coupon_usage", "order_logs", "order_items", "orders",
		"coupons", "products", "customers", "daily_metrics",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

func ptrInt64(v int64) *int64 { return &v }
