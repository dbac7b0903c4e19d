package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"shophub/internal/authz"
	"shophub/internal/events"
	"shophub/internal/model"
	"shophub/internal/notification"
	"shophub/internal/payment"
	"shophub/internal/repository"
	"shophub/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paymentStub emulates the payment provider. It approves every capture and
// refund unless told to decline.
type paymentStub struct {
	mu          sync.Mutex
	declineNext bool
	captures    int
	refunds     int
}

func (p *paymentStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		switch r.URL.Path {
		case "/v1/payment_intents":
			if p.declineNext {
				p.declineNext = false
				w.WriteHeader(http.StatusPaymentRequired)
				json.NewEncoder(w).Encode(map[string]string{"status": "declined", "reason": "insufficient_funds"})
				return
			}
			p.captures++
			json.NewEncoder(w).Encode(map[string]string{"id": uuid.NewString(), "status": "succeeded"})
		case "/v1/refunds":
			p.refunds++
			json.NewEncoder(w).Encode(map[string]string{"status": "succeeded"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

type workflowEnv struct {
	service service.OrderService
	stub    *paymentStub
	sender  *notification.MemorySender
	testDB  *TestDB
}

func setupWorkflow(t *testing.T) *workflowEnv {
	t.Helper()

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()

	stub := &paymentStub{}
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	gateway, err := payment.NewHTTPGateway(server.URL, "sk_test", 5*time.Second, logger)
	require.NoError(t, err)

	sender := notification.NewMemorySender("", logger)

	svc := service.NewOrderService(
		testDB.Pool,
		repository.NewCustomerRepository(testDB.Pool, logger),
		repository.NewProductRepository(testDB.Pool, logger),
		repository.NewOrderRepository(testDB.Pool, logger),
		repository.NewCouponRepository(testDB.Pool, logger),
		repository.NewAuditRepository(testDB.Pool, logger),
		gateway,
		sender,
		events.NopPublisher{},
		authz.NewPolicy(logger),
		nil,
		logger,
	)

	return &workflowEnv{service: svc, stub: stub, sender: sender, testDB: testDB}
}

func (e *workflowEnv) reset(t *testing.T) {
	t.Helper()
	CleanupDB(t, e.testDB.Pool)
	SeedCustomers(t, e.testDB.Pool)
	SeedProducts(t, e.testDB.Pool)
	SeedCoupons(t, e.testDB.Pool)
	e.sender.Clear()
}

var admin = model.Requester{UserID: 1, Email: "admin@example.com", Role: model.RoleAdmin}

func TestOrderWorkflow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := setupWorkflow(t)
	ctx := context.Background()

	t.Run("create order end to end", func(t *testing.T) {
		env.reset(t)

		resp, err := env.service.CreateOrder(ctx, admin, &model.OrderRequest{
			CustomerID: 42,
			Items: []model.OrderItemRequest{
				{ProductID: 1, Quantity: 2},
				{ProductID: 2, Quantity: 1},
			},
			PaymentMethod: model.PaymentMethodPix,
		})

		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaid, resp.Status)
		assert.Equal(t, model.PaymentStatusPaid, resp.PaymentStatus)
		assert.Equal(t, 105.0, resp.Total)

		assert.Equal(t, 8, productStock(t, env.testDB, 1))
		assert.Equal(t, 4, productStock(t, env.testDB, 2))

		view, err := env.service.GetOrder(ctx, admin, resp.OrderID)
		require.NoError(t, err)
		assert.Len(t, view.Items, 2)
		require.NotNil(t, view.Order.PaymentTransactionID)

		sent := env.sender.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, "maria@example.com", sent[0].To)
	})

	t.Run("declined payment releases stock", func(t *testing.T) {
		env.reset(t)
		env.stub.declineNext = true

		_, err := env.service.CreateOrder(ctx, admin, &model.OrderRequest{
			CustomerID:    42,
			Items:         []model.OrderItemRequest{{ProductID: 1, Quantity: 3}},
			PaymentMethod: model.PaymentMethodPix,
		})

		require.Error(t, err)
		var domainErr *model.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, model.ErrCodePaymentFailed, domainErr.Code)

		assert.Equal(t, 10, productStock(t, env.testDB, 1))

		var status model.OrderStatus
		err = env.testDB.Pool.QueryRow(ctx,
			"SELECT status FROM orders WHERE customer_id = 42").Scan(&status)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusPaymentFailed, status)
	})

	t.Run("insufficient stock rejects before payment", func(t *testing.T) {
		env.reset(t)
		before := env.stub.captures

		_, err := env.service.CreateOrder(ctx, admin, &model.OrderRequest{
			CustomerID:    42,
			Items:         []model.OrderItemRequest{{ProductID: 2, Quantity: 6}},
			PaymentMethod: model.PaymentMethodPix,
		})

		require.Error(t, err)
		var domainErr *model.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, model.ErrCodeInsufficientStock, domainErr.Code)
		assert.Equal(t, before, env.stub.captures)
	})

	t.Run("coupon discount is applied and recorded", func(t *testing.T) {
		env.reset(t)

		code := "SAVE10"
		resp, err := env.service.CreateOrder(ctx, admin, &model.OrderRequest{
			CustomerID:    42,
			Items:         []model.OrderItemRequest{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
			PaymentMethod: model.PaymentMethodPix,
			CouponCode:    &code,
		})

		require.NoError(t, err)
		// 80 subtotal, 8 coupon discount, 25 shipping
		assert.Equal(t, 97.0, resp.Total)

		var usages int
		require.NoError(t, env.testDB.Pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM coupon_usage WHERE coupon_code = 'SAVE10'").Scan(&usages))
		assert.Equal(t, 1, usages)
	})

	t.Run("concurrent orders never oversell", func(t *testing.T) {
		env.reset(t)

		const attempts = 10
		var wg sync.WaitGroup
		errs := make([]error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = env.service.CreateOrder(ctx, admin, &model.OrderRequest{
					CustomerID:    42,
					Items:         []model.OrderItemRequest{{ProductID: 3, Quantity: 1}},
					PaymentMethod: model.PaymentMethodPix,
				})
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			}
		}

		assert.Equal(t, 5, succeeded)
		assert.Equal(t, 0, productStock(t, env.testDB, 3))
	})
}

func TestCancellationWorkflow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	env := setupWorkflow(t)
	ctx := context.Background()

	createPaidOrder := func(t *testing.T) uuid.UUID {
		t.Helper()
		resp, err := env.service.CreateOrder(ctx, admin, &model.OrderRequest{
			CustomerID:    42,
			Items:         []model.OrderItemRequest{{ProductID: 1, Quantity: 2}},
			PaymentMethod: model.PaymentMethodPix,
		})
		require.NoError(t, err)
		return resp.OrderID
	}

	t.Run("full refund within one hour", func(t *testing.T) {
		env.reset(t)
		orderID := createPaidOrder(t)
		refundsBefore := env.stub.refunds

		result, err := env.service.CancelOrder(ctx, admin, orderID)

		require.NoError(t, err)
		assert.Equal(t, 100, result.RefundPercentage)
		assert.Equal(t, 85.0, result.RefundAmount)
		assert.Equal(t, refundsBefore+1, env.stub.refunds)

		assert.Equal(t, 10, productStock(t, env.testDB, 1))

		view, err := env.service.GetOrder(ctx, admin, orderID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, view.Order.Status)
		assert.Equal(t, model.PaymentStatusRefunded, view.Order.PaymentStatus)
	})

	t.Run("cancelling twice conflicts", func(t *testing.T) {
		env.reset(t)
		orderID := createPaidOrder(t)

		_, err := env.service.CancelOrder(ctx, admin, orderID)
		require.NoError(t, err)

		_, err = env.service.CancelOrder(ctx, admin, orderID)
		require.Error(t, err)
		var domainErr *model.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, model.ErrCodeStateConflict, domainErr.Code)
	})

	t.Run("expiring a pending order releases stock", func(t *testing.T) {
		env.reset(t)

		order := newTestOrder(42)
		persistOrder(t, env.testDB, repository.NewOrderRepository(env.testDB.Pool, zerolog.Nop()), order)
		require.NoError(t, repository.NewProductRepository(env.testDB.Pool, zerolog.Nop()).
			ReserveStock(ctx, env.testDB.Pool, 1, 2))

		// GetByID needs items to know what stock to release
		_, err := env.testDB.Pool.Exec(ctx,
			`INSERT INTO order_items (id, order_id, product_id, product_name, sku, quantity, unit_price, total)
			 VALUES ($1, $2, 1, 'Widget', 'WID-1', 2, 30, 60)`,
			uuid.New(), order.ID)
		require.NoError(t, err)

		require.NoError(t, env.service.ExpireOrder(ctx, order.ID))

		assert.Equal(t, 10, productStock(t, env.testDB, 1))
		view, err := env.service.GetOrder(ctx, admin, order.ID)
		require.NoError(t, err)
		assert.Equal(t, model.OrderStatusCancelled, view.Order.Status)
	})
}
