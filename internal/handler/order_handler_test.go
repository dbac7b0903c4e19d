package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shophub/internal/middleware"
	"shophub/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, requester model.Requester, req *model.OrderRequest) (*model.OrderResponse, error) {
	args := m.Called(ctx, requester, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, requester model.Requester, orderID uuid.UUID) (*model.CancellationResponse, error) {
	args := m.Called(ctx, requester, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CancellationResponse), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, requester model.Requester, orderID uuid.UUID) (*model.OrderView, error) {
	args := m.Called(ctx, requester, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderView), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, requester model.Requester, filter model.OrderFilter) ([]model.Order, error) {
	args := m.Called(ctx, requester, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) ExpiredPendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) ExpireOrder(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// withIdentity runs the handler behind the identity middleware so the
// requester reaches the handler the same way it does in production.
func withIdentity(h http.HandlerFunc) http.Handler {
	return middleware.Identity(zerolog.Nop())(h)
}

func authedRequest(method, target string, body string) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("X-User-ID", "1")
	req.Header.Set("X-User-Email", "admin@example.com")
	req.Header.Set("X-User-Role", "ADMIN")
	return req
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockOrderService)
		handler := NewOrderHandler(svc, zerolog.Nop())

		orderID := uuid.New()
		svc.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
			Return(&model.OrderResponse{
				OrderID:       orderID,
				OrderNumber:   "ORD-1",
				Status:        model.OrderStatusPaid,
				PaymentStatus: model.PaymentStatusPaid,
				Total:         115,
			}, nil)

		rec := httptest.NewRecorder()
		body := `{"customerId":42,"items":[{"productId":1,"quantity":2}],"paymentMethod":"PIX"}`
		withIdentity(handler.Create).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/orders", body))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp model.OrderResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, orderID, resp.OrderID)
		assert.Equal(t, 115.0, resp.Total)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockOrderService)
		handler := NewOrderHandler(svc, zerolog.Nop())

		rec := httptest.NewRecorder()
		withIdentity(handler.Create).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/orders", `{"items": [`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var resp model.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, model.ErrCodeInvalidJSON, resp.Error)
		svc.AssertNotCalled(t, "CreateOrder")
	})

	t.Run("missing identity", func(t *testing.T) {
		svc := new(MockOrderService)
		handler := NewOrderHandler(svc, zerolog.Nop())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{}`))
		http.HandlerFunc(handler.Create).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestOrderHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"insufficient stock", model.NewInsufficientStockError("Widget", 1, 3), http.StatusConflict, model.ErrCodeInsufficientStock},
		{"credit limit", model.NewCreditLimitError(1000, 900, 100, 200), http.StatusUnprocessableEntity, model.ErrCodeCreditLimitExceeded},
		{"coupon rejected", model.NewCouponRejectedError("Invalid coupon code"), http.StatusBadRequest, model.ErrCodeCouponRejected},
		{"payment failed", model.NewDomainError(model.ErrCodePaymentFailed, "Payment was declined"), http.StatusPaymentRequired, model.ErrCodePaymentFailed},
		{"customer not found", model.ErrCustomerNotFound, http.StatusNotFound, model.ErrCodeCustomerNotFound},
		{"forbidden", model.ErrForbidden, http.StatusForbidden, model.ErrCodeForbidden},
		{"internal", model.ErrInternal, http.StatusInternalServerError, model.ErrCodeInternalError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockOrderService)
			handler := NewOrderHandler(svc, zerolog.Nop())
			svc.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)

			rec := httptest.NewRecorder()
			body := `{"customerId":42,"items":[{"productId":1,"quantity":1}],"paymentMethod":"PIX"}`
			withIdentity(handler.Create).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/orders", body))

			assert.Equal(t, tc.wantStatus, rec.Code)
			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Error)
		})
	}
}

func TestOrderHandler_ErrorMapping_OpaqueInternal(t *testing.T) {
	svc := new(MockOrderService)
	handler := NewOrderHandler(svc, zerolog.Nop())
	svc.On("CreateOrder", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	rec := httptest.NewRecorder()
	body := `{"customerId":42,"items":[{"productId":1,"quantity":1}],"paymentMethod":"PIX"}`
	withIdentity(handler.Create).ServeHTTP(rec, authedRequest(http.MethodPost, "/api/orders", body))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.ErrCodeInternalError, resp.Error)
	assert.NotContains(t, resp.Message, assert.AnError.Error())
}

func TestOrderHandler_Cancel(t *testing.T) {
	svc := new(MockOrderService)
	handler := NewOrderHandler(svc, zerolog.Nop())

	orderID := uuid.New()
	svc.On("CancelOrder", mock.Anything, mock.Anything, orderID).
		Return(&model.CancellationResponse{OrderID: orderID, RefundAmount: 95, RefundPercentage: 95}, nil)

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodPost, "/api/orders/"+orderID.String()+"/cancel", "")
	withIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Cancel(w, r, orderID)
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp model.CancellationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 95.0, resp.RefundAmount)
	assert.Equal(t, 95, resp.RefundPercentage)
}

func TestOrderHandler_List(t *testing.T) {
	t.Run("returns orders with count", func(t *testing.T) {
		svc := new(MockOrderService)
		handler := NewOrderHandler(svc, zerolog.Nop())

		customerID := int64(42)
		status := model.OrderStatusPaid
		minTotal := 10.5
		svc.On("ListOrders", mock.Anything, mock.Anything, model.OrderFilter{
			CustomerID: &customerID,
			Status:     &status,
			MinTotal:   &minTotal,
			Limit:      20,
			Offset:     40,
		}).Return([]model.Order{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

		rec := httptest.NewRecorder()
		req := authedRequest(http.MethodGet, "/api/orders?customerId=42&status=PAID&minTotal=10.5&limit=20&offset=40", "")
		withIdentity(handler.List).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Orders []model.Order `json:"orders"`
			Count  int           `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		assert.Len(t, resp.Orders, 2)
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		svc := new(MockOrderService)
		handler := NewOrderHandler(svc, zerolog.Nop())
		svc.On("ListOrders", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

		rec := httptest.NewRecorder()
		withIdentity(handler.List).ServeHTTP(rec, authedRequest(http.MethodGet, "/api/orders", ""))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"orders":[]`)
	})

	t.Run("malformed parameters rejected", func(t *testing.T) {
		tests := []struct {
			name  string
			query string
		}{
			{"customerId not a number", "customerId=abc"},
			{"customerId zero", "customerId=0"},
			{"minTotal negative", "minTotal=-5"},
			{"dateFrom not RFC3339", "dateFrom=yesterday"},
			{"limit negative", "limit=-1"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				svc := new(MockOrderService)
				handler := NewOrderHandler(svc, zerolog.Nop())

				rec := httptest.NewRecorder()
				req := authedRequest(http.MethodGet, "/api/orders?"+tc.query, "")
				withIdentity(handler.List).ServeHTTP(rec, req)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				svc.AssertNotCalled(t, "ListOrders")
			})
		}
	})
}

func TestOrderHandler_GetByID(t *testing.T) {
	svc := new(MockOrderService)
	handler := NewOrderHandler(svc, zerolog.Nop())

	orderID := uuid.New()
	svc.On("GetOrder", mock.Anything, mock.Anything, orderID).
		Return(&model.OrderView{
			Order:    model.Order{ID: orderID, Total: 115},
			ViewedBy: model.RoleAdmin,
		}, nil)

	rec := httptest.NewRecorder()
	req := authedRequest(http.MethodGet, "/api/orders/"+orderID.String(), "")
	withIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.GetByID(w, r, orderID)
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp model.OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, orderID, resp.Order.ID)
	assert.Equal(t, model.RoleAdmin, resp.ViewedBy)
}

func TestParseOrderFilter_DateRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	req := httptest.NewRequest(http.MethodGet,
		"/api/orders?dateFrom="+from.Format(time.RFC3339)+"&dateTo="+to.Format(time.RFC3339), nil)

	filter, err := parseOrderFilter(req)

	require.NoError(t, err)
	require.NotNil(t, filter.DateFrom)
	require.NotNil(t, filter.DateTo)
	assert.True(t, filter.DateFrom.Equal(from))
	assert.True(t, filter.DateTo.Equal(to))
}
