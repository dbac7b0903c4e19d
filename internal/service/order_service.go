package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"shophub/internal/authz"
	"shophub/internal/credit"
	"shophub/internal/events"
	"shophub/internal/model"
	"shophub/internal/notification"
	"shophub/internal/payment"
	"shophub/internal/pricing"
	"shophub/internal/repository"
	"shophub/internal/shipping"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PaidCancellationWindow bounds cancellation of orders that have already been
// paid, for every role.
const PaidCancellationWindow = 24 * time.Hour

// refundPercentage returns the share of the total refunded when a paid order
// is cancelled, by order age.
func refundPercentage(age time.Duration) int {
	switch {
	case age < time.Hour:
		return 100
	case age < 6*time.Hour:
		return 95
	case age < 12*time.Hour:
		return 90
	default:
		return 85
	}
}

// orderService implements the OrderService interface.
type orderService struct {
	db        repository.DB
	customers repository.CustomerRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	coupons   repository.CouponRepository
	audit     repository.AuditRepository
	gateway   payment.Gateway
	sender    notification.Sender
	publisher events.Publisher
	policy    *authz.Policy
	zones     shipping.Table
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	db repository.DB,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	coupons repository.CouponRepository,
	audit repository.AuditRepository,
	gateway payment.Gateway,
	sender notification.Sender,
	publisher events.Publisher,
	policy *authz.Policy,
	zones shipping.Table,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		db:        db,
		customers: customers,
		products:  products,
		orders:    orders,
		coupons:   coupons,
		audit:     audit,
		gateway:   gateway,
		sender:    sender,
		publisher: publisher,
		policy:    policy,
		zones:     zones,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder runs the full creation workflow: validation, authorization, a
// single batched product read, pricing, credit check, transactional stock
// reservation and persistence, then payment capture with compensation.
func (s *orderService) CreateOrder(ctx context.Context, requester model.Requester, req *model.OrderRequest) (*model.OrderResponse, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	ownID, err := s.ownCustomerID(ctx, requester)
	if err != nil {
		return nil, err
	}

	customerID := req.CustomerID
	if customerID == 0 && requester.Role == model.RoleUser && ownID != nil {
		// End customers may omit the customer ID; the order goes on their own account.
		customerID = *ownID
	}
	if customerID <= 0 {
		return nil, model.NewDomainError(model.ErrCodeInvalidRequest, "Customer ID is required")
	}

	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, model.ErrCustomerNotFound
	}
	if !customer.Active {
		return nil, model.ErrCustomerInactive
	}

	if err := s.policy.Authorize(requester, authz.Resource{
		Customer:      customer,
		OwnCustomerID: ownID,
	}, authz.ActionCreateOrder); err != nil {
		return nil, err
	}

	lines, err := s.loadLines(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	stats, err := s.orders.PurchaseStats(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	coupon, usageGlobal, usageByUser, err := s.loadCoupon(ctx, req.CouponCode, customer.ID)
	if err != nil {
		return nil, err
	}

	quote, err := pricing.Price(pricing.Input{
		Lines:             lines,
		Stats:             stats,
		Coupon:            coupon,
		CouponUsageGlobal: usageGlobal,
		CouponUsageByUser: usageByUser,
		ZoneFee:           s.zoneFee(customer.ZipCode),
		ExpressDelivery:   req.ExpressDelivery,
		Now:               time.Now(),
	})
	if err != nil {
		return nil, err
	}

	if req.PaymentMethod.CreditBased() {
		outstanding, err := s.orders.OutstandingTotal(ctx, customer.ID)
		if err != nil {
			return nil, err
		}
		overdue, err := s.orders.OverdueCount(ctx, customer.ID)
		if err != nil {
			return nil, err
		}
		profile := model.CreditProfile{
			CreditLimit:     customer.CreditLimit,
			Outstanding:     outstanding,
			CompletedOrders: stats.OrderCount,
			OverdueCount:    overdue,
		}
		if err := credit.Check(profile, quote.Total, req.PaymentMethod); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	order := &model.Order{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Subtotal:        round2(quote.Subtotal),
		Discount:        round2(quote.Discount),
		ShippingFee:     round2(quote.ShippingFee),
		Total:           round2(quote.Total),
		PaymentMethod:   req.PaymentMethod,
		Status:          model.OrderStatusPending,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingZipCode: customer.ZipCode,
		ShippingAddress: customer.Address,
		ShippingCity:    customer.City,
		ShippingState:   customer.State,
		CreatedBy:       requester.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	items := buildItems(order.ID, lines)

	if err := s.persistOrder(ctx, order, items, lines, coupon, quote); err != nil {
		return nil, err
	}

	result, err := s.gateway.Capture(ctx, order.Total, req.PaymentMethod, req.CardToken)
	if err != nil || !result.Succeeded {
		return nil, s.compensatePaymentFailure(ctx, requester, order, items, err)
	}

	transactionID := result.TransactionID
	if err := s.orders.UpdatePaymentStatus(ctx, s.db, order.ID, model.PaymentStatusPaid, &transactionID); err != nil {
		return nil, s.flagForReconciliation(ctx, requester, order, "payment captured but status update failed", err)
	}
	if err := s.orders.UpdateStatus(ctx, s.db, order.ID, model.OrderStatusPaid); err != nil {
		return nil, s.flagForReconciliation(ctx, requester, order, "payment captured but status update failed", err)
	}
	order.Status = model.OrderStatusPaid
	order.PaymentStatus = model.PaymentStatusPaid

	s.finalizeCreation(ctx, requester, customer, order)

	return &model.OrderResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
	}, nil
}

// persistOrder reserves stock and writes the order, its items and any coupon
// usage in one transaction. A reservation conflict on any line rolls back the
// whole order.
func (s *orderService) persistOrder(ctx context.Context, order *model.Order, items []model.OrderItem, lines []pricing.Line, coupon *model.Coupon, quote *pricing.Quote) error {
	tx, err := s.orders.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, line := range lines {
		if err := s.products.ReserveStock(ctx, tx, line.Product.ID, line.Quantity); err != nil {
			if errors.Is(err, repository.ErrStockConflict) {
				return model.NewInsufficientStockError(line.Product.Name, line.Product.Stock, line.Quantity)
			}
			return err
		}
	}

	if err := s.orders.Create(ctx, tx, order); err != nil {
		return err
	}
	if err := s.orders.CreateItems(ctx, tx, items); err != nil {
		return err
	}

	// Usage counts only when the coupon actually won the discount comparison.
	if coupon != nil && quote.CouponDiscount > 0 && quote.CouponDiscount >= quote.AutomaticDiscount {
		usage := model.CouponUsage{
			CouponCode:      coupon.Code,
			OrderID:         order.ID.String(),
			CustomerID:      order.CustomerID,
			DiscountApplied: round2(quote.CouponDiscount),
			CreatedAt:       time.Now(),
		}
		if err := s.coupons.RecordUsage(ctx, tx, usage); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// compensatePaymentFailure reverses the stock reservation and marks the order
// as failed after an unsuccessful capture. If the compensation itself fails the
// order is flagged for manual reconciliation instead of being silently dropped.
func (s *orderService) compensatePaymentFailure(ctx context.Context, requester model.Requester, order *model.Order, items []model.OrderItem, captureErr error) error {
	reason := "payment not approved"
	if captureErr != nil {
		reason = captureErr.Error()
	}
	s.logger.Warn().
		Str("order_id", order.ID.String()).
		Str("reason", reason).
		Msg("payment capture failed, compensating")

	var compensationErr error
	for _, item := range items {
		if err := s.products.ReleaseStock(ctx, s.db, item.ProductID, item.Quantity); err != nil {
			compensationErr = err
		}
	}
	if err := s.orders.UpdatePaymentStatus(ctx, s.db, order.ID, model.PaymentStatusFailed, nil); err != nil {
		compensationErr = err
	}
	if err := s.orders.UpdateStatus(ctx, s.db, order.ID, model.OrderStatusPaymentFailed); err != nil {
		compensationErr = err
	}

	if compensationErr != nil {
		return s.flagForReconciliation(ctx, requester, order, reason, compensationErr)
	}

	s.recordAudit(ctx, order.ID, model.AuditActionPaymentFailed, requester.UserID, map[string]any{
		"reason": reason,
	})
	s.publish(ctx, events.TypeOrderPaymentFailed, order)

	var declined *payment.DeclinedError
	if errors.As(captureErr, &declined) {
		e := model.NewDomainError(model.ErrCodePaymentFailed, "Payment declined")
		return e.WithDetails(map[string]any{"reason": declined.Reason})
	}
	return model.NewDomainError(model.ErrCodePaymentFailed, "Payment processing failed")
}

// flagForReconciliation marks the order for manual review and returns the
// opaque internal error. Used whenever money and database state may disagree.
func (s *orderService) flagForReconciliation(ctx context.Context, requester model.Requester, order *model.Order, reason string, cause error) error {
	s.logger.Error().
		Err(cause).
		Str("order_id", order.ID.String()).
		Str("reason", reason).
		Msg("flagging order for reconciliation")

	if err := s.orders.MarkForReconciliation(ctx, order.ID); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to flag order for reconciliation")
	}
	s.recordAudit(ctx, order.ID, model.AuditActionReconciliation, requester.UserID, map[string]any{
		"reason": reason,
	})

	return model.ErrInternal
}

// finalizeCreation runs the best-effort side effects of a successful creation.
// None of them can fail the order.
func (s *orderService) finalizeCreation(ctx context.Context, requester model.Requester, customer *model.Customer, order *model.Order) {
	s.recordAudit(ctx, order.ID, model.AuditActionCreated, requester.UserID, map[string]any{
		"orderNumber": order.OrderNumber,
		"total":       order.Total,
	})

	if err := s.audit.RecordDailyOrder(ctx, order.Total); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to record daily metrics")
	}

	s.publish(ctx, events.TypeOrderCreated, order)

	subject := fmt.Sprintf("Order Confirmed - %s", order.OrderNumber)
	body := fmt.Sprintf("Hi %s,\n\nYour order %s has been confirmed.\nTotal: R$ %.2f\n\nThank you for shopping with us.",
		customer.Name, order.OrderNumber, order.Total)
	if err := s.sender.Send(ctx, customer.Email, subject, body); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to send confirmation email")
	}
}

// CancelOrder enforces eligibility, refunds paid orders on the age-based
// schedule, then releases stock and flips the status in one transaction.
func (s *orderService) CancelOrder(ctx context.Context, requester model.Requester, orderID uuid.UUID) (*model.CancellationResponse, error) {
	order, items, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	customer, err := s.customers.GetByID(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, model.ErrCustomerNotFound
	}

	ownID, err := s.ownCustomerID(ctx, requester)
	if err != nil {
		return nil, err
	}

	age := time.Since(order.CreatedAt)
	if err := s.policy.Authorize(requester, authz.Resource{
		Customer:      customer,
		OwnCustomerID: ownID,
		OrderAge:      age,
	}, authz.ActionCancelOrder); err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() {
		return nil, model.NewStateConflictError("Order is already in a final state", order.Status)
	}
	if order.Status.InFulfillment() {
		return nil, model.NewStateConflictError("Orders being prepared or shipped cannot be cancelled", order.Status)
	}

	paid := order.PaymentStatus == model.PaymentStatusPaid
	if paid && age > PaidCancellationWindow {
		return nil, model.NewDomainError(model.ErrCodeCancellationExpired,
			"Paid orders can only be cancelled within 24 hours of creation")
	}

	var refundAmount float64
	refundPct := 0
	if paid {
		if order.PaymentTransactionID == nil {
			return nil, s.flagForReconciliation(ctx, requester, order, "paid order has no payment transaction reference", nil)
		}
		refundPct = refundPercentage(age)
		refundAmount = round2(order.Total * float64(refundPct) / 100)

		if err := s.gateway.Refund(ctx, *order.PaymentTransactionID, refundAmount); err != nil {
			// Nothing has been mutated yet; the caller can safely retry.
			s.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Msg("refund failed, cancellation aborted")
			return nil, model.NewDomainError(model.ErrCodePaymentFailed,
				"Refund could not be processed, please try again")
		}
	}

	if err := s.applyCancellation(ctx, order, items, paid); err != nil {
		if paid {
			// The refund went out but the database still shows the order live.
			return nil, s.flagForReconciliation(ctx, requester, order, "refund issued but cancellation not persisted", err)
		}
		return nil, err
	}

	s.recordAudit(ctx, order.ID, model.AuditActionCancelled, requester.UserID, map[string]any{
		"refundAmount":     refundAmount,
		"refundPercentage": refundPct,
	})
	s.publish(ctx, events.TypeOrderCancelled, order)

	return &model.CancellationResponse{
		OrderID:          order.ID,
		RefundAmount:     refundAmount,
		RefundPercentage: refundPct,
	}, nil
}

// applyCancellation releases the order's stock and flips its status in one
// transaction.
func (s *orderService) applyCancellation(ctx context.Context, order *model.Order, items []model.OrderItem, paid bool) error {
	tx, err := s.orders.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		if err := s.products.ReleaseStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	if err := s.orders.UpdateStatus(ctx, tx, order.ID, model.OrderStatusCancelled); err != nil {
		return err
	}
	if paid {
		if err := s.orders.UpdatePaymentStatus(ctx, tx, order.ID, model.PaymentStatusRefunded, nil); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetOrder returns the order scoped to the requester's role.
func (s *orderService) GetOrder(ctx context.Context, requester model.Requester, orderID uuid.UUID) (*model.OrderView, error) {
	order, items, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	customer, err := s.customers.GetByID(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, model.ErrCustomerNotFound
	}

	ownID, err := s.ownCustomerID(ctx, requester)
	if err != nil {
		return nil, err
	}

	if err := s.policy.Authorize(requester, authz.Resource{
		Customer:      customer,
		OwnCustomerID: ownID,
	}, authz.ActionViewOrder); err != nil {
		return nil, err
	}

	return &model.OrderView{
		Order:    *order,
		Items:    items,
		Customer: customerViewFor(requester.Role, customer),
		ViewedBy: requester.Role,
	}, nil
}

// ListOrders lists orders scoped to the requester's role: administrators see
// everything, end customers only their own orders, account managers only the
// orders of customers assigned to them.
func (s *orderService) ListOrders(ctx context.Context, requester model.Requester, filter model.OrderFilter) ([]model.Order, error) {
	switch requester.Role {
	case model.RoleAdmin:
		// No scoping.

	case model.RoleUser:
		ownID, err := s.ownCustomerID(ctx, requester)
		if err != nil {
			return nil, err
		}
		if ownID == nil {
			return nil, model.NewDomainError(model.ErrCodeForbidden,
				"You must have a customer profile to list orders")
		}
		filter.CustomerID = ownID

	case model.RoleSales:
		if filter.CustomerID == nil {
			return nil, model.NewDomainError(model.ErrCodeInvalidRequest,
				"Account managers must filter by one of their assigned customers")
		}
		customer, err := s.customers.GetByID(ctx, *filter.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, model.ErrCustomerNotFound
		}
		if err := s.policy.Authorize(requester, authz.Resource{Customer: customer}, authz.ActionViewOrder); err != nil {
			return nil, err
		}

	default:
		return nil, model.ErrForbidden
	}

	return s.orders.Search(ctx, filter)
}

// ExpiredPendingOrders lists unpaid orders older than the cutoff.
func (s *orderService) ExpiredPendingOrders(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	return s.orders.FindExpiredPending(ctx, olderThan, limit)
}

// ExpireOrder cancels an order that stayed unpaid past the payment window. No
// refund is involved; the reserved stock goes back to the catalogue.
func (s *orderService) ExpireOrder(ctx context.Context, orderID uuid.UUID) error {
	order, items, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return model.ErrOrderNotFound
	}
	if order.Status != model.OrderStatusPending || order.PaymentStatus != model.PaymentStatusPending {
		return model.NewStateConflictError("Order is no longer awaiting payment", order.Status)
	}

	if err := s.applyCancellation(ctx, order, items, false); err != nil {
		return err
	}

	s.recordAudit(ctx, order.ID, model.AuditActionExpired, 0, map[string]any{
		"orderNumber": order.OrderNumber,
	})
	s.publish(ctx, events.TypeOrderExpired, order)

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("expired unpaid order cancelled")

	return nil
}

// ownCustomerID resolves the customer profile owned by an end-customer
// requester, nil when the requester has none or is not an end customer.
func (s *orderService) ownCustomerID(ctx context.Context, requester model.Requester) (*int64, error) {
	if requester.Role != model.RoleUser || requester.Email == "" {
		return nil, nil
	}
	customer, err := s.customers.GetByEmail(ctx, requester.Email)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, nil
	}
	return &customer.ID, nil
}

// loadLines fetches every referenced product in one batched read and pairs the
// snapshots with the requested quantities.
func (s *orderService) loadLines(ctx context.Context, items []model.OrderItemRequest) ([]pricing.Line, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	lines := make([]pricing.Line, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			e := model.NewDomainError(model.ErrCodeProductNotFound, "One or more products not found")
			return nil, e.WithDetails(map[string]any{"productId": item.ProductID})
		}
		lines = append(lines, pricing.Line{Product: product, Quantity: item.Quantity})
	}

	return lines, nil
}

// loadCoupon resolves a supplied coupon code along with its usage counts. An
// unknown code is rejected, never silently ignored.
func (s *orderService) loadCoupon(ctx context.Context, code *string, customerID int64) (*model.Coupon, int, int, error) {
	if code == nil || *code == "" {
		return nil, 0, 0, nil
	}

	coupon, err := s.coupons.GetByCode(ctx, *code)
	if err != nil {
		return nil, 0, 0, err
	}
	if coupon == nil {
		return nil, 0, 0, model.NewCouponRejectedError("Invalid coupon code")
	}

	var usageGlobal, usageByUser int
	if coupon.UsageLimit != nil {
		usageGlobal, err = s.coupons.UsageCount(ctx, coupon.Code)
		if err != nil {
			return nil, 0, 0, err
		}
	}
	if coupon.UsageLimitPerCustomer != nil {
		usageByUser, err = s.coupons.UsageCountByCustomer(ctx, coupon.Code, customerID)
		if err != nil {
			return nil, 0, 0, err
		}
	}

	return coupon, usageGlobal, usageByUser, nil
}

// zoneFee resolves the customer's shipping zone, nil when no table is loaded
// or no zone matches.
func (s *orderService) zoneFee(zipCode string) *float64 {
	if s.zones == nil {
		return nil
	}
	return s.zones.Match(zipCode)
}

// recordAudit appends an audit entry, logging failures instead of surfacing them.
func (s *orderService) recordAudit(ctx context.Context, orderID uuid.UUID, action string, userID int64, details map[string]any) {
	entry := model.AuditEntry{
		ID:        uuid.New(),
		OrderID:   orderID,
		Action:    action,
		UserID:    userID,
		Details:   details,
		CreatedAt: time.Now(),
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Str("action", action).
			Msg("failed to append audit entry")
	}
}

// publish emits an analytics event, logging failures instead of surfacing them.
func (s *orderService) publish(ctx context.Context, eventType string, order *model.Order) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      order.Total,
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("event", eventType).
			Str("order_id", order.ID.String()).
			Msg("failed to publish event")
	}
}

// customerViewFor projects the customer fields visible to the given role.
func customerViewFor(role model.Role, customer *model.Customer) *model.CustomerView {
	view := &model.CustomerView{
		ID:    customer.ID,
		Name:  customer.Name,
		City:  customer.City,
		State: customer.State,
	}
	switch role {
	case model.RoleAdmin:
		view.Email = customer.Email
		view.Phone = customer.Phone
		view.Document = model.MaskDocument(customer.Document)
	case model.RoleSales:
		view.Email = customer.Email
		view.Phone = customer.Phone
	}
	return view
}

func buildItems(orderID uuid.UUID, lines []pricing.Line) []model.OrderItem {
	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, model.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			SKU:         line.Product.SKU,
			Quantity:    line.Quantity,
			UnitPrice:   line.Product.Price,
			Total:       round2(line.Product.Price * float64(line.Quantity)),
		})
	}
	return items
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
