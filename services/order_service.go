package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"checkout-service/kafka"
	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items" binding:"required,dive"`
	ShippingAddress string            `json:"shipping_address" binding:"required"`
	// IdempotencyKey comes from the Idempotency-Key header, not the body.
	IdempotencyKey string `json:"-"`
}

type ListOrdersOptions struct {
	Page   int
	Limit  int
	Status string
	UserID string
}

type OrderResponse struct {
	Orders []models.Order `json:"orders"`
	Meta   MetaData       `json:"meta"`
}

type MetaData struct {
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalOrders int64 `json:"total_orders"`
	TotalPages  int64 `json:"total_pages"`
	HasMore     bool  `json:"has_more"`
}

// OrderService defines the interface for order business logic.
type OrderService interface {
	CreateOrder(ctx context.Context, requester models.Requester, req *CreateOrderRequest) (*models.Order, *ServiceError)
	GetOrder(ctx context.Context, requester models.Requester, orderID uuid.UUID) (*models.Order, *ServiceError)
	ListOrders(ctx context.Context, requester models.Requester, opts ListOrdersOptions) (*OrderResponse, *ServiceError)
	CancelOrder(ctx context.Context, requester models.Requester, orderID uuid.UUID) (*models.Order, *ServiceError)
}

// orderServiceImpl implements OrderService.
type orderServiceImpl struct {
	orders   repository.OrderRepository
	ledger   InventoryLedger
	catalog  CatalogClient
	pricer   *Pricer
	access   AccessPolicy
	producer kafka.ProducerAPI
	currency string
	logger   *zap.Logger
}

// NewOrderService creates a new OrderService. producer may be nil when event
// publishing is disabled.
func NewOrderService(
	orders repository.OrderRepository,
	ledger InventoryLedger,
	catalog CatalogClient,
	pricer *Pricer,
	access AccessPolicy,
	producer kafka.ProducerAPI,
	currency string,
	logger *zap.Logger,
) OrderService {
	return &orderServiceImpl{
		orders:   orders,
		ledger:   ledger,
		catalog:  catalog,
		pricer:   pricer,
		access:   access,
		producer: producer,
		currency: currency,
		logger:   logger,
	}
}

// CreateOrder validates the request against the catalog, reserves stock for
// every line, prices the order and persists it. Any failure after the first
// reservation releases everything already held; an order is never saved with
// a partial hold.
func (s *orderServiceImpl) CreateOrder(ctx context.Context, requester models.Requester, req *CreateOrderRequest) (*models.Order, *ServiceError) {
	if len(req.Items) == 0 {
		return nil, validationError("at least one item is required")
	}
	address := strings.TrimSpace(req.ShippingAddress)
	if address == "" {
		return nil, validationError("shipping address is required")
	}
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, invalidQuantityError(fmt.Sprintf("line %d: quantity must be greater than zero, got %d", i+1, item.Quantity))
		}
	}

	if req.IdempotencyKey != "" {
		existing, err := s.orders.FindByIdempotencyKey(ctx, requester.UserID, req.IdempotencyKey)
		if err == nil {
			s.logger.Info("order replayed from idempotency key",
				zap.String("order_id", existing.ID.String()),
				zap.String("owner_id", requester.UserID.String()))
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("idempotency lookup failed", zap.Error(err))
			return nil, internalError("failed to create order")
		}
	}

	products, svcErr := s.lookupProducts(ctx, req.Items)
	if svcErr != nil {
		return nil, svcErr
	}

	// The order ID is minted up front so reservations carry it from birth.
	orderID := uuid.New()

	acquired, svcErr := s.reserveAll(ctx, orderID, req.Items, products)
	if svcErr != nil {
		return nil, svcErr
	}
	rollback := func() { s.releaseAcquired(orderID, acquired) }

	lines := make([]PricedLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, PricedLine{UnitPrice: products[item.ProductID].Price, Quantity: item.Quantity})
	}
	totals, svcErr := s.pricer.Price(lines)
	if svcErr != nil {
		rollback()
		return nil, svcErr
	}

	order := &models.Order{
		ID:              orderID,
		OrderNumber:     models.NewOrderNumber(),
		OwnerID:         requester.UserID,
		ShippingAddress: address,
		Currency:        s.currency,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		GrandTotal:      totals.GrandTotal,
		Status:          models.OrderStatusPending,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}
	for i, item := range req.Items {
		product := products[item.ProductID]
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   item.ProductID,
			ProductName: product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   product.Price,
			LineTotal:   LineTotal(product.Price, item.Quantity),
			Position:    i,
		})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		rollback()
		if errors.Is(err, repository.ErrDuplicate) && req.IdempotencyKey != "" {
			// Lost a race with a concurrent submit of the same key.
			existing, ferr := s.orders.FindByIdempotencyKey(ctx, requester.UserID, req.IdempotencyKey)
			if ferr == nil {
				return existing, nil
			}
		}
		s.logger.Error("failed to save order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, internalError("failed to save order")
	}

	s.publishOrderCreated(ctx, order)
	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("owner_id", order.OwnerID.String()),
		zap.String("grand_total", order.GrandTotal.StringFixed(2)))
	return order, nil
}

// lookupProducts resolves each distinct product once and rejects the order if
// any product is unknown or inactive.
func (s *orderServiceImpl) lookupProducts(ctx context.Context, items []CreateOrderItem) (map[uuid.UUID]*models.CatalogProduct, *ServiceError) {
	products := make(map[uuid.UUID]*models.CatalogProduct, len(items))
	for _, item := range items {
		if _, seen := products[item.ProductID]; seen {
			continue
		}
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, notFoundError(fmt.Sprintf("product %s not found", item.ProductID))
			}
			s.logger.Error("catalog lookup failed", zap.String("product_id", item.ProductID.String()), zap.Error(err))
			return nil, catalogUnavailableError(fmt.Sprintf("catalog lookup failed for product %s", item.ProductID))
		}
		if !product.IsActive {
			return nil, inactiveProductError(fmt.Sprintf("product %q (%s) is not active", product.Name, item.ProductID))
		}
		products[item.ProductID] = product
	}
	return products, nil
}

// reserveAll places holds in product-id order so concurrent orders touching
// the same products acquire them in the same sequence. On failure everything
// already held is released and the offending product is named.
func (s *orderServiceImpl) reserveAll(ctx context.Context, orderID uuid.UUID, items []CreateOrderItem, products map[uuid.UUID]*models.CatalogProduct) ([]uuid.UUID, *ServiceError) {
	sorted := make([]CreateOrderItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID.String() < sorted[j].ProductID.String()
	})

	acquired := make([]uuid.UUID, 0, len(sorted))
	for _, item := range sorted {
		reservation, err := s.ledger.Reserve(ctx, orderID, item.ProductID, item.Quantity)
		if err != nil {
			s.releaseAcquired(orderID, acquired)
			product := products[item.ProductID]
			switch {
			case errors.Is(err, repository.ErrInsufficientStock):
				return nil, insufficientStockError(fmt.Sprintf("insufficient stock for product %q (%s)", product.Name, item.ProductID))
			case errors.Is(err, repository.ErrNotFound):
				return nil, insufficientStockError(fmt.Sprintf("no stock available for product %q (%s)", product.Name, item.ProductID))
			default:
				s.logger.Error("stock reservation failed",
					zap.String("order_id", orderID.String()),
					zap.String("product_id", item.ProductID.String()),
					zap.Error(err))
				return nil, internalError("failed to reserve stock")
			}
		}
		acquired = append(acquired, reservation.ID)
	}
	return acquired, nil
}

// releaseAcquired backs out reservations in reverse acquisition order. It
// runs on a fresh context so rollback still happens when the request context
// was cancelled.
func (s *orderServiceImpl) releaseAcquired(orderID uuid.UUID, acquired []uuid.UUID) {
	if len(acquired) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := len(acquired) - 1; i >= 0; i-- {
		if err := s.ledger.Release(ctx, acquired[i]); err != nil {
			s.logger.Error("failed to release reservation during rollback",
				zap.String("order_id", orderID.String()),
				zap.String("reservation_id", acquired[i].String()),
				zap.Error(err))
		}
	}
}

// GetOrder returns an order to its owner or to an admin.
func (s *orderServiceImpl) GetOrder(ctx context.Context, requester models.Requester, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("order not found")
		}
		s.logger.Error("failed to fetch order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, internalError("failed to fetch order")
	}

	if !s.access.Authorize(requester, order.OwnerID, models.RoleCustomer) {
		return nil, forbiddenError("you do not have access to this order")
	}
	return order, nil
}

// ListOrders returns a page of orders. Customers are always scoped to their
// own orders; admins see everything and may narrow to a single user.
func (s *orderServiceImpl) ListOrders(ctx context.Context, requester models.Requester, opts ListOrdersOptions) (*OrderResponse, *ServiceError) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	filter := repository.OrderFilter{Page: opts.Page, Limit: opts.Limit}

	if opts.Status != "" {
		status := models.OrderStatus(strings.ToUpper(opts.Status))
		if !status.Valid() {
			return nil, validationError(fmt.Sprintf("invalid status %q", opts.Status))
		}
		filter.Status = &status
	}

	if requester.IsAdmin() {
		if opts.UserID != "" {
			ownerID, err := uuid.Parse(opts.UserID)
			if err != nil {
				return nil, validationError("invalid user_id filter")
			}
			filter.OwnerID = &ownerID
		}
	} else {
		ownerID := requester.UserID
		filter.OwnerID = &ownerID
	}

	orders, total, err := s.orders.Find(ctx, filter)
	if err != nil {
		s.logger.Error("failed to fetch orders", zap.Error(err))
		return nil, internalError("failed to fetch orders")
	}

	return &OrderResponse{
		Orders: orders,
		Meta: MetaData{
			Page:        opts.Page,
			Limit:       opts.Limit,
			TotalOrders: total,
			TotalPages:  calculateTotalPages(total, opts.Limit),
			HasMore:     total > int64(opts.Page*opts.Limit),
		},
	}, nil
}

// CancelOrder moves a pending order to CANCELLED and returns its held stock.
// Paid orders cannot be cancelled; cancelling twice reports the repeat.
func (s *orderServiceImpl) CancelOrder(ctx context.Context, requester models.Requester, orderID uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("order not found")
		}
		s.logger.Error("failed to fetch order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, internalError("failed to fetch order")
	}

	if !s.access.Authorize(requester, order.OwnerID, models.RoleCustomer) {
		return nil, forbiddenError("you do not have access to this order")
	}

	switch order.Status {
	case models.OrderStatusCancelled:
		return nil, alreadyInStateError("order is already CANCELLED")
	case models.OrderStatusPaid:
		return nil, invalidTransitionError("a PAID order cannot be cancelled")
	}

	now := time.Now().UTC()
	flipped, err := s.orders.UpdateStatusIf(ctx, orderID, models.OrderStatusPending, models.OrderStatusCancelled, &now)
	if err != nil {
		s.logger.Error("failed to cancel order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, internalError("failed to cancel order")
	}
	if !flipped {
		// Someone got here first; re-read to report what actually happened.
		current, rerr := s.orders.FindByID(ctx, orderID)
		if rerr != nil {
			return nil, internalError("failed to cancel order")
		}
		switch current.Status {
		case models.OrderStatusCancelled:
			return nil, alreadyInStateError("order is already CANCELLED")
		case models.OrderStatusPaid:
			return nil, invalidTransitionError("a PAID order cannot be cancelled")
		default:
			return nil, conflictError("order status changed concurrently, retry")
		}
	}

	if err := s.ledger.ReleaseByOrder(ctx, orderID); err != nil {
		// The order is cancelled; held stock needs operator attention.
		s.logger.Error("order cancelled but stock release failed",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, internalError("order cancelled but stock release failed")
	}

	s.publishOrderCancelled(ctx, order)
	s.logger.Info("order cancelled",
		zap.String("order_id", order.ID.String()),
		zap.String("owner_id", order.OwnerID.String()))

	order.Status = models.OrderStatusCancelled
	order.CanceledAt = &now
	return order, nil
}

func (s *orderServiceImpl) publishOrderCreated(ctx context.Context, order *models.Order) {
	if s.producer == nil {
		return
	}
	items := make([]models.EventItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, models.EventItem{ProductID: item.ProductID.String(), Quantity: item.Quantity})
	}
	event := models.OrderCreatedEvent{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		OwnerID:     order.OwnerID.String(),
		GrandTotal:  order.GrandTotal,
		Currency:    order.Currency,
		Items:       items,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.producer.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Warn("failed to publish order.created", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

func (s *orderServiceImpl) publishOrderCancelled(ctx context.Context, order *models.Order) {
	if s.producer == nil {
		return
	}
	event := models.OrderCancelledEvent{
		OrderID:   order.ID.String(),
		OwnerID:   order.OwnerID.String(),
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Warn("failed to publish order.cancelled", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

func calculateTotalPages(total int64, limit int) int64 {
	if limit == 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
