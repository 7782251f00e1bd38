package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/kafka"
	"checkout-service/models"
	"checkout-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CreatePaymentRequest struct {
	OrderID  uuid.UUID `json:"order_id" binding:"required"`
	Provider string    `json:"provider"`
}

type TransitionPaymentRequest struct {
	Status        string  `json:"status" binding:"required"`
	TransactionID *string `json:"transaction_id"`
}

// PaymentService defines the interface for payment business logic.
type PaymentService interface {
	CreatePayment(ctx context.Context, requester models.Requester, req *CreatePaymentRequest) (*models.Payment, *ServiceError)
	GetPaymentByOrder(ctx context.Context, requester models.Requester, orderID uuid.UUID) (*models.Payment, *ServiceError)
	Transition(ctx context.Context, requester models.Requester, paymentID uuid.UUID, req *TransitionPaymentRequest) (*models.Payment, *ServiceError)
}

// paymentServiceImpl implements PaymentService.
type paymentServiceImpl struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	ledger   InventoryLedger
	access   AccessPolicy
	producer kafka.ProducerAPI
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService. producer may be nil when
// event publishing is disabled.
func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	ledger InventoryLedger,
	access AccessPolicy,
	producer kafka.ProducerAPI,
	logger *zap.Logger,
) PaymentService {
	return &paymentServiceImpl{
		payments: payments,
		orders:   orders,
		ledger:   ledger,
		access:   access,
		producer: producer,
		logger:   logger,
	}
}

// CreatePayment opens a PENDING payment for an order, copying the order's
// grand total and currency. An order carries at most one payment.
func (s *paymentServiceImpl) CreatePayment(ctx context.Context, requester models.Requester, req *CreatePaymentRequest) (*models.Payment, *ServiceError) {
	provider, ok := models.ParsePaymentProvider(req.Provider)
	if !ok {
		return nil, validationError(fmt.Sprintf("unknown payment provider %q", req.Provider))
	}

	order, err := s.orders.FindByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("order not found")
		}
		s.logger.Error("failed to fetch order", zap.String("order_id", req.OrderID.String()), zap.Error(err))
		return nil, internalError("failed to create payment")
	}

	if !s.access.Authorize(requester, order.OwnerID, models.RoleCustomer) {
		return nil, forbiddenError("you do not have access to this order")
	}

	if _, err := s.payments.FindByOrderID(ctx, req.OrderID); err == nil {
		return nil, conflictError("a payment already exists for this order")
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("failed to check existing payment", zap.String("order_id", req.OrderID.String()), zap.Error(err))
		return nil, internalError("failed to create payment")
	}

	payment := &models.Payment{
		ID:       uuid.New(),
		OrderID:  order.ID,
		OwnerID:  order.OwnerID,
		Amount:   order.GrandTotal,
		Currency: order.Currency,
		Provider: provider,
		Status:   models.PaymentStatusPending,
	}

	if err := s.payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictError("a payment already exists for this order")
		}
		s.logger.Error("failed to save payment", zap.String("order_id", req.OrderID.String()), zap.Error(err))
		return nil, internalError("failed to create payment")
	}

	s.logger.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
		zap.String("amount", payment.Amount.StringFixed(2)))
	return payment, nil
}

// GetPaymentByOrder returns an order's payment to the order's owner or to an
// admin.
func (s *paymentServiceImpl) GetPaymentByOrder(ctx context.Context, requester models.Requester, orderID uuid.UUID) (*models.Payment, *ServiceError) {
	payment, err := s.payments.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("no payment found for this order")
		}
		s.logger.Error("failed to fetch payment", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, internalError("failed to fetch payment")
	}

	if !s.access.Authorize(requester, payment.OwnerID, models.RoleCustomer) {
		return nil, forbiddenError("you do not have access to this payment")
	}
	return payment, nil
}

// Transition moves a payment along its lifecycle. Only admins may call it.
// Marking PAID also flips the order to PAID and commits its reservations;
// marking REFUNDED touches nothing but the payment row.
func (s *paymentServiceImpl) Transition(ctx context.Context, requester models.Requester, paymentID uuid.UUID, req *TransitionPaymentRequest) (*models.Payment, *ServiceError) {
	if !s.access.Authorize(requester, uuid.Nil, models.RoleAdmin) {
		return nil, forbiddenError("only admins may change payment status")
	}

	target, ok := models.ParsePaymentStatus(req.Status)
	if !ok {
		return nil, validationError(fmt.Sprintf("unknown payment status %q", req.Status))
	}

	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFoundError("payment not found")
		}
		s.logger.Error("failed to fetch payment", zap.String("payment_id", paymentID.String()), zap.Error(err))
		return nil, internalError("failed to fetch payment")
	}

	if payment.Status == target {
		return nil, alreadyInStateError(fmt.Sprintf("payment is already %s", target))
	}
	if !payment.Status.CanTransitionTo(target) {
		return nil, invalidTransitionError(fmt.Sprintf("cannot transition payment from %s to %s", payment.Status, target))
	}

	var svcErr *ServiceError
	switch target {
	case models.PaymentStatusPaid:
		svcErr = s.markPaid(ctx, payment, req.TransactionID)
	case models.PaymentStatusRefunded:
		svcErr = s.markRefunded(ctx, payment, req.TransactionID)
	}
	if svcErr != nil {
		return nil, svcErr
	}

	s.publishStatusChanged(ctx, payment, target)
	s.logger.Info("payment status changed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
		zap.String("from", string(payment.Status)),
		zap.String("to", string(target)))

	payment.Status = target
	if req.TransactionID != nil {
		payment.TransactionID = req.TransactionID
	}
	return payment, nil
}

// markPaid is ordered so no cancelled order ever has stock committed: the
// order flip PENDING -> PAID is the gate, then the payment flip decides a
// single winner, then the reservations are committed.
func (s *paymentServiceImpl) markPaid(ctx context.Context, payment *models.Payment, transactionID *string) *ServiceError {
	flipped, err := s.orders.UpdateStatusIf(ctx, payment.OrderID, models.OrderStatusPending, models.OrderStatusPaid, nil)
	if err != nil {
		s.logger.Error("failed to mark order paid", zap.String("order_id", payment.OrderID.String()), zap.Error(err))
		return internalError("failed to update payment status")
	}
	if !flipped {
		order, rerr := s.orders.FindByID(ctx, payment.OrderID)
		if rerr != nil {
			return internalError("failed to update payment status")
		}
		switch order.Status {
		case models.OrderStatusCancelled:
			return conflictError("order is CANCELLED and cannot be paid")
		case models.OrderStatusPaid:
			// The order flip already happened, so another transition won.
			return alreadyInStateError("payment is already PAID")
		default:
			return conflictError("order status changed concurrently, retry")
		}
	}

	won, err := s.payments.UpdateStatusIf(ctx, payment.ID, models.PaymentStatusPending, models.PaymentStatusPaid, transactionID)
	if err != nil {
		s.logger.Error("failed to mark payment paid", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		return internalError("failed to update payment status")
	}
	if !won {
		current, rerr := s.payments.FindByID(ctx, payment.ID)
		if rerr != nil {
			return internalError("failed to update payment status")
		}
		if current.Status == models.PaymentStatusPaid {
			return alreadyInStateError("payment is already PAID")
		}
		return invalidTransitionError(fmt.Sprintf("cannot transition payment from %s to PAID", current.Status))
	}

	if err := s.ledger.CommitByOrder(ctx, payment.OrderID); err != nil {
		// The payment is PAID; the held stock needs operator attention.
		s.logger.Error("payment marked PAID but inventory commit failed",
			zap.String("payment_id", payment.ID.String()),
			zap.String("order_id", payment.OrderID.String()),
			zap.Error(err))
		return internalError("payment marked PAID but inventory commit failed")
	}
	return nil
}

// markRefunded flips PAID -> REFUNDED. Committed stock stays consumed.
func (s *paymentServiceImpl) markRefunded(ctx context.Context, payment *models.Payment, transactionID *string) *ServiceError {
	won, err := s.payments.UpdateStatusIf(ctx, payment.ID, models.PaymentStatusPaid, models.PaymentStatusRefunded, transactionID)
	if err != nil {
		s.logger.Error("failed to mark payment refunded", zap.String("payment_id", payment.ID.String()), zap.Error(err))
		return internalError("failed to update payment status")
	}
	if !won {
		current, rerr := s.payments.FindByID(ctx, payment.ID)
		if rerr != nil {
			return internalError("failed to update payment status")
		}
		if current.Status == models.PaymentStatusRefunded {
			return alreadyInStateError("payment is already REFUNDED")
		}
		return invalidTransitionError(fmt.Sprintf("cannot transition payment from %s to REFUNDED", current.Status))
	}
	return nil
}

func (s *paymentServiceImpl) publishStatusChanged(ctx context.Context, payment *models.Payment, target models.PaymentStatus) {
	if s.producer == nil {
		return
	}
	event := models.PaymentStatusChangedEvent{
		PaymentID: payment.ID.String(),
		OrderID:   payment.OrderID.String(),
		From:      string(payment.Status),
		To:        string(target),
		Timestamp: time.Now().UTC(),
	}
	if err := s.producer.PublishPaymentStatusChanged(ctx, event); err != nil {
		s.logger.Warn("failed to publish payment.status_changed", zap.String("payment_id", payment.ID.String()), zap.Error(err))
	}
}
