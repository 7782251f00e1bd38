package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
)

// In-memory implementations of the repository interfaces. They back the
// service when no database is configured and give concurrency tests a real
// ledger to contend on. Conditional-update semantics match the GORM
// implementations: guards are checked and applied under a lock, and callers
// always receive copies.

// MemoryOrderRepository stores orders in a map guarded by a single mutex.
type MemoryOrderRepository struct {
	mu       sync.RWMutex
	orders   map[uuid.UUID]*models.Order
	sequence []uuid.UUID
	byIdem   map[string]uuid.UUID
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[uuid.UUID]*models.Order),
		byIdem: make(map[string]uuid.UUID),
	}
}

func idemMapKey(ownerID uuid.UUID, key string) string {
	return ownerID.String() + "|" + key
}

func (r *MemoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.IdempotencyKey != nil {
		k := idemMapKey(order.OwnerID, *order.IdempotencyKey)
		if _, exists := r.byIdem[k]; exists {
			return ErrDuplicate
		}
		r.byIdem[k] = order.ID
	}

	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}

	r.orders[order.ID] = cloneOrder(order)
	r.sequence = append(r.sequence, order.ID)
	return nil
}

func (r *MemoryOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(order), nil
}

func (r *MemoryOrderRepository) Find(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Order
	// Walk newest first; insertion order stands in for created_at DESC.
	for i := len(r.sequence) - 1; i >= 0; i-- {
		order := r.orders[r.sequence[i]]
		if filter.OwnerID != nil && order.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.Status != nil && order.Status != *filter.Status {
			continue
		}
		matched = append(matched, *cloneOrder(order))
	}

	total := int64(len(matched))
	offset := (filter.Page - 1) * filter.Limit
	if offset >= len(matched) {
		return []models.Order{}, total, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (r *MemoryOrderRepository) FindByIdempotencyKey(ctx context.Context, ownerID uuid.UUID, key string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byIdem[idemMapKey(ownerID, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(r.orders[id]), nil
}

func (r *MemoryOrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, canceledAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now().UTC()
	if canceledAt != nil {
		t := *canceledAt
		order.CanceledAt = &t
	}
	return true, nil
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = make([]models.OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	if o.IdempotencyKey != nil {
		k := *o.IdempotencyKey
		c.IdempotencyKey = &k
	}
	if o.CanceledAt != nil {
		t := *o.CanceledAt
		c.CanceledAt = &t
	}
	return &c
}

// MemoryPaymentRepository enforces the one payment per order rule with an
// order-id index map.
type MemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]*models.Payment
	byOrder  map[uuid.UUID]uuid.UUID
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments: make(map[uuid.UUID]*models.Payment),
		byOrder:  make(map[uuid.UUID]uuid.UUID),
	}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[payment.OrderID]; exists {
		return ErrDuplicate
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now

	c := clonePayment(payment)
	r.payments[payment.ID] = c
	r.byOrder[payment.OrderID] = payment.ID
	return nil
}

func (r *MemoryPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePayment(payment), nil
}

func (r *MemoryPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePayment(r.payments[id]), nil
}

func (r *MemoryPaymentRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus, transactionID *string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return false, nil
	}
	if payment.Status != from {
		return false, nil
	}
	payment.Status = to
	payment.UpdatedAt = time.Now().UTC()
	if transactionID != nil {
		t := *transactionID
		payment.TransactionID = &t
	}
	return true, nil
}

func clonePayment(p *models.Payment) *models.Payment {
	c := *p
	if p.TransactionID != nil {
		t := *p.TransactionID
		c.TransactionID = &t
	}
	return &c
}

// MemoryInventoryRepository stripes counter state per product so operations
// on different products proceed in parallel while operations on the same
// product serialize, mirroring the row-level behavior of the SQL
// implementation.
type MemoryInventoryRepository struct {
	mu           sync.Mutex
	shards       map[uuid.UUID]*productShard
	reservations map[uuid.UUID]*models.Reservation
}

type productShard struct {
	mu  sync.Mutex
	has bool
	inv models.Inventory
}

func NewMemoryInventoryRepository() *MemoryInventoryRepository {
	return &MemoryInventoryRepository{
		shards:       make(map[uuid.UUID]*productShard),
		reservations: make(map[uuid.UUID]*models.Reservation),
	}
}

func (r *MemoryInventoryRepository) shard(productID uuid.UUID) *productShard {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shards[productID]
	if !ok {
		s = &productShard{}
		r.shards[productID] = s
	}
	return s
}

func (r *MemoryInventoryRepository) Get(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	s := r.shard(productID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return nil, ErrNotFound
	}
	inv := s.inv
	return &inv, nil
}

func (r *MemoryInventoryRepository) AddStock(ctx context.Context, productID uuid.UUID, quantity int) (*models.Inventory, error) {
	s := r.shard(productID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		s.inv = models.Inventory{ProductID: productID}
		s.has = true
	}
	s.inv.Available += quantity
	s.inv.UpdatedAt = time.Now().UTC()
	inv := s.inv
	return &inv, nil
}

func (r *MemoryInventoryRepository) ReserveStock(ctx context.Context, reservation *models.Reservation) error {
	s := r.shard(reservation.ProductID)
	s.mu.Lock()
	if !s.has {
		s.mu.Unlock()
		return ErrNotFound
	}
	if s.inv.Available < reservation.Quantity {
		s.mu.Unlock()
		return ErrInsufficientStock
	}
	s.inv.Available -= reservation.Quantity
	s.inv.Reserved += reservation.Quantity
	s.inv.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	if reservation.ID == uuid.Nil {
		reservation.ID = uuid.New()
	}
	now := time.Now().UTC()
	reservation.Status = models.ReservationStatusHeld
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	r.mu.Lock()
	c := *reservation
	r.reservations[reservation.ID] = &c
	r.mu.Unlock()
	return nil
}

func (r *MemoryInventoryRepository) ReleaseReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	return r.finishReservation(reservationID, models.ReservationStatusReleased)
}

func (r *MemoryInventoryRepository) CommitReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	return r.finishReservation(reservationID, models.ReservationStatusCommitted)
}

func (r *MemoryInventoryRepository) finishReservation(reservationID uuid.UUID, target models.ReservationStatus) (bool, error) {
	r.mu.Lock()
	res, ok := r.reservations[reservationID]
	if !ok {
		r.mu.Unlock()
		return false, ErrNotFound
	}
	if res.Status != models.ReservationStatusHeld {
		r.mu.Unlock()
		return false, nil
	}
	res.Status = target
	res.UpdatedAt = time.Now().UTC()
	productID, quantity := res.ProductID, res.Quantity
	r.mu.Unlock()

	s := r.shard(productID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has || s.inv.Reserved < quantity {
		return false, ErrConflict
	}
	s.inv.Reserved -= quantity
	if target == models.ReservationStatusReleased {
		s.inv.Available += quantity
	}
	s.inv.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryInventoryRepository) ReservationByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *res
	return &c, nil
}

func (r *MemoryInventoryRepository) ReservationsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Reservation
	for _, res := range r.reservations {
		if res.OrderID == orderID {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}
