package repositories

import (
	"fmt"
	"sort"
	"sync"

	"warung/internal/apperrors"
	"warung/internal/models"
)

// orderEntry pairs an order with its own mutex. Every read and write of the
// order goes through this mutex, so transitions on a given order are mutually
// exclusive while unrelated orders proceed fully in parallel.
type orderEntry struct {
	mu    sync.Mutex
	order models.Order
}

// MemoryOrderRegistry is an in-memory implementation of OrderRegistry.
type MemoryOrderRegistry struct {
	mu     sync.RWMutex // guards the map and the ID counter, not order contents
	orders map[int64]*orderEntry
	nextID int64
}

// NewMemoryOrderRegistry creates a new instance of MemoryOrderRegistry.
func NewMemoryOrderRegistry() *MemoryOrderRegistry {
	return &MemoryOrderRegistry{
		orders: make(map[int64]*orderEntry),
		nextID: 1,
	}
}

// Create stores a new order and assigns it the next monotonic ID. The
// one-pending-order-per-buyer check happens under the registry write lock,
// so two racing creates for the same buyer cannot both pass it.
func (r *MemoryOrderRegistry) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.orders {
		e.mu.Lock()
		pending := e.order.BuyerID == order.BuyerID && !e.order.Status.IsTerminal()
		pendingID := e.order.ID
		e.mu.Unlock()
		if pending {
			return fmt.Errorf("buyer %s already has pending order %d: %w",
				order.BuyerID, pendingID, apperrors.ErrInvalidState)
		}
	}

	order.ID = r.nextID
	r.nextID++
	r.orders[order.ID] = &orderEntry{order: *order}
	return nil
}

func (r *MemoryOrderRegistry) entry(id int64) (*orderEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.orders[id]
	return e, ok
}

// GetByID returns a copy of the order with the given ID.
func (r *MemoryOrderRegistry) GetByID(id int64) (*models.Order, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, apperrors.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	order := e.order
	return &order, nil
}

// GetAll returns copies of all orders, active and settled, ordered by ID.
func (r *MemoryOrderRegistry) GetAll() ([]models.Order, error) {
	r.mu.RLock()
	entries := make([]*orderEntry, 0, len(r.orders))
	for _, e := range r.orders {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		orderList = append(orderList, e.order)
		e.mu.Unlock()
	}
	sort.Slice(orderList, func(i, j int) bool { return orderList[i].ID < orderList[j].ID })
	return orderList, nil
}

// ActiveByBuyer returns the buyer's pending order, if any.
func (r *MemoryOrderRegistry) ActiveByBuyer(buyerID string) (*models.Order, bool) {
	r.mu.RLock()
	entries := make([]*orderEntry, 0, len(r.orders))
	for _, e := range r.orders {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.order.BuyerID == buyerID && !e.order.Status.IsTerminal() {
			order := e.order
			e.mu.Unlock()
			return &order, true
		}
		e.mu.Unlock()
	}
	return nil, false
}

// Transition applies from -> to on the order under its lock. Racing callers
// on the same order serialize here; the loser finds the status already moved
// and gets ErrInvalidState.
func (r *MemoryOrderRegistry) Transition(id int64, from, to models.OrderStatus, apply func(*models.Order)) (*models.Order, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, apperrors.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.order.Status != from {
		return nil, fmt.Errorf("order %d is %s, not %s: %w", id, e.order.Status, from, apperrors.ErrInvalidState)
	}
	if !models.CanTransition(from, to) {
		return nil, fmt.Errorf("order %d cannot move %s -> %s: %w", id, from, to, apperrors.ErrInvalidState)
	}
	if apply != nil {
		apply(&e.order)
	}
	e.order.Status = to
	order := e.order
	return &order, nil
}
