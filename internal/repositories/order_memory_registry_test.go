package repositories_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"warung/internal/apperrors"
	"warung/internal/models"
	"warung/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAwaitingOrder(buyerID string) *models.Order {
	return &models.Order{
		BuyerID:   buyerID,
		ProductID: "prod-1",
		Quantity:  1,
		UnitPrice: 1000,
		Status:    models.StatusAwaitingProof,
	}
}

func TestMemoryOrderRegistry_CreateAssignsMonotonicIDs(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	first := newAwaitingOrder("buyer-1")
	second := newAwaitingOrder("buyer-2")
	require.NoError(t, registry.Create(first))
	require.NoError(t, registry.Create(second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	got, err := registry.GetByID(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "buyer-1", got.BuyerID)
}

func TestMemoryOrderRegistry_CreateRejectsSecondPending(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	first := newAwaitingOrder("buyer-1")
	require.NoError(t, registry.Create(first))

	err := registry.Create(newAwaitingOrder("buyer-1"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	// Another buyer is unaffected.
	require.NoError(t, registry.Create(newAwaitingOrder("buyer-2")))

	// Once the pending order settles, the buyer can order again.
	_, err = registry.Transition(first.ID, models.StatusAwaitingProof, models.StatusExpired, nil)
	require.NoError(t, err)
	assert.NoError(t, registry.Create(newAwaitingOrder("buyer-1")))
}

// Racing creates for the same buyer must yield exactly one pending order;
// the check and the insert are atomic under the registry lock.
func TestMemoryOrderRegistry_ConcurrentCreateSinglePending(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	const racers = 16
	var created int64
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		go func() {
			defer wg.Done()
			<-start
			if err := registry.Create(newAwaitingOrder("buyer-1")); err == nil {
				atomic.AddInt64(&created, 1)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInvalidState)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(1), created, "exactly one racing create should succeed")

	orders, err := registry.GetAll()
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestMemoryOrderRegistry_GetAllSortedByID(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	const count = 8
	for i := 0; i < count; i++ {
		order := newAwaitingOrder("buyer-1")
		require.NoError(t, registry.Create(order))
		// Settle each order so the next create for the buyer is allowed.
		_, err := registry.Transition(order.ID, models.StatusAwaitingProof, models.StatusExpired, nil)
		require.NoError(t, err)
	}

	orders, err := registry.GetAll()
	require.NoError(t, err)
	require.Len(t, orders, count)
	for i, o := range orders {
		assert.Equal(t, int64(i+1), o.ID, "orders must come back in ID order")
	}
}

func TestMemoryOrderRegistry_GetByIDNotFound(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	_, err := registry.GetByID(99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryOrderRegistry_ActiveByBuyer(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	order := newAwaitingOrder("buyer-1")
	require.NoError(t, registry.Create(order))

	active, ok := registry.ActiveByBuyer("buyer-1")
	require.True(t, ok)
	assert.Equal(t, order.ID, active.ID)

	_, ok = registry.ActiveByBuyer("buyer-2")
	assert.False(t, ok)

	// A settled order no longer counts as active.
	_, err := registry.Transition(order.ID, models.StatusAwaitingProof, models.StatusExpired, nil)
	require.NoError(t, err)
	_, ok = registry.ActiveByBuyer("buyer-1")
	assert.False(t, ok)
}

func TestMemoryOrderRegistry_TransitionRejectsWrongState(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	order := newAwaitingOrder("buyer-1")
	require.NoError(t, registry.Create(order))

	// Order is AwaitingProof, not UnderReview.
	_, err := registry.Transition(order.ID, models.StatusUnderReview, models.StatusAccepted, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	// The state machine forbids AwaitingProof -> Accepted even when the
	// from-state matches.
	_, err = registry.Transition(order.ID, models.StatusAwaitingProof, models.StatusAccepted, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	got, err := registry.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingProof, got.Status)
}

func TestMemoryOrderRegistry_TransitionAppliesMutations(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	order := newAwaitingOrder("buyer-1")
	require.NoError(t, registry.Create(order))

	updated, err := registry.Transition(order.ID, models.StatusAwaitingProof, models.StatusUnderReview,
		func(o *models.Order) {
			o.ProofRef = "proof-123"
		})
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, updated.Status)
	assert.Equal(t, "proof-123", updated.ProofRef)

	got, err := registry.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	assert.Equal(t, "proof-123", got.ProofRef)
}

// Racing transitions on the same order must have exactly one winner; every
// loser observes ErrInvalidState and the order ends up in exactly one
// terminal state.
func TestMemoryOrderRegistry_ConcurrentTransitionsSingleWinner(t *testing.T) {
	registry := repositories.NewMemoryOrderRegistry()

	order := newAwaitingOrder("buyer-1")
	require.NoError(t, registry.Create(order))

	const racers = 32
	var wins int64
	var wg sync.WaitGroup
	wg.Add(racers)
	for i := 0; i < racers; i++ {
		target := models.StatusUnderReview
		if i%2 == 0 {
			target = models.StatusExpired
		}
		go func(to models.OrderStatus) {
			defer wg.Done()
			if _, err := registry.Transition(order.ID, models.StatusAwaitingProof, to, nil); err == nil {
				atomic.AddInt64(&wins, 1)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInvalidState)
			}
		}(target)
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins, "exactly one racing transition should succeed")

	got, err := registry.GetByID(order.ID)
	require.NoError(t, err)
	assert.Contains(t, []models.OrderStatus{models.StatusUnderReview, models.StatusExpired}, got.Status)
}
