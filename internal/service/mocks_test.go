package service

import (
	"context"
	"database/sql"
	"storefront-payments/internal/domain"
	"storefront-payments/internal/infrastructure/paymongo"
	"storefront-payments/internal/repo"
	"sync"
	"time"

	"github.com/google/uuid"
)

type paymentUpdate struct {
	ID        uuid.UUID
	Reference string
	Status    domain.PaymentStatus
}

// memOrderRepo keeps orders in memory and applies the same transition
// guard as the SQL repository.
type memOrderRepo struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]*domain.Order
	updates []paymentUpdate

	UpdatePaymentErr error
	FindByIdErr      error
}

func newMemOrderRepo(orders ...*domain.Order) *memOrderRepo {
	r := &memOrderRepo{orders: make(map[uuid.UUID]*domain.Order)}
	for _, o := range orders {
		r.orders[o.ID] = o
	}
	return r
}

func (r *memOrderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FindByIdErr != nil {
		return nil, r.FindByIdErr
	}
	o, ok := r.orders[id]
	if !ok {
		return nil, repo.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *memOrderRepo) UpdatePayment(ctx context.Context, id uuid.UUID, reference string, status domain.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdatePaymentErr != nil {
		return false, r.UpdatePaymentErr
	}
	o, ok := r.orders[id]
	if !ok || !domain.CanTransition(o.PaymentStatus, status) {
		return false, nil
	}
	ref, st := reference, status
	o.PaymentReference = &ref
	o.PaymentStatus = &st
	r.updates = append(r.updates, paymentUpdate{ID: id, Reference: reference, Status: status})
	return true, nil
}

func (r *memOrderRepo) FindStaleInTransit(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	return nil, nil
}

func (r *memOrderRepo) CompleteOrder(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) (bool, error) {
	return false, nil
}

func (r *memOrderRepo) writes() []paymentUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]paymentUpdate(nil), r.updates...)
}

// MockGateway implements paymongo.PaymentGateway for testing
type MockGateway struct {
	GetLinkFunc func(ctx context.Context, id string) (*paymongo.Link, error)
	calls       []string
}

func (m *MockGateway) GetLink(ctx context.Context, id string) (*paymongo.Link, error) {
	m.calls = append(m.calls, id)
	if m.GetLinkFunc != nil {
		return m.GetLinkFunc(ctx, id)
	}
	return nil, paymongo.ErrLinkNotFound
}
