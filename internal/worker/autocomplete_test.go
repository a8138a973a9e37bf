package worker

import (
	"context"
	"database/sql"
	"errors"
	"storefront-payments/internal/domain"
	"storefront-payments/internal/logging"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	stale       []domain.Order
	findErr     error
	completeErr map[uuid.UUID]error
	moved       map[uuid.UUID]bool
	completed   []uuid.UUID
	olderThan   time.Duration
}

func (f *fakeOrderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	return errors.New("not implemented")
}

func (f *fakeOrderRepo) UpdatePayment(ctx context.Context, id uuid.UUID, reference string, status domain.PaymentStatus) (bool, error) {
	return false, errors.New("not implemented")
}

func (f *fakeOrderRepo) FindStaleInTransit(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	f.olderThan = olderThan
	return f.stale, f.findErr
}

func (f *fakeOrderRepo) CompleteOrder(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) (bool, error) {
	if err := f.completeErr[id]; err != nil {
		return false, err
	}
	if f.moved[id] {
		return false, nil
	}
	f.completed = append(f.completed, id)
	return true, nil
}

func order() domain.Order {
	return domain.Order{ID: uuid.New(), Status: domain.OrderInTransit}
}

func TestRunOnceCompletesStaleOrders(t *testing.T) {
	a, b, c := order(), order(), order()
	repo := &fakeOrderRepo{
		stale:       []domain.Order{a, b, c},
		completeErr: map[uuid.UUID]error{b.ID: errors.New("deadlock detected")},
		moved:       map[uuid.UUID]bool{c.ID: true},
	}
	w := NewAutoCompleteWorker(repo, 72*time.Hour, "@every 1h", logging.Discard())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []uuid.UUID{a.ID}, repo.completed)
	assert.Equal(t, 72*time.Hour, repo.olderThan)
}

func TestRunOnceNothingStale(t *testing.T) {
	w := NewAutoCompleteWorker(&fakeOrderRepo{}, time.Hour, "@every 1h", logging.Discard())

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunOnceFindError(t *testing.T) {
	w := NewAutoCompleteWorker(&fakeOrderRepo{findErr: errors.New("db down")}, time.Hour, "@every 1h", logging.Discard())

	_, err := w.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	w := NewAutoCompleteWorker(&fakeOrderRepo{}, time.Hour, "every now and then", logging.Discard())

	err := w.Run(context.Background())
	assert.Error(t, err)
}

func TestRunStopsWithContext(t *testing.T) {
	a := order()
	repo := &fakeOrderRepo{stale: []domain.Order{a}}
	w := NewAutoCompleteWorker(repo, time.Hour, "@every 1s", logging.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 2500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
	assert.Contains(t, repo.completed, a.ID)
}
