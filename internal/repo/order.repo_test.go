package repo

import (
	"context"
	"database/sql"
	"storefront-payments/internal/database"
	"storefront-payments/internal/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgres(connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db))
	require.NoError(t, database.Migrate(ctx, db), "migrate must be re-runnable")
	return db
}

func newOrder(status domain.OrderStatus, updatedAt time.Time) *domain.Order {
	id := uuid.New()
	return &domain.Order{
		ID:          id,
		OrderNumber: "ORD-TEST-" + id.String()[:8],
		Status:      status,
		ShippingFee: 120,
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	}
}

func TestOrderRepo(t *testing.T) {
	db := setupDB(t)
	r := NewOrderRepo(db)
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		order := newOrder(domain.OrderPending, time.Now())
		require.NoError(t, r.CreateOrder(ctx, nil, order))

		got, err := r.FindById(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber, got.OrderNumber)
		assert.Equal(t, domain.OrderPending, got.Status)
		assert.Nil(t, got.PaymentStatus)
		assert.Nil(t, got.PaymentReference)
		assert.Equal(t, 120.0, got.ShippingFee)
	})

	t.Run("find missing order", func(t *testing.T) {
		_, err := r.FindById(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("duplicate order number", func(t *testing.T) {
		order := newOrder(domain.OrderPending, time.Now())
		require.NoError(t, r.CreateOrder(ctx, nil, order))

		dup := newOrder(domain.OrderPending, time.Now())
		dup.OrderNumber = order.OrderNumber
		assert.ErrorIs(t, r.CreateOrder(ctx, nil, dup), ErrDuplicateOrderNumber)
	})

	t.Run("create inside transaction", func(t *testing.T) {
		order := newOrder(domain.OrderPending, time.Now())
		tx, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		require.NoError(t, r.CreateOrder(ctx, tx, order))
		require.NoError(t, tx.Rollback())

		_, err = r.FindById(ctx, order.ID)
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("update payment follows transition guard", func(t *testing.T) {
		order := newOrder(domain.OrderPending, time.Now())
		require.NoError(t, r.CreateOrder(ctx, nil, order))

		ok, err := r.UpdatePayment(ctx, order.ID, "pi_1", domain.PaymentPending)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.UpdatePayment(ctx, order.ID, "pi_2", domain.PaymentPaid)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.UpdatePayment(ctx, order.ID, "pi_2", domain.PaymentPaid)
		require.NoError(t, err)
		assert.True(t, ok, "replayed paid event overwrites with the same values")

		ok, err = r.UpdatePayment(ctx, order.ID, "pi_3", domain.PaymentFailed)
		require.NoError(t, err)
		assert.False(t, ok, "paid must not be downgraded")

		got, err := r.FindById(ctx, order.ID)
		require.NoError(t, err)
		require.NotNil(t, got.PaymentStatus)
		assert.Equal(t, domain.PaymentPaid, *got.PaymentStatus)
		assert.Equal(t, "pi_2", *got.PaymentReference)
	})

	t.Run("update payment on missing order", func(t *testing.T) {
		ok, err := r.UpdatePayment(ctx, uuid.New(), "pi_1", domain.PaymentPaid)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stale in transit orders complete", func(t *testing.T) {
		stale := newOrder(domain.OrderInTransit, time.Now().Add(-96*time.Hour))
		fresh := newOrder(domain.OrderInTransit, time.Now())
		approved := newOrder(domain.OrderApproved, time.Now().Add(-96*time.Hour))
		for _, o := range []*domain.Order{stale, fresh, approved} {
			require.NoError(t, r.CreateOrder(ctx, nil, o))
		}

		orders, err := r.FindStaleInTransit(ctx, 72*time.Hour, 100)
		require.NoError(t, err)
		var ids []uuid.UUID
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		assert.Contains(t, ids, stale.ID)
		assert.NotContains(t, ids, fresh.ID)
		assert.NotContains(t, ids, approved.ID)

		now := time.Now()
		ok, err := r.CompleteOrder(ctx, nil, stale.ID, now)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.CompleteOrder(ctx, nil, stale.ID, now)
		require.NoError(t, err)
		assert.False(t, ok, "already complete")

		got, err := r.FindById(ctx, stale.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderComplete, got.Status)
		require.NotNil(t, got.CompletedAt)
		assert.WithinDuration(t, now, *got.CompletedAt, time.Second)
	})
}
