package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"storefront-payments/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

const uniqueViolation = "23505"

type OrderRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	// UpdatePayment overwrites payment_reference and payment_status when the
	// order's current payment status allows the transition. It reports
	// whether a row was written.
	UpdatePayment(ctx context.Context, id uuid.UUID, reference string, status domain.PaymentStatus) (bool, error)
	FindStaleInTransit(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
	// CompleteOrder moves an in_transit order to complete. It reports
	// whether the order was still in transit.
	CompleteOrder(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) (bool, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

// exec lets callers run outside a transaction by passing a nil tx.
func (r *orderRepo) exec(tx *sql.Tx) execer {
	if tx == nil {
		return r.db
	}
	return tx
}

const orderColumns = `id, order_number, status, payment_status, payment_reference,
	shipping_fee, shipping_fee_confirmed, completed_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		o             domain.Order
		paymentStatus sql.NullString
		reference     sql.NullString
		completedAt   sql.NullTime
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.Status,
		&paymentStatus,
		&reference,
		&o.ShippingFee,
		&o.ShippingFeeConfirmed,
		&completedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentStatus.Valid {
		s := domain.PaymentStatus(paymentStatus.String)
		o.PaymentStatus = &s
	}
	if reference.Valid {
		o.PaymentReference = &reference.String
	}
	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}
	return &o, nil
}

func nullableStatus(s *domain.PaymentStatus) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order %s: %w", id, err)
	}
	return order, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	_, err := r.exec(tx).ExecContext(ctx, `
		INSERT INTO orders (id, order_number, status, payment_status, payment_reference,
			shipping_fee, shipping_fee_confirmed, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID,
		order.OrderNumber,
		string(order.Status),
		nullableStatus(order.PaymentStatus),
		order.PaymentReference,
		order.ShippingFee,
		order.ShippingFeeConfirmed,
		order.CompletedAt,
		order.CreatedAt,
		order.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateOrderNumber, order.OrderNumber)
	}
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *orderRepo) UpdatePayment(ctx context.Context, id uuid.UUID, reference string, status domain.PaymentStatus) (bool, error) {
	from := domain.AllowedFrom(status)
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET payment_reference = $2,
		    payment_status = $3,
		    updated_at = now()
		WHERE id = $1
		  AND (payment_status IS NULL OR payment_status = ANY($4::text[]))`,
		id,
		reference,
		string(status),
		allowed,
	)
	if err != nil {
		return false, fmt.Errorf("update payment for order %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update payment for order %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *orderRepo) FindStaleInTransit(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 AND updated_at < $2 ORDER BY updated_at LIMIT $3",
		string(domain.OrderInTransit),
		time.Now().Add(-olderThan),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find stale orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (r *orderRepo) CompleteOrder(ctx context.Context, tx *sql.Tx, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.exec(tx).ExecContext(ctx,
		"UPDATE orders SET status = $2, completed_at = $3, updated_at = $3 WHERE id = $1 AND status = $4",
		id,
		string(domain.OrderComplete),
		at,
		string(domain.OrderInTransit),
	)
	if err != nil {
		return false, fmt.Errorf("complete order %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete order %s: %w", id, err)
	}
	return n > 0, nil
}
