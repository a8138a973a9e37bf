package service

import (
	"context"
	"database/sql"
	"fmt"
	"storefront-payments/internal/domain"
	"storefront-payments/internal/repo"
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderService interface {
	CreateOrder(ctx context.Context, shippingFee float64) (*domain.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	db        *sql.DB
	orderRepo repo.OrderRepo
	now       func() time.Time
}

func NewOrderService(db *sql.DB, orderRepo repo.OrderRepo) OrderService {
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		now:       time.Now,
	}
}

// CreateOrder stores a pending, unpaid order.
func (s *orderService) CreateOrder(ctx context.Context, shippingFee float64) (*domain.Order, error) {
	if shippingFee < 0 {
		return nil, fmt.Errorf("shipping fee must not be negative: %v", shippingFee)
	}

	now := s.now()
	id := uuid.New()
	order := &domain.Order{
		ID:          id,
		OrderNumber: OrderNumber(now, id),
		Status:      domain.OrderPending,
		ShippingFee: shippingFee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindById(ctx, id)
}

// OrderNumber formats the customer facing order number, e.g. ORD-20240131-1A2B3C4D.
func OrderNumber(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("ORD-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(id.String()[:8]))
}
