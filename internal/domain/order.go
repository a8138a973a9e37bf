package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderInTransit OrderStatus = "in_transit"
	OrderComplete  OrderStatus = "complete"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID                   uuid.UUID
	OrderNumber          string
	Status               OrderStatus
	PaymentStatus        *PaymentStatus
	PaymentReference     *string
	ShippingFee          float64
	ShippingFeeConfirmed bool
	CompletedAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
