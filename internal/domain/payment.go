package domain

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
	PaymentPending PaymentStatus = "pending"
)

// allowedFrom lists, per target status, the current payment statuses an
// order may hold for a webhook to overwrite it. An order with no payment
// status yet accepts any target.
var allowedFrom = map[PaymentStatus][]PaymentStatus{
	PaymentPaid:    {PaymentPending, PaymentFailed, PaymentPaid},
	PaymentFailed:  {PaymentPending, PaymentFailed},
	PaymentPending: {PaymentPending},
}

// AllowedFrom returns the payment statuses that target may overwrite.
func AllowedFrom(target PaymentStatus) []PaymentStatus {
	return append([]PaymentStatus(nil), allowedFrom[target]...)
}

// CanTransition reports whether an order currently at from (nil when the
// order has never been paid for) may move to target.
func CanTransition(from *PaymentStatus, target PaymentStatus) bool {
	if _, ok := allowedFrom[target]; !ok {
		return false
	}
	if from == nil {
		return true
	}
	for _, s := range allowedFrom[target] {
		if s == *from {
			return true
		}
	}
	return false
}
