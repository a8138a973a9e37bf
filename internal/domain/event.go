package domain

// EventType is the gateway's webhook event tag.
type EventType string

const (
	EventPaymentPaid    EventType = "payment.paid"
	EventPaymentFailed  EventType = "payment.failed"
	EventPaymentPending EventType = "payment.pending"
)

// PaymentStatus maps a payment event to the status it records on an order.
func (t EventType) PaymentStatus() (PaymentStatus, bool) {
	switch t {
	case EventPaymentPaid:
		return PaymentPaid, true
	case EventPaymentFailed:
		return PaymentFailed, true
	case EventPaymentPending:
		return PaymentPending, true
	}
	return "", false
}
