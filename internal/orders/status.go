package orders

type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusPaid    PaymentStatus = "PAID"
	StatusFailed  PaymentStatus = "FAILED"
)

// PaymentMethodInvoice is the only payment method: a hosted gateway invoice.
const PaymentMethodInvoice = "INVOICE"

var validNext = map[PaymentStatus]map[PaymentStatus]bool{
	StatusPending: {StatusPaid: true, StatusFailed: true},
	StatusPaid:    {},
	StatusFailed:  {},
}

func CanTransition(from, to PaymentStatus) bool {
	return validNext[from][to]
}

func (s PaymentStatus) Terminal() bool {
	return s == StatusPaid || s == StatusFailed
}
