package domain

import "time"

// OrderStatus is the closed status enumeration used by the order history.
// Unknown strings coming from the backend are mapped to StatusPending; an
// unrecognized status must never be fatal.
type OrderStatus string

const (
	StatusAwaitingPayment OrderStatus = "awaiting_payment"
	StatusPending         OrderStatus = "pending"
	StatusPaid            OrderStatus = "paid"
	StatusShipped         OrderStatus = "shipped"
	StatusDelivered       OrderStatus = "delivered"
	StatusSigeRegistered  OrderStatus = "sige_registered"
	StatusConfirmed       OrderStatus = "confirmed"
	StatusCancelled       OrderStatus = "cancelled"
)

// KnownOrderStatus reports whether s names a status of the enumeration.
func KnownOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case StatusAwaitingPayment, StatusPending, StatusPaid, StatusShipped,
		StatusDelivered, StatusSigeRegistered, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// ParseOrderStatus maps an arbitrary backend status string onto the closed
// enumeration, falling open to pending for anything unrecognized.
func ParseOrderStatus(s string) OrderStatus {
	if KnownOrderStatus(s) {
		return OrderStatus(s)
	}
	return StatusPending
}

// Trackable reports whether tracking UI and review submission are enabled
// for this status.
func (s OrderStatus) Trackable() bool {
	switch s {
	case StatusPaid, StatusShipped, StatusDelivered, StatusSigeRegistered, StatusConfirmed:
		return true
	}
	return false
}

// StatusKind groups statuses for display purposes.
type StatusKind string

const (
	KindTrackable        StatusKind = "trackable"
	KindInProgress       StatusKind = "in_progress"
	KindTerminalNegative StatusKind = "terminal_negative"
)

// Kind returns the display grouping for a status.
func (s OrderStatus) Kind() StatusKind {
	switch {
	case s.Trackable():
		return KindTrackable
	case s == StatusCancelled:
		return KindTerminalNegative
	default:
		return KindInProgress
	}
}

// OrderItem is one line of an order.
type OrderItem struct {
	SKU      string  `json:"sku"`
	Titulo   string  `json:"titulo"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is a read-only projection returned by the fulfillment collaborator.
type Order struct {
	LocalOrderID    string      `json:"local_order_id"`
	OrderID         string      `json:"order_id,omitempty"`
	TransactionID   string      `json:"transaction_id,omitempty"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	ShippingAddress *Address    `json:"shipping_address,omitempty"`
	ShippingOption  string      `json:"shipping_option,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Review moderation statuses are server-owned; the client never
// transitions them.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Review is one product review by the customer.
type Review struct {
	ID             string    `json:"id"`
	SKU            string    `json:"sku"`
	Rating         int       `json:"rating"`
	Comment        string    `json:"comment,omitempty"`
	Images         []string  `json:"images,omitempty"`
	Status         string    `json:"status"`
	ModerationNote string    `json:"moderation_note,omitempty"`
	Helpful        int       `json:"helpful"`
	CreatedAt      time.Time `json:"created_at"`
}
