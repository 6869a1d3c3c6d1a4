package models

import "time"

// OrderEvent is the lifecycle notification published after a status
// transition. Publishing is best-effort and never fails the request
// that triggered it.
type OrderEvent struct {
	Type       string    `json:"type"` // order_paid, order_payment_failed, order_refunded
	OrderID    string    `json:"order_id"`
	UserEmail  string    `json:"user_email"`
	TotalCents int       `json:"total_cents"`
	Timestamp  time.Time `json:"timestamp"`
}
