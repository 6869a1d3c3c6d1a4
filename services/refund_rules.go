package services

import (
	"time"

	"github.com/peandrade/ticketflow-sub001/models"
)

// Refund eligibility reasons, surfaced verbatim to the user.
const (
	ReasonOrderNotPaid    = "Pedido não está pago."
	ReasonEventHasStarted = "O evento já ocorreu ou está em andamento."
)

// RefundDecision is the transient outcome of the eligibility rule,
// consumed immediately by the refund flow and never persisted.
type RefundDecision struct {
	OK      bool
	Reason  string
	Restock []models.RestockLine
}

// EvaluateRefund is the pure eligibility rule. It depends only on the
// order status, its items and the linked performance start relative to
// now; provider state never enters the decision. An order without a
// known performance start is refundable.
func EvaluateRefund(status models.OrderStatus, items []models.OrderItem, performanceStart *time.Time, now time.Time) RefundDecision {
	if status != models.OrderPaid {
		return RefundDecision{Reason: ReasonOrderNotPaid}
	}
	if performanceStart != nil && !performanceStart.After(now) {
		return RefundDecision{Reason: ReasonEventHasStarted}
	}

	restock := make([]models.RestockLine, 0, len(items))
	for _, item := range items {
		restock = append(restock, models.RestockLine{
			TicketTypeID: item.TicketTypeID,
			Quantity:     item.Quantity,
		})
	}
	return RefundDecision{OK: true, Restock: restock}
}
