package services

import (
	"context"

	"github.com/peandrade/ticketflow-sub001/apperrors"

	"github.com/google/uuid"
)

// SessionLine is one priced line of a checkout session. UnitAmountCents
// is the charged unit price (ticket price plus fee).
type SessionLine struct {
	Name            string
	UnitAmountCents int64
	Quantity        int64
}

type CreateSessionInput struct {
	OrderID    uuid.UUID
	UserEmail  string
	Lines      []SessionLine
	SuccessURL string
	CancelURL  string
	// IdempotencyKey is derived from the order id so a retried request
	// returns the original session instead of creating a duplicate.
	IdempotencyKey string
}

type CheckoutSession struct {
	ID  string
	URL string
}

// SessionState is a provider-neutral snapshot of a checkout session
// expanded down to its latest charge. Zero AmountReceived/AmountTotal
// mean "unknown". HasCharge reports whether charge detail was actually
// returned: an unexpanded charge reference carries no dispute or
// refund information and is treated as such.
type SessionState struct {
	ID              string
	URL             string
	Paid            bool
	Open            bool
	AmountTotal     int64
	PaymentIntentID string
	AmountReceived  int64
	HasCharge       bool
	ChargeDisputed  bool
	ChargeRefunded  bool
}

// PaymentGateway wraps the external payment provider. All operations
// are safely retryable; CreateRefund reports "already refunded" as
// apperrors.ErrRefundAlreadyProcessed and disputes as
// apperrors.ErrChargeDisputed.
type PaymentGateway interface {
	Available() bool
	CreateSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionState, error)
	CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64) error
}

// UnavailableGateway is the null implementation used when no provider
// credentials are configured. Callers degrade to DB-only bookkeeping.
type UnavailableGateway struct{}

func (UnavailableGateway) Available() bool { return false }

func (UnavailableGateway) CreateSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error) {
	return nil, apperrors.ErrProviderUnavailable
}

func (UnavailableGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionState, error) {
	return nil, apperrors.ErrProviderUnavailable
}

func (UnavailableGateway) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	return apperrors.ErrProviderUnavailable
}
