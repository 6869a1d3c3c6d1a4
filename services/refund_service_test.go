package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/clock"
	"github.com/peandrade/ticketflow-sub001/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func paidOrder(sessionID string) *models.Order {
	id := uuid.New()
	vip := uuid.New()
	order := &models.Order{
		ID:         id,
		UserEmail:  "ana@example.com",
		TotalCents: 3000,
		Status:     models.OrderPaid,
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: id, TicketTypeID: vip, Quantity: 2, UnitPriceCents: 1400, FeeCents: 100},
		},
	}
	if sessionID != "" {
		order.StripeSessionID = &sessionID
	}
	return order
}

func newRefundService(repo *mockOrderRepo, gw *mockGateway, pub *mockPublisher) RefundService {
	return NewRefundService(repo, gw, NopOrderCache{}, pub, clock.NewFixed(testNow), zap.NewNop())
}

func TestRequestRefund_HappyPath(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{
		available: true,
		state: &SessionState{
			ID:              "cs_1",
			PaymentIntentID: "pi_1",
			AmountReceived:  2500,
			HasCharge:       true,
		},
	}
	pub := &mockPublisher{}

	err := newRefundService(repo, gw, pub).RequestRefund(context.Background(), "Ana@Example.com", order.ID)
	require.NoError(t, err)

	// refund capped at what the provider received
	assert.Equal(t, 1, gw.refundCalls)
	assert.Equal(t, "pi_1", gw.refundPI)
	assert.Equal(t, int64(2500), gw.refundAmount)

	require.Equal(t, 1, repo.finalizeCalls)
	assert.Equal(t, order.ID, repo.finalizeOrderID)
	require.Len(t, repo.finalizeRestock, 1)
	assert.Equal(t, order.Items[0].TicketTypeID, repo.finalizeRestock[0].TicketTypeID)
	assert.Equal(t, 2, repo.finalizeRestock[0].Quantity)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "order_refunded", pub.events[0].Type)
}

func TestRequestRefund_EventAlreadyStarted(t *testing.T) {
	order := paidOrder("cs_1")
	yesterday := testNow.Add(-24 * time.Hour)
	repo := &mockOrderRepo{order: order, perfStart: &yesterday}
	gw := &mockGateway{available: true}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	require.Error(t, err)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ReasonEventHasStarted, appErr.Message)

	// no provider call, no side effects
	assert.Zero(t, gw.retrieveCalls)
	assert.Zero(t, repo.finalizeCalls)
}

func TestRequestRefund_NotPaid(t *testing.T) {
	order := paidOrder("cs_1")
	order.Status = models.OrderCreated
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{available: true}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, ReasonOrderNotPaid, appErr.Message)
	assert.Zero(t, repo.finalizeCalls)
}

func TestRequestRefund_OwnershipMismatch(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{available: true}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), "someone-else@example.com", order.ID)
	assert.ErrorIs(t, err, apperrors.ErrOrderNotFound)
}

func TestRequestRefund_ProviderUnavailable_FinalizesLocally(t *testing.T) {
	order := paidOrder("")
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{available: false}
	pub := &mockPublisher{}

	err := newRefundService(repo, gw, pub).RequestRefund(context.Background(), order.UserEmail, order.ID)
	require.NoError(t, err)

	assert.Zero(t, gw.retrieveCalls)
	assert.Zero(t, gw.refundCalls)
	assert.Equal(t, 1, repo.finalizeCalls)
}

func TestRequestRefund_Disputed_NoWrites(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{
		available: true,
		state: &SessionState{
			PaymentIntentID: "pi_1",
			HasCharge:       true,
			ChargeDisputed:  true,
		},
	}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrChargeDisputed)
	assert.Zero(t, gw.refundCalls)
	assert.Zero(t, repo.finalizeCalls)
}

func TestRequestRefund_DisputeReportedByRefundCall(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{
		available: true,
		state:     &SessionState{PaymentIntentID: "pi_1", HasCharge: true},
		refundErr: apperrors.ErrChargeDisputed,
	}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrChargeDisputed)
	assert.Zero(t, repo.finalizeCalls)
}

func TestRequestRefund_AlreadyRefundedAtProvider(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{
		available: true,
		state: &SessionState{
			PaymentIntentID: "pi_1",
			HasCharge:       true,
			ChargeRefunded:  true,
		},
	}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	require.NoError(t, err)
	assert.Zero(t, gw.refundCalls)
	assert.Equal(t, 1, repo.finalizeCalls)
}

func TestRequestRefund_NoPaymentIntent_FinalizesLocally(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	// session created but never paid
	gw := &mockGateway{available: true, state: &SessionState{ID: "cs_1"}}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	require.NoError(t, err)
	assert.Zero(t, gw.refundCalls)
	assert.Equal(t, 1, repo.finalizeCalls)
}

func TestRequestRefund_BareChargeReference_ProceedsToRefund(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	// HasCharge false: the provider returned only a charge reference,
	// so there is no dispute/refund information to act on.
	gw := &mockGateway{
		available: true,
		state:     &SessionState{PaymentIntentID: "pi_1", AmountReceived: 3000},
	}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gw.refundCalls)
	assert.Equal(t, 1, repo.finalizeCalls)
}

func TestRequestRefund_RefundExistsAndFinalizeFails_SupportMessage(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order, finalizeErr: errors.New("deadlock detected")}
	gw := &mockGateway{
		available: true,
		state:     &SessionState{PaymentIntentID: "pi_1", HasCharge: true},
		refundErr: apperrors.ErrRefundAlreadyProcessed,
	}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrRefundNeedsSupport)
}

func TestRequestRefund_RefundIssuedAndFinalizeFails_SupportMessage(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order, finalizeErr: errors.New("connection reset")}
	gw := &mockGateway{
		available: true,
		state:     &SessionState{PaymentIntentID: "pi_1", AmountReceived: 3000, HasCharge: true},
	}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrRefundNeedsSupport)
}

func TestRequestRefund_FinalizeFailsWithoutProviderAction_GenericMessage(t *testing.T) {
	order := paidOrder("")
	repo := &mockOrderRepo{order: order, finalizeErr: errors.New("connection reset")}
	gw := &mockGateway{available: false}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrRefundFinalize)
	assert.NotErrorIs(t, err, apperrors.ErrRefundNeedsSupport)
}

func TestRequestRefund_TransientProviderFailure_NoWrites(t *testing.T) {
	order := paidOrder("cs_1")
	repo := &mockOrderRepo{order: order}
	gw := &mockGateway{
		available: true,
		state:     &SessionState{PaymentIntentID: "pi_1", HasCharge: true},
		refundErr: apperrors.Wrap(apperrors.ErrRefundFailed, errors.New("api_connection_error")),
	}

	err := newRefundService(repo, gw, &mockPublisher{}).RequestRefund(context.Background(), order.UserEmail, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrRefundFailed)
	assert.Zero(t, repo.finalizeCalls)
}

func TestRefundAmountCents(t *testing.T) {
	cases := []struct {
		name  string
		total int64
		state SessionState
		want  int64
	}{
		{"received below total", 3000, SessionState{AmountReceived: 2500}, 2500},
		{"received above total", 3000, SessionState{AmountReceived: 4000}, 3000},
		{"no received, session total below", 3000, SessionState{AmountTotal: 2800}, 2800},
		{"no provider amounts", 3000, SessionState{}, 3000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, refundAmountCents(tc.total, &tc.state))
		})
	}
}
