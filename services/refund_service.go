package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/clock"
	"github.com/peandrade/ticketflow-sub001/models"
	"github.com/peandrade/ticketflow-sub001/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RefundService reconciles a refund across the payment provider, the
// order store and the inventory ledger. A nil return means the order
// is refunded locally; every failure is a typed apperrors value whose
// message is safe to show the user.
type RefundService interface {
	RequestRefund(ctx context.Context, userEmail string, orderID uuid.UUID) error
}

type refundService struct {
	orders  repository.OrderRepository
	gateway PaymentGateway
	cache   OrderCache
	events  EventPublisher
	clock   clock.Clock
	logger  *zap.Logger
}

func NewRefundService(
	orders repository.OrderRepository,
	gateway PaymentGateway,
	cache OrderCache,
	events EventPublisher,
	clk clock.Clock,
	logger *zap.Logger,
) RefundService {
	return &refundService{
		orders:  orders,
		gateway: gateway,
		cache:   cache,
		events:  events,
		clock:   clk,
		logger:  logger,
	}
}

func (s *refundService) RequestRefund(ctx context.Context, userEmail string, orderID uuid.UUID) error {
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return apperrors.ErrUnauthenticated
	}

	order, err := s.orders.FindByIDAndEmail(ctx, orderID, email)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return apperrors.ErrOrderNotFound
	}
	if err != nil {
		s.logger.Error("Failed to load order for refund",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		return apperrors.Wrap(apperrors.ErrRefundFinalize, err)
	}

	performanceStart, err := s.orders.EarliestPerformanceStart(ctx, order.ID)
	if err != nil {
		s.logger.Error("Failed to resolve performance start for refund",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
		return apperrors.Wrap(apperrors.ErrRefundFinalize, err)
	}

	decision := EvaluateRefund(order.Status, order.Items, performanceStart, s.clock.Now())
	if !decision.OK {
		return apperrors.New(http.StatusUnprocessableEntity, decision.Reason, nil)
	}

	// moneyMoved tracks whether funds have (or already had) moved at
	// the provider; it decides which error surfaces if the local
	// finalize transaction fails afterwards.
	moneyMoved := false

	if s.gateway.Available() && order.StripeSessionID != nil {
		moneyMoved, err = s.reconcileWithProvider(ctx, order)
		if err != nil {
			return err
		}
	} else {
		s.logger.Warn("Payment provider unavailable or no session on order, finalizing refund locally only",
			zap.String("order_id", order.ID.String()),
			zap.Bool("gateway_available", s.gateway.Available()),
		)
	}

	if _, err := s.orders.FinalizeRefund(ctx, order.ID, decision.Restock); err != nil {
		s.logger.Error("Refund finalize transaction failed",
			zap.String("order_id", order.ID.String()),
			zap.Bool("money_moved", moneyMoved),
			zap.Error(err),
		)
		if moneyMoved {
			return apperrors.Wrap(apperrors.ErrRefundNeedsSupport, err)
		}
		return apperrors.Wrap(apperrors.ErrRefundFinalize, err)
	}

	s.cache.Invalidate(ctx, order.ID, email)
	if err := s.events.Publish(ctx, models.OrderEvent{
		Type:       "order_refunded",
		OrderID:    order.ID.String(),
		UserEmail:  email,
		TotalCents: order.TotalCents,
	}); err != nil {
		s.logger.Warn("Failed to publish refund event",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// reconcileWithProvider inspects live charge state and issues the
// refund when one is still owed. It returns whether money moved at the
// provider (either by this call or before it). No database writes
// happen here: a dispute aborts the whole operation untouched.
func (s *refundService) reconcileWithProvider(ctx context.Context, order *models.Order) (bool, error) {
	state, err := s.gateway.RetrieveSession(ctx, *order.StripeSessionID)
	if err != nil {
		s.logger.Error("Failed to retrieve session state for refund",
			zap.String("order_id", order.ID.String()),
			zap.String("session_id", *order.StripeSessionID),
			zap.Error(err),
		)
		return false, apperrors.Wrap(apperrors.ErrRefundFailed, err)
	}

	if state.HasCharge && state.ChargeDisputed {
		return false, apperrors.ErrChargeDisputed
	}
	if state.HasCharge && state.ChargeRefunded {
		return true, nil
	}
	if state.PaymentIntentID == "" {
		// Session created but never paid: nothing to refund at the
		// provider, finalize locally.
		s.logger.Warn("Order session has no payment intent, skipping provider refund",
			zap.String("order_id", order.ID.String()),
		)
		return false, nil
	}

	amount := refundAmountCents(int64(order.TotalCents), state)
	err = s.gateway.CreateRefund(ctx, state.PaymentIntentID, amount)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, apperrors.ErrChargeDisputed):
		return false, apperrors.ErrChargeDisputed
	case errors.Is(err, apperrors.ErrRefundAlreadyProcessed):
		return true, nil
	default:
		s.logger.Error("Provider refund request failed",
			zap.String("order_id", order.ID.String()),
			zap.String("payment_intent_id", state.PaymentIntentID),
			zap.Int64("amount_cents", amount),
			zap.Error(err),
		)
		return false, apperrors.Wrap(apperrors.ErrRefundFailed, err)
	}
}

// refundAmountCents caps the refund at what the provider actually
// received: min(order total, amountReceived ?? sessionAmountTotal ??
// order total), with zero meaning unknown.
func refundAmountCents(totalCents int64, state *SessionState) int64 {
	amount := totalCents
	switch {
	case state.AmountReceived > 0:
		if state.AmountReceived < amount {
			amount = state.AmountReceived
		}
	case state.AmountTotal > 0:
		if state.AmountTotal < amount {
			amount = state.AmountTotal
		}
	}
	return amount
}
