package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/peandrade/ticketflow-sub001/apperrors"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/refund"
	"github.com/stripe/stripe-go/v80/webhook"
	"go.uber.org/zap"
)

// StripeGateway implements PaymentGateway against Stripe Checkout.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	logger        *zap.Logger
}

func NewStripeGateway(secretKey, webhookSecret string, logger *zap.Logger) *StripeGateway {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	return &StripeGateway{secretKey: secretKey, webhookSecret: webhookSecret, logger: logger}
}

func (g *StripeGateway) Available() bool {
	return g.secretKey != ""
}

func (g *StripeGateway) CreateSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error) {
	if !g.Available() {
		return nil, apperrors.ErrProviderUnavailable
	}

	metadata := map[string]string{"order_id": in.OrderID.String()}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(in.SuccessURL),
		CancelURL:     stripe.String(in.CancelURL),
		CustomerEmail: stripe.String(in.UserEmail),
		Metadata:      metadata,
		// The charge inherits order_id so charge.refunded events can be
		// resolved without a session lookup.
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	for _, l := range in.Lines {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(l.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("brl"),
				UnitAmount: stripe.Int64(l.UnitAmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(l.Name),
				},
			},
		})
	}
	params.Context = ctx
	params.SetIdempotencyKey(in.IdempotencyKey)

	sess, err := session.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe checkout session",
			zap.String("order_id", in.OrderID.String()),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(apperrors.ErrProviderUnavailable, err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionState, error) {
	if !g.Available() {
		return nil, apperrors.ErrProviderUnavailable
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent.latest_charge")

	sess, err := session.Get(sessionID, params)
	if err != nil {
		g.logger.Error("Failed to retrieve Stripe checkout session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return nil, apperrors.Wrap(apperrors.ErrRefundFailed, err)
	}

	state := &SessionState{
		ID:          sess.ID,
		URL:         sess.URL,
		Paid:        sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Open:        sess.Status == stripe.CheckoutSessionStatusOpen,
		AmountTotal: sess.AmountTotal,
	}
	if pi := sess.PaymentIntent; pi != nil {
		state.PaymentIntentID = pi.ID
		state.AmountReceived = pi.AmountReceived
		// An unexpanded charge reference carries only the id; without
		// detail there is no dispute/refund information to act on.
		if ch := pi.LatestCharge; ch != nil && (ch.Status != "" || ch.Amount > 0) {
			state.HasCharge = true
			state.ChargeDisputed = ch.Disputed
			state.ChargeRefunded = ch.Refunded
		}
	}
	return state, nil
}

func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	if !g.Available() {
		return apperrors.ErrProviderUnavailable
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Amount:        stripe.Int64(amountCents),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		classified := classifyProviderError(err)
		if errors.Is(classified, apperrors.ErrRefundAlreadyProcessed) {
			g.logger.Info("Stripe reports refund already processed",
				zap.String("payment_intent_id", paymentIntentID),
			)
		} else {
			g.logger.Error("Stripe refund request failed",
				zap.String("payment_intent_id", paymentIntentID),
				zap.Int64("amount_cents", amountCents),
				zap.Error(err),
			)
		}
		return classified
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header against the shared
// webhook secret and returns the decoded event.
func (g *StripeGateway) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	if g.webhookSecret == "" {
		return event, errors.New("webhook secret not configured")
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, g.webhookSecret)
}

// classifyProviderError maps Stripe error codes onto the application
// taxonomy so the refund flow never matches SDK strings itself.
func classifyProviderError(err error) error {
	if err == nil {
		return nil
	}
	var sErr *stripe.Error
	if errors.As(err, &sErr) {
		switch sErr.Code {
		case stripe.ErrorCodeChargeAlreadyRefunded:
			return apperrors.Wrap(apperrors.ErrRefundAlreadyProcessed, err)
		case stripe.ErrorCodeChargeDisputed:
			return apperrors.Wrap(apperrors.ErrChargeDisputed, err)
		}
		msg := strings.ToLower(sErr.Msg)
		if strings.Contains(msg, "already been refunded") || strings.Contains(msg, "refund already exists") {
			return apperrors.Wrap(apperrors.ErrRefundAlreadyProcessed, err)
		}
	}
	return apperrors.Wrap(apperrors.ErrRefundFailed, err)
}
