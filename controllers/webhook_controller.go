package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/peandrade/ticketflow-sub001/models"
	"github.com/peandrade/ticketflow-sub001/repository"
	"github.com/peandrade/ticketflow-sub001/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// WebhookParser verifies a webhook request's signature and decodes the
// event. Implemented by services.StripeGateway.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (stripe.Event, error)
}

// errMalformedEvent marks a verified event whose payload could not be
// decoded; the provider should not retry it.
var errMalformedEvent = errors.New("malformed event payload")

// WebhookController applies asynchronous payment outcomes to orders.
// Every update is a guarded conditional transition, so at-least-once
// and out-of-order delivery are safe: a duplicate event is a no-op and
// a late failure can never downgrade a paid order.
type WebhookController struct {
	Parser WebhookParser
	Orders repository.OrderRepository
	Cache  services.OrderCache
	Events services.EventPublisher
	Logger *zap.Logger
}

func (wc *WebhookController) HandleStripeWebhook(c *gin.Context) {
	event, err := wc.Parser.ParseWebhook(c.Request)
	if err != nil {
		wc.Logger.Warn("Stripe webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	wc.Logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	ctx := c.Request.Context()

	switch event.Type {
	case "checkout.session.completed":
		err = wc.handleCheckoutCompleted(ctx, event)
	case "payment_intent.payment_failed":
		err = wc.handlePaymentFailed(ctx, event)
	case "charge.refunded":
		err = wc.handleChargeRefunded(ctx, event)
	default:
		wc.Logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}

	if errors.Is(err, errMalformedEvent) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err != nil {
		// 500 so the provider retries; safe because every transition
		// above is guarded and idempotent.
		wc.Logger.Error("Failed to apply webhook event",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply event"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (wc *WebhookController) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return errMalformedEvent
	}

	orderID, ok, err := wc.resolveOrderID(ctx, sess.Metadata, sess.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	changed, err := wc.Orders.UpdateStatusIf(ctx, orderID, models.OrderPaid, models.OrderCreated, models.OrderFailed)
	if err != nil {
		return err
	}
	if changed {
		wc.afterTransition(ctx, orderID, "order_paid")
	} else {
		wc.Logger.Info("Skipping duplicate checkout webhook", zap.String("order_id", orderID.String()))
	}
	return nil
}

func (wc *WebhookController) handlePaymentFailed(ctx context.Context, event stripe.Event) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return errMalformedEvent
	}

	orderID, ok, err := wc.resolveOrderID(ctx, pi.Metadata, "")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// A late failure notification must never downgrade a paid order.
	changed, err := wc.Orders.UpdateStatusIfNot(ctx, orderID, models.OrderFailed, models.OrderPaid)
	if err != nil {
		return err
	}
	if changed {
		wc.afterTransition(ctx, orderID, "order_payment_failed")
	}
	return nil
}

func (wc *WebhookController) handleChargeRefunded(ctx context.Context, event stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return errMalformedEvent
	}

	orderID, ok, err := wc.resolveOrderID(ctx, charge.Metadata, "")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	// The provider is authoritative here: the money already moved.
	if err := wc.Orders.SetStatus(ctx, orderID, models.OrderRefunded); err != nil {
		return err
	}
	wc.afterTransition(ctx, orderID, "order_refunded")
	return nil
}

// resolveOrderID finds the target order from event metadata, falling
// back to the session id when the metadata carries none. An event
// that definitively matches no order is acknowledged without action so
// the provider stops retrying it; a lookup infrastructure failure is
// returned as an error so the handler answers 500 and the provider
// redelivers.
func (wc *WebhookController) resolveOrderID(ctx context.Context, metadata map[string]string, sessionID string) (uuid.UUID, bool, error) {
	if raw := metadata["order_id"]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			wc.Logger.Warn("Webhook metadata carries invalid order id", zap.String("order_id", raw))
			return uuid.Nil, false, nil
		}
		return id, true, nil
	}

	if sessionID != "" {
		id, err := wc.Orders.FindIDByStripeSession(ctx, sessionID)
		if err == nil {
			return id, true, nil
		}
		if errors.Is(err, repository.ErrOrderNotFound) {
			wc.Logger.Warn("No order found for webhook session",
				zap.String("session_id", sessionID),
			)
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}

	wc.Logger.Warn("Webhook event carries no resolvable order id")
	return uuid.Nil, false, nil
}

func (wc *WebhookController) afterTransition(ctx context.Context, orderID uuid.UUID, eventType string) {
	order, err := wc.Orders.FindByID(ctx, orderID)
	if err != nil {
		wc.Logger.Warn("Failed to load order after webhook transition",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
		wc.Cache.Invalidate(ctx, orderID, "")
		return
	}

	wc.Cache.Invalidate(ctx, orderID, order.UserEmail)
	if err := wc.Events.Publish(ctx, models.OrderEvent{
		Type:       eventType,
		OrderID:    orderID.String(),
		UserEmail:  order.UserEmail,
		TotalCents: order.TotalCents,
	}); err != nil {
		wc.Logger.Warn("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)
	}
}
