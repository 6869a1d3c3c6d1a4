package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/models"
	"github.com/peandrade/ticketflow-sub001/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartLine is one client-submitted cart entry. Prices are never taken
// from the client; each line is re-priced against its variant row.
type CartLine struct {
	TicketTypeID uuid.UUID
	VariantID    uuid.UUID
	Quantity     int
}

// CheckoutService opens orders and hands users to the provider's
// hosted checkout, and resumes unfinished orders.
type CheckoutService interface {
	Start(ctx context.Context, userEmail string, lines []CartLine) (string, error)
	Resume(ctx context.Context, userEmail string, orderID uuid.UUID) (string, error)
}

type checkoutService struct {
	orders      repository.OrderRepository
	variants    repository.VariantRepository
	gateway     PaymentGateway
	cache       OrderCache
	events      EventPublisher
	frontendURL string
	logger      *zap.Logger
}

func NewCheckoutService(
	orders repository.OrderRepository,
	variants repository.VariantRepository,
	gateway PaymentGateway,
	cache OrderCache,
	events EventPublisher,
	frontendURL string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		orders:      orders,
		variants:    variants,
		gateway:     gateway,
		cache:       cache,
		events:      events,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

var variantKindLabels = map[string]string{
	"full":          "Inteira",
	"half":          "Meia-entrada",
	"elderly":       "Idoso",
	"accessibility": "Acessibilidade",
}

func (s *checkoutService) Start(ctx context.Context, userEmail string, lines []CartLine) (string, error) {
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return "", apperrors.ErrUnauthenticated
	}
	if len(lines) == 0 {
		return "", apperrors.ErrEmptyCart
	}

	order := &models.Order{
		ID:        uuid.New(),
		UserEmail: email,
		Status:    models.OrderCreated,
	}
	sessionLines := make([]SessionLine, 0, len(lines))

	for _, line := range lines {
		if line.Quantity <= 0 {
			return "", apperrors.ErrInvalidCart
		}
		variant, err := s.variants.FindByID(ctx, line.VariantID)
		if errors.Is(err, repository.ErrVariantNotFound) {
			return "", apperrors.ErrInvalidCart
		}
		if err != nil {
			s.logger.Error("Failed to load ticket variant",
				zap.String("variant_id", line.VariantID.String()),
				zap.Error(err),
			)
			return "", apperrors.Wrap(apperrors.ErrPersist, err)
		}
		if !variant.Active || variant.TicketTypeID != line.TicketTypeID {
			return "", apperrors.ErrInvalidCart
		}

		order.TotalCents += (variant.PriceCents + variant.FeeCents) * line.Quantity
		order.Items = append(order.Items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			TicketTypeID:   variant.TicketTypeID,
			VariantID:      variant.ID,
			Quantity:       line.Quantity,
			UnitPriceCents: variant.PriceCents,
			FeeCents:       variant.FeeCents,
		})

		name := variantKindLabels[variant.Kind]
		if name == "" {
			name = "Ingresso"
		}
		sessionLines = append(sessionLines, SessionLine{
			Name:            name,
			UnitAmountCents: int64(variant.PriceCents + variant.FeeCents),
			Quantity:        int64(line.Quantity),
		})
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, apperrors.ErrInsufficientStock) {
			return "", apperrors.ErrInsufficientStock
		}
		s.logger.Error("Failed to create order",
			zap.String("user_email", email),
			zap.Error(err),
		)
		return "", apperrors.Wrap(apperrors.ErrPersist, err)
	}

	url, err := s.openSession(ctx, order, sessionLines, checkoutIdempotencyKey(order.ID))
	if err != nil {
		return "", err
	}
	s.cache.Invalidate(ctx, order.ID, email)
	return url, nil
}

func (s *checkoutService) Resume(ctx context.Context, userEmail string, orderID uuid.UUID) (string, error) {
	email := strings.ToLower(strings.TrimSpace(userEmail))
	if email == "" {
		return "", apperrors.ErrUnauthenticated
	}

	order, err := s.orders.FindByIDAndEmail(ctx, orderID, email)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return "", apperrors.ErrOrderNotFound
	}
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrPersist, err)
	}

	if order.Status == models.OrderPaid {
		return s.successURL(order.ID), nil
	}

	if order.StripeSessionID != nil && s.gateway.Available() {
		state, err := s.gateway.RetrieveSession(ctx, *order.StripeSessionID)
		if err != nil {
			s.logger.Warn("Failed to retrieve session on resume, creating a fresh one",
				zap.String("order_id", order.ID.String()),
				zap.Error(err),
			)
		} else {
			if state.Paid {
				changed, err := s.orders.UpdateStatusIf(ctx, order.ID, models.OrderPaid, models.OrderCreated, models.OrderFailed)
				if err != nil {
					return "", apperrors.Wrap(apperrors.ErrPersist, err)
				}
				if changed {
					s.afterTransition(ctx, order, "order_paid")
				}
				return s.successURL(order.ID), nil
			}
			if state.Open && state.URL != "" {
				return state.URL, nil
			}
		}
	}

	// Session expired, never created, or unusable: open a fresh one
	// under a resume-qualified key so it cannot collide with the
	// original create.
	return s.openSession(ctx, order, sessionLinesFromItems(order.Items), checkoutIdempotencyKey(order.ID)+":resume")
}

func sessionLinesFromItems(items []models.OrderItem) []SessionLine {
	lines := make([]SessionLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, SessionLine{
			Name:            "Ingresso",
			UnitAmountCents: int64(item.UnitPriceCents + item.FeeCents),
			Quantity:        int64(item.Quantity),
		})
	}
	return lines
}

func (s *checkoutService) openSession(ctx context.Context, order *models.Order, sessionLines []SessionLine, idempotencyKey string) (string, error) {
	if !s.gateway.Available() {
		s.logger.Warn("Payment provider unavailable, cannot open checkout session",
			zap.String("order_id", order.ID.String()),
		)
		return "", apperrors.ErrProviderUnavailable
	}

	sess, err := s.gateway.CreateSession(ctx, CreateSessionInput{
		OrderID:        order.ID,
		UserEmail:      order.UserEmail,
		Lines:          sessionLines,
		SuccessURL:     s.successURL(order.ID),
		CancelURL:      fmt.Sprintf("%s/orders/%s/cancel", s.frontendURL, order.ID),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return "", err
	}

	if err := s.orders.SetStripeSession(ctx, order.ID, sess.ID); err != nil {
		s.logger.Error("Failed to persist session id on order",
			zap.String("order_id", order.ID.String()),
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
		return "", apperrors.Wrap(apperrors.ErrPersist, err)
	}
	return sess.URL, nil
}

func (s *checkoutService) afterTransition(ctx context.Context, order *models.Order, eventType string) {
	s.cache.Invalidate(ctx, order.ID, order.UserEmail)
	if err := s.events.Publish(ctx, models.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID.String(),
		UserEmail:  order.UserEmail,
		TotalCents: order.TotalCents,
	}); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *checkoutService) successURL(orderID uuid.UUID) string {
	return fmt.Sprintf("%s/orders/%s/success", s.frontendURL, orderID)
}

func checkoutIdempotencyKey(orderID uuid.UUID) string {
	return "checkout:order:" + orderID.String()
}
