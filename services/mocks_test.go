package services

import (
	"context"
	"time"

	"github.com/peandrade/ticketflow-sub001/models"
	"github.com/peandrade/ticketflow-sub001/repository"

	"github.com/google/uuid"
)

// mockOrderRepo implements repository.OrderRepository for service tests.
type mockOrderRepo struct {
	order   *models.Order
	findErr error

	perfStart *time.Time
	perfErr   error

	createdOrder *models.Order
	createErr    error

	sessionOrderID uuid.UUID
	sessionID      string
	setSessionErr  error

	updateIfResult bool
	updateIfErr    error
	updateIfCalls  int
	updateIfTo     models.OrderStatus
	updateIfFrom   []models.OrderStatus

	finalizeErr     error
	finalizeCalls   int
	finalizeOrderID uuid.UUID
	finalizeRestock []models.RestockLine
}

func (m *mockOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.createdOrder = order
	return nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.order == nil {
		return nil, repository.ErrOrderNotFound
	}
	return m.order, nil
}

func (m *mockOrderRepo) FindByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (*models.Order, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.order == nil || m.order.UserEmail != email {
		return nil, repository.ErrOrderNotFound
	}
	return m.order, nil
}

func (m *mockOrderRepo) FindByEmail(ctx context.Context, email string) ([]models.Order, error) {
	if m.order == nil {
		return nil, nil
	}
	return []models.Order{*m.order}, nil
}

func (m *mockOrderRepo) FindIDByStripeSession(ctx context.Context, sessionID string) (uuid.UUID, error) {
	if m.order == nil {
		return uuid.Nil, repository.ErrOrderNotFound
	}
	return m.order.ID, nil
}

func (m *mockOrderRepo) SetStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	if m.setSessionErr != nil {
		return m.setSessionErr
	}
	m.sessionOrderID = id
	m.sessionID = sessionID
	return nil
}

func (m *mockOrderRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) (bool, error) {
	m.updateIfCalls++
	m.updateIfTo = to
	m.updateIfFrom = from
	return m.updateIfResult, m.updateIfErr
}

func (m *mockOrderRepo) UpdateStatusIfNot(ctx context.Context, id uuid.UUID, to models.OrderStatus, notFrom ...models.OrderStatus) (bool, error) {
	return false, nil
}

func (m *mockOrderRepo) SetStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) error {
	return nil
}

func (m *mockOrderRepo) EarliestPerformanceStart(ctx context.Context, orderID uuid.UUID) (*time.Time, error) {
	return m.perfStart, m.perfErr
}

func (m *mockOrderRepo) FinalizeRefund(ctx context.Context, orderID uuid.UUID, restock []models.RestockLine) (bool, error) {
	m.finalizeCalls++
	m.finalizeOrderID = orderID
	m.finalizeRestock = restock
	if m.finalizeErr != nil {
		return false, m.finalizeErr
	}
	return true, nil
}

// mockGateway implements PaymentGateway for service tests.
type mockGateway struct {
	available bool

	state         *SessionState
	retrieveErr   error
	retrieveCalls int

	refundErr    error
	refundCalls  int
	refundPI     string
	refundAmount int64

	createFn    func(in CreateSessionInput) (*CheckoutSession, error)
	createCalls int
	createInput CreateSessionInput
}

func (m *mockGateway) Available() bool { return m.available }

func (m *mockGateway) CreateSession(ctx context.Context, in CreateSessionInput) (*CheckoutSession, error) {
	m.createCalls++
	m.createInput = in
	if m.createFn != nil {
		return m.createFn(in)
	}
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

func (m *mockGateway) RetrieveSession(ctx context.Context, sessionID string) (*SessionState, error) {
	m.retrieveCalls++
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	return m.state, nil
}

func (m *mockGateway) CreateRefund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	m.refundCalls++
	m.refundPI = paymentIntentID
	m.refundAmount = amountCents
	return m.refundErr
}

// mockPublisher records published events.
type mockPublisher struct {
	events []models.OrderEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, event models.OrderEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}
