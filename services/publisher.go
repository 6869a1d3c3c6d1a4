package services

import (
	"context"

	"github.com/peandrade/ticketflow-sub001/models"
)

// EventPublisher publishes order lifecycle events. Publishing is
// best-effort; callers log failures and continue.
type EventPublisher interface {
	Publish(ctx context.Context, event models.OrderEvent) error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event models.OrderEvent) error {
	return nil
}
