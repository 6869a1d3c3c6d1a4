package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of an order. Transitions are
// guarded: webhooks and the refund flow only move status forward
// through conditional updates, never unconditional overwrites (the
// single exception is charge.refunded, where the provider already
// moved the money).
type OrderStatus string

const (
	OrderCreated  OrderStatus = "CREATED"
	OrderPaid     OrderStatus = "PAID"
	OrderFailed   OrderStatus = "FAILED"
	OrderRefunded OrderStatus = "REFUNDED"
)

type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserEmail       string      `gorm:"type:varchar(255);not null;index" json:"user_email"`
	TotalCents      int         `gorm:"not null" json:"total_cents"`
	Status          OrderStatus `gorm:"type:varchar(20);not null;default:'CREATED';index" json:"status"`
	StripeSessionID *string     `gorm:"uniqueIndex" json:"stripe_session_id,omitempty"`
	CreatedAt       time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
	// Orders are never deleted; they remain as audit records.
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	Items     []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is immutable once its order is created. UnitPriceCents and
// FeeCents are split so receipts show the fee-free subtotal while the
// charged unit price is their sum.
type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	TicketTypeID   uuid.UUID `gorm:"type:uuid;not null;index" json:"ticket_type_id"`
	VariantID      uuid.UUID `gorm:"type:uuid;not null" json:"variant_id"`
	Quantity       int       `gorm:"not null" json:"quantity"`
	UnitPriceCents int       `gorm:"not null" json:"unit_price_cents"`
	FeeCents       int       `gorm:"not null" json:"fee_cents"`
}

type Performance struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title    string    `gorm:"type:varchar(255);not null" json:"title"`
	StartsAt time.Time `gorm:"not null" json:"starts_at"`
}

type TicketType struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PerformanceID *uuid.UUID `gorm:"type:uuid;index" json:"performance_id,omitempty"`
	Name          string     `gorm:"type:varchar(255);not null" json:"name"`
}

// TicketVariant is the server-side pricing truth for a ticket type.
// Carts are always re-priced against it; client-submitted prices are
// never trusted.
type TicketVariant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TicketTypeID uuid.UUID `gorm:"type:uuid;not null;index" json:"ticket_type_id"`
	Kind         string    `gorm:"type:varchar(20);not null" json:"kind"` // full, half, elderly, accessibility
	PriceCents   int       `gorm:"not null" json:"price_cents"`
	FeeCents     int       `gorm:"not null" json:"fee_cents"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
}

// InventoryCounter tracks remaining sellable units per ticket type.
// Available never goes negative: reservations are guarded decrements
// and restocks happen inside the refund finalize transaction.
type InventoryCounter struct {
	TicketTypeID uuid.UUID `gorm:"type:uuid;primaryKey" json:"ticket_type_id"`
	Available    int       `gorm:"not null" json:"available"`
}

// RestockLine is one inventory increment owed by a refund.
type RestockLine struct {
	TicketTypeID uuid.UUID `json:"ticket_type_id"`
	Quantity     int       `json:"quantity"`
}
