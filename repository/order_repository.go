package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/peandrade/ticketflow-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository is the durable order store. All status writes are
// conditional so at-least-once, out-of-order webhook delivery and
// retried refund calls stay commutative and idempotent.
type OrderRepository interface {
	// Create persists the order and its items in one transaction and
	// reserves inventory for every line.
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// FindByIDAndEmail scopes the lookup to the owner; a mismatch is
	// indistinguishable from a missing order.
	FindByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (*models.Order, error)
	FindByEmail(ctx context.Context, email string) ([]models.Order, error)
	FindIDByStripeSession(ctx context.Context, sessionID string) (uuid.UUID, error)
	SetStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error
	// UpdateStatusIf moves status to `to` only when the current status
	// is one of `from`. Returns whether a row was changed.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) (bool, error)
	// UpdateStatusIfNot moves status to `to` only when the current
	// status is none of `notFrom`.
	UpdateStatusIfNot(ctx context.Context, id uuid.UUID, to models.OrderStatus, notFrom ...models.OrderStatus) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) error
	// EarliestPerformanceStart returns the earliest performance start
	// linked to the order's items, or nil when no item has one.
	EarliestPerformanceStart(ctx context.Context, orderID uuid.UUID) (*time.Time, error)
	// FinalizeRefund marks the order REFUNDED and restocks every line
	// in one transaction. When the order is already REFUNDED the
	// restock is skipped, so a retried call cannot double-apply it.
	// Returns whether the transition was applied by this call.
	FinalizeRefund(ctx context.Context, orderID uuid.UUID, restock []models.RestockLine) (bool, error)
}

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) OrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := ReserveTx(tx, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByIDAndEmail(ctx context.Context, id uuid.UUID, email string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_email = ?", id, email).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByEmail(ctx context.Context, email string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_email = ?", email).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *GormOrderRepository) FindIDByStripeSession(ctx context.Context, sessionID string) (uuid.UUID, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Select("id").
		Where("stripe_session_id = ?", sessionID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, ErrOrderNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}
	return order.ID, nil
}

func (r *GormOrderRepository) SetStripeSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("stripe_session_id", sessionID).Error
}

func (r *GormOrderRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, to models.OrderStatus, from ...models.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *GormOrderRepository) UpdateStatusIfNot(ctx context.Context, id uuid.UUID, to models.OrderStatus, notFrom ...models.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status NOT IN ?", id, notFrom).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *GormOrderRepository) SetStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", to).Error
}

func (r *GormOrderRepository) EarliestPerformanceStart(ctx context.Context, orderID uuid.UUID) (*time.Time, error) {
	var start sql.NullTime
	row := r.db.WithContext(ctx).Raw(`
		SELECT MIN(p.starts_at)
		FROM order_items oi
		JOIN ticket_types tt ON tt.id = oi.ticket_type_id
		JOIN performances p ON p.id = tt.performance_id
		WHERE oi.order_id = ?`, orderID).Row()
	if err := row.Scan(&start); err != nil {
		return nil, err
	}
	if !start.Valid {
		return nil, nil
	}
	t := start.Time
	return &t, nil
}

func (r *GormOrderRepository) FinalizeRefund(ctx context.Context, orderID uuid.UUID, restock []models.RestockLine) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status <> ?", orderID, models.OrderRefunded).
			Update("status", models.OrderRefunded)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already refunded; the restock was applied by the call
			// that performed the transition.
			return nil
		}
		applied = true
		for _, line := range restock {
			if err := RestockTx(tx, line.TicketTypeID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
