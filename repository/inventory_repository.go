package repository

import (
	"context"
	"errors"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCounterNotFound = errors.New("inventory counter not found")

// InventoryRepository is the inventory ledger: one counter row per
// ticket type, atomic decrement on reserve and upsert-increment on
// restock.
type InventoryRepository interface {
	Get(ctx context.Context, ticketTypeID uuid.UUID) (*models.InventoryCounter, error)
	Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
	Restock(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error
}

type GormInventoryRepository struct {
	db *gorm.DB
}

func NewGormInventoryRepository(db *gorm.DB) InventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) Get(ctx context.Context, ticketTypeID uuid.UUID) (*models.InventoryCounter, error) {
	var ctr models.InventoryCounter
	err := r.db.WithContext(ctx).
		Where("ticket_type_id = ?", ticketTypeID).
		First(&ctr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCounterNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ctr, nil
}

func (r *GormInventoryRepository) Reserve(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	return ReserveTx(r.db.WithContext(ctx), ticketTypeID, quantity)
}

func (r *GormInventoryRepository) Restock(ctx context.Context, ticketTypeID uuid.UUID, quantity int) error {
	return RestockTx(r.db.WithContext(ctx), ticketTypeID, quantity)
}

// ReserveTx decrements available by quantity, guarded so the counter
// never goes negative. A ticket type without a counter row is treated
// as untracked and the reservation is allowed.
func ReserveTx(tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) error {
	res := tx.Model(&models.InventoryCounter{}).
		Where("ticket_type_id = ? AND available >= ?", ticketTypeID, quantity).
		UpdateColumn("available", gorm.Expr("available - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.InventoryCounter{}).
		Where("ticket_type_id = ?", ticketTypeID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperrors.ErrInsufficientStock
	}
	return nil
}

// RestockTx increments available by quantity, creating the counter row
// with available = quantity when none exists yet. Callers provide the
// exactly-once guarantee by running it inside the refund finalize
// transaction.
func RestockTx(tx *gorm.DB, ticketTypeID uuid.UUID, quantity int) error {
	ctr := models.InventoryCounter{TicketTypeID: ticketTypeID, Available: quantity}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ticket_type_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"available": gorm.Expr("inventory_counters.available + ?", quantity),
		}),
	}).Create(&ctr).Error
}
