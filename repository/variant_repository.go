package repository

import (
	"context"
	"errors"

	"github.com/peandrade/ticketflow-sub001/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrVariantNotFound = errors.New("ticket variant not found")

// VariantRepository reads priced ticket variants. Checkout re-prices
// every cart line against these rows.
type VariantRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.TicketVariant, error)
}

type GormVariantRepository struct {
	db *gorm.DB
}

func NewGormVariantRepository(db *gorm.DB) VariantRepository {
	return &GormVariantRepository{db: db}
}

func (r *GormVariantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TicketVariant, error) {
	var variant models.TicketVariant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&variant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, err
	}
	return &variant, nil
}
