package controllers

import (
	"errors"
	"net/http"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryController serves public ticket availability reads from the
// inventory ledger.
type InventoryController struct {
	Inventory repository.InventoryRepository
	Logger    *zap.Logger
}

// GetAvailability reports remaining sellable units for a ticket type.
// A ticket type without a counter row is untracked and sells without
// limit.
func (ic *InventoryController) GetAvailability(c *gin.Context) {
	ticketTypeID, err := uuid.Parse(c.Param("ticket_type_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tipo de ingresso não encontrado."})
		return
	}

	counter, err := ic.Inventory.Get(c.Request.Context(), ticketTypeID)
	if errors.Is(err, repository.ErrCounterNotFound) {
		c.JSON(http.StatusOK, gin.H{
			"ticket_type_id": ticketTypeID,
			"tracked":        false,
		})
		return
	}
	if err != nil {
		ic.Logger.Error("Failed to read inventory counter",
			zap.String("ticket_type_id", ticketTypeID.String()),
			zap.Error(err),
		)
		respondAppError(c, apperrors.Wrap(apperrors.ErrPersist, err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ticket_type_id": ticketTypeID,
		"tracked":        true,
		"available":      counter.Available,
	})
}
