package controllers

import (
	"errors"
	"net/http"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/middleware"
	"github.com/peandrade/ticketflow-sub001/repository"
	"github.com/peandrade/ticketflow-sub001/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderController serves the cached, owner-scoped order views that the
// checkout and refund flows invalidate on every transition.
type OrderController struct {
	Orders repository.OrderRepository
	Cache  services.OrderCache
	Logger *zap.Logger
}

func (oc *OrderController) ListOrders(c *gin.Context) {
	email := middleware.GetUserEmail(c)
	ctx := c.Request.Context()

	if orders, ok := oc.Cache.GetUserOrders(ctx, email); ok {
		c.JSON(http.StatusOK, gin.H{"orders": orders})
		return
	}

	orders, err := oc.Orders.FindByEmail(ctx, email)
	if err != nil {
		oc.Logger.Error("Failed to list orders", zap.String("email", email), zap.Error(err))
		respondAppError(c, apperrors.Wrap(apperrors.ErrPersist, err))
		return
	}

	oc.Cache.SetUserOrders(ctx, email, orders)
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (oc *OrderController) GetOrder(c *gin.Context) {
	email := middleware.GetUserEmail(c)
	ctx := c.Request.Context()

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondAppError(c, apperrors.ErrOrderNotFound)
		return
	}

	if order, ok := oc.Cache.GetOrder(ctx, orderID); ok {
		// Ownership still applies on cache hits.
		if order.UserEmail != email {
			respondAppError(c, apperrors.ErrOrderNotFound)
			return
		}
		c.JSON(http.StatusOK, gin.H{"order": order})
		return
	}

	order, err := oc.Orders.FindByIDAndEmail(ctx, orderID, email)
	if errors.Is(err, repository.ErrOrderNotFound) {
		respondAppError(c, apperrors.ErrOrderNotFound)
		return
	}
	if err != nil {
		oc.Logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		respondAppError(c, apperrors.Wrap(apperrors.ErrPersist, err))
		return
	}

	oc.Cache.SetOrder(ctx, order)
	c.JSON(http.StatusOK, gin.H{"order": order})
}
