package controllers

import (
	"net/http"

	"github.com/peandrade/ticketflow-sub001/apperrors"
	"github.com/peandrade/ticketflow-sub001/middleware"
	"github.com/peandrade/ticketflow-sub001/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutController struct {
	Checkout services.CheckoutService
	Logger   *zap.Logger
}

type checkoutForm struct {
	TicketTypeIDs []string `form:"ticket_type_id" binding:"required"`
	VariantIDs    []string `form:"variant_id" binding:"required"`
	Quantities    []int    `form:"quantity" binding:"required,dive,min=1"`
}

// StartCheckout validates the form-encoded cart and redirects the user
// to the provider's hosted checkout.
func (cc *CheckoutController) StartCheckout(c *gin.Context) {
	email := middleware.GetUserEmail(c)
	if email == "" {
		respondAppError(c, apperrors.ErrUnauthenticated)
		return
	}

	var form checkoutForm
	if err := c.ShouldBind(&form); err != nil {
		respondAppError(c, apperrors.Wrap(apperrors.ErrInvalidCart, err))
		return
	}
	if len(form.TicketTypeIDs) != len(form.VariantIDs) || len(form.VariantIDs) != len(form.Quantities) {
		respondAppError(c, apperrors.ErrInvalidCart)
		return
	}

	lines := make([]services.CartLine, 0, len(form.VariantIDs))
	for i := range form.VariantIDs {
		ticketTypeID, err := uuid.Parse(form.TicketTypeIDs[i])
		if err != nil {
			respondAppError(c, apperrors.ErrInvalidCart)
			return
		}
		variantID, err := uuid.Parse(form.VariantIDs[i])
		if err != nil {
			respondAppError(c, apperrors.ErrInvalidCart)
			return
		}
		lines = append(lines, services.CartLine{
			TicketTypeID: ticketTypeID,
			VariantID:    variantID,
			Quantity:     form.Quantities[i],
		})
	}

	url, err := cc.Checkout.Start(c.Request.Context(), email, lines)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, url)
}

// ResumeCheckout resumes payment of an existing, unfinished order.
func (cc *CheckoutController) ResumeCheckout(c *gin.Context) {
	email := middleware.GetUserEmail(c)
	if email == "" {
		respondAppError(c, apperrors.ErrUnauthenticated)
		return
	}

	orderID, err := uuid.Parse(c.PostForm("order_id"))
	if err != nil {
		respondAppError(c, apperrors.ErrOrderNotFound)
		return
	}

	url, err := cc.Checkout.Resume(c.Request.Context(), email, orderID)
	if err != nil {
		respondAppError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, url)
}
