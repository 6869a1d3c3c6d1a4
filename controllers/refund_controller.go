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

type RefundController struct {
	Refunds services.RefundService
	Logger  *zap.Logger
}

// RequestRefund always answers 200 with {"ok":true} or
// {"error":"<message>"} so the caller can render the message directly;
// expected business failures never surface as HTTP errors.
func (rc *RefundController) RequestRefund(c *gin.Context) {
	email := middleware.GetUserEmail(c)
	if email == "" {
		c.JSON(http.StatusOK, gin.H{"error": apperrors.ErrUnauthenticated.Message})
		return
	}

	orderID, err := uuid.Parse(c.PostForm("order_id"))
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": apperrors.ErrOrderNotFound.Message})
		return
	}

	if err := rc.Refunds.RequestRefund(c.Request.Context(), email, orderID); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": apperrors.UserMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
