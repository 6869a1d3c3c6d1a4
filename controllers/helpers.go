package controllers

import (
	"errors"
	"net/http"

	"github.com/peandrade/ticketflow-sub001/apperrors"

	"github.com/gin-gonic/gin"
)

// respondAppError writes a typed application error as JSON, hiding the
// cause of anything that is not an *apperrors.Error.
func respondAppError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": apperrors.UserMessage(err)})
}
