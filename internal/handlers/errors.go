package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"livey-backend/internal/errs"
	"livey-backend/internal/middleware"
	"livey-backend/internal/models"
)

// respondError maps a service error to a status and a JSON body. Messages of
// 4xx errors are shown to the caller; 5xx details only reach the log.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, title := http.StatusInternalServerError, "Internal server error"
	switch {
	case errs.IsValidation(err):
		status, title = http.StatusBadRequest, "Validation failed"
	case errors.Is(err, errs.ErrNotFound):
		status, title = http.StatusNotFound, "Not found"
	case errors.Is(err, errs.ErrOutOfStock):
		status, title = http.StatusConflict, "Out of stock"
	case errors.Is(err, errs.ErrUnauthorized):
		status, title = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, errs.ErrRateLimited):
		status, title = http.StatusTooManyRequests, "Too many requests"
	}

	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, models.ErrorResponse{Error: title})
		return
	}
	c.JSON(status, models.ErrorResponse{Error: title, Message: err.Error()})
}

func currentSeller(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.SellerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Unauthorized", Message: "user id not found"})
	}
	return id, ok
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Not found", Message: "Order not found"})
		return uuid.Nil, false
	}
	return id, true
}
