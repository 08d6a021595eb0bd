package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/guardops/internal/service/finance"
	"github.com/mamadbah2/guardops/internal/service/reporting"
	"github.com/mamadbah2/guardops/internal/service/schedule"
	"github.com/mamadbah2/guardops/internal/store"
)

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	var validation *schedule.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, finance.ErrInvalidTransaction), errors.Is(err, ErrInvalidEntity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, finance.ErrNotProjected):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrSuggestionsDisabled), errors.Is(err, reporting.ErrPublishDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": "internal error"})
			return
		}
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, logger *zap.Logger, err error) {
	logger.Warn("invalid request", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
