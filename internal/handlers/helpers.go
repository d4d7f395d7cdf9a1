package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"healthtracker/internal/middleware"
	"healthtracker/internal/services"
)

// statusOf maps a domain error to its HTTP status; 0 means unmapped.
func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrNotVerified),
		errors.Is(err, services.ErrAlreadyConfirmed),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidRefreshToken),
		errors.Is(err, services.ErrInvalidVerificationCode),
		errors.Is(err, services.ErrNothingToUpdate),
		errors.Is(err, services.ErrInvalidMeasurement):
		return http.StatusBadRequest
	}
	return 0
}

// writeError renders err; unmapped errors are logged and hidden behind a 500.
func writeError(c *gin.Context, log *slog.Logger, err error) {
	if status := statusOf(err); status != 0 {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	log.Error("[http] internal error", "method", c.Request.Method, "path", c.FullPath(), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": services.ErrInternal.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

func message(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}
