package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/richardliu001/org-wallet/internal/access"
	"github.com/richardliu001/org-wallet/internal/service"
	"go.uber.org/zap"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrRecipientNotEligible),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrBatchTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrWalletNotFound), errors.Is(err, access.ErrOrgNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrWalletInactive),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrConcurrentUpdate):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusInternalServerError:
		log.Errorw("request failed", "path", c.FullPath(), "requestID", c.GetString("request_id"), "err", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	case http.StatusServiceUnavailable:
		c.Header("Retry-After", "1")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
