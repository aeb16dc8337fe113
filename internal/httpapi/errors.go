package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telegram-storefront/internal/pkg/lock"
	"telegram-storefront/internal/service"
)

// Error codes returned in {"error": code}. The Mini App owns the wording.
const (
	CodeNotFound          = "not_found"
	CodeProductNotFound   = "product_not_found"
	CodeUserNotFound      = "user_not_found"
	CodeValidation        = "validation_error"
	CodeInvalidAmount     = "invalid_amount"
	CodeOutOfStock        = "out_of_stock"
	CodeInsufficientFunds = "insufficient_funds"
	CodeForbidden         = "forbidden"
	CodeUnauthorized      = "unauthorized"
	CodeStoreUnavailable  = "store_unavailable"
	CodeBusy              = "busy"
)

// errorResponse maps a service error to its status and code. Order matters:
// specific sentinels wrap the generic ones.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound, CodeProductNotFound
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, CodeUserNotFound
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, service.ErrInvalidAmount):
		return http.StatusBadRequest, CodeInvalidAmount
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, service.ErrOutOfStock):
		return http.StatusConflict, CodeOutOfStock
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusConflict, CodeInsufficientFunds
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeBusy
	default:
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	}
}

// abortWithError writes the error body and logs anything the client cannot fix.
func abortWithError(c *gin.Context, err error) {
	status, code := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}

func abortWithCode(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code})
}
