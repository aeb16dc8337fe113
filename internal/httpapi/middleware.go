package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"telegram-storefront/internal/model"
)

const (
	authScheme = "tma "
	userKey    = "user"
)

// LoggingMiddleware logs every request with zerolog.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Debug()
		if c.Writer.Status() >= 500 {
			event = log.Warn()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// AuthMiddleware verifies the Mini App initData in the Authorization header,
// registers the user on first contact and stores them in the context.
func (s *Server) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, authScheme) {
			abortWithCode(c, http.StatusUnauthorized, CodeUnauthorized)
			return
		}

		data, err := ParseInitData(strings.TrimPrefix(header, authScheme), s.botToken, s.initDataMaxAge, s.now())
		if err != nil {
			if !errors.Is(err, ErrInitDataMissing) {
				log.Debug().Err(err).Msg("Rejected Mini App init data")
			}
			abortWithCode(c, http.StatusUnauthorized, CodeUnauthorized)
			return
		}

		user, _, err := s.accounts.EnsureUser(c.Request.Context(), data.User)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// currentUser returns the user stored by AuthMiddleware.
func currentUser(c *gin.Context) *model.User {
	return c.MustGet(userKey).(*model.User)
}

// requireAdmin rejects non-admin callers before any admin handler runs.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentUser(c).IsAdmin {
			abortWithCode(c, http.StatusForbidden, CodeForbidden)
			return
		}
		c.Next()
	}
}
