// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-storefront/internal/model"
	"telegram-storefront/internal/pkg/lock"
	"telegram-storefront/internal/service"
)

// errorText turns a service error into chat copy. Errors the user cannot act
// on are logged and collapsed into one generic reply.
func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		return "❌ Product not found"
	case errors.Is(err, service.ErrUserNotFound):
		return "❌ User not found. They need to /start the bot first"
	case errors.Is(err, service.ErrNotFound):
		return "❌ Not found"
	case errors.Is(err, service.ErrOutOfStock):
		return "❌ Sold out"
	case errors.Is(err, service.ErrInsufficientFunds):
		return "❌ Insufficient funds. Top up in the store app"
	case errors.Is(err, service.ErrInvalidAmount):
		return "❌ Invalid amount"
	case errors.Is(err, service.ErrValidation):
		return "❌ Invalid input"
	case errors.Is(err, service.ErrForbidden):
		return "❌ Admin rights required"
	case errors.Is(err, lock.ErrLockTimeout), errors.Is(err, context.DeadlineExceeded):
		return "⏳ Busy right now, please try again"
	default:
		log.Error().Err(err).Msg("Bot operation failed")
		return "❌ Something went wrong, please try again later"
	}
}

// IdentityOf maps a Telegram sender to the identity used for registration.
func IdentityOf(sender *tele.User) model.Identity {
	username := sender.Username
	if username == "" {
		username = strings.TrimSpace(sender.FirstName + " " + sender.LastName)
	}
	return model.Identity{ID: sender.ID, Username: username}
}

// callbackData returns the callback payload without telebot's "\f" marker.
func callbackData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return strings.TrimPrefix(cb.Data, "\f")
}
