// Package bot provides middleware for the Telegram bot.
package bot

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-storefront/internal/handler"
	"telegram-storefront/internal/service"
)

// AdminMiddleware lets a command through only when the sender is an admin in
// the store, either configured in admin.ids or granted later. The verified
// user is stored under handler.ActorKey.
func AdminMiddleware(accounts *service.AccountService) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			if sender == nil {
				return nil
			}

			user, _, err := accounts.EnsureUser(context.Background(), handler.IdentityOf(sender))
			if err != nil {
				log.Error().Err(err).Int64("user_id", sender.ID).Msg("Failed to load admin")
				return c.Reply("❌ Something went wrong, please try again later")
			}

			if !user.IsAdmin {
				log.Warn().
					Int64("user_id", sender.ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted admin command")
				return c.Reply("❌ Admin rights required")
			}

			c.Set(handler.ActorKey, user)
			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming messages.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received message")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Send("❌ Something went wrong, please try again later")
				}
			}()
			return next(c)
		}
	}
}
