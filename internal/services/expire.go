package services

import (
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/RedzAdmin/Dark-Panel/internal/db"
	"github.com/RedzAdmin/Dark-Panel/internal/logger"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ServerStore is what the scheduled jobs need from the record store.
type ServerStore interface {
	ExpiredServers(now time.Time) ([]db.Server, error)
	DeactivateServer(id string) error
	ExpiringServers(deadline time.Time) ([]db.Server, error)
	MarkExpiryNotified(id string) error
}

// DisableExpiredServers is the hourly sweep: deactivate every active
// server whose expiry has passed and notify the owner. Each server is
// handled independently; one failure never aborts the rest, and the
// guarded deactivate makes a repeat run a no-op.
func DisableExpiredServers(bot Sender, store ServerStore) {
	servers, err := store.ExpiredServers(time.Now())
	if err != nil {
		logger.Error("expiry_sweep_query_failed", zap.Error(err))
		return
	}
	var swept int
	for _, server := range servers {
		if err := store.DeactivateServer(server.ID); err != nil {
			// Already inactive (concurrent sweep or renewal race) or a
			// store error; either way skip the notification.
			if !errors.Is(err, db.ErrNotFound) {
				logger.Error("deactivate_failed", zap.String("server_id", server.ID), zap.Error(err))
			}
			continue
		}
		swept++
		msg := tgbotapi.NewMessage(server.UserID,
			"[SERVER EXPIRED]\nServer: "+strings.ToUpper(server.Plan)+"\nStatus: Expired\nUse Renew Server to get it back.")
		if _, err := bot.Send(msg); err != nil {
			logger.Error("expiry_notify_failed", zap.Int64("user_id", server.UserID), zap.Error(err))
		}
	}
	if swept > 0 {
		logger.Info("expiry_sweep_done", zap.Int("deactivated", swept))
	}
}
