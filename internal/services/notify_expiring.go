package services

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/RedzAdmin/Dark-Panel/internal/logger"
)

// NotifyExpiringServers warns owners whose servers expire within the
// lead window. Each server is warned once per period; renewal resets
// the latch.
func NotifyExpiringServers(bot Sender, store ServerStore, lead time.Duration) {
	servers, err := store.ExpiringServers(time.Now().Add(lead))
	if err != nil {
		logger.Error("expiring_query_failed", zap.Error(err))
		return
	}
	for _, server := range servers {
		msg := tgbotapi.NewMessage(server.UserID, fmt.Sprintf(
			"[EXPIRING SOON]\nServer: %s\nExpires: %s\nUse Renew Server to extend it.",
			strings.ToUpper(server.Plan), server.ExpiresAt.Format("2006-01-02 15:04")))
		if _, err := bot.Send(msg); err != nil {
			logger.Error("expiring_notify_failed", zap.Int64("user_id", server.UserID), zap.Error(err))
			continue
		}
		if err := store.MarkExpiryNotified(server.ID); err != nil {
			logger.Error("expiring_mark_failed", zap.String("server_id", server.ID), zap.Error(err))
		}
	}
}
