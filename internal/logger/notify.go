package logger

import (
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var (
	botInstance *tgbotapi.BotAPI
	adminID     int64
	once        sync.Once
)

// InitNotifier wires critical-alert delivery to the admin chat.
func InitNotifier(bot *tgbotapi.BotAPI, admin int64) {
	once.Do(func() {
		botInstance = bot
		adminID = admin
	})
}

// NotifyAdmin sends a critical alert to the admin. Best effort: if the
// notifier is not initialised or the send fails, the alert is only logged.
func NotifyAdmin(msg string) {
	Error("admin_alert", zap.String("alert", msg))
	if botInstance == nil || adminID == 0 {
		return
	}
	if _, err := botInstance.Send(tgbotapi.NewMessage(adminID, "[ALERT] "+msg)); err != nil {
		Error("admin_alert_delivery_failed", zap.Error(err))
	}
}

// NotifyOnPanic recovers a panic in a handler, logs it and alerts the admin.
func NotifyOnPanic(context string) {
	if r := recover(); r != nil {
		NotifyAdmin(fmt.Sprintf("Panic in %s: %v", context, r))
	}
}
