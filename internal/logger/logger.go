// Package logger is the bot's logging facade. Handlers and scheduled
// jobs log operational events here; anything the end user should see
// goes through the chat instead.
package logger

import (
	"go.uber.org/zap"
)

var log = zap.Must(zap.NewProduction()).Named("dark-panel")

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}

// LogAdminAction records an audit line for every admin operation.
func LogAdminAction(adminID int64, action, params string) {
	log.Info("admin_action", zap.Int64("admin_id", adminID), zap.String("action", action), zap.String("params", params))
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	_ = log.Sync()
}
