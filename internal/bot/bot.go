package bot

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Run consumes updates via long polling. Updates are handled serially,
// so two inputs from the same user never race on conversation state.
func Run(botapi *tgbotapi.BotAPI, handler *Handler) {
	log.Printf("Authorized on account %s", botapi.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botapi.GetUpdatesChan(u)

	for update := range updates {
		handler.HandleUpdate(update)
	}
}
