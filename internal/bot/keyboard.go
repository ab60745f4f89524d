package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/RedzAdmin/Dark-Panel/config"
	"github.com/RedzAdmin/Dark-Panel/internal/db"
)

func MainKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Buy Server"),
			tgbotapi.NewKeyboardButton("Renew Server"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("My Servers"),
			tgbotapi.NewKeyboardButton("Payment Methods"),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Help"),
			tgbotapi.NewKeyboardButton("Admin Panel"),
		))
	} else {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Help"),
		))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// PlanKeyboard lists one button per configured plan, free first.
func PlanKeyboard(plans *config.PlanConfig) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, name := range plans.Names() {
		details := plans.Plans[name]
		var label string
		if name == config.FreePlan {
			label = fmt.Sprintf("FREE - %dMB RAM", details.RAM)
		} else {
			label = fmt.Sprintf("%s - %dMB RAM - %s", strings.ToUpper(name), details.RAM, details.Price)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "buy_"+name)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// RenewKeyboard carries the server id in the callback payload, not the
// list position, so selections survive concurrent list changes.
func RenewKeyboard(servers []db.Server, plans *config.PlanConfig) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, server := range servers {
		var label string
		if server.Plan == config.FreePlan {
			label = "Renew FREE server"
		} else {
			label = fmt.Sprintf("Renew %s - %s", strings.ToUpper(server.Plan), plans.Plans[server.Plan].Price)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, "renew_"+server.ID)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
