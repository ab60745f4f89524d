package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/RedzAdmin/Dark-Panel/config"
	"github.com/RedzAdmin/Dark-Panel/internal/logger"
)

// AdminRouter handles the admin panel entry, admin callbacks and
// /approve. Implemented by internal/admin.
type AdminRouter interface {
	HandlePanel(msg *tgbotapi.Message)
	HandleCallback(query *tgbotapi.CallbackQuery)
	HandleApprove(msg *tgbotapi.Message)
}

type Handler struct {
	bot     Sender
	store   Store
	panel   Provisioner
	states  *StateStore
	plans   *config.PlanConfig
	admin   AdminRouter
	limiter *RateLimiter
}

func NewHandler(bot Sender, store Store, panel Provisioner, plans *config.PlanConfig, admin AdminRouter) *Handler {
	return &Handler{
		bot:     bot,
		store:   store,
		panel:   panel,
		states:  NewStateStore(),
		plans:   plans,
		admin:   admin,
		limiter: NewRateLimiter(),
	}
}

// States exposes the conversation store for the cron pruner.
func (h *Handler) States() *StateStore { return h.states }

func (h *Handler) HandleUpdate(update tgbotapi.Update) {
	defer logger.NotifyOnPanic("HandleUpdate")

	if update.CallbackQuery != nil {
		h.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	userID := msg.From.ID

	// Register/refresh the user on any inbound message.
	if _, err := h.store.EnsureUser(userID, msg.From.UserName); err != nil {
		logger.Error("ensure_user_failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	// Slash commands are limited by their name regardless of arguments;
	// button labels ("Buy Server") are limited by the full text.
	cmd := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(cmd, "/") {
		cmd = strings.Fields(cmd)[0]
	}
	if !h.store.IsAdmin(userID) && h.limiter.IsLimited(userID, cmd) {
		h.replyWithKeyboard(msg.Chat.ID, "Please slow down, wait a couple of seconds...", userID)
		return
	}

	switch {
	case strings.HasPrefix(msg.Text, "/start"):
		h.handleStart(msg)
	case strings.HasPrefix(msg.Text, "/help"), msg.Text == "Help":
		h.handleHelp(msg)
	case strings.HasPrefix(msg.Text, "/confirm"):
		h.handleConfirm(msg)
	case strings.HasPrefix(msg.Text, "/approve"):
		h.admin.HandleApprove(msg)
	case strings.HasPrefix(msg.Text, "/cancel"):
		h.states.Clear(userID)
		h.replyWithKeyboard(msg.Chat.ID, "Current operation cancelled.", userID)
	case msg.Text == "Buy Server":
		h.handleBuyMenu(msg)
	case msg.Text == "Renew Server":
		h.handleRenewMenu(msg)
	case msg.Text == "My Servers":
		h.handleMyServers(msg)
	case msg.Text == "Payment Methods":
		h.handlePaymentMethods(msg)
	case msg.Text == "Admin Panel":
		h.admin.HandlePanel(msg)
	default:
		h.handleText(msg)
	}
}

func (h *Handler) handleCallback(query *tgbotapi.CallbackQuery) {
	if query.From == nil || query.Message == nil {
		return
	}
	if _, err := h.store.EnsureUser(query.From.ID, query.From.UserName); err != nil {
		logger.Error("ensure_user_failed", zap.Int64("user_id", query.From.ID), zap.Error(err))
	}

	data := query.Data
	switch {
	case strings.HasPrefix(data, "buy_"):
		h.handleBuyPlan(query, strings.TrimPrefix(data, "buy_"))
	case strings.HasPrefix(data, "renew_"):
		h.handleRenew(query, strings.TrimPrefix(data, "renew_"))
	case data == "admin_broadcast":
		h.handleAdminBroadcast(query)
	case strings.HasPrefix(data, "admin_"), strings.HasPrefix(data, "confirm_"), data == "cancel_admin":
		h.admin.HandleCallback(query)
	default:
		h.answerCallback(query.ID, "Unknown action")
	}
}

func (h *Handler) handleStart(msg *tgbotapi.Message) {
	username := msg.From.UserName
	if username == "" {
		username = msg.From.FirstName
	}
	text := formatMessage("WELCOME", fmt.Sprintf(
		"Hello %s\nBot: %s\nSupport: %s",
		username, config.AppCfg.BotName, config.AppCfg.Owner))

	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = MainKeyboard(h.store.IsAdmin(msg.From.ID))
	if _, err := h.bot.Send(reply); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (h *Handler) handleHelp(msg *tgbotapi.Message) {
	h.reply(msg.Chat.ID, formatMessage("HELP",
		"Buy Server - purchase a new server\n"+
			"Renew Server - renew an existing server\n"+
			"My Servers - view your servers\n"+
			"Payment Methods - view payment options\n"+
			"/confirm <transaction_id> - submit a payment\n"+
			"/cancel - abort the current operation\n\n"+
			"Support: "+config.AppCfg.Owner))
}

func (h *Handler) handleBuyMenu(msg *tgbotapi.Message) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, formatMessage("SERVER PLANS",
		"Select a server plan.\nFree: 24h, renewable via a math task.\nPaid: 30 days access."))
	reply.ReplyMarkup = PlanKeyboard(h.plans)
	if _, err := h.bot.Send(reply); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (h *Handler) handleRenewMenu(msg *tgbotapi.Message) {
	servers, err := h.store.GetUserServers(msg.From.ID)
	if err != nil {
		logger.Error("list_servers_failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		h.reply(msg.Chat.ID, formatMessage("ERROR", "Could not load your servers, try again later."))
		return
	}
	if len(servers) == 0 {
		h.reply(msg.Chat.ID, formatMessage("NO SERVERS", "No servers to renew."))
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, formatMessage("RENEW SERVER", "Select a server to renew:"))
	reply.ReplyMarkup = RenewKeyboard(servers, h.plans)
	if _, err := h.bot.Send(reply); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

func (h *Handler) handleMyServers(msg *tgbotapi.Message) {
	servers, err := h.store.GetUserServers(msg.From.ID)
	if err != nil {
		logger.Error("list_servers_failed", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		h.reply(msg.Chat.ID, formatMessage("ERROR", "Could not load your servers, try again later."))
		return
	}
	if len(servers) == 0 {
		h.reply(msg.Chat.ID, formatMessage("NO SERVERS", "You have no servers.\nUse Buy Server to get one."))
		return
	}
	var sb strings.Builder
	for i, server := range servers {
		status := "Active"
		if !server.Active {
			status = "Inactive"
		}
		fmt.Fprintf(&sb, "%d. %s\nUsername: %s\nExpires: %s\nStatus: %s\n\n",
			i+1, strings.ToUpper(server.Plan), server.Username, formatTimeLeft(server.ExpiresAt), status)
	}
	sb.WriteString("Panel: " + config.AppCfg.PanelURL)
	h.reply(msg.Chat.ID, formatMessage("YOUR SERVERS", sb.String()))
}

func (h *Handler) handlePaymentMethods(msg *tgbotapi.Message) {
	var sb strings.Builder
	for _, method := range sortedKeys(h.plans.PaymentMethods) {
		fmt.Fprintf(&sb, "%s: %s\n", strings.ToUpper(method), h.plans.PaymentMethods[method])
	}
	sb.WriteString("\nAfter payment, use: /confirm <transaction_id>")
	h.reply(msg.Chat.ID, formatMessage("PAYMENT METHODS", sb.String()))
}

// handleAdminBroadcast arms broadcast mode. Gated here because the
// broadcast text arrives through the conversation state machine.
func (h *Handler) handleAdminBroadcast(query *tgbotapi.CallbackQuery) {
	if !h.store.IsAdmin(query.From.ID) {
		h.answerCallback(query.ID, "Admins only")
		return
	}
	h.ArmBroadcast(query.From.ID)
	h.reply(query.Message.Chat.ID, formatMessage("BROADCAST", "Send the message to broadcast to all users:"))
	h.answerCallback(query.ID, "")
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) replyWithKeyboard(chatID int64, text string, userID int64) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = MainKeyboard(h.store.IsAdmin(userID))
	if _, err := h.bot.Send(msg); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) answerCallback(id, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logger.Error("callback_answer_failed", zap.Error(err))
	}
}
