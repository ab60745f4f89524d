package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/RedzAdmin/Dark-Panel/internal/db"
	"github.com/RedzAdmin/Dark-Panel/internal/logger"
	"github.com/RedzAdmin/Dark-Panel/internal/panel"
	"github.com/RedzAdmin/Dark-Panel/internal/services"
)

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Store interface {
	IsAdmin(telegramID int64) bool
	PendingPayments() ([]db.Payment, error)
	ApprovePayment(id string) (*db.Payment, error)
	CountUsers() int64
	CountServers() int64
	CountPayments() (total, confirmed int64)
	ListUsers(limit int) ([]db.User, error)
	CountUserServers(telegramID int64) int64
}

// Panel is the remote-inventory slice of the provisioning client. Bulk
// operations run against everything the panel reports, not just
// locally recorded servers.
type Panel interface {
	ListServers(ctx context.Context) ([]panel.Server, error)
	StopServer(ctx context.Context, id string) error
	SuspendServer(ctx context.Context, id string) error
	RestartServer(ctx context.Context, id string) error
}

const bulkOpTimeout = 5 * time.Minute

type Handler struct {
	bot   Sender
	store Store
	panel Panel
}

func NewHandler(bot Sender, store Store, panel Panel) *Handler {
	return &Handler{bot: bot, store: store, panel: panel}
}

// HandlePanel is the "Admin Panel" button. Denial is explicit
// everywhere, panel entry and callbacks alike.
func (h *Handler) HandlePanel(msg *tgbotapi.Message) {
	if !h.store.IsAdmin(msg.From.ID) {
		h.reply(msg.Chat.ID, formatMessage("ACCESS DENIED", "Admin only."))
		return
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, formatMessage("ADMIN PANEL", "Welcome, admin. Choose an action:"))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Broadcast", "admin_broadcast")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Shutdown All", "admin_shutdown")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Suspend All", "admin_suspend")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Restart All", "admin_restart")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Pending Payments", "admin_confirm")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Bot Stats", "admin_stats")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("User List", "admin_users")),
	)
	if _, err := h.bot.Send(reply); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
	}
}

// HandleCallback routes admin_* and confirm_* callbacks. Destructive
// bulk operations need the second confirm_* press before running.
func (h *Handler) HandleCallback(query *tgbotapi.CallbackQuery) {
	if !h.store.IsAdmin(query.From.ID) {
		h.answerCallback(query.ID, "Admins only")
		return
	}
	chatID := query.Message.Chat.ID

	switch query.Data {
	case "admin_shutdown":
		h.confirmPrompt(chatID, "SHUTDOWN ALL", "Confirm shutdown of ALL servers?\nThis cannot be undone!", "confirm_shutdown")
	case "admin_suspend":
		h.confirmPrompt(chatID, "SUSPEND ALL", "Confirm suspend of ALL servers?\nUsers cannot access suspended servers.", "confirm_suspend")
	case "admin_restart":
		h.confirmPrompt(chatID, "RESTART ALL", "Confirm restart of ALL servers?", "confirm_restart")
	case "confirm_shutdown":
		h.runBulk(query, "shutdown", h.panel.StopServer)
	case "confirm_suspend":
		h.runBulk(query, "suspend", h.panel.SuspendServer)
	case "confirm_restart":
		h.runBulk(query, "restart", h.panel.RestartServer)
	case "admin_confirm":
		h.handlePendingPayments(chatID)
	case "admin_stats":
		h.handleStats(chatID)
	case "admin_users":
		h.handleUsers(chatID)
	case "cancel_admin":
		h.deleteMessage(chatID, query.Message.MessageID)
		h.answerCallback(query.ID, "Action cancelled")
		return
	default:
		h.answerCallback(query.ID, "Unknown action")
		return
	}
	logger.LogAdminAction(query.From.ID, query.Data, "")
	h.answerCallback(query.ID, "")
}

func (h *Handler) confirmPrompt(chatID int64, title, text, confirmData string) {
	reply := tgbotapi.NewMessage(chatID, formatMessage(title, text))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("YES - proceed", confirmData)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("NO - cancel", "cancel_admin")),
	)
	if _, err := h.bot.Send(reply); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// runBulk applies op to every remote account the panel reports and
// reports the aggregate success count. Individual failures are logged,
// not surfaced one by one.
func (h *Handler) runBulk(query *tgbotapi.CallbackQuery, name string, op func(ctx context.Context, id string) error) {
	chatID := query.Message.Chat.ID
	edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID, "Running "+name+" on all servers...")
	if _, err := h.bot.Send(edit); err != nil {
		logger.Error("edit_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), bulkOpTimeout)
	defer cancel()
	servers, err := h.panel.ListServers(ctx)
	if err != nil {
		h.reply(chatID, formatMessage(strings.ToUpper(name)+" FAILED", "Error: "+err.Error()))
		return
	}
	var count int
	for _, server := range servers {
		if err := op(ctx, server.ID); err != nil {
			logger.Error("bulk_op_failed", zap.String("op", name), zap.String("server_id", server.ID), zap.Error(err))
			continue
		}
		count++
	}
	h.reply(chatID, formatMessage(strings.ToUpper(name)+" COMPLETE",
		fmt.Sprintf("Successfully applied %s to %d of %d servers", name, count, len(servers))))
}

func (h *Handler) handlePendingPayments(chatID int64) {
	pending, err := h.store.PendingPayments()
	if err != nil {
		h.reply(chatID, formatMessage("ERROR", "Could not load payments: "+err.Error()))
		return
	}
	if len(pending) == 0 {
		h.reply(chatID, formatMessage("NO PENDING", "No pending payments."))
		return
	}
	var sb strings.Builder
	for _, payment := range pending {
		fmt.Fprintf(&sb, "ID: %s\nUser: %d\nTX: %s\nAmount: %s\nMethod: %s\n\n",
			payment.ID, payment.UserID, payment.TransactionID, payment.Amount, payment.Method)
	}
	sb.WriteString("Use: /approve <payment_id>")
	h.reply(chatID, formatMessage("PENDING PAYMENTS", sb.String()))
}

func (h *Handler) handleStats(chatID int64) {
	total, confirmed := h.store.CountPayments()
	h.reply(chatID, formatMessage("BOT STATISTICS", fmt.Sprintf(
		"Total users: %d\nTotal servers: %d\nTotal payments: %d\nConfirmed payments: %d\nPanel: %s",
		h.store.CountUsers(), h.store.CountServers(), total, confirmed, services.PanelStatus())))
}

func (h *Handler) handleUsers(chatID int64) {
	users, err := h.store.ListUsers(20)
	if err != nil {
		h.reply(chatID, formatMessage("ERROR", "Could not load users: "+err.Error()))
		return
	}
	var sb strings.Builder
	for i, user := range users {
		fmt.Fprintf(&sb, "%d. @%s\nID: %d\nServers: %d\n",
			i+1, user.Username, user.TelegramID, h.store.CountUserServers(user.TelegramID))
	}
	fmt.Fprintf(&sb, "\nTotal users: %d", h.store.CountUsers())
	h.reply(chatID, formatMessage("USER LIST", sb.String()))
}

// HandleApprove confirms a pending payment by its id and notifies the
// payer. A notification failure is logged and does not roll back the
// approval.
func (h *Handler) HandleApprove(msg *tgbotapi.Message) {
	if !h.store.IsAdmin(msg.From.ID) {
		h.reply(msg.Chat.ID, formatMessage("ACCESS DENIED", "Admin only."))
		return
	}
	args := strings.Fields(msg.Text)
	if len(args) < 2 {
		h.reply(msg.Chat.ID, formatMessage("ERROR", "Usage: /approve <payment_id>"))
		return
	}
	payment, err := h.store.ApprovePayment(args[1])
	if err != nil {
		h.reply(msg.Chat.ID, formatMessage("ERROR", err.Error()))
		return
	}
	logger.LogAdminAction(msg.From.ID, "approve_payment", payment.ID)

	notice := tgbotapi.NewMessage(payment.UserID, formatMessage("PAYMENT APPROVED",
		"Your payment has been confirmed!\nServer activated for 30 days."))
	if _, err := h.bot.Send(notice); err != nil {
		logger.Error("approval_notify_failed", zap.Int64("user_id", payment.UserID), zap.Error(err))
	}

	h.reply(msg.Chat.ID, formatMessage("PAYMENT APPROVED", fmt.Sprintf(
		"Payment %s confirmed\nUser: %d\nTX: %s", payment.ID, payment.UserID, payment.TransactionID)))
}

func formatMessage(title, content string) string {
	return "[" + title + "]\n" + content
}

func (h *Handler) reply(chatID int64, text string) {
	if _, err := h.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Error("send_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (h *Handler) answerCallback(id, text string) {
	if _, err := h.bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		logger.Error("callback_answer_failed", zap.Error(err))
	}
}

func (h *Handler) deleteMessage(chatID int64, messageID int) {
	if _, err := h.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		logger.Error("delete_failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
